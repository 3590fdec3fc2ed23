package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/onboard/authclient"
	"github.com/hashicorp/onboard/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCmd_invalidConfig(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"serve", "--auth-url", "not a url", "--log-level", "loud"})
	err := root.Execute()
	require.Error(err)
	assert.Contains(err.Error(), "ONBOARD_AUTH_URL")
	assert.Contains(err.Error(), "ONBOARD_LOG_LEVEL")
}

func TestServeCmd_unexpectedArgs(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"serve", "extra"})
	require.Error(t, root.Execute())
}

func TestNewServer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := authclient.StartTestServer(t)

	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "cookie-sessions",
			env: map[string]string{
				"ONBOARD_AUTH_URL":   ts.BaseURL(),
				"ONBOARD_PUBLIC_URL": authclient.TestOrigin,
			},
		},
		{
			name: "jwt-sessions",
			env: map[string]string{
				"ONBOARD_AUTH_URL":      ts.BaseURL(),
				"ONBOARD_PUBLIC_URL":    authclient.TestOrigin,
				"ONBOARD_JWKS_URL":      ts.JWKSURL(),
				"ONBOARD_JWT_ISSUER":    ts.Issuer(),
				"ONBOARD_JWT_AUDIENCES": ts.Issuer(),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			cfg, err := config.Load(config.WithEnvironment(tt.env))
			require.NoError(err)
			s, err := newServer(ctx, cfg, hclog.NewNullLogger())
			require.NoError(err)

			srv := httptest.NewServer(s)
			defer srv.Close()
			resp, err := http.Get(srv.URL + "/healthz")
			require.NoError(err)
			resp.Body.Close()
			assert.Equal(http.StatusOK, resp.StatusCode)
		})
	}
}

func TestNewServer_bearerSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := authclient.StartTestServer(t)
	ts.AddUser("Alice", "alice@example.com", "correct-horse-battery")
	_, cookie := ts.NewSession("alice@example.com")
	tok, err := ts.Client().Token(ctx, authclient.WithRequestCookies(cookie))
	require.NoError(t, err)

	tests := []struct {
		name       string
		env        map[string]string
		wantStatus int
	}{
		{
			name:       "audience-with-trailing-slash",
			env:        map[string]string{"ONBOARD_JWT_AUDIENCES": ts.Issuer() + "/"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "normalized-audiences",
			env: map[string]string{
				"ONBOARD_JWT_AUDIENCES":           ts.Issuer() + "/",
				"ONBOARD_JWT_NORMALIZE_AUDIENCES": "true",
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "algorithm-not-accepted",
			env:        map[string]string{"ONBOARD_JWT_ALGORITHMS": "RS256,ES256"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "algorithm-accepted",
			env:        map[string]string{"ONBOARD_JWT_ALGORITHMS": "RS256,EdDSA"},
			wantStatus: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			environment := map[string]string{
				"ONBOARD_AUTH_URL":   ts.BaseURL(),
				"ONBOARD_PUBLIC_URL": authclient.TestOrigin,
				"ONBOARD_JWKS_URL":   ts.JWKSURL(),
			}
			for k, v := range tt.env {
				environment[k] = v
			}
			cfg, err := config.Load(config.WithEnvironment(environment))
			require.NoError(err)
			s, err := newServer(ctx, cfg, hclog.NewNullLogger())
			require.NoError(err)

			srv := httptest.NewServer(s)
			defer srv.Close()
			req, err := http.NewRequest(http.MethodGet, srv.URL+"/dashboard", nil)
			require.NoError(err)
			req.Header.Set("Authorization", "Bearer "+tok.Token)
			resp, err := http.DefaultTransport.RoundTrip(req)
			require.NoError(err)
			resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestNewServer_badCA(t *testing.T) {
	t.Parallel()
	cfg, err := config.Load(config.WithEnvironment(map[string]string{
		"ONBOARD_AUTH_URL":    "https://auth.example.com/api/auth",
		"ONBOARD_AUTH_CA_PEM": "not a pem",
	}))
	require.NoError(t, err)
	_, err = newServer(context.Background(), cfg, hclog.NewNullLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, authclient.ErrInvalidCACert)
}
