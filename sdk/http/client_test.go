package http

import (
	"context"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestNewClient(t *testing.T) {
	t.Parallel()
	t.Run("system-ca", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewClient("", 5*time.Second)
		require.NoError(err)
		assert.Equal(5*time.Second, c.Timeout)
		tr, ok := c.Transport.(*http.Transport)
		require.True(ok)
		assert.Nil(tr.TLSClientConfig)
	})
	t.Run("invalid-ca", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewClient("not a pem", 0)
		require.Error(err)
		assert.ErrorIs(err, ErrInvalidCertificatePem)
		assert.Nil(c)
	})
	t.Run("tls-server-ca", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		c, err := NewClient(testCertPEM(t, srv), 0)
		require.NoError(err)
		resp, err := c.Get(srv.URL)
		require.NoError(err)
		defer resp.Body.Close()
		assert.Equal(http.StatusNoContent, resp.StatusCode)
	})
}

func TestNewClient_redirects(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/elsewhere" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer srv.Close()

	tests := []struct {
		name         string
		opt          []Option
		wantStatus   int
		wantLocation string
	}{
		{
			name:       "follows-by-default",
			wantStatus: http.StatusNoContent,
		},
		{
			name:         "without-redirects",
			opt:          []Option{WithoutRedirects()},
			wantStatus:   http.StatusFound,
			wantLocation: "/elsewhere",
		},
		{
			name:       "nil-option",
			opt:        []Option{nil},
			wantStatus: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			c, err := NewClient("", 0, tt.opt...)
			require.NoError(err)
			resp, err := c.Get(srv.URL)
			require.NoError(err)
			defer resp.Body.Close()
			assert.Equal(tt.wantStatus, resp.StatusCode)
			assert.Equal(tt.wantLocation, resp.Header.Get("Location"))
		})
	}
}

func TestClientContext(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	c, err := NewClient("", 0)
	require.NoError(err)
	ctx := ClientContext(context.Background(), c)
	got, ok := ctx.Value(oauth2.HTTPClient).(*http.Client)
	require.True(ok)
	require.Same(c, got)
}

func testCertPEM(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw}))
}
