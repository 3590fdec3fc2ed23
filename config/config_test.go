package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/onboard/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		env     map[string]string
		want    *Config
		wantErr string
	}{
		{
			name: "defaults",
			env:  map[string]string{"ONBOARD_AUTH_URL": "http://localhost:3000/api/auth/"},
			want: &Config{
				Addr:            ":3000",
				PublicURL:       "http://localhost:3000",
				AuthURL:         "http://localhost:3000/api/auth",
				AuthTimeout:     10 * time.Second,
				ShutdownTimeout: 10 * time.Second,
				LogLevel:        "info",
			},
		},
		{
			name: "overrides",
			env: map[string]string{
				"ONBOARD_ADDR":                    "127.0.0.1:8080",
				"ONBOARD_PUBLIC_URL":              "https://app.example.com/",
				"ONBOARD_AUTH_URL":                "https://auth.example.com/api/auth",
				"ONBOARD_AUTH_TIMEOUT":            "3s",
				"ONBOARD_JWKS_URL":                "https://auth.example.com/api/auth/jwks",
				"ONBOARD_JWT_ISSUER":              "https://auth.example.com",
				"ONBOARD_JWT_AUDIENCES":           "https://auth.example.com,https://app.example.com",
				"ONBOARD_JWT_ALGORITHMS":          "EdDSA,RS256",
				"ONBOARD_JWT_NORMALIZE_AUDIENCES": "true",
				"ONBOARD_SECURE_COOKIES":          "true",
				"ONBOARD_SHUTDOWN_TIMEOUT":        "1m",
				"ONBOARD_LOG_LEVEL":               "debug",
				"ONBOARD_LOG_JSON":                "true",
				"AUTH_URL":                        "http://ignored.example.com",
			},
			want: &Config{
				Addr:                  "127.0.0.1:8080",
				PublicURL:             "https://app.example.com",
				AuthURL:               "https://auth.example.com/api/auth",
				AuthTimeout:           3 * time.Second,
				JWKSURL:               "https://auth.example.com/api/auth/jwks",
				JWTIssuer:             "https://auth.example.com",
				JWTAudiences:          []string{"https://auth.example.com", "https://app.example.com"},
				JWTAlgorithms:         []string{"EdDSA", "RS256"},
				JWTNormalizeAudiences: true,
				SecureCookies:         true,
				ShutdownTimeout:       time.Minute,
				LogLevel:              "debug",
				LogJSON:               true,
			},
		},
		{
			name:    "missing auth url",
			env:     map[string]string{},
			wantErr: "ONBOARD_AUTH_URL",
		},
		{
			name:    "unparsable duration",
			env:     map[string]string{"ONBOARD_AUTH_URL": "http://localhost:3000/api/auth", "ONBOARD_AUTH_TIMEOUT": "soon"},
			wantErr: "parse env",
		},
		{
			name: "claims without jwks",
			env: map[string]string{
				"ONBOARD_AUTH_URL":   "http://localhost:3000/api/auth",
				"ONBOARD_JWT_ISSUER": "https://auth.example.com",
			},
			wantErr: "JWT claims are set without ONBOARD_JWKS_URL",
		},
		{
			name: "algorithms without jwks",
			env: map[string]string{
				"ONBOARD_AUTH_URL":       "http://localhost:3000/api/auth",
				"ONBOARD_JWT_ALGORITHMS": "RS256",
			},
			wantErr: "JWT claims are set without ONBOARD_JWKS_URL",
		},
		{
			name: "unsupported algorithm",
			env: map[string]string{
				"ONBOARD_AUTH_URL":       "http://localhost:3000/api/auth",
				"ONBOARD_JWKS_URL":       "http://localhost:3000/api/auth/jwks",
				"ONBOARD_JWT_ALGORITHMS": "EdDSA,none",
			},
			wantErr: "ONBOARD_JWT_ALGORITHMS",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := Load(WithEnvironment(tt.env))
			if tt.wantErr != "" {
				require.Error(err)
				assert.Contains(err.Error(), tt.wantErr)
				assert.Nil(got)
				return
			}
			require.NoError(err)
			assert.Equal(tt.want, got)
		})
	}
}

func TestLoad_dotEnv(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	dir := t.TempDir()
	first := filepath.Join(dir, "first.env")
	second := filepath.Join(dir, "second.env")
	require.NoError(os.WriteFile(first, []byte("ONBOARD_AUTH_URL=http://file.example.com/api/auth\nONBOARD_ADDR=:4000\nONBOARD_LOG_LEVEL=warn\n"), 0o600))
	require.NoError(os.WriteFile(second, []byte("ONBOARD_ADDR=:5000\n"), 0o600))

	got, err := Load(
		WithDotEnv(first, second),
		WithEnvironment(map[string]string{"ONBOARD_LOG_LEVEL": "error"}),
	)
	require.NoError(err)
	assert.Equal("http://file.example.com/api/auth", got.AuthURL)
	assert.Equal(":5000", got.Addr)
	assert.Equal("error", got.LogLevel)

	_, err = Load(WithDotEnv(filepath.Join(dir, "missing.env")), WithEnvironment(map[string]string{}))
	require.Error(err)
	assert.Contains(err.Error(), "unable to read env file")
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()
	t.Run("nil", func(t *testing.T) {
		var c *Config
		err := c.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidParameter)
	})
	t.Run("reports-every-problem", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c := &Config{
			PublicURL:       "ftp://app.example.com",
			AuthURL:         "not a url",
			JWKSURL:         "/jwks",
			AuthTimeout:     -time.Second,
			ShutdownTimeout: -time.Second,
			LogLevel:        "loud",
		}
		err := c.Validate()
		require.Error(err)
		assert.ErrorIs(err, ErrInvalidParameter)
		for _, want := range []string{"ADDR", "PUBLIC_URL", "AUTH_URL", "JWKS_URL", "AUTH_TIMEOUT", "SHUTDOWN_TIMEOUT", "LOG_LEVEL"} {
			assert.Contains(err.Error(), want)
		}
	})
}

func TestConfig_SigningAlgorithms(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.Nil((&Config{}).SigningAlgorithms())
	c := &Config{JWTAlgorithms: []string{"EdDSA", " ES256"}}
	assert.Equal([]jwt.Alg{jwt.EdDSA, jwt.ES256}, c.SigningAlgorithms())
}

func TestConfig_Logger(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	var buf bytes.Buffer
	c := &Config{LogLevel: "warn", LogJSON: true}
	l := c.Logger(&buf)
	l.Info("hidden")
	l.Warn("shown", "key", "value")
	assert.NotContains(buf.String(), "hidden")
	assert.Contains(buf.String(), `"@message":"shown"`)
	assert.Contains(buf.String(), `"key":"value"`)
	assert.True(l.IsWarn())
	assert.False(l.IsInfo())
}
