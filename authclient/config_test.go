package authclient

import (
	"net/http"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()
	logger := hclog.NewNullLogger()
	httpClient := &http.Client{}

	type args struct {
		baseURL string
		opt     []Option
	}
	tests := []struct {
		name      string
		args      args
		want      *Config
		wantErr   bool
		wantIsErr error
	}{
		{
			name: "valid-with-all-valid-opts",
			args: args{
				baseURL: "https://auth.example.com/api/auth/",
				opt: []Option{
					WithOrigin("https://app.example.com"),
					WithTimeout(3 * time.Second),
					WithLogger(logger),
					WithHTTPClient(httpClient),
				},
			},
			want: &Config{
				BaseURL:    "https://auth.example.com/api/auth",
				Origin:     "https://app.example.com",
				Timeout:    3 * time.Second,
				Logger:     logger,
				HTTPClient: httpClient,
			},
		},
		{
			name: "origin-defaults-to-base-url-host",
			args: args{
				baseURL: "http://localhost:3000/api/auth",
			},
			want: &Config{
				BaseURL: "http://localhost:3000/api/auth",
				Origin:  "http://localhost:3000",
				Timeout: DefaultTimeout,
			},
		},
		{
			name:      "empty-base-url",
			args:      args{baseURL: ""},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name:      "bad-scheme",
			args:      args{baseURL: "ftp://auth.example.com/api/auth"},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name:      "query-in-base-url",
			args:      args{baseURL: "https://auth.example.com/api/auth?x=1"},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name: "origin-with-path",
			args: args{
				baseURL: "https://auth.example.com/api/auth",
				opt:     []Option{WithOrigin("https://app.example.com/welcome")},
			},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name: "negative-timeout",
			args: args{
				baseURL: "https://auth.example.com/api/auth",
				opt:     []Option{WithTimeout(-time.Second)},
			},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := NewConfig(tt.args.baseURL, tt.args.opt...)
			if tt.wantErr {
				require.Error(err)
				assert.Nil(got)
				if tt.wantIsErr != nil {
					assert.ErrorIs(err, tt.wantIsErr)
				}
				return
			}
			require.NoError(err)
			assert.Equal(tt.want, got)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()
	t.Run("nil-config", func(t *testing.T) {
		var c *Config
		err := c.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNilParameter)
	})
	t.Run("reports-every-problem", func(t *testing.T) {
		assert := assert.New(t)
		c := &Config{BaseURL: "", Origin: "nope", Timeout: -1}
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(err.Error(), "base URL")
		assert.Contains(err.Error(), "origin")
		assert.Contains(err.Error(), "timeout")
	})
}

func TestConfig_httpClient(t *testing.T) {
	t.Parallel()
	t.Run("invalid-ca", func(t *testing.T) {
		c := &Config{BaseURL: "https://auth.example.com", Origin: "https://auth.example.com", ProviderCA: "bad"}
		_, err := c.httpClient()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidCACert)
	})
	t.Run("provided-client-wins", func(t *testing.T) {
		want := &http.Client{}
		c := &Config{HTTPClient: want}
		got, err := c.httpClient()
		require.NoError(t, err)
		assert.Same(t, want, got)
	})
}
