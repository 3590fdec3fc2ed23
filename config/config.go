// Package config loads the onboard server configuration from ONBOARD_*
// environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/onboard/jwt"
	"github.com/joho/godotenv"
)

// ErrInvalidParameter is returned when a configuration value is invalid.
var ErrInvalidParameter = errors.New("invalid parameter")

// Config is the server configuration.
type Config struct {
	// Addr is the address the web server listens on.
	Addr string `env:"ADDR" envDefault:":3000"`

	// PublicURL is the browser-facing origin of the web server. It is sent
	// as the Origin of every auth service request.
	PublicURL string `env:"PUBLIC_URL" envDefault:"http://localhost:3000"`

	// AuthURL is the auth service's API root (ex: http://localhost:3000/api/auth).
	AuthURL string `env:"AUTH_URL"`

	// AuthCAPEM is an optional CA used to verify the auth service.
	AuthCAPEM string `env:"AUTH_CA_PEM"`

	// AuthTimeout bounds each auth service request.
	AuthTimeout time.Duration `env:"AUTH_TIMEOUT" envDefault:"10s"`

	// JWKSURL enables bearer JWT sessions verified against the key set.
	JWKSURL string `env:"JWKS_URL"`

	// JWTIssuer and JWTAudiences are the expected iss and aud claims.
	JWTIssuer    string   `env:"JWT_ISSUER"`
	JWTAudiences []string `env:"JWT_AUDIENCES" envSeparator:","`

	// JWTAlgorithms are the accepted signing algorithms (ex: EdDSA,RS256).
	// Empty accepts the jwt package defaults.
	JWTAlgorithms []string `env:"JWT_ALGORITHMS" envSeparator:","`

	// JWTNormalizeAudiences ignores trailing slashes when matching audiences.
	JWTNormalizeAudiences bool `env:"JWT_NORMALIZE_AUDIENCES"`

	// SecureCookies marks the cookies set by the web server Secure.
	SecureCookies bool `env:"SECURE_COOKIES"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON"`
}

// EnvPrefix prefixes every variable read by Load.
const EnvPrefix = "ONBOARD_"

// Load reads the configuration. Values in the process environment (or the
// map given by WithEnvironment) win over values read from WithDotEnv files.
// The process environment is never modified.
// Supported options:
//   - WithEnvironment
//   - WithDotEnv
func Load(opt ...Option) (*Config, error) {
	const op = "config.Load"
	opts := getOpts(opt...)

	vars := map[string]string{}
	if len(opts.withDotEnv) > 0 {
		fromFile, err := godotenv.Read(opts.withDotEnv...)
		if err != nil {
			return nil, fmt.Errorf("%s: unable to read env file: %w", op, err)
		}
		for k, v := range fromFile {
			vars[k] = v
		}
	}
	environment := opts.withEnvironment
	if environment == nil {
		environment = env.ToMap(os.Environ())
	}
	for k, v := range environment {
		vars[k] = v
	}

	c := &Config{}
	if err := env.ParseWithOptions(c, env.Options{
		Prefix:      EnvPrefix,
		Environment: vars,
	}); err != nil {
		return nil, fmt.Errorf("%s: parse env: %w", op, err)
	}
	c.AuthURL = strings.TrimRight(c.AuthURL, "/")
	c.PublicURL = strings.TrimRight(c.PublicURL, "/")

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	const op = "config.(Config).Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrInvalidParameter)
	}
	var retErr *multierror.Error
	if c.Addr == "" {
		retErr = multierror.Append(retErr, fmt.Errorf("%s: %sADDR is empty: %w", op, EnvPrefix, ErrInvalidParameter))
	}
	if err := validateURL(c.PublicURL); err != nil {
		retErr = multierror.Append(retErr, fmt.Errorf("%s: %sPUBLIC_URL: %w", op, EnvPrefix, err))
	}
	if err := validateURL(c.AuthURL); err != nil {
		retErr = multierror.Append(retErr, fmt.Errorf("%s: %sAUTH_URL: %w", op, EnvPrefix, err))
	}
	if c.JWKSURL != "" {
		if err := validateURL(c.JWKSURL); err != nil {
			retErr = multierror.Append(retErr, fmt.Errorf("%s: %sJWKS_URL: %w", op, EnvPrefix, err))
		}
		if err := jwt.SupportedSigningAlgorithm(c.SigningAlgorithms()...); err != nil {
			retErr = multierror.Append(retErr, fmt.Errorf("%s: %sJWT_ALGORITHMS: %w: %w", op, EnvPrefix, err, ErrInvalidParameter))
		}
	} else if c.JWTIssuer != "" || len(c.JWTAudiences) > 0 || len(c.JWTAlgorithms) > 0 || c.JWTNormalizeAudiences {
		retErr = multierror.Append(retErr, fmt.Errorf("%s: JWT claims are set without %sJWKS_URL: %w", op, EnvPrefix, ErrInvalidParameter))
	}
	if c.AuthTimeout < 0 {
		retErr = multierror.Append(retErr, fmt.Errorf("%s: %sAUTH_TIMEOUT %s is negative: %w", op, EnvPrefix, c.AuthTimeout, ErrInvalidParameter))
	}
	if c.ShutdownTimeout < 0 {
		retErr = multierror.Append(retErr, fmt.Errorf("%s: %sSHUTDOWN_TIMEOUT %s is negative: %w", op, EnvPrefix, c.ShutdownTimeout, ErrInvalidParameter))
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		retErr = multierror.Append(retErr, fmt.Errorf("%s: %sLOG_LEVEL %q is unknown: %w", op, EnvPrefix, c.LogLevel, ErrInvalidParameter))
	}
	return retErr.ErrorOrNil()
}

// SigningAlgorithms returns JWTAlgorithms as jwt algorithms.
func (c *Config) SigningAlgorithms() []jwt.Alg {
	if len(c.JWTAlgorithms) == 0 {
		return nil
	}
	algs := make([]jwt.Alg, 0, len(c.JWTAlgorithms))
	for _, a := range c.JWTAlgorithms {
		algs = append(algs, jwt.Alg(strings.TrimSpace(a)))
	}
	return algs
}

// Logger builds the root logger. A nil w writes to stderr.
func (c *Config) Logger(w io.Writer) hclog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "onboard",
		Level:      hclog.LevelFromString(c.LogLevel),
		JSONFormat: c.LogJSON,
		Output:     w,
	})
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("is empty: %w", ErrInvalidParameter)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%q is invalid: %w", raw, ErrInvalidParameter)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an http(s) URL: %w", raw, ErrInvalidParameter)
	}
	return nil
}
