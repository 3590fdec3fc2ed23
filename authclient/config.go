package authclient

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	sdkHttp "github.com/hashicorp/onboard/sdk/http"
)

// DefaultTimeout bounds each request made to the auth service.
const DefaultTimeout = 10 * time.Second

// Config represents the configuration of a Client.
type Config struct {
	// BaseURL is the auth service's API root, including its base path (ex:
	// https://example.com/api/auth).
	BaseURL string

	// Origin is sent as the Origin header of every request and must be one of
	// the auth service's trusted origins.
	Origin string

	// ProviderCA is an optional CA cert to use when sending requests to the
	// auth service.
	ProviderCA string

	// Timeout bounds each request. Zero means requests are only bounded by
	// their context.
	Timeout time.Duration

	// Logger is an optional logger.
	Logger hclog.Logger

	// HTTPClient is an optional client replacing the one built from
	// ProviderCA and Timeout.
	HTTPClient *http.Client
}

// NewConfig composes a new config for a client.
// Supported options:
//   - WithOrigin
//   - WithProviderCA
//   - WithTimeout
//   - WithLogger
//   - WithHTTPClient
func NewConfig(baseURL string, opt ...Option) (*Config, error) {
	const op = "authclient.NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Origin:     opts.withOrigin,
		ProviderCA: opts.withProviderCA,
		Timeout:    opts.withTimeout,
		Logger:     opts.withLogger,
		HTTPClient: opts.withHTTPClient,
	}
	if c.Origin == "" {
		if u, err := url.Parse(c.BaseURL); err == nil && u.Host != "" {
			c.Origin = u.Scheme + "://" + u.Host
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid client config: %w", op, err)
	}
	return c, nil
}

// Validate the client configuration. It does not verify the auth service
// is reachable.
func (c *Config) Validate() error {
	const op = "authclient.(Config).Validate"
	if c == nil {
		return fmt.Errorf("%s: client config is nil: %w", op, ErrNilParameter)
	}
	var retErr *multierror.Error
	if err := validateHTTPURL(c.BaseURL, true); err != nil {
		retErr = multierror.Append(retErr, fmt.Errorf("%s: base URL: %w", op, err))
	}
	if err := validateHTTPURL(c.Origin, false); err != nil {
		retErr = multierror.Append(retErr, fmt.Errorf("%s: origin: %w", op, err))
	}
	if c.Timeout < 0 {
		retErr = multierror.Append(retErr, fmt.Errorf("%s: timeout %s is negative: %w", op, c.Timeout, ErrInvalidParameter))
	}
	return retErr.ErrorOrNil()
}

// httpClient returns the configured client, or a new pooled one for the
// config's CA and timeout.
func (c *Config) httpClient() (*http.Client, error) {
	if c.HTTPClient != nil {
		return c.HTTPClient, nil
	}
	// auth endpoints answer with redirects meant for browsers; callers relay
	// them instead of following them.
	client, err := sdkHttp.NewClient(c.ProviderCA, c.Timeout, sdkHttp.WithoutRedirects())
	if err != nil {
		if errors.Is(err, sdkHttp.ErrInvalidCertificatePem) {
			return nil, fmt.Errorf("could not parse CA PEM value: %w", ErrInvalidCACert)
		}
		return nil, fmt.Errorf("could not get an http client: %w", err)
	}
	return client, nil
}

func validateHTTPURL(raw string, allowPath bool) error {
	if raw == "" {
		return fmt.Errorf("is empty: %w", ErrInvalidParameter)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%q is invalid: %w", raw, ErrInvalidParameter)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q scheme is not http or https: %w", raw, ErrInvalidParameter)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host: %w", raw, ErrInvalidParameter)
	}
	if !allowPath && strings.Trim(u.Path, "/") != "" {
		return fmt.Errorf("%q must not have a path: %w", raw, ErrInvalidParameter)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("%q must not have a query or fragment: %w", raw, ErrInvalidParameter)
	}
	return nil
}
