package http

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-cleanhttp"
)

var (
	ErrInvalidCertificatePem = errors.New("invalid certificate PEM")
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

type clientOptions struct {
	withoutRedirects bool
}

func getClientOpts(opt ...Option) clientOptions {
	var opts clientOptions
	for _, o := range opt {
		if o != nil {
			o(&opts)
		}
	}
	return opts
}

// WithoutRedirects returns redirect responses to the caller instead of
// following them.
func WithoutRedirects() Option {
	return func(o interface{}) {
		if o, ok := o.(*clientOptions); ok {
			o.withoutRedirects = true
		}
	}
}

// NewClient creates a new pooled http client which will use the optional CA
// certificate PEM if provided, otherwise it will use the installed system CA
// chain. A zero timeout means requests are only bounded by their context.
// Supported options:
//   - WithoutRedirects
func NewClient(caPEM string, timeout time.Duration, opt ...Option) (*http.Client, error) {
	opts := getClientOpts(opt...)
	tr := cleanhttp.DefaultPooledTransport()

	if caPEM != "" {
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM([]byte(caPEM)); !ok {
			return nil, ErrInvalidCertificatePem
		}

		tr.TLSClientConfig = &tls.Config{
			RootCAs:    certPool,
			MinVersion: tls.VersionTLS12,
		}
	}

	c := &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}
	if opts.withoutRedirects {
		c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return c, nil
}

// ClientContext is a helper function that returns a new Context that carries
// the provided HTTP client. This method sets the same context key used by the
// github.com/coreos/go-oidc and golang.org/x/oauth2 packages, so the returned
// context works for those packages as well.
func ClientContext(ctx context.Context, client *http.Client) context.Context {
	return oidc.ClientContext(ctx, client)
}
