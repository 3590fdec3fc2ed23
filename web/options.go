package web

import (
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/onboard/jwt"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

const (
	// DefaultAddr is the address the server listens on by default.
	DefaultAddr = ":3000"

	// DefaultShutdownTimeout bounds graceful shutdown by default.
	DefaultShutdownTimeout = 10 * time.Second
)

type options struct {
	withLogger          hclog.Logger
	withAddr            string
	withPublicURL       string
	withValidator       *jwt.Validator
	withExpected        jwt.Expected
	withValidateOpts    []jwt.Option
	withSecureCookies   bool
	withNavigator       NavigatorFunc
	withShutdownTimeout time.Duration
}

func defaults() options {
	return options{
		withAddr:            DefaultAddr,
		withPublicURL:       "http://localhost:3000",
		withNavigator:       RedirectNavigator,
		withShutdownTimeout: DefaultShutdownTimeout,
	}
}

func getOpts(opt ...Option) options {
	opts := defaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withLogger = l
		}
	}
}

// WithAddr provides the address ListenAndServe listens on.
func WithAddr(addr string) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withAddr = addr
		}
	}
}

// WithPublicURL provides the browser-facing origin of the server, used to
// build the URLs the auth service sends browsers back to.
func WithPublicURL(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withPublicURL = u
		}
	}
}

// WithTokenValidator accepts bearer JWTs as sessions when they validate
// against expected. The jwt options are passed to every Validate call.
func WithTokenValidator(v *jwt.Validator, expected jwt.Expected, opt ...jwt.Option) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withValidator = v
			o.withExpected = expected
			o.withValidateOpts = opt
		}
	}
}

// WithSecureCookies marks every cookie the server sets Secure.
func WithSecureCookies(secure bool) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withSecureCookies = secure
		}
	}
}

// WithNavigator replaces how the server navigates clients. Defaults to
// RedirectNavigator.
func WithNavigator(n NavigatorFunc) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok && n != nil {
			o.withNavigator = n
		}
	}
}

// WithShutdownTimeout bounds how long ListenAndServe waits for requests in
// flight once its context is done.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withShutdownTimeout = d
		}
	}
}
