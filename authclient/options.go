package authclient

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
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

// configOptions is the set of available options for NewConfig
type configOptions struct {
	withOrigin     string
	withProviderCA string
	withTimeout    time.Duration
	withLogger     hclog.Logger
	withHTTPClient *http.Client
}

func configDefaults() configOptions {
	return configOptions{
		withTimeout: DefaultTimeout,
	}
}

func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// requestOptions is the set of available options for a single client
// operation.
type requestOptions struct {
	withCookies             []*http.Cookie
	withBearerToken         SessionToken
	withRequestID           string
	withCallbackURL         string
	withErrorCallbackURL    string
	withNewUserCallbackURL  string
	withDisableRedirect     bool
	withRememberMe          *bool
	withImage               string
	withRevokeOtherSessions bool
	withScopes              []string
}

func requestDefaults() requestOptions {
	return requestOptions{}
}

func getRequestOpts(opt ...Option) requestOptions {
	opts := requestDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithOrigin provides the Origin header sent with every request. The auth
// service only accepts cookie-authenticated requests from trusted origins.
// Defaults to the scheme and host of the base URL.
func WithOrigin(origin string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withOrigin = origin
		}
	}
}

// WithProviderCA provides an optional CA cert used to verify the auth
// service's TLS certificate.
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}

// WithTimeout provides an optional per request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withTimeout = d
		}
	}
}

// WithLogger provides an optional logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withLogger = l
		}
	}
}

// WithHTTPClient provides an optional http client, which replaces the pooled
// client built from the config's CA and timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withHTTPClient = c
		}
	}
}

// WithRequestCookies forwards the browser's cookies (ex: the session cookie)
// with the request.
func WithRequestCookies(cookies ...*http.Cookie) Option {
	return func(o interface{}) {
		if o, ok := o.(*requestOptions); ok {
			o.withCookies = append(o.withCookies, cookies...)
		}
	}
}

// WithBearerToken authenticates the request with a session token in the
// Authorization header instead of cookies.
func WithBearerToken(t SessionToken) Option {
	return func(o interface{}) {
		if o, ok := o.(*requestOptions); ok {
			o.withBearerToken = t
		}
	}
}

// WithRequestID provides the X-Request-Id sent with the request. A new id
// is generated when it isn't provided.
func WithRequestID(id string) Option {
	return func(o interface{}) {
		if o, ok := o.(*requestOptions); ok {
			o.withRequestID = id
		}
	}
}

// WithCallbackURL provides the URL the auth service redirects to after a
// successful sign in or sign up.
func WithCallbackURL(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*requestOptions); ok {
			o.withCallbackURL = u
		}
	}
}

// WithErrorCallbackURL provides the URL the auth service redirects to when
// a social sign in fails at the provider.
func WithErrorCallbackURL(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*requestOptions); ok {
			o.withErrorCallbackURL = u
		}
	}
}

// WithNewUserCallbackURL provides the URL the auth service redirects to
// when a social sign in created a new user.
func WithNewUserCallbackURL(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*requestOptions); ok {
			o.withNewUserCallbackURL = u
		}
	}
}

// WithDisableRedirect asks the auth service not to redirect automatically
// after a social sign in starts.
func WithDisableRedirect() Option {
	return func(o interface{}) {
		if o, ok := o.(*requestOptions); ok {
			o.withDisableRedirect = true
		}
	}
}

// WithRememberMe controls whether the session outlives the browser session.
func WithRememberMe(remember bool) Option {
	return func(o interface{}) {
		if o, ok := o.(*requestOptions); ok {
			o.withRememberMe = &remember
		}
	}
}

// WithImage provides an optional profile image URL for a sign up.
func WithImage(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*requestOptions); ok {
			o.withImage = u
		}
	}
}

// WithRevokeOtherSessions revokes every other session of the user when the
// password changes.
func WithRevokeOtherSessions() Option {
	return func(o interface{}) {
		if o, ok := o.(*requestOptions); ok {
			o.withRevokeOtherSessions = true
		}
	}
}

// WithScopes provides additional provider scopes for a social sign in.
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*requestOptions); ok {
			o.withScopes = scopes
		}
	}
}
