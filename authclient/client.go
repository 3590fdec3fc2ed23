package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/onboard/sdk/id"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 1 << 20

// SocialSignInner starts a social sign in with a provider.
type SocialSignInner interface {
	SignInSocial(ctx context.Context, provider Provider, opt ...Option) (*SocialSignInResponse, error)
}

// Authenticator is the set of operations the auth service offers to the
// rest of the application. *Client implements it; tests substitute fakes.
type Authenticator interface {
	SocialSignInner
	SignInEmail(ctx context.Context, email, password string, opt ...Option) (*SignInResponse, error)
	SignUpEmail(ctx context.Context, name, email, password string, opt ...Option) (*SignUpResponse, error)
	SignOut(ctx context.Context, opt ...Option) (*SignOutResponse, error)
	GetSession(ctx context.Context, opt ...Option) (*SessionResponse, error)
	ChangePassword(ctx context.Context, currentPassword, newPassword string, opt ...Option) (*ChangePasswordResponse, error)
}

var _ Authenticator = (*Client)(nil)

// Client makes requests to a better-auth compatible auth service. A Client
// is immutable once created and safe for concurrent use; create one at
// start-up and pass it to whatever needs it.
type Client struct {
	conf   *Config
	client *http.Client
	logger hclog.Logger
}

// NewClient creates a Client from the configuration.
func NewClient(c *Config) (*Client, error) {
	const op = "authclient.NewClient"
	if c == nil {
		return nil, fmt.Errorf("%s: client config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: client config is invalid: %w", op, err)
	}
	client, err := c.httpClient()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	logger := c.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Client{
		conf:   c,
		client: client,
		logger: logger.Named("authclient"),
	}, nil
}

// BaseURL returns the auth service's API root.
func (c *Client) BaseURL() string { return c.conf.BaseURL }

// SignInEmail signs a user in with their email and password.
// Supported options:
//   - WithCallbackURL
//   - WithRememberMe
//   - WithRequestCookies
//   - WithRequestID
func (c *Client) SignInEmail(ctx context.Context, email, password string, opt ...Option) (*SignInResponse, error) {
	const op = "authclient.(Client).SignInEmail"
	if email == "" {
		return nil, fmt.Errorf("%s: email is empty: %w", op, ErrInvalidParameter)
	}
	if password == "" {
		return nil, fmt.Errorf("%s: password is empty: %w", op, ErrInvalidParameter)
	}
	opts := getRequestOpts(opt...)
	in := signInEmailRequest{
		Email:       email,
		Password:    password,
		CallbackURL: opts.withCallbackURL,
		RememberMe:  opts.withRememberMe,
	}
	var out SignInResponse
	var tok tokenField
	cookies, err := c.do(ctx, http.MethodPost, "/sign-in/email", in, opts, &out, &tok)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out.Token, out.Cookies = tok.sessionToken(), cookies
	return &out, nil
}

// SignUpEmail creates a user with an email and password. Depending on the
// auth service's settings the user is signed in right away.
// Supported options:
//   - WithImage
//   - WithCallbackURL
//   - WithRememberMe
//   - WithRequestCookies
//   - WithRequestID
func (c *Client) SignUpEmail(ctx context.Context, name, email, password string, opt ...Option) (*SignUpResponse, error) {
	const op = "authclient.(Client).SignUpEmail"
	if name == "" {
		return nil, fmt.Errorf("%s: name is empty: %w", op, ErrInvalidParameter)
	}
	if email == "" {
		return nil, fmt.Errorf("%s: email is empty: %w", op, ErrInvalidParameter)
	}
	if password == "" {
		return nil, fmt.Errorf("%s: password is empty: %w", op, ErrInvalidParameter)
	}
	opts := getRequestOpts(opt...)
	in := signUpEmailRequest{
		Name:        name,
		Email:       email,
		Password:    password,
		Image:       opts.withImage,
		CallbackURL: opts.withCallbackURL,
		RememberMe:  opts.withRememberMe,
	}
	var out SignUpResponse
	var tok tokenField
	cookies, err := c.do(ctx, http.MethodPost, "/sign-up/email", in, opts, &out, &tok)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out.Token, out.Cookies = tok.sessionToken(), cookies
	return &out, nil
}

// SignOut ends the session identified by the forwarded cookies or bearer
// token. The returned cookies expire the session cookie.
// Supported options:
//   - WithRequestCookies
//   - WithBearerToken
//   - WithRequestID
func (c *Client) SignOut(ctx context.Context, opt ...Option) (*SignOutResponse, error) {
	const op = "authclient.(Client).SignOut"
	opts := getRequestOpts(opt...)
	var out SignOutResponse
	cookies, err := c.do(ctx, http.MethodPost, "/sign-out", struct{}{}, opts, &out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out.Cookies = cookies
	return &out, nil
}

// GetSession returns the session identified by the forwarded cookies or
// bearer token. It returns ErrNoSession when there is none.
// Supported options:
//   - WithRequestCookies
//   - WithBearerToken
//   - WithRequestID
func (c *Client) GetSession(ctx context.Context, opt ...Option) (*SessionResponse, error) {
	const op = "authclient.(Client).GetSession"
	opts := getRequestOpts(opt...)
	var out *SessionResponse
	cookies, err := c.do(ctx, http.MethodGet, "/get-session", nil, opts, &out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if out == nil || out.Session == nil || out.User == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNoSession)
	}
	out.Cookies = cookies
	return out, nil
}

// ChangePassword changes the password of the session's user.
// Supported options:
//   - WithRevokeOtherSessions
//   - WithRequestCookies
//   - WithBearerToken
//   - WithRequestID
func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string, opt ...Option) (*ChangePasswordResponse, error) {
	const op = "authclient.(Client).ChangePassword"
	if currentPassword == "" {
		return nil, fmt.Errorf("%s: current password is empty: %w", op, ErrInvalidParameter)
	}
	if newPassword == "" {
		return nil, fmt.Errorf("%s: new password is empty: %w", op, ErrInvalidParameter)
	}
	opts := getRequestOpts(opt...)
	in := changePasswordRequest{
		CurrentPassword:     currentPassword,
		NewPassword:         newPassword,
		RevokeOtherSessions: opts.withRevokeOtherSessions,
	}
	var out ChangePasswordResponse
	var tok tokenField
	cookies, err := c.do(ctx, http.MethodPost, "/change-password", in, opts, &out, &tok)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out.Token, out.Cookies = tok.sessionToken(), cookies
	return &out, nil
}

// SignInSocial starts a social sign in with the provider. The response's
// URL is the provider's authorization URL and its cookies carry the flow's
// state; both must reach the browser.
// Supported options:
//   - WithCallbackURL
//   - WithErrorCallbackURL
//   - WithNewUserCallbackURL
//   - WithDisableRedirect
//   - WithScopes
//   - WithRequestCookies
//   - WithRequestID
func (c *Client) SignInSocial(ctx context.Context, provider Provider, opt ...Option) (*SocialSignInResponse, error) {
	const op = "authclient.(Client).SignInSocial"
	if provider == "" {
		return nil, fmt.Errorf("%s: provider is empty: %w", op, ErrInvalidParameter)
	}
	opts := getRequestOpts(opt...)
	in := signInSocialRequest{
		Provider:           provider,
		CallbackURL:        opts.withCallbackURL,
		ErrorCallbackURL:   opts.withErrorCallbackURL,
		NewUserCallbackURL: opts.withNewUserCallbackURL,
		DisableRedirect:    opts.withDisableRedirect,
		Scopes:             opts.withScopes,
	}
	var out SocialSignInResponse
	cookies, err := c.do(ctx, http.MethodPost, "/sign-in/social", in, opts, &out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if out.URL == "" {
		return nil, fmt.Errorf("%s: provider authorization url is missing: %w", op, ErrInvalidResponse)
	}
	out.Cookies = cookies
	return &out, nil
}

// Token exchanges the session for a signed JWT, when the auth service has
// its jwt plugin enabled.
// Supported options:
//   - WithRequestCookies
//   - WithBearerToken
//   - WithRequestID
func (c *Client) Token(ctx context.Context, opt ...Option) (*TokenResponse, error) {
	const op = "authclient.(Client).Token"
	opts := getRequestOpts(opt...)
	var out TokenResponse
	if _, err := c.do(ctx, http.MethodGet, "/token", nil, opts, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if out.Token == "" {
		return nil, fmt.Errorf("%s: token is missing: %w", op, ErrInvalidResponse)
	}
	return &out, nil
}

// do sends one request and decodes a successful JSON body into every out.
// It returns the cookies the service set, or an *APIError for responses
// with an error status.
func (c *Client) do(ctx context.Context, method, path string, in interface{}, opts requestOptions, out ...interface{}) ([]*http.Cookie, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("unable to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.conf.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.conf.Origin != "" {
		req.Header.Set("Origin", c.conf.Origin)
	}
	requestID := opts.withRequestID
	if requestID == "" {
		if requestID, err = id.New("req"); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIdGeneratorFailed, err)
		}
	}
	req.Header.Set("X-Request-Id", requestID)
	for _, ck := range opts.withCookies {
		if ck != nil {
			req.AddCookie(ck)
		}
	}
	if opts.withBearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+string(opts.withBearerToken))
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("auth request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return nil, fmt.Errorf("%s %s: %w: %w", method, path, ErrUnavailable, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("auth request", "method", method, "path", path, "status", resp.StatusCode,
		"duration", time.Since(start), "request_id", requestID)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%s %s: unable to read response: %w: %w", method, path, ErrUnavailable, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return resp.Cookies(), fmt.Errorf("%s %s: %w", method, path, newAPIError(resp.StatusCode, raw))
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return resp.Cookies(), nil
	}
	for _, o := range out {
		if err := json.Unmarshal(raw, o); err != nil {
			return nil, fmt.Errorf("%s %s: unable to decode response: %w: %w", method, path, ErrInvalidResponse, err)
		}
	}
	return resp.Cookies(), nil
}
