package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/onboard/authclient"
)

// SessionInfo is the session a request was authenticated with.
type SessionInfo struct {
	User authclient.User

	// Session is set for cookie sessions resolved by the auth service.
	Session *authclient.Session

	// Claims are set for sessions carried by a verified bearer JWT.
	Claims map[string]interface{}
}

type sessionKey struct{}

// SessionFromContext returns the session RequireSession resolved.
func SessionFromContext(ctx context.Context) (*SessionInfo, bool) {
	s, ok := ctx.Value(sessionKey{}).(*SessionInfo)
	return s, ok && s != nil
}

var errInvalidToken = errors.New("invalid bearer token")

// RequireSession only lets requests with a session through. Requests
// without one are sent to the sign-in page; requests with an invalid bearer
// token are answered 401.
func (s *Server) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "web.(Server).RequireSession"
		info, err := s.resolveSession(w, r)
		switch {
		case err == nil:
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, info)))
		case errors.Is(err, errInvalidToken):
			s.logger.Warn("rejected bearer token", "op", op, "error", err)
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			http.Error(w, "invalid token", http.StatusUnauthorized)
		case errors.Is(err, authclient.ErrNoSession), errors.Is(err, authclient.ErrUnauthorized):
			s.navigator(w, r).Push(SignInPath)
		default:
			s.logger.Error("unable to resolve session", "op", op, "error", err)
			http.Error(w, "authentication service unavailable", http.StatusBadGateway)
		}
	})
}

// resolveSession finds the request's session: a bearer JWT verified
// locally when a validator is configured, otherwise the auth service's
// view of the forwarded cookies.
func (s *Server) resolveSession(w http.ResponseWriter, r *http.Request) (*SessionInfo, error) {
	const op = "web.(Server).resolveSession"
	ctx := r.Context()
	if s.validator != nil {
		if tok := bearerToken(r); tok != "" {
			claims, err := s.validator.Validate(ctx, tok, s.expected, s.validateOpts...)
			if err != nil {
				return nil, fmt.Errorf("%s: %w: %s", op, errInvalidToken, err)
			}
			return &SessionInfo{User: userFromClaims(claims), Claims: claims}, nil
		}
	}

	resp, err := s.auth.GetSession(ctx,
		authclient.WithRequestCookies(forwardedCookies(r)...),
		authclient.WithRequestID(middleware.GetReqID(ctx)),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// the auth service may refresh the session cookie
	relayCookies(w, resp.Cookies, s.secureCookies)
	info := &SessionInfo{Session: resp.Session}
	if resp.User != nil {
		info.User = *resp.User
	}
	return info, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > len("bearer ") && strings.EqualFold(h[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(h[len("bearer "):])
	}
	return ""
}

func userFromClaims(claims map[string]interface{}) authclient.User {
	str := func(k string) string {
		v, _ := claims[k].(string)
		return v
	}
	verified, _ := claims["emailVerified"].(bool)
	return authclient.User{
		ID:            str("sub"),
		Name:          str("name"),
		Email:         str("email"),
		EmailVerified: verified,
		Image:         str("image"),
	}
}
