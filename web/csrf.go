package web

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/hashicorp/onboard/sdk/id"
)

const (
	// CSRFCookieName is the cookie holding the double-submit token.
	CSRFCookieName = "onboard_csrf"

	// CSRFFieldName is the form field every POST must echo the token in.
	CSRFFieldName = "csrf_token"
)

type csrfKey struct{}

// csrfToken returns the token forms must embed.
func csrfToken(ctx context.Context) string {
	tok, _ := ctx.Value(csrfKey{}).(string)
	return tok
}

// csrfProtect issues a token cookie to clients without one and rejects
// POSTs whose form field doesn't match the cookie.
func (s *Server) csrfProtect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		if c, err := r.Cookie(CSRFCookieName); err == nil && c.Value != "" {
			token = c.Value
		} else {
			token, err = id.NewToken()
			if err != nil {
				s.logger.Error("unable to generate csrf token", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     CSRFCookieName,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.secureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}

		if r.Method == http.MethodPost {
			got := r.PostFormValue(CSRFFieldName)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				s.logger.Warn("csrf token mismatch", "path", r.URL.Path)
				http.Error(w, "invalid csrf token", http.StatusForbidden)
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfKey{}, token)))
	})
}
