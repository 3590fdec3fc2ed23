package web

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/onboard/authclient"
)

type dashboardView struct {
	User               authclient.User
	CSRF               string
	ChangePasswordPath string
	SignOutPath        string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	info, ok := SessionFromContext(r.Context())
	if !ok {
		s.navigator(w, r).Push(SignInPath)
		return
	}
	renderFragment(w, r, "dashboard", dashboardView{
		User:               info.User,
		CSRF:               csrfToken(r.Context()),
		ChangePasswordPath: ChangePasswordPath,
		SignOutPath:        SignOutPath,
	}, http.StatusOK)
}

// handleSignOut ends the session and returns to the sign-in page. A session
// the auth service no longer knows is treated as already signed out.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	const op = "web.(Server).handleSignOut"
	resp, err := s.auth.SignOut(r.Context(),
		authclient.WithRequestCookies(forwardedCookies(r)...),
		authclient.WithRequestID(middleware.GetReqID(r.Context())),
	)
	if err != nil {
		apiErr, ok := authclient.AsAPIError(err)
		if !ok || apiErr.StatusCode >= http.StatusInternalServerError {
			s.logger.Error("unable to sign out", "op", op, "error", err)
			http.Error(w, "authentication service unavailable", http.StatusBadGateway)
			return
		}
		s.logger.Debug("sign out without a session", "op", op, "status", apiErr.StatusCode)
	} else {
		relayCookies(w, resp.Cookies, s.secureCookies)
	}
	s.navigator(w, r).Push(SignInPath)
}

// handleSocialSignIn starts a social sign in and sends the browser to the
// provider. The auth service's state cookie is relayed so the callback can
// be matched to this browser.
func (s *Server) handleSocialSignIn(w http.ResponseWriter, r *http.Request) {
	const op = "web.(Server).handleSocialSignIn"
	resp, err := authclient.SocialSignIn(r.Context(), s.auth,
		authclient.WithCallbackURL(s.publicURL+DashboardPath),
		authclient.WithNewUserCallbackURL(s.publicURL+DashboardPath),
		authclient.WithErrorCallbackURL(s.publicURL+SignInPath),
		authclient.WithDisableRedirect(),
		authclient.WithRequestCookies(forwardedCookies(r)...),
		authclient.WithRequestID(middleware.GetReqID(r.Context())),
	)
	if err != nil {
		s.logger.Error("unable to start social sign in", "op", op, "provider", authclient.DefaultSocialProvider, "error", err)
		msg := "Unable to continue with " + providerLabel(authclient.DefaultSocialProvider) + ", please try again."
		renderDocument(w, r, s.loginForm.Failure(r, msg, http.StatusBadGateway))
		return
	}
	relayCookies(w, resp.Cookies, s.secureCookies)
	http.Redirect(w, r, resp.URL, http.StatusSeeOther)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.navigator(w, r).Push(DashboardPath)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
