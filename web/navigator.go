package web

import "net/http"

// Paths served by the web server.
const (
	RootPath           = "/"
	SignInPath         = "/sign-in"
	SignUpPath         = "/sign-up"
	SocialSignInPath   = "/sign-in/social"
	SignOutPath        = "/sign-out"
	DashboardPath      = "/dashboard"
	ChangePasswordPath = "/dashboard/password"
	HealthPath         = "/healthz"
)

// Navigator moves the client to another path of the application.
type Navigator interface {
	Push(path string)
}

// NavigatorFunc returns the Navigator for a single request.
type NavigatorFunc func(w http.ResponseWriter, r *http.Request) Navigator

type redirectNavigator struct {
	w http.ResponseWriter
	r *http.Request
}

// Push answers the request with a 303 See Other to path, so a form POST is
// followed by a GET.
func (n redirectNavigator) Push(path string) {
	http.Redirect(n.w, n.r, path, http.StatusSeeOther)
}

// RedirectNavigator is the default NavigatorFunc: navigation is a 303
// redirect.
func RedirectNavigator(w http.ResponseWriter, r *http.Request) Navigator {
	return redirectNavigator{w: w, r: r}
}
