package web

import (
	"net/http"
	"sync"
)

// page renders a single form as the only content of a document and
// navigates to successPath when the form reports success.
type page struct {
	form        Form
	nav         NavigatorFunc
	successPath string
}

func newPage(form Form, nav NavigatorFunc, successPath string) *page {
	if nav == nil {
		nav = RedirectNavigator
	}
	return &page{form: form, nav: nav, successPath: successPath}
}

// SignInPage is the sign-in route: the login form alone, centered in the
// page. A successful sign in navigates to the dashboard.
func SignInPage(form Form, nav NavigatorFunc) http.Handler {
	return newPage(form, nav, DashboardPath)
}

// SignUpPage is the sign-up route: the sign-up form alone, centered in the
// page. A successful sign up navigates to the dashboard.
func SignUpPage(form Form, nav NavigatorFunc) http.Handler {
	return newPage(form, nav, DashboardPath)
}

func (p *page) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var once sync.Once
	navigated := false
	onSuccess := func() {
		once.Do(func() {
			navigated = true
			p.nav(w, r).Push(p.successPath)
		})
	}
	res := p.form.Serve(w, r, onSuccess)
	if navigated {
		return
	}
	renderDocument(w, r, res)
}
