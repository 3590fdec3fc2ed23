package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/onboard/authclient"
)

// Form renders a form and handles its submissions. Serve calls onSuccess
// at most once, after the submission succeeded; otherwise it returns the
// fragment to show.
type Form interface {
	Serve(w http.ResponseWriter, r *http.Request, onSuccess func()) FormResult
}

// LoginForm signs users in with their email and password. It also offers
// social sign in.
type LoginForm struct {
	auth          authclient.Authenticator
	logger        hclog.Logger
	secureCookies bool
}

// NewLoginForm creates a LoginForm.
func NewLoginForm(auth authclient.Authenticator, logger hclog.Logger, secureCookies bool) *LoginForm {
	return &LoginForm{auth: auth, logger: nullIfNil(logger), secureCookies: secureCookies}
}

type loginView struct {
	Action       string
	SocialAction string
	SignUpPath   string
	CSRF         string
	Email        string
	RememberMe   bool
	Provider     authclient.Provider
	Error        string
}

func (f *LoginForm) view(r *http.Request) loginView {
	return loginView{
		Action:       SignInPath,
		SocialAction: SocialSignInPath,
		SignUpPath:   SignUpPath,
		CSRF:         csrfToken(r.Context()),
		RememberMe:   true,
		Provider:     authclient.DefaultSocialProvider,
	}
}

// Serve implements Form.
func (f *LoginForm) Serve(w http.ResponseWriter, r *http.Request, onSuccess func()) FormResult {
	const op = "web.(LoginForm).Serve"
	v := f.view(r)
	if r.Method != http.MethodPost {
		return f.result(v, http.StatusOK)
	}

	v.Email = strings.TrimSpace(r.PostFormValue("email"))
	v.RememberMe = r.PostFormValue("remember_me") != ""
	password := r.PostFormValue("password")
	if msg := validateEmail(v.Email); msg != "" {
		v.Error = msg
		return f.result(v, http.StatusBadRequest)
	}
	if password == "" {
		v.Error = "Password is required."
		return f.result(v, http.StatusBadRequest)
	}

	resp, err := f.auth.SignInEmail(r.Context(), v.Email, password,
		authclient.WithRememberMe(v.RememberMe),
		authclient.WithRequestID(middleware.GetReqID(r.Context())),
	)
	if err != nil {
		var status int
		v.Error, status = failure(f.logger, op, err)
		return f.result(v, status)
	}
	relayCookies(w, resp.Cookies, f.secureCookies)
	onSuccess()
	return FormResult{Status: http.StatusSeeOther}
}

// Failure returns the form showing msg, for failures that happen outside of
// Serve such as starting a social sign in.
func (f *LoginForm) Failure(r *http.Request, msg string, status int) FormResult {
	v := f.view(r)
	v.Error = msg
	return f.result(v, status)
}

func (f *LoginForm) result(v loginView, status int) FormResult {
	return formResult(f.logger, "login", v, status)
}

// SignUpForm creates accounts with a name, email and password.
type SignUpForm struct {
	auth          authclient.Authenticator
	logger        hclog.Logger
	secureCookies bool
}

// NewSignUpForm creates a SignUpForm.
func NewSignUpForm(auth authclient.Authenticator, logger hclog.Logger, secureCookies bool) *SignUpForm {
	return &SignUpForm{auth: auth, logger: nullIfNil(logger), secureCookies: secureCookies}
}

type signUpView struct {
	Action            string
	SignInPath        string
	CSRF              string
	Name              string
	Email             string
	MinPasswordLength int
	Error             string
	Notice            string
}

// Serve implements Form.
func (f *SignUpForm) Serve(w http.ResponseWriter, r *http.Request, onSuccess func()) FormResult {
	const op = "web.(SignUpForm).Serve"
	v := signUpView{
		Action:            SignUpPath,
		SignInPath:        SignInPath,
		CSRF:              csrfToken(r.Context()),
		MinPasswordLength: minPasswordLength,
	}
	if r.Method != http.MethodPost {
		return f.result(v, http.StatusOK)
	}

	v.Name = strings.TrimSpace(r.PostFormValue("name"))
	v.Email = strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	confirmation := r.PostFormValue("password_confirmation")
	for _, msg := range []string{validateName(v.Name), validateEmail(v.Email), validatePassword(password)} {
		if msg != "" {
			v.Error = msg
			return f.result(v, http.StatusBadRequest)
		}
	}
	if password != confirmation {
		v.Error = "Passwords do not match."
		return f.result(v, http.StatusBadRequest)
	}

	resp, err := f.auth.SignUpEmail(r.Context(), v.Name, v.Email, password,
		authclient.WithRequestID(middleware.GetReqID(r.Context())),
	)
	if err != nil {
		var status int
		v.Error, status = failure(f.logger, op, err)
		return f.result(v, status)
	}
	relayCookies(w, resp.Cookies, f.secureCookies)
	if resp.Token == "" {
		// the account exists but has no session until the email is verified
		v.Name, v.Email = "", ""
		v.Notice = "Check your email to verify your account, then sign in."
		return f.result(v, http.StatusOK)
	}
	onSuccess()
	return FormResult{Status: http.StatusSeeOther}
}

func (f *SignUpForm) result(v signUpView, status int) FormResult {
	return formResult(f.logger, "signup", v, status)
}

// ChangePasswordForm changes the password of the signed in user.
type ChangePasswordForm struct {
	auth          authclient.Authenticator
	logger        hclog.Logger
	secureCookies bool
}

// NewChangePasswordForm creates a ChangePasswordForm.
func NewChangePasswordForm(auth authclient.Authenticator, logger hclog.Logger, secureCookies bool) *ChangePasswordForm {
	return &ChangePasswordForm{auth: auth, logger: nullIfNil(logger), secureCookies: secureCookies}
}

type changePasswordView struct {
	Action              string
	DashboardPath       string
	CSRF                string
	MinPasswordLength   int
	RevokeOtherSessions bool
	Error               string
}

// Serve implements Form.
func (f *ChangePasswordForm) Serve(w http.ResponseWriter, r *http.Request, onSuccess func()) FormResult {
	const op = "web.(ChangePasswordForm).Serve"
	v := changePasswordView{
		Action:            ChangePasswordPath,
		DashboardPath:     DashboardPath,
		CSRF:              csrfToken(r.Context()),
		MinPasswordLength: minPasswordLength,
	}
	if r.Method != http.MethodPost {
		return f.result(v, http.StatusOK)
	}

	current := r.PostFormValue("current_password")
	next := r.PostFormValue("new_password")
	v.RevokeOtherSessions = r.PostFormValue("revoke_other_sessions") != ""
	if current == "" {
		v.Error = "Current password is required."
		return f.result(v, http.StatusBadRequest)
	}
	if msg := validatePassword(next); msg != "" {
		v.Error = msg
		return f.result(v, http.StatusBadRequest)
	}
	if next != r.PostFormValue("password_confirmation") {
		v.Error = "Passwords do not match."
		return f.result(v, http.StatusBadRequest)
	}

	opts := []authclient.Option{
		authclient.WithRequestCookies(forwardedCookies(r)...),
		authclient.WithRequestID(middleware.GetReqID(r.Context())),
	}
	if v.RevokeOtherSessions {
		opts = append(opts, authclient.WithRevokeOtherSessions())
	}
	resp, err := f.auth.ChangePassword(r.Context(), current, next, opts...)
	if err != nil {
		var status int
		v.Error, status = failure(f.logger, op, err)
		return f.result(v, status)
	}
	relayCookies(w, resp.Cookies, f.secureCookies)
	onSuccess()
	return FormResult{Status: http.StatusSeeOther}
}

func (f *ChangePasswordForm) result(v changePasswordView, status int) FormResult {
	return formResult(f.logger, "password", v, status)
}

func formResult(logger hclog.Logger, name string, data interface{}, status int) FormResult {
	body, err := fragment(name, data)
	if err != nil {
		logger.Error("unable to render form", "form", name, "error", err)
		return FormResult{Status: http.StatusInternalServerError, Body: "<p>internal error</p>"}
	}
	return FormResult{Status: status, Body: body}
}

func nullIfNil(l hclog.Logger) hclog.Logger {
	if l == nil {
		return hclog.NewNullLogger()
	}
	return l
}
