package authclient

import (
	"encoding/json"
	"net/http"
	"time"
)

// SessionToken is an opaque session token issued by the auth service.
type SessionToken string

// RedactedSessionToken is the redacted string or json for a session token.
const RedactedSessionToken = "[REDACTED: session token]"

// String will redact the token.
func (t SessionToken) String() string {
	return RedactedSessionToken
}

// MarshalJSON will redact the token.
func (t SessionToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedSessionToken)
}

// Provider identifies a social identity provider configured on the auth
// service.
type Provider string

const (
	Google    Provider = "google"
	GitHub    Provider = "github"
	Apple     Provider = "apple"
	Discord   Provider = "discord"
	Microsoft Provider = "microsoft"
)

// User is the account the auth service authenticated.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	Image         string    `json:"image,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Session is an authenticated session of a User.
type Session struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	Token     SessionToken `json:"-"`
	ExpiresAt time.Time    `json:"expiresAt"`
	IPAddress string       `json:"ipAddress,omitempty"`
	UserAgent string       `json:"userAgent,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// UnmarshalJSON reads the token, which MarshalJSON redacts.
func (s *Session) UnmarshalJSON(data []byte) error {
	type session Session
	aux := struct {
		*session
		Token string `json:"token"`
	}{session: (*session)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Token = SessionToken(aux.Token)
	return nil
}

// IsExpired reports whether the session expired at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SignInResponse is the result of SignInEmail.
type SignInResponse struct {
	Redirect bool         `json:"redirect"`
	Token    SessionToken `json:"-"`
	URL      string       `json:"url,omitempty"`
	User     *User        `json:"user"`

	// Cookies the auth service set; relay them to the browser.
	Cookies []*http.Cookie `json:"-"`
}

// SignUpResponse is the result of SignUpEmail. Token is empty when the
// service requires email verification before the first session.
type SignUpResponse struct {
	Token SessionToken `json:"-"`
	User  *User        `json:"user"`

	Cookies []*http.Cookie `json:"-"`
}

// SignOutResponse is the result of SignOut.
type SignOutResponse struct {
	Success bool `json:"success"`

	Cookies []*http.Cookie `json:"-"`
}

// SessionResponse is the result of GetSession.
type SessionResponse struct {
	Session *Session `json:"session"`
	User    *User    `json:"user"`

	Cookies []*http.Cookie `json:"-"`
}

// ChangePasswordResponse is the result of ChangePassword. Token is set when
// other sessions were revoked and a new session replaced the current one.
type ChangePasswordResponse struct {
	Token SessionToken `json:"-"`
	User  *User        `json:"user"`

	Cookies []*http.Cookie `json:"-"`
}

// SocialSignInResponse is the result of SignInSocial. URL is the provider's
// authorization URL the browser must be sent to.
type SocialSignInResponse struct {
	URL      string `json:"url"`
	Redirect bool   `json:"redirect"`

	Cookies []*http.Cookie `json:"-"`
}

// TokenResponse is the result of Token: a signed JWT describing the
// session's user.
type TokenResponse struct {
	Token string `json:"token"`
}

// tokenField decodes the plain "token" field which the response types
// redact.
type tokenField struct {
	Token *string `json:"token"`
}

func (t tokenField) sessionToken() SessionToken {
	if t.Token == nil {
		return ""
	}
	return SessionToken(*t.Token)
}

type signInEmailRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CallbackURL string `json:"callbackURL,omitempty"`
	RememberMe  *bool  `json:"rememberMe,omitempty"`
}

type signUpEmailRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Image       string `json:"image,omitempty"`
	CallbackURL string `json:"callbackURL,omitempty"`
	RememberMe  *bool  `json:"rememberMe,omitempty"`
}

type changePasswordRequest struct {
	CurrentPassword     string `json:"currentPassword"`
	NewPassword         string `json:"newPassword"`
	RevokeOtherSessions bool   `json:"revokeOtherSessions,omitempty"`
}

type signInSocialRequest struct {
	Provider           Provider `json:"provider"`
	CallbackURL        string   `json:"callbackURL,omitempty"`
	ErrorCallbackURL   string   `json:"errorCallbackURL,omitempty"`
	NewUserCallbackURL string   `json:"newUserCallbackURL,omitempty"`
	DisableRedirect    bool     `json:"disableRedirect,omitempty"`
	Scopes             []string `json:"scopes,omitempty"`
}
