package authclient

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/onboard/sdk/id"
	"github.com/stretchr/testify/require"
	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

const (
	// TestBasePath is the API root of a TestServer.
	TestBasePath = "/api/auth"

	// TestOrigin is the origin a TestServer trusts unless told otherwise.
	TestOrigin = "http://localhost:3000"

	// TestSessionCookie is the name of the session cookie a TestServer sets.
	TestSessionCookie = "better-auth.session_token"

	// TestStateCookie is the name of the social sign in state cookie a
	// TestServer sets.
	TestStateCookie = "better-auth.state"

	testMinPasswordLength = 8
	testSessionTTL        = 7 * 24 * time.Hour
	testJWTTTL            = 15 * time.Minute
)

// TestServer is a local server that imitates the HTTP surface of a
// better-auth service (email sign in and sign up, sessions, password
// changes, social sign in starts and the jwt plugin) which makes writing
// tests much easier. Its state lives in memory.
type TestServer struct {
	httpServer *httptest.Server

	mu                  sync.Mutex
	users               map[string]*testUser
	sessions            map[string]*Session
	trustedOrigins      []string
	authorizeURL        string
	requireVerification bool
	failures            map[string]*APIError
	calls               map[string]int
	lastBodies          map[string]map[string]interface{}
	lastHeaders         map[string]http.Header

	signingKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	keyID      string

	t *testing.T
}

type testUser struct {
	user     User
	password string
}

// StartTestServer creates a disposable TestServer which is stopped when the
// test completes.
func StartTestServer(t *testing.T) *TestServer {
	t.Helper()
	require := require.New(t)

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(err)
	keyID, err := id.New("key")
	require.NoError(err)

	s := &TestServer{
		users:          map[string]*testUser{},
		sessions:       map[string]*Session{},
		trustedOrigins: []string{TestOrigin},
		authorizeURL:   "https://accounts.example.com/o/oauth2/auth",
		failures:       map[string]*APIError{},
		calls:          map[string]int{},
		lastBodies:     map[string]map[string]interface{}{},
		lastHeaders:    map[string]http.Header{},
		signingKey:     priv,
		publicKey:      pub,
		keyID:          keyID,
		t:              t,
	}

	mux := http.NewServeMux()
	s.handle(mux, http.MethodPost, "/sign-up/email", s.signUpEmail)
	s.handle(mux, http.MethodPost, "/sign-in/email", s.signInEmail)
	s.handle(mux, http.MethodPost, "/sign-out", s.signOut)
	s.handle(mux, http.MethodGet, "/get-session", s.getSession)
	s.handle(mux, http.MethodPost, "/change-password", s.changePassword)
	s.handle(mux, http.MethodPost, "/sign-in/social", s.signInSocial)
	s.handle(mux, http.MethodGet, "/token", s.token)
	s.handle(mux, http.MethodGet, "/jwks", s.jwks)

	s.httpServer = httptest.NewServer(mux)
	t.Cleanup(s.httpServer.Close)
	return s
}

// Stop stops the running TestServer.
func (s *TestServer) Stop() {
	s.httpServer.Close()
}

// Addr returns the base URL of the test server's running webserver.
func (s *TestServer) Addr() string { return s.httpServer.URL }

// BaseURL returns the API root clients should be configured with.
func (s *TestServer) BaseURL() string { return s.httpServer.URL + TestBasePath }

// JWKSURL returns the URL of the server's JSON web key set.
func (s *TestServer) JWKSURL() string { return s.BaseURL() + "/jwks" }

// Issuer returns the issuer and audience of the JWTs the server signs.
func (s *TestServer) Issuer() string { return s.httpServer.URL }

// Client returns a new Client configured for the test server.
func (s *TestServer) Client(opt ...Option) *Client {
	s.t.Helper()
	require := require.New(s.t)
	opt = append([]Option{WithOrigin(TestOrigin)}, opt...)
	c, err := NewConfig(s.BaseURL(), opt...)
	require.NoError(err)
	client, err := NewClient(c)
	require.NoError(err)
	return client
}

// SigningKey returns the key which signs the server's JWTs and its key id.
func (s *TestServer) SigningKey() (ed25519.PublicKey, string) {
	return s.publicKey, s.keyID
}

// SetTrustedOrigins replaces the origins allowed to POST.
func (s *TestServer) SetTrustedOrigins(origins ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trustedOrigins = origins
}

// SetAuthorizeURL configures the provider authorization endpoint returned by
// social sign in starts.
func (s *TestServer) SetAuthorizeURL(u string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authorizeURL = u
}

// RequireEmailVerification makes sign ups return no session.
func (s *TestServer) RequireEmailVerification(required bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requireVerification = required
}

// SetFailure makes every request to path (relative to the API root, ex:
// "/sign-in/email") answer with the error until ClearFailures.
func (s *TestServer) SetFailure(path string, statusCode int, code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = &APIError{StatusCode: statusCode, Code: code, Message: message}
}

// ClearFailures removes every failure set by SetFailure.
func (s *TestServer) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = map[string]*APIError{}
}

// AddUser creates a user with a password.
func (s *TestServer) AddUser(name, email, password string) User {
	s.t.Helper()
	u, err := s.newUser(name, email, password)
	require.NoError(s.t, err)
	return u
}

// NewSession creates a session for the user with the email and returns the
// cookie that identifies it.
func (s *TestServer) NewSession(email string) (SessionToken, *http.Cookie) {
	s.t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(email)]
	require.Truef(s.t, ok, "no user with email %s", email)
	sess, err := s.newSessionLocked(u.user.ID, nil)
	require.NoError(s.t, err)
	return sess.Token, s.sessionCookie(sess, true)
}

// Calls returns how many requests the server received for path.
func (s *TestServer) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// LastRequest returns the decoded JSON body of the last request for path.
func (s *TestServer) LastRequest(path string) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBodies[path]
}

// LastHeader returns the headers of the last request for path.
func (s *TestServer) LastHeader(path string) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHeaders[path]
}

// SessionCount returns the number of live sessions.
func (s *TestServer) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// handle registers h for the method and path, recording each request and
// answering configured failures and untrusted origins.
func (s *TestServer) handle(mux *http.ServeMux, method, path string, h func(http.ResponseWriter, *http.Request, map[string]interface{})) {
	mux.HandleFunc(method+" "+TestBasePath+path, func(w http.ResponseWriter, req *http.Request) {
		body := map[string]interface{}{}
		if req.Body != nil && req.ContentLength != 0 {
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				s.writeError(w, &APIError{StatusCode: http.StatusBadRequest, Code: "INVALID_BODY", Message: err.Error()})
				return
			}
		}

		s.mu.Lock()
		s.calls[path]++
		s.lastBodies[path] = body
		s.lastHeaders[path] = req.Header.Clone()
		failure := s.failures[path]
		trusted := s.trustedOriginLocked(req.Header.Get("Origin"))
		s.mu.Unlock()

		switch {
		case failure != nil:
			s.writeError(w, failure)
		case method == http.MethodPost && !trusted:
			s.writeError(w, &APIError{StatusCode: http.StatusForbidden, Code: "INVALID_ORIGIN", Message: "Invalid origin"})
		default:
			h(w, req, body)
		}
	})
}

func (s *TestServer) signUpEmail(w http.ResponseWriter, req *http.Request, body map[string]interface{}) {
	name, email, password := stringField(body, "name"), stringField(body, "email"), stringField(body, "password")
	u, err := s.newUser(name, email, password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requireVerification {
		s.writeJSON(w, map[string]interface{}{"token": nil, "user": u})
		return
	}
	sess, err := s.newSessionLocked(u.ID, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	http.SetCookie(w, s.sessionCookie(sess, boolField(body, "rememberMe", true)))
	s.writeJSON(w, map[string]interface{}{"token": string(sess.Token), "user": u})
}

func (s *TestServer) signInEmail(w http.ResponseWriter, req *http.Request, body map[string]interface{}) {
	email, password := stringField(body, "email"), stringField(body, "password")

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(email)]
	if !ok || subtle.ConstantTimeCompare([]byte(u.password), []byte(password)) != 1 {
		s.writeError(w, &APIError{StatusCode: http.StatusUnauthorized, Code: "INVALID_EMAIL_OR_PASSWORD", Message: "Invalid email or password"})
		return
	}
	sess, err := s.newSessionLocked(u.user.ID, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	http.SetCookie(w, s.sessionCookie(sess, boolField(body, "rememberMe", true)))
	out := map[string]interface{}{
		"redirect": false,
		"token":    string(sess.Token),
		"user":     u.user,
	}
	if cb := stringField(body, "callbackURL"); cb != "" {
		out["redirect"], out["url"] = true, cb
	}
	s.writeJSON(w, out)
}

func (s *TestServer) signOut(w http.ResponseWriter, req *http.Request, _ map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessionLocked(req)
	if !ok {
		s.writeError(w, &APIError{StatusCode: http.StatusBadRequest, Code: "FAILED_TO_GET_SESSION", Message: "Failed to get session"})
		return
	}
	delete(s.sessions, string(sess.Token))
	http.SetCookie(w, &http.Cookie{Name: TestSessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	s.writeJSON(w, map[string]interface{}{"success": true})
}

func (s *TestServer) getSession(w http.ResponseWriter, req *http.Request, _ map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessionLocked(req)
	if !ok {
		s.writeJSON(w, nil)
		return
	}
	s.writeJSON(w, map[string]interface{}{
		"session": s.sessionJSON(sess),
		"user":    s.userByIDLocked(sess.UserID),
	})
}

func (s *TestServer) changePassword(w http.ResponseWriter, req *http.Request, body map[string]interface{}) {
	current, next := stringField(body, "currentPassword"), stringField(body, "newPassword")

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessionLocked(req)
	if !ok {
		s.writeError(w, &APIError{StatusCode: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "Unauthorized"})
		return
	}
	var u *testUser
	for _, candidate := range s.users {
		if candidate.user.ID == sess.UserID {
			u = candidate
		}
	}
	if u == nil || subtle.ConstantTimeCompare([]byte(u.password), []byte(current)) != 1 {
		s.writeError(w, &APIError{StatusCode: http.StatusBadRequest, Code: "INVALID_PASSWORD", Message: "Invalid password"})
		return
	}
	if utf8.RuneCountInString(next) < testMinPasswordLength {
		s.writeError(w, &APIError{StatusCode: http.StatusBadRequest, Code: "PASSWORD_TOO_SHORT", Message: "Password too short"})
		return
	}
	u.password = next
	u.user.UpdatedAt = time.Now().UTC()

	out := map[string]interface{}{"token": nil, "user": u.user}
	if boolField(body, "revokeOtherSessions", false) {
		for tok, other := range s.sessions {
			if other.UserID == u.user.ID {
				delete(s.sessions, tok)
			}
		}
		replacement, err := s.newSessionLocked(u.user.ID, req)
		if err != nil {
			s.writeError(w, err)
			return
		}
		http.SetCookie(w, s.sessionCookie(replacement, true))
		out["token"] = string(replacement.Token)
	}
	s.writeJSON(w, out)
}

func (s *TestServer) signInSocial(w http.ResponseWriter, _ *http.Request, body map[string]interface{}) {
	provider := Provider(stringField(body, "provider"))
	switch provider {
	case Google, GitHub:
	default:
		s.writeError(w, &APIError{StatusCode: http.StatusNotFound, Code: "PROVIDER_NOT_FOUND", Message: "Provider not found"})
		return
	}
	state, err := id.NewToken()
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	authorizeURL := s.authorizeURL
	s.mu.Unlock()

	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", "test-"+string(provider)+"-client")
	q.Set("state", state)
	q.Set("redirect_uri", s.BaseURL()+"/callback/"+string(provider))
	if scopes := body["scopes"]; scopes != nil {
		if list, ok := scopes.([]interface{}); ok {
			parts := make([]string, 0, len(list))
			for _, v := range list {
				if str, ok := v.(string); ok {
					parts = append(parts, str)
				}
			}
			q.Set("scope", strings.Join(parts, " "))
		}
	}
	http.SetCookie(w, &http.Cookie{Name: TestStateCookie, Value: state, Path: "/", MaxAge: 600, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	s.writeJSON(w, map[string]interface{}{
		"url":      authorizeURL + "?" + q.Encode(),
		"redirect": !boolField(body, "disableRedirect", false),
	})
}

func (s *TestServer) token(w http.ResponseWriter, req *http.Request, _ map[string]interface{}) {
	s.mu.Lock()
	sess, ok := s.sessionLocked(req)
	var u *User
	if ok {
		u = s.userByIDLocked(sess.UserID)
	}
	s.mu.Unlock()
	if u == nil {
		s.writeError(w, &APIError{StatusCode: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "Unauthorized"})
		return
	}

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.EdDSA, Key: jose.JSONWebKey{Key: s.signingKey, KeyID: s.keyID, Algorithm: string(jose.EdDSA)}},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		s.writeError(w, err)
		return
	}
	now := time.Now()
	raw, err := jwt.Signed(signer).
		Claims(jwt.Claims{
			Subject:  u.ID,
			Issuer:   s.Issuer(),
			Audience: jwt.Audience{s.Issuer()},
			IssuedAt: jwt.NewNumericDate(now),
			Expiry:   jwt.NewNumericDate(now.Add(testJWTTTL)),
		}).
		Claims(map[string]interface{}{
			"email":         u.Email,
			"name":          u.Name,
			"emailVerified": u.EmailVerified,
		}).
		CompactSerialize()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"token": raw})
}

func (s *TestServer) jwks(w http.ResponseWriter, _ *http.Request, _ map[string]interface{}) {
	s.writeJSON(w, jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{{Key: s.publicKey, KeyID: s.keyID, Algorithm: string(jose.EdDSA), Use: "sig"}},
	})
}

func (s *TestServer) newUser(name, email, password string) (User, error) {
	switch {
	case name == "" || email == "" || password == "":
		return User{}, &APIError{StatusCode: http.StatusBadRequest, Code: "VALIDATION_ERROR", Message: "Name, email and password are required"}
	case !strings.Contains(email, "@"):
		return User{}, &APIError{StatusCode: http.StatusBadRequest, Code: "INVALID_EMAIL", Message: "Invalid email"}
	case utf8.RuneCountInString(password) < testMinPasswordLength:
		return User{}, &APIError{StatusCode: http.StatusBadRequest, Code: "PASSWORD_TOO_SHORT", Message: "Password too short"}
	}
	userID, err := id.New("")
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(email)
	if _, exists := s.users[key]; exists {
		return User{}, &APIError{StatusCode: http.StatusUnprocessableEntity, Code: "USER_ALREADY_EXISTS", Message: "User already exists"}
	}
	now := time.Now().UTC()
	u := User{ID: userID, Name: name, Email: email, CreatedAt: now, UpdatedAt: now}
	s.users[key] = &testUser{user: u, password: password}
	return u, nil
}

func (s *TestServer) newSessionLocked(userID string, req *http.Request) (*Session, error) {
	token, err := id.NewToken()
	if err != nil {
		return nil, err
	}
	sessionID, err := id.New("")
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &Session{
		ID:        sessionID,
		UserID:    userID,
		Token:     SessionToken(token),
		ExpiresAt: now.Add(testSessionTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req != nil {
		sess.UserAgent = req.UserAgent()
	}
	s.sessions[token] = sess
	return sess, nil
}

// sessionLocked finds the request's session by bearer token or cookie.
func (s *TestServer) sessionLocked(req *http.Request) (*Session, bool) {
	token := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
	if token == "" || token == req.Header.Get("Authorization") {
		ck, err := req.Cookie(TestSessionCookie)
		if err != nil {
			return nil, false
		}
		token = ck.Value
	}
	sess, ok := s.sessions[token]
	if !ok || sess.IsExpired(time.Now()) {
		return nil, false
	}
	return sess, true
}

func (s *TestServer) userByIDLocked(userID string) *User {
	for _, u := range s.users {
		if u.user.ID == userID {
			cp := u.user
			return &cp
		}
	}
	return nil
}

func (s *TestServer) sessionCookie(sess *Session, persistent bool) *http.Cookie {
	ck := &http.Cookie{
		Name:     TestSessionCookie,
		Value:    string(sess.Token),
		Path:     "/",
		Domain:   "127.0.0.1",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if persistent {
		ck.MaxAge = int(testSessionTTL.Seconds())
	}
	return ck
}

// sessionJSON renders a session with its token, which Session redacts when
// marshaled.
func (s *TestServer) sessionJSON(sess *Session) map[string]interface{} {
	return map[string]interface{}{
		"id":        sess.ID,
		"userId":    sess.UserID,
		"token":     string(sess.Token),
		"expiresAt": sess.ExpiresAt,
		"userAgent": sess.UserAgent,
		"createdAt": sess.CreatedAt,
		"updatedAt": sess.UpdatedAt,
	}
}

func (s *TestServer) trustedOriginLocked(origin string) bool {
	for _, o := range s.trustedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}

func (s *TestServer) writeJSON(w http.ResponseWriter, out interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.t.Logf("test server: unable to write response: %s", err)
	}
}

func (s *TestServer) writeError(w http.ResponseWriter, err error) {
	apiErr, ok := err.(*APIError)
	if !ok {
		apiErr = &APIError{StatusCode: http.StatusInternalServerError, Code: "INTERNAL_SERVER_ERROR", Message: err.Error()}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.StatusCode)
	if err := json.NewEncoder(w).Encode(apiErr); err != nil {
		s.t.Logf("test server: unable to write error: %s", err)
	}
}

func stringField(body map[string]interface{}, key string) string {
	v, _ := body[key].(string)
	return v
}

func boolField(body map[string]interface{}, key string, fallback bool) bool {
	v, ok := body[key].(bool)
	if !ok {
		return fallback
	}
	return v
}
