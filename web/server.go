// Package web serves the onboarding pages: sign in, sign up and the
// dashboard they lead to. Pages are rendered on the server; authentication
// itself is delegated to the auth service through an
// authclient.Authenticator.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/onboard/authclient"
	"github.com/hashicorp/onboard/jwt"
	"golang.org/x/sync/errgroup"
)

const readHeaderTimeout = 10 * time.Second

// Server serves the onboarding pages.
type Server struct {
	auth            authclient.Authenticator
	logger          hclog.Logger
	addr            string
	publicURL       string
	validator       *jwt.Validator
	expected        jwt.Expected
	validateOpts    []jwt.Option
	secureCookies   bool
	navigator       NavigatorFunc
	shutdownTimeout time.Duration

	loginForm *LoginForm
	router    chi.Router
}

// NewServer creates a Server using auth for every authentication.
// Supported options:
//   - WithLogger
//   - WithAddr
//   - WithPublicURL
//   - WithTokenValidator
//   - WithSecureCookies
//   - WithNavigator
//   - WithShutdownTimeout
func NewServer(auth authclient.Authenticator, opt ...Option) (*Server, error) {
	const op = "web.NewServer"
	if auth == nil {
		return nil, fmt.Errorf("%s: authenticator is nil: %w", op, ErrNilParameter)
	}
	opts := getOpts(opt...)
	publicURL := strings.TrimRight(opts.withPublicURL, "/")
	if u, err := url.Parse(publicURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%s: public URL %q is not an http(s) URL: %w", op, opts.withPublicURL, ErrInvalidParameter)
	}
	if opts.withAddr == "" {
		return nil, fmt.Errorf("%s: address is empty: %w", op, ErrInvalidParameter)
	}
	if opts.withShutdownTimeout < 0 {
		return nil, fmt.Errorf("%s: shutdown timeout is negative: %w", op, ErrInvalidParameter)
	}

	logger := nullIfNil(opts.withLogger).Named("web")
	s := &Server{
		auth:            auth,
		logger:          logger,
		addr:            opts.withAddr,
		publicURL:       publicURL,
		validator:       opts.withValidator,
		expected:        opts.withExpected,
		validateOpts:    opts.withValidateOpts,
		secureCookies:   opts.withSecureCookies,
		navigator:       opts.withNavigator,
		shutdownTimeout: opts.withShutdownTimeout,
	}
	s.loginForm = NewLoginForm(auth, logger, s.secureCookies)
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.logRequests,
		middleware.Recoverer,
	)
	r.Get(HealthPath, handleHealth)

	signIn := SignInPage(s.loginForm, s.navigator)
	signUp := SignUpPage(NewSignUpForm(s.auth, s.logger, s.secureCookies), s.navigator)
	changePassword := newPage(NewChangePasswordForm(s.auth, s.logger, s.secureCookies), s.navigator, DashboardPath)

	r.Group(func(r chi.Router) {
		r.Use(s.csrfProtect)
		r.Get(RootPath, s.handleRoot)
		r.Post(SignOutPath, s.handleSignOut)

		r.Group(func(r chi.Router) {
			r.Use(OnboardingLayout)
			r.Method(http.MethodGet, SignInPath, signIn)
			r.Method(http.MethodPost, SignInPath, signIn)
			r.Method(http.MethodGet, SignUpPath, signUp)
			r.Method(http.MethodPost, SignUpPath, signUp)
			r.Post(SocialSignInPath, s.handleSocialSignIn)
		})

		r.Group(func(r chi.Router) {
			r.Use(dashboardLayout, s.RequireSession)
			r.Get(DashboardPath, s.handleDashboard)
			r.Method(http.MethodGet, ChangePasswordPath, changePassword)
			r.Method(http.MethodPost, ChangePasswordPath, changePassword)
		})
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// logRequests logs every request once it has been answered.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// ListenAndServe listens on the configured address and serves until ctx is
// done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	const op = "web.(Server).ListenAndServe"
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("%s: unable to listen on %s: %w", op, s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully. Serve
// closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	const op = "web.(Server).Serve"
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          s.logger.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true}),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", ln.Addr().String(), "public_url", s.publicURL)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: shutdown: %w", op, err)
		}
		return nil
	})
	return g.Wait()
}
