package web

import (
	"context"
	"net/http"
)

// Metadata is the document title and description of a page.
type Metadata struct {
	Title       string
	Description string
}

// OnboardingMetadata describes the onboarding pages (sign in and sign up).
var OnboardingMetadata = Metadata{
	Title:       "Onboarding",
	Description: "Sign in or create an account to get started.",
}

// DashboardMetadata describes the pages behind a session.
var DashboardMetadata = Metadata{
	Title:       "Dashboard",
	Description: "Your account.",
}

type metadataKey struct{}

// WithMetadata returns a copy of ctx carrying m.
func WithMetadata(ctx context.Context, m Metadata) context.Context {
	return context.WithValue(ctx, metadataKey{}, m)
}

// MetadataFromContext returns the metadata attached by a layout, if any.
func MetadataFromContext(ctx context.Context) (Metadata, bool) {
	m, ok := ctx.Value(metadataKey{}).(Metadata)
	return m, ok
}

// OnboardingLayout wraps the onboarding pages. It attaches OnboardingMetadata
// to the request and otherwise passes next through untouched: whatever next
// writes is what the client receives.
func OnboardingLayout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithMetadata(r.Context(), OnboardingMetadata)))
	})
}

// dashboardLayout is the layout of the pages behind a session.
func dashboardLayout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithMetadata(r.Context(), DashboardMetadata)))
	})
}
