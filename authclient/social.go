package authclient

import (
	"context"
	"fmt"
)

// DefaultSocialProvider is the provider SocialSignIn uses.
const DefaultSocialProvider = Google

// SocialSignIn starts a social sign in with DefaultSocialProvider. It makes
// exactly one SignInSocial call and returns its outcome; errors are never
// dropped, so the caller decides whether a failure is worth surfacing.
// Supports the same options as SignInSocial.
func SocialSignIn(ctx context.Context, s SocialSignInner, opt ...Option) (*SocialSignInResponse, error) {
	const op = "authclient.SocialSignIn"
	if s == nil {
		return nil, fmt.Errorf("%s: sign in is nil: %w", op, ErrNilParameter)
	}
	resp, err := s.SignInSocial(ctx, DefaultSocialProvider, opt...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp, nil
}
