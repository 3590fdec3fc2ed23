// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/square/go-jose.v2/jwt"
)

// DefaultLeewaySeconds defines the amount of leeway that's used by default
// for validating the "nbf" (Not Before) and "exp" (Expiration Time) claims.
const DefaultLeewaySeconds = 150

// Validator validates JSON Web Tokens (JWT) by providing signature
// verification and claims set validation.
type Validator struct {
	keySets []KeySet
}

// NewValidator returns a Validator that uses the given KeySets to verify
// JWT signatures. A token is accepted if any of the KeySets can verify it.
func NewValidator(keySets ...KeySet) (*Validator, error) {
	if len(keySets) == 0 {
		return nil, errors.New("keySets must not be empty")
	}
	for _, ks := range keySets {
		if ks == nil {
			return nil, errors.New("keySets must not contain a nil KeySet")
		}
	}
	return &Validator{
		keySets: keySets,
	}, nil
}

// Expected defines the expected claims values to assert when validating a JWT.
// For claims that involve validation of the JWT with respect to time, leeway
// fields are provided to account for potential clock skew.
type Expected struct {
	// The expected JWT "iss" (issuer) claim value. If empty, validation is skipped.
	Issuer string

	// The expected JWT "sub" (subject) claim value. If empty, validation is skipped.
	Subject string

	// The expected JWT "jti" (JWT ID) claim value. If empty, validation is skipped.
	ID string

	// The list of expected JWT "aud" (audience) claim values to match against.
	// The JWT claim will be considered valid if it matches any of the expected
	// audiences. If empty, validation is skipped.
	Audiences []string

	// SigningAlgorithms provides the list of expected JWS "alg" (algorithm) header
	// parameter values to match against. The JWS header parameter will be considered
	// valid if it matches any of the expected signing algorithms. Defaults to
	// DefaultSigningAlgorithms if empty.
	SigningAlgorithms []Alg

	// NotBeforeLeeway provides the option to set an amount of leeway to use when
	// validating the "nbf" (Not Before) claim. If the duration is zero or not
	// provided, a default leeway of 150 seconds will be used. If the duration is
	// negative, no leeway will be used.
	NotBeforeLeeway time.Duration

	// ExpirationLeeway provides the option to set an amount of leeway to use when
	// validating the "exp" (Expiration Time) claim. If the duration is zero or not
	// provided, a default leeway of 150 seconds will be used. If the duration is
	// negative, no leeway will be used.
	ExpirationLeeway time.Duration

	// ClockSkewLeeway provides the option to set an amount of leeway to use when
	// validating the "nbf" (Not Before), "exp" (Expiration Time), and "iat" (Issued At)
	// claims. If the duration is zero or negative, no leeway will be used.
	ClockSkewLeeway time.Duration

	// Now provides the option to specify a func for determining what the current time is.
	// The func will be used to provide the current time when validating a JWT with respect
	// to the "nbf" (Not Before), "exp" (Expiration Time), and "iat" (Issued At) claims. If
	// not provided, defaults to returning time.Now().
	Now func() time.Time
}

// Validate validates JWTs of the JWS compact serialization form.
//
// The given JWT is considered valid if:
//  1. Its signature is successfully verified.
//  2. Its claims set and header parameter values match what's given by Expected.
//  3. It's valid with respect to the current time. This means that the current
//     time must be within the times (inclusive) given by the "nbf" (Not Before)
//     and "exp" (Expiration Time) claims and after the time given by the "iat"
//     (Issued At) claim, with configurable leeway. See Expected.Now() for details
//     on how the current time is provided for validation.
//
// Supported options:
//   - WithNormalizedAudiences
func (v *Validator) Validate(ctx context.Context, token string, expected Expected, opt ...Option) (map[string]interface{}, error) {
	if v == nil || len(v.keySets) == 0 {
		return nil, errors.New("validator has no key sets")
	}
	opts := getValidateOpts(opt...)

	// First, verify the signature to ensure subsequent validation is against verified claims
	var allClaims map[string]interface{}
	var verifyErr error
	for _, ks := range v.keySets {
		allClaims, verifyErr = ks.VerifySignature(ctx, token)
		if verifyErr == nil {
			break
		}
	}
	if verifyErr != nil {
		return nil, fmt.Errorf("error verifying token signature: %w", verifyErr)
	}

	// Validate the signing algorithm in the JWS header
	if err := validateSigningAlgorithm(token, expected.SigningAlgorithms); err != nil {
		return nil, fmt.Errorf("invalid algorithm (alg) header parameter: %w", err)
	}

	// Unmarshal all claims into the set of public JWT registered claims
	parsedJWT, err := jwt.ParseSigned(token)
	if err != nil {
		return nil, err
	}
	var claims jwt.Claims
	if err := parsedJWT.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return nil, err
	}

	// At least one of the "nbf" (Not Before), "exp" (Expiration Time), or "iat" (Issued At)
	// claims are required to be set.
	if claims.IssuedAt == nil && claims.Expiry == nil && claims.NotBefore == nil {
		return nil, errors.New("no issued at (iat), not before (nbf), or expiration time (exp) claims in token")
	}

	// If "exp" (Expiration Time) is not set, then set it to the latest of
	// either the "iat" (Issued At) or "nbf" (Not Before) claims plus leeway.
	if claims.Expiry == nil {
		latestStart := claims.IssuedAt
		if claims.NotBefore != nil && (latestStart == nil || claims.NotBefore.Time().After(latestStart.Time())) {
			latestStart = claims.NotBefore
		}
		claims.Expiry = jwt.NewNumericDate(latestStart.Time().Add(DefaultLeewaySeconds * time.Second))
	}

	// Set time leeway values.
	skew := expected.ClockSkewLeeway
	if skew < 0 {
		skew = 0
	}
	nbfLeeway := leeway(expected.NotBeforeLeeway)
	expLeeway := leeway(expected.ExpirationLeeway)

	now := time.Now
	if expected.Now != nil {
		now = expected.Now
	}
	t := now()

	if claims.Expiry != nil && t.After(claims.Expiry.Time().Add(expLeeway+skew)) {
		return nil, errors.New("token is expired (exp)")
	}
	if claims.NotBefore != nil && t.Before(claims.NotBefore.Time().Add(-(nbfLeeway + skew))) {
		return nil, errors.New("token not yet valid (nbf)")
	}
	if claims.IssuedAt != nil && t.Before(claims.IssuedAt.Time().Add(-skew)) {
		return nil, errors.New("token issued in the future (iat)")
	}

	if expected.Issuer != "" && expected.Issuer != claims.Issuer {
		return nil, errors.New("invalid issuer (iss) claim")
	}
	if expected.Subject != "" && expected.Subject != claims.Subject {
		return nil, errors.New("invalid subject (sub) claim")
	}
	if expected.ID != "" && expected.ID != claims.ID {
		return nil, errors.New("invalid ID (jti) claim")
	}
	if err := validateAudience(expected.Audiences, claims.Audience, opts.withNormalizedAudiences); err != nil {
		return nil, fmt.Errorf("invalid audience (aud) claim: %w", err)
	}

	return allClaims, nil
}

func leeway(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultLeewaySeconds * time.Second
	case d < 0:
		return 0
	default:
		return d
	}
}

// validateSigningAlgorithm checks whether the JWS "alg" (Algorithm) header
// parameter value for the given JWT matches any given in expectedAlgorithms.
// If expectedAlgorithms is empty, DefaultSigningAlgorithms are expected.
func validateSigningAlgorithm(token string, expectedAlgorithms []Alg) error {
	if len(expectedAlgorithms) == 0 {
		expectedAlgorithms = DefaultSigningAlgorithms
	}
	if err := SupportedSigningAlgorithm(expectedAlgorithms...); err != nil {
		return err
	}

	parsedJWT, err := jwt.ParseSigned(token)
	if err != nil {
		return err
	}

	if len(parsedJWT.Headers) != 1 {
		return fmt.Errorf("expected a single JWS header, got %d", len(parsedJWT.Headers))
	}

	actual := Alg(parsedJWT.Headers[0].Algorithm)
	for _, expected := range expectedAlgorithms {
		if expected == actual {
			return nil
		}
	}

	return fmt.Errorf("token signed with unexpected algorithm %q", actual)
}

// validateAudience returns an error if audClaim does not contain any audiences
// given by expectedAudiences. If expectedAudiences is empty, it skips validation
// and returns nil. If normalize is set, trailing slashes are removed from both
// sides before comparing.
func validateAudience(expectedAudiences, audClaim []string, normalize bool) error {
	if len(expectedAudiences) == 0 {
		return nil
	}

	for _, v := range expectedAudiences {
		if normalize {
			v = strings.TrimSuffix(v, "/")
		}
		for _, a := range audClaim {
			if normalize {
				a = strings.TrimSuffix(a, "/")
			}
			if v == a {
				return nil
			}
		}
	}

	return errors.New("audience claim does not match any expected audience")
}
