// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

// Option configures a single Validate call.
type Option func(interface{})

type validateOptions struct {
	withNormalizedAudiences bool
}

func getValidateOpts(opt ...Option) validateOptions {
	var opts validateOptions
	for _, o := range opt {
		if o != nil {
			o(&opts)
		}
	}
	return opts
}

// WithNormalizedAudiences makes audience checks ignore a trailing slash on
// both the expected audiences and the aud claim, so
// "https://auth.example.com/" matches "https://auth.example.com".
func WithNormalizedAudiences() Option {
	return func(o interface{}) {
		if o, ok := o.(*validateOptions); ok {
			o.withNormalizedAudiences = true
		}
	}
}
