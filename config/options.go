package config

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

type options struct {
	withEnvironment map[string]string
	withDotEnv      []string
}

func getOpts(opt ...Option) options {
	opts := options{}
	ApplyOpts(&opts, opt...)
	return opts
}

// WithEnvironment replaces the process environment as the source of
// variables.
func WithEnvironment(environment map[string]string) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withEnvironment = environment
		}
	}
}

// WithDotEnv reads variables from the .env files. Later files win over
// earlier ones.
func WithDotEnv(paths ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withDotEnv = append(o.withDotEnv, paths...)
		}
	}
}
