package config

// ConfigBuilderOption is a functional option applied while loading a configuration.
type ConfigBuilderOption func(*loader)

type loader struct {
	strict    bool
	overrides []func(*Config)
}

// WithStrict rejects keys that do not map to a configuration field.
//
// Returns:
//   - ConfigBuilderOption: option function to apply
func WithStrict() ConfigBuilderOption {
	return func(l *loader) {
		l.strict = true
	}
}

// WithOverride registers a function run after defaults are applied and before validation.
// Overrides run in the order given, which lets command line flags win over the file.
//
// Parameters:
//   - fn: the function mutating the decoded configuration
//
// Returns:
//   - ConfigBuilderOption: option function to apply
func WithOverride(fn func(*Config)) ConfigBuilderOption {
	return func(l *loader) {
		if fn != nil {
			l.overrides = append(l.overrides, fn)
		}
	}
}
