package extension

import (
	"log/slog"

	"github.com/xraph/sift"
	"github.com/xraph/sift/plugin"
	"github.com/xraph/sift/store"
)

// ExtOption configures the Sift Forge extension.
type ExtOption func(*Extension)

// WithStore sets the rule persistence backend.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.store = s
	}
}

// WithSchema sets the relation-metadata registry.
func WithSchema(s sift.Schema) ExtOption {
	return func(e *Extension) {
		e.siftOpts = append(e.siftOpts, sift.WithSchema(s))
	}
}

// WithConfig sets the extension configuration.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithCompilerOptions adds compiler-level options.
func WithCompilerOptions(opts ...sift.Option) ExtOption {
	return func(e *Extension) {
		e.siftOpts = append(e.siftOpts, opts...)
	}
}

// WithPlugin registers a lifecycle hook plugin.
func WithPlugin(x plugin.Plugin) ExtOption {
	return func(e *Extension) {
		e.plugins = append(e.plugins, x)
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
	}
}

// WithDisableMigrate disables auto-migration on start.
func WithDisableMigrate() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}
