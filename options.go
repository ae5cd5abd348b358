package sift

import (
	"log/slog"

	"github.com/xraph/sift/plugin"
)

// Option is a functional option for the Compiler.
type Option func(*Compiler)

// WithSchema sets the relation-metadata lookup. Required.
func WithSchema(s Schema) Option { return func(c *Compiler) { c.schema = s } }

// WithSanitizer sets the fragment sanitizer used on the unmergeable path.
func WithSanitizer(s Sanitizer) Option { return func(c *Compiler) { c.sanitizer = s } }

// WithCache sets the compiled scope cache.
func WithCache(cc Cache) Option { return func(c *Compiler) { c.cache = cc } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(c *Compiler) { c.logger = l } }

// WithConfig sets the compiler configuration.
func WithConfig(cfg Config) Option { return func(c *Compiler) { c.config = cfg } }

// WithPlugin registers a plugin with the compiler.
func WithPlugin(x plugin.Plugin) Option {
	return func(c *Compiler) {
		if c.plugins == nil {
			c.plugins = plugin.NewRegistry(c.logger)
		}
		c.plugins.Register(x)
	}
}
