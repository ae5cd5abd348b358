// Package extension provides a Forge extension entry point for Sift.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/sift"
	"github.com/xraph/sift/plugin"
	"github.com/xraph/sift/schema"
	"github.com/xraph/sift/store"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "sift"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Authorization rule compiler producing query scopes (predicates + join plans)"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Sift as a Forge extension. It builds the compiler,
// registers it in the DI container, and manages the rule store lifecycle.
type Extension struct {
	config   Config
	compiler *sift.Compiler
	store    store.Store
	logger   *slog.Logger
	siftOpts []sift.Option
	plugins  []plugin.Plugin
}

// New creates a Sift Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extension name.
func (e *Extension) Name() string { return ExtensionName }

// Description returns the extension description.
func (e *Extension) Description() string { return ExtensionDescription }

// Version returns the extension version.
func (e *Extension) Version() string { return ExtensionVersion }

// Dependencies returns the list of extension names this extension depends on.
func (e *Extension) Dependencies() []string { return []string{} }

// Compiler returns the underlying Sift compiler.
func (e *Extension) Compiler() *sift.Compiler { return e.compiler }

// Store returns the rule store (may be nil).
func (e *Extension) Store() store.Store { return e.store }

// Register implements [forge.Extension]. It initializes the compiler and
// registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.init(fapp); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*sift.Compiler, error) {
		return e.compiler, nil
	}); err != nil {
		return fmt.Errorf("sift: register compiler in container: %w", err)
	}

	return nil
}

func (e *Extension) init(fapp forge.App) error {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Build compiler options.
	opts := make([]sift.Option, 0, len(e.siftOpts)+len(e.plugins)+2)
	opts = append(opts, sift.WithLogger(logger))

	// Try to resolve the schema registry from the DI container; an
	// explicit WithSchema option overrides it.
	if reg, err := forge.Inject[*schema.Registry](fapp.Container()); err == nil {
		opts = append(opts, sift.WithSchema(reg))
	}

	// Try to resolve the rule store from DI, fall back to option-provided.
	if e.store == nil {
		if s, err := forge.Inject[store.Store](fapp.Container()); err == nil {
			e.store = s
		}
	}

	if e.config.MaxConditionDepth > 0 {
		cfg := sift.DefaultConfig()
		cfg.MaxConditionDepth = e.config.MaxConditionDepth
		opts = append(opts, sift.WithConfig(cfg))
	}

	// Append user-provided options (may override schema and config).
	opts = append(opts, e.siftOpts...)

	// Register extension hooks.
	for _, x := range e.plugins {
		opts = append(opts, sift.WithPlugin(x))
	}

	c, err := sift.NewCompiler(opts...)
	if err != nil {
		return fmt.Errorf("sift: create compiler: %w", err)
	}
	e.compiler = c
	return nil
}

// Start runs rule store migrations if a store is configured.
func (e *Extension) Start(ctx context.Context) error {
	if e.compiler == nil {
		return errors.New("sift: extension not initialized")
	}
	if !e.config.DisableMigrate && e.store != nil {
		if err := e.store.Migrate(ctx); err != nil {
			return fmt.Errorf("sift: migration failed: %w", err)
		}
	}
	return nil
}

// Stop gracefully shuts down the compiler and closes the store.
func (e *Extension) Stop(ctx context.Context) error {
	if e.compiler == nil {
		return nil
	}
	if err := e.compiler.Stop(ctx); err != nil {
		return err
	}
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.compiler == nil {
		return errors.New("sift: extension not initialized")
	}
	if e.store == nil {
		// A storeless compiler is healthy; rules come from in-process rulesets.
		return nil
	}
	return e.store.Ping(ctx)
}
