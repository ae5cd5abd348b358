package extension

// Config holds the Sift extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.sift" or "sift" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// MaxConditionDepth controls the maximum relation nesting depth of
	// rule conditions.
	MaxConditionDepth int `json:"max_condition_depth" mapstructure:"max_condition_depth" yaml:"max_condition_depth"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConditionDepth: 10,
	}
}
