package sift

import "time"

// Config holds configuration for the Sift compiler.
type Config struct {
	// MaxConditionDepth is the maximum relation nesting depth a condition
	// map may traverse. Defaults to 10.
	MaxConditionDepth int `json:"max_condition_depth,omitempty"`

	// CacheTTL is the time-to-live for cached scopes.
	// Zero means no caching.
	CacheTTL time.Duration `json:"cache_ttl,omitempty"`

	// StrictFields controls unknown-field handling. When true (the
	// default), a condition key that is neither a field nor a relation
	// fails compilation with ErrUnknownField.
	StrictFields *bool `json:"strict_fields,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	t := true
	return Config{
		MaxConditionDepth: 10,
		StrictFields:      &t,
	}
}

func (c Config) strictFields() bool { return c.StrictFields == nil || *c.StrictFields }
