package sift

import "context"

// Cache provides caching for compiled scopes.
type Cache interface {
	// Get returns a cached scope, if available.
	Get(ctx context.Context, tenantID string, req *ScopeRequest) (*Scope, bool)

	// Set stores a compiled scope in the cache.
	Set(ctx context.Context, tenantID string, req *ScopeRequest, scope *Scope)

	// InvalidateTenant removes all cached scopes for a tenant.
	InvalidateTenant(ctx context.Context, tenantID string)

	// InvalidateSubject removes all cached scopes for a subject type.
	InvalidateSubject(ctx context.Context, tenantID, subject string)
}
