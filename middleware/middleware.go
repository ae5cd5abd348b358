// Package middleware provides HTTP scope middleware for Sift.
//
// The middleware compiles the requesting actor's query scope up front and
// rejects the request when the scope can never match a record, so denied
// actors never reach the handler. Handlers re-request the scope from the
// compiler; compilations hit the scope cache.
package middleware

import (
	"encoding/json"

	"github.com/xraph/forge"

	"github.com/xraph/sift"
)

// RulesetResolver resolves the ruleset of the current actor, typically
// from the authenticated user on the request context.
type RulesetResolver func(ctx forge.Context) (*sift.Ruleset, error)

// Require compiles the actor's scope for one action on one subject type
// and rejects with 403 when it matches nothing.
func Require(c *sift.Compiler, resolve RulesetResolver, action, subject string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			rs, err := resolve(ctx)
			if err != nil {
				return denyResponse(ctx)
			}
			scope, err := c.CompileRuleset(ctx.Context(), rs, action, subject)
			if err != nil || scope.MatchesNothing() {
				return denyResponse(ctx)
			}
			return next(ctx)
		}
	}
}

// RequireAny allows the request if ANY of the action/subject pairs
// compiles to a scope that can match records.
func RequireAny(c *sift.Compiler, resolve RulesetResolver, pairs ...[2]string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			rs, err := resolve(ctx)
			if err != nil {
				return denyResponse(ctx)
			}
			for _, pair := range pairs {
				scope, err := c.CompileRuleset(ctx.Context(), rs, pair[0], pair[1])
				if err == nil && !scope.MatchesNothing() {
					return next(ctx)
				}
			}
			return denyResponse(ctx)
		}
	}
}

// RequireAll allows the request only if ALL action/subject pairs compile
// to scopes that can match records.
func RequireAll(c *sift.Compiler, resolve RulesetResolver, pairs ...[2]string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			rs, err := resolve(ctx)
			if err != nil {
				return denyResponse(ctx)
			}
			for _, pair := range pairs {
				scope, err := c.CompileRuleset(ctx.Context(), rs, pair[0], pair[1])
				if err != nil || scope.MatchesNothing() {
					return denyResponse(ctx)
				}
			}
			return next(ctx)
		}
	}
}

func denyResponse(ctx forge.Context) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(403)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": "access denied"})
}
