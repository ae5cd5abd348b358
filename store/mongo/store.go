// Package mongo provides a MongoDB implementation of the Sift rule store
// backed by grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/sift/id"
	"github.com/xraph/sift/rule"
	"github.com/xraph/sift/store"
)

// Collection name constants.
const (
	colRules = "sift_rules"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// errNotFound is the sentinel for missing entities.
var errNotFound = fmt.Errorf("not found")

// Store is a MongoDB implementation of the Sift rule store.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Migrate creates indexes for the rules collection.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := []mongod.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "position", Value: 1}}},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "subject", Value: 1}, {Key: "action", Value: 1}}},
	}
	if _, err := s.mdb.Collection(colRules).Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("sift/mongo: migrate %s indexes: %w", colRules, err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// ──────────────────────────────────────────────────
// Rule operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRule(ctx context.Context, r *rule.Rule) error {
	t := now()
	r.CreatedAt = t
	r.UpdatedAt = t
	m := ruleToModel(r)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("sift: create rule: %w", err)
	}
	return nil
}

func (s *Store) GetRule(ctx context.Context, ruleID id.RuleID) (*rule.Rule, error) {
	var m ruleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": ruleID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("rule %s: %w", ruleID, errNotFound)
		}
		return nil, fmt.Errorf("sift: get rule: %w", err)
	}
	return ruleFromModel(&m), nil
}

func (s *Store) UpdateRule(ctx context.Context, r *rule.Rule) error {
	r.UpdatedAt = now()
	m := ruleToModel(r)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sift: update rule: %w", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("rule %s: %w", r.ID, errNotFound)
	}
	return nil
}

func (s *Store) DeleteRule(ctx context.Context, ruleID id.RuleID) error {
	_, err := s.mdb.NewDelete((*ruleModel)(nil)).
		Filter(bson.M{"_id": ruleID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sift: delete rule: %w", err)
	}
	return nil
}

func (s *Store) ListRules(ctx context.Context, filter *rule.ListFilter) ([]*rule.Rule, error) {
	var models []ruleModel
	f := listFilter(filter)
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "position", Value: 1}, {Key: "created_at", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("sift: list rules: %w", err)
	}
	result := make([]*rule.Rule, len(models))
	for i := range models {
		result[i] = ruleFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountRules(ctx context.Context, filter *rule.ListFilter) (int64, error) {
	count, err := s.mdb.NewFind((*ruleModel)(nil)).
		Filter(listFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("sift: count rules: %w", err)
	}
	return count, nil
}

func (s *Store) NextPosition(ctx context.Context, tenantID string) (int, error) {
	var models []ruleModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"tenant_id": tenantID}).
		Sort(bson.D{{Key: "position", Value: -1}}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return 0, fmt.Errorf("sift: next position: %w", err)
	}
	if len(models) == 0 {
		return 0, nil
	}
	return models[0].Position + 1, nil
}

func (s *Store) DeleteRulesByTenant(ctx context.Context, tenantID string) error {
	_, err := s.mdb.NewDelete((*ruleModel)(nil)).
		Filter(bson.M{"tenant_id": tenantID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sift: delete rules by tenant: %w", err)
	}
	return nil
}

func listFilter(filter *rule.ListFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if filter.TenantID != "" {
		f["tenant_id"] = filter.TenantID
	}
	if filter.Subject != "" {
		f["subject"] = filter.Subject
	}
	if filter.Action != "" {
		f["action"] = filter.Action
	}
	if filter.Effect != "" {
		f["effect"] = string(filter.Effect)
	}
	return f
}
