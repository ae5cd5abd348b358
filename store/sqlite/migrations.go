package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Sift store (SQLite).
var Migrations = migrate.NewGroup("sift")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_rules",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS sift_rules (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    app_id          TEXT NOT NULL DEFAULT '',
    effect          TEXT NOT NULL,
    position        INTEGER NOT NULL,
    subject         TEXT NOT NULL,
    action          TEXT NOT NULL,
    conditions      TEXT NOT NULL DEFAULT '',
    fragment        TEXT NOT NULL DEFAULT '',
    metadata        TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_sift_rules_tenant ON sift_rules (tenant_id, position);
CREATE INDEX IF NOT EXISTS idx_sift_rules_match ON sift_rules (tenant_id, subject, action);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS sift_rules`)
				return err
			},
		},
	)
}
