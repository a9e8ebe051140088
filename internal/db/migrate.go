package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate applies every schema statement. Statements are idempotent so the
// full list runs on each open.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Columns added after a table shipped are listed both in the
			// CREATE and as an ALTER for older files.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

// FirstPolicyNumber seeds the policy number sequence on a fresh database.
const FirstPolicyNumber = 100001

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL COLLATE NOCASE UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL CHECK(role IN ('client','employee','admin')),
		status        TEXT NOT NULL DEFAULT 'active' CHECK(status IN ('active','inactive')),
		last_login_at TEXT,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,
	`ALTER TABLE users ADD COLUMN last_login_at TEXT`,

	`CREATE TABLE IF NOT EXISTS auth_events (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    TEXT REFERENCES users(id) ON DELETE SET NULL,
		email      TEXT NOT NULL DEFAULT '',
		action     TEXT NOT NULL CHECK(action IN ('login','logout','login_failed','password_reset','account_created','account_deactivated','account_activated')),
		reason     TEXT NOT NULL DEFAULT '',
		host       TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_auth_events_created ON auth_events(created_at)`,

	`CREATE TABLE IF NOT EXISTS plans (
		id               TEXT PRIMARY KEY,
		category         TEXT NOT NULL CHECK(category IN ('Basic','Elite','Premium')),
		base_price       INTEGER NOT NULL CHECK(base_price >= 0),
		general_coverage INTEGER NOT NULL DEFAULT 0 CHECK(general_coverage >= 0),
		benefits         TEXT NOT NULL DEFAULT '[]',
		description      TEXT NOT NULL DEFAULT '{}',
		is_active        INTEGER NOT NULL DEFAULT 1,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_plans_active_category ON plans(category) WHERE is_active = 1`,

	`CREATE TABLE IF NOT EXISTS policy_sequence (
		id          INTEGER PRIMARY KEY CHECK(id = 1),
		next_number INTEGER NOT NULL
	)`,
	fmt.Sprintf(`INSERT OR IGNORE INTO policy_sequence (id, next_number) VALUES (1, %d)`, FirstPolicyNumber),

	`CREATE TABLE IF NOT EXISTS contracted_policies (
		id            TEXT PRIMARY KEY,
		policy_number INTEGER NOT NULL UNIQUE,
		owner_id      TEXT NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
		plan_id       TEXT NOT NULL REFERENCES plans(id) ON DELETE RESTRICT,
		domain        TEXT NOT NULL CHECK(domain IN ('life','home','vehicle')),
		client_type   TEXT NOT NULL DEFAULT 'person' CHECK(client_type IN ('person','business')),
		premium       INTEGER NOT NULL CHECK(premium >= 0),
		request_id    TEXT NOT NULL UNIQUE,
		created_by    TEXT NOT NULL,
		created_at    TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_policies_owner ON contracted_policies(owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_policies_plan ON contracted_policies(plan_id)`,

	`CREATE TABLE IF NOT EXISTS life_policy_details (
		policy_id      TEXT PRIMARY KEY REFERENCES contracted_policies(id) ON DELETE CASCADE,
		cert_presented INTEGER NOT NULL DEFAULT 0,
		cert_data      TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS home_policy_details (
		policy_id         TEXT PRIMARY KEY REFERENCES contracted_policies(id) ON DELETE CASCADE,
		construction_type TEXT NOT NULL CHECK(construction_type IN ('brick','concrete','wood','mixed')),
		building_age      INTEGER NOT NULL CHECK(building_age >= 0),
		city              TEXT NOT NULL,
		neighborhood      TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS vehicle_policy_details (
		policy_id  TEXT PRIMARY KEY REFERENCES contracted_policies(id) ON DELETE CASCADE,
		year       INTEGER NOT NULL,
		model      TEXT NOT NULL,
		theft_risk TEXT NOT NULL CHECK(theft_risk IN ('low','medium','high')),
		violations INTEGER NOT NULL DEFAULT 0 CHECK(violations >= 0)
	)`,

	`CREATE TABLE IF NOT EXISTS payment_coupons (
		id         TEXT PRIMARY KEY,
		code       TEXT NOT NULL UNIQUE,
		owner_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		amount     INTEGER NOT NULL CHECK(amount >= 0),
		period     TEXT NOT NULL CHECK(period IN ('monthly','quarterly','annual')),
		status     TEXT NOT NULL CHECK(status IN ('pending','paid','expired','cancelled','processing')),
		issue_date TEXT NOT NULL,
		due_date   TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS coupon_policies (
		coupon_id TEXT NOT NULL REFERENCES payment_coupons(id) ON DELETE CASCADE,
		policy_id TEXT NOT NULL REFERENCES contracted_policies(id) ON DELETE CASCADE,
		PRIMARY KEY (coupon_id, policy_id)
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id          TEXT PRIMARY KEY,
		coupon_id   TEXT NOT NULL REFERENCES payment_coupons(id) ON DELETE CASCADE,
		policy_id   TEXT NOT NULL REFERENCES contracted_policies(id) ON DELETE CASCADE,
		external_id TEXT NOT NULL,
		amount      INTEGER NOT NULL CHECK(amount >= 0),
		method      TEXT NOT NULL CHECK(method IN ('debit_card','credit_card','qr_code','external_platform','cash')),
		paid_at     TEXT NOT NULL,
		UNIQUE (external_id, policy_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_policy ON payments(policy_id)`,

	`CREATE TABLE IF NOT EXISTS policy_events (
		id           TEXT PRIMARY KEY,
		policy_id    TEXT NOT NULL REFERENCES contracted_policies(id) ON DELETE CASCADE,
		type         TEXT NOT NULL CHECK(type IN ('subscribed','activated','suspended','reinstated','cancelled','expired','renewed','claim_filed')),
		description  TEXT NOT NULL,
		status       TEXT NOT NULL CHECK(status IN ('pending','in_progress','completed','failed','cancelled')),
		requested_at TEXT NOT NULL,
		resolved_at  TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_policy_events_status ON policy_events(status)`,
}
