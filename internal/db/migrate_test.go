package db

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))

	var next int64
	require.NoError(t, db.QueryRow(`SELECT next_number FROM policy_sequence WHERE id = 1`).Scan(&next))
	assert.Equal(t, int64(FirstPolicyNumber), next, "re-running must not reseed the sequence")
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := openTestDB(t)

	expected := []string{
		"users", "auth_events", "plans", "policy_sequence", "contracted_policies",
		"life_policy_details", "home_policy_details", "vehicle_policy_details",
		"payment_coupons", "coupon_policies", "payments", "policy_events",
	}
	for _, table := range expected {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_OneActivePlanPerCategory(t *testing.T) {
	db := openTestDB(t)

	insert := `INSERT INTO plans (id, category, base_price, is_active, created_at, updated_at)
		VALUES (?, 'Elite', 100000, ?, '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`
	_, err := db.Exec(insert, "p1", 1)
	require.NoError(t, err)
	_, err = db.Exec(insert, "p2", 0)
	require.NoError(t, err, "inactive duplicates are allowed")
	_, err = db.Exec(insert, "p3", 1)
	assert.Error(t, err, "a second active Elite plan must be rejected")
}

func TestMigrate_ChildRowsCascadeWithParent(t *testing.T) {
	db := openTestDB(t)

	mustExec := func(q string, args ...any) {
		t.Helper()
		_, err := db.Exec(q, args...)
		require.NoError(t, err)
	}
	mustExec(`INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		VALUES ('u1', 'Ana', 'ana@example.com', 'x', 'client', '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`)
	mustExec(`INSERT INTO plans (id, category, base_price, created_at, updated_at)
		VALUES ('p1', 'Basic', 50000, '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`)
	mustExec(`INSERT INTO contracted_policies (id, policy_number, owner_id, plan_id, domain, premium, request_id, created_by, created_at)
		VALUES ('c1', 1, 'u1', 'p1', 'home', 60000, 'r1', 'u1', '2025-01-01T00:00:00Z')`)
	mustExec(`INSERT INTO home_policy_details (policy_id, construction_type, building_age, city, neighborhood)
		VALUES ('c1', 'brick', 10, 'Rosario', 'Centro')`)

	mustExec(`DELETE FROM contracted_policies WHERE id = 'c1'`)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM home_policy_details`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestMigrate_PlanDeleteRestrictedByPolicy(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		VALUES ('u1', 'Ana', 'ana@example.com', 'x', 'client', '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO plans (id, category, base_price, created_at, updated_at)
		VALUES ('p1', 'Basic', 50000, '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO contracted_policies (id, policy_number, owner_id, plan_id, domain, premium, request_id, created_by, created_at)
		VALUES ('c1', 1, 'u1', 'p1', 'life', 50000, 'r1', 'u1', '2025-01-01T00:00:00Z')`)
	require.NoError(t, err)

	_, err = db.Exec(`DELETE FROM plans WHERE id = 'p1'`)
	assert.Error(t, err)
}
