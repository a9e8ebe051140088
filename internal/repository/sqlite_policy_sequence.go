package repository

import (
	"context"
	"fmt"

	"github.com/alexanderramin/insurer/internal/db"
)

// SQLitePolicySequenceRepo allocates policy numbers from the single-row
// policy_sequence table.
type SQLitePolicySequenceRepo struct {
	db db.DBTX
}

func NewSQLitePolicySequenceRepo(conn db.DBTX) *SQLitePolicySequenceRepo {
	return &SQLitePolicySequenceRepo{db: conn}
}

// NextPolicyNumber returns the next policy number. Allocation is a single
// UPDATE ... RETURNING, so numbers are unique under concurrent writers and a
// rolled-back transaction returns its number to the pool.
func (r *SQLitePolicySequenceRepo) NextPolicyNumber(ctx context.Context) (int64, error) {
	var next int64
	query := `UPDATE policy_sequence
		SET next_number = next_number + 1
		WHERE id = 1
		RETURNING next_number - 1`
	if err := r.db.QueryRowContext(ctx, query).Scan(&next); err != nil {
		return 0, fmt.Errorf("allocating policy number: %w", err)
	}
	return next, nil
}
