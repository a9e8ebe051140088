package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/alexanderramin/insurer/internal/db"
)

// FailOnNthExecUoW runs each transaction for real but makes the FailOn-th
// write statement return Err, so a test can break a registration between
// the parent row and its domain record. Writes are counted from 1 per
// transaction; reads go through untouched. FailOn 0 disables the fault.
//
// Executed lists the write statements attempted in the last transaction,
// trimmed to their first line.
type FailOnNthExecUoW struct {
	DB     *sql.DB
	FailOn int
	Err    error

	mu       sync.Mutex
	Executed []string
}

func (u *FailOnNthExecUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	tx, err := u.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	u.mu.Lock()
	u.Executed = nil
	u.mu.Unlock()

	if err := fn(ctx, &faultyTx{DBTX: tx, uow: u}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type faultyTx struct {
	db.DBTX
	uow *FailOnNthExecUoW
}

func (f *faultyTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	u := f.uow
	u.mu.Lock()
	first, _, _ := strings.Cut(strings.TrimSpace(query), "\n")
	u.Executed = append(u.Executed, first)
	n := len(u.Executed)
	u.mu.Unlock()

	if u.FailOn > 0 && n == u.FailOn {
		return nil, u.Err
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}
