package db

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// UnitOfWork owns a transaction boundary. fn receives a DBTX backed by the
// transaction; callers build tx-scoped repositories from it. Returning an
// error from fn, or panicking, rolls back every write made through tx.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}

type SQLiteUnitOfWork struct {
	db     *sql.DB
	logger *zap.Logger
}

type UnitOfWorkOption func(*SQLiteUnitOfWork)

// WithLogger reports rollbacks at debug level.
func WithLogger(l *zap.Logger) UnitOfWorkOption {
	return func(u *SQLiteUnitOfWork) {
		if l != nil {
			u.logger = l
		}
	}
}

func NewSQLiteUnitOfWork(db *sql.DB, opts ...UnitOfWorkOption) *SQLiteUnitOfWork {
	u := &SQLiteUnitOfWork{db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *SQLiteUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			u.logger.Error("transaction rolled back after panic", zap.Any("panic", p))
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		u.logger.Debug("transaction rolled back", zap.Error(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
