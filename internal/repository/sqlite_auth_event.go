package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/insurer/internal/db"
	"github.com/alexanderramin/insurer/internal/domain"
)

// SQLiteAuthEventRepo stores the append-only authentication audit log.
type SQLiteAuthEventRepo struct {
	db db.DBTX
}

func NewSQLiteAuthEventRepo(conn db.DBTX) *SQLiteAuthEventRepo {
	return &SQLiteAuthEventRepo{db: conn}
}

func (r *SQLiteAuthEventRepo) Append(ctx context.Context, e *domain.AuthEvent) error {
	var userID any
	if e.UserID != "" {
		userID = e.UserID
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_events (user_id, email, action, reason, host, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		userID, e.Email, string(e.Action), e.Reason, e.Host, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("appending auth event: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

func (r *SQLiteAuthEventRepo) ListRecent(ctx context.Context, limit int) ([]domain.AuthEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, email, action, reason, host, created_at
		FROM auth_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing auth events: %w", err)
	}
	defer rows.Close()

	var events []domain.AuthEvent
	for rows.Next() {
		var e domain.AuthEvent
		var userID sql.NullString
		var action, createdAt string
		if err := rows.Scan(&e.ID, &userID, &e.Email, &action, &e.Reason, &e.Host, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning auth event: %w", err)
		}
		e.UserID = userID.String
		e.Action = domain.AuthAction(action)
		if e.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating auth events: %w", err)
	}
	return events, nil
}
