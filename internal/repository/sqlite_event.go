package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/insurer/internal/db"
	"github.com/alexanderramin/insurer/internal/domain"
)

type SQLiteEventRepo struct {
	db db.DBTX
}

func NewSQLiteEventRepo(conn db.DBTX) *SQLiteEventRepo {
	return &SQLiteEventRepo{db: conn}
}

const eventColumns = `id, policy_id, type, description, status, requested_at, resolved_at`

func (r *SQLiteEventRepo) Create(ctx context.Context, e *domain.PolicyEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO policy_events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PolicyID, string(e.Type), e.Description, string(e.Status),
		formatTime(e.RequestedAt), nullableTimeToString(e.ResolvedAt, time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepo) GetByID(ctx context.Context, id string) (*domain.PolicyEvent, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM policy_events WHERE id = ?`, id)
	return scanEvent(row)
}

func (r *SQLiteEventRepo) List(ctx context.Context, status domain.EventStatus) ([]*domain.PolicyEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM policy_events`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY requested_at DESC, id`
	return r.list(ctx, query, args...)
}

func (r *SQLiteEventRepo) ListByPolicy(ctx context.Context, policyID string) ([]*domain.PolicyEvent, error) {
	return r.list(ctx,
		`SELECT `+eventColumns+` FROM policy_events WHERE policy_id = ? ORDER BY requested_at DESC, id`, policyID)
}

func (r *SQLiteEventRepo) list(ctx context.Context, query string, args ...any) ([]*domain.PolicyEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []*domain.PolicyEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}

func (r *SQLiteEventRepo) Update(ctx context.Context, e *domain.PolicyEvent) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE policy_events SET status = ?, description = ?, resolved_at = ? WHERE id = ?`,
		string(e.Status), e.Description, nullableTimeToString(e.ResolvedAt, time.RFC3339), e.ID)
	if err != nil {
		return fmt.Errorf("updating event: %w", err)
	}
	return requireAffected(res, "event "+e.ID)
}

func scanEvent(s scanner) (*domain.PolicyEvent, error) {
	var e domain.PolicyEvent
	var typ, status, requested string
	var resolved sql.NullString

	err := s.Scan(&e.ID, &e.PolicyID, &typ, &e.Description, &status, &requested, &resolved)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning event: %w", err)
	}
	e.Type = domain.EventType(typ)
	e.Status = domain.EventStatus(status)
	e.ResolvedAt = parseNullableTime(resolved, time.RFC3339)
	if e.RequestedAt, err = time.Parse(time.RFC3339, requested); err != nil {
		return nil, fmt.Errorf("parsing requested_at: %w", err)
	}
	return &e, nil
}
