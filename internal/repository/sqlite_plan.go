package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/insurer/internal/db"
	"github.com/alexanderramin/insurer/internal/domain"
)

// SQLitePlanRepo implements PlanRepo. Benefits and descriptions are stored
// as JSON text.
type SQLitePlanRepo struct {
	db db.DBTX
}

func NewSQLitePlanRepo(conn db.DBTX) *SQLitePlanRepo {
	return &SQLitePlanRepo{db: conn}
}

const planColumns = `id, category, base_price, general_coverage, benefits, description, is_active, created_at, updated_at`

// categoryOrder sorts Basic, Elite, Premium by tier rather than alphabetically.
const categoryOrder = `CASE category WHEN 'Basic' THEN 1 WHEN 'Elite' THEN 2 WHEN 'Premium' THEN 3 ELSE 4 END`

func (r *SQLitePlanRepo) Create(ctx context.Context, p *domain.PlanDefinition) error {
	benefits, description, err := encodePlanJSON(p)
	if err != nil {
		return err
	}
	query := `INSERT INTO plans (` + planColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		p.ID,
		string(p.Category),
		int64(p.BasePrice),
		int64(p.GeneralCoverage),
		benefits,
		description,
		boolToInt(p.IsActive),
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("active %s plan: %w", p.Category, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("inserting plan: %w", err)
	}
	return nil
}

func (r *SQLitePlanRepo) GetByID(ctx context.Context, id string) (*domain.PlanDefinition, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = ?`, id)
	return scanPlan(row)
}

func (r *SQLitePlanRepo) GetActiveByCategory(ctx context.Context, category domain.PlanCategory) (*domain.PlanDefinition, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM plans WHERE category = ? AND is_active = 1`, string(category))
	return scanPlan(row)
}

func (r *SQLitePlanRepo) ListActive(ctx context.Context) ([]*domain.PlanDefinition, error) {
	return r.list(ctx, `SELECT `+planColumns+` FROM plans WHERE is_active = 1 ORDER BY `+categoryOrder)
}

func (r *SQLitePlanRepo) ListAll(ctx context.Context) ([]*domain.PlanDefinition, error) {
	return r.list(ctx, `SELECT `+planColumns+` FROM plans ORDER BY `+categoryOrder+`, is_active DESC, created_at`)
}

func (r *SQLitePlanRepo) list(ctx context.Context, query string) ([]*domain.PlanDefinition, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	defer rows.Close()

	var plans []*domain.PlanDefinition
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plans: %w", err)
	}
	return plans, nil
}

func (r *SQLitePlanRepo) Update(ctx context.Context, p *domain.PlanDefinition) error {
	benefits, description, err := encodePlanJSON(p)
	if err != nil {
		return err
	}
	query := `UPDATE plans SET category = ?, base_price = ?, general_coverage = ?, benefits = ?,
		description = ?, is_active = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		string(p.Category),
		int64(p.BasePrice),
		int64(p.GeneralCoverage),
		benefits,
		description,
		boolToInt(p.IsActive),
		formatTime(p.UpdatedAt),
		p.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("active %s plan: %w", p.Category, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("updating plan: %w", err)
	}
	return requireAffected(res, "plan "+p.ID)
}

func (r *SQLitePlanRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting plan: %w", err)
	}
	return requireAffected(res, "plan "+id)
}

func (r *SQLitePlanRepo) CountPolicies(ctx context.Context, planID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contracted_policies WHERE plan_id = ?`, planID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting policies for plan %s: %w", planID, err)
	}
	return n, nil
}

func encodePlanJSON(p *domain.PlanDefinition) (string, string, error) {
	benefits := p.Benefits
	if benefits == nil {
		benefits = []string{}
	}
	b, err := json.Marshal(benefits)
	if err != nil {
		return "", "", fmt.Errorf("encoding benefits: %w", err)
	}
	d, err := json.Marshal(p.Description)
	if err != nil {
		return "", "", fmt.Errorf("encoding description: %w", err)
	}
	return string(b), string(d), nil
}

func scanPlan(s scanner) (*domain.PlanDefinition, error) {
	var p domain.PlanDefinition
	var category, benefits, description, createdAt, updatedAt string
	var basePrice, coverage int64
	var active int

	err := s.Scan(&p.ID, &category, &basePrice, &coverage, &benefits, &description, &active, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("plan: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning plan: %w", err)
	}

	p.Category = domain.PlanCategory(category)
	p.BasePrice = domain.Money(basePrice)
	p.GeneralCoverage = domain.Money(coverage)
	p.IsActive = intToBool(active)
	if err := json.Unmarshal([]byte(benefits), &p.Benefits); err != nil {
		return nil, fmt.Errorf("decoding benefits of plan %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(description), &p.Description); err != nil {
		return nil, fmt.Errorf("decoding description of plan %s: %w", p.ID, err)
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &p, nil
}
