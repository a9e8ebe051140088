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

// SQLiteCouponRepo implements CouponRepo. A coupon's policy links live in
// coupon_policies; Create writes both and should run inside a UnitOfWork.
type SQLiteCouponRepo struct {
	db db.DBTX
}

func NewSQLiteCouponRepo(conn db.DBTX) *SQLiteCouponRepo {
	return &SQLiteCouponRepo{db: conn}
}

const couponColumns = `id, code, owner_id, amount, period, status, issue_date, due_date`

func (r *SQLiteCouponRepo) Create(ctx context.Context, c *domain.Coupon) error {
	query := `INSERT INTO payment_coupons (` + couponColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.Code,
		c.OwnerID,
		int64(c.Amount),
		string(c.Period),
		string(c.Status),
		formatTime(c.IssueDate),
		c.DueDate.Format(dateLayout),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("coupon %s: %w", c.Code, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("inserting coupon: %w", err)
	}
	for _, policyID := range c.PolicyIDs {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO coupon_policies (coupon_id, policy_id) VALUES (?, ?)`, c.ID, policyID); err != nil {
			return fmt.Errorf("linking policy %s to coupon: %w", policyID, err)
		}
	}
	return nil
}

func (r *SQLiteCouponRepo) GetByID(ctx context.Context, id string) (*domain.Coupon, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+couponColumns+` FROM payment_coupons WHERE id = ?`, id)
	return r.getOne(ctx, row)
}

func (r *SQLiteCouponRepo) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+couponColumns+` FROM payment_coupons WHERE code = ?`, code)
	return r.getOne(ctx, row)
}

func (r *SQLiteCouponRepo) getOne(ctx context.Context, row *sql.Row) (*domain.Coupon, error) {
	c, err := scanCoupon(row)
	if err != nil {
		return nil, err
	}
	if c.PolicyIDs, err = r.policyIDs(ctx, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *SQLiteCouponRepo) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Coupon, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+couponColumns+` FROM payment_coupons WHERE owner_id = ? ORDER BY issue_date DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	var coupons []*domain.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		coupons = append(coupons, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating coupons: %w", err)
	}
	rows.Close()

	// Links are loaded after the cursor closes; an in-memory database has a
	// single connection.
	for _, c := range coupons {
		if c.PolicyIDs, err = r.policyIDs(ctx, c.ID); err != nil {
			return nil, err
		}
	}
	return coupons, nil
}

func (r *SQLiteCouponRepo) UpdateStatus(ctx context.Context, id string, status domain.CouponStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE payment_coupons SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("updating coupon status: %w", err)
	}
	return requireAffected(res, "coupon "+id)
}

func (r *SQLiteCouponRepo) policyIDs(ctx context.Context, couponID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT cp.policy_id FROM coupon_policies cp
		JOIN contracted_policies p ON p.id = cp.policy_id
		WHERE cp.coupon_id = ? ORDER BY p.policy_number`, couponID)
	if err != nil {
		return nil, fmt.Errorf("listing coupon policies: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning coupon policy: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanCoupon(s scanner) (*domain.Coupon, error) {
	var c domain.Coupon
	var amount int64
	var period, status, issue, due string

	err := s.Scan(&c.ID, &c.Code, &c.OwnerID, &amount, &period, &status, &issue, &due)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("coupon: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning coupon: %w", err)
	}
	c.Amount = domain.Money(amount)
	c.Period = domain.PaymentPeriod(period)
	c.Status = domain.CouponStatus(status)
	if c.IssueDate, err = time.Parse(time.RFC3339, issue); err != nil {
		return nil, fmt.Errorf("parsing issue_date: %w", err)
	}
	if c.DueDate, err = time.Parse(dateLayout, due); err != nil {
		return nil, fmt.Errorf("parsing due_date: %w", err)
	}
	return &c, nil
}
