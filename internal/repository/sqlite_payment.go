package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/insurer/internal/db"
	"github.com/alexanderramin/insurer/internal/domain"
)

type SQLitePaymentRepo struct {
	db db.DBTX
}

func NewSQLitePaymentRepo(conn db.DBTX) *SQLitePaymentRepo {
	return &SQLitePaymentRepo{db: conn}
}

func (r *SQLitePaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (id, coupon_id, policy_id, external_id, amount, method, paid_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.CouponID, p.PolicyID, p.ExternalID, int64(p.Amount), string(p.Method), formatTime(p.PaidAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("payment %s for policy %s: %w", p.ExternalID, p.PolicyID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("inserting payment: %w", err)
	}
	return nil
}

func (r *SQLitePaymentRepo) ExistsForExternalID(ctx context.Context, externalID string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments WHERE external_id = ?`, externalID).Scan(&n); err != nil {
		return false, fmt.Errorf("checking payment %s: %w", externalID, err)
	}
	return n > 0, nil
}

func (r *SQLitePaymentRepo) IsPolicyPaid(ctx context.Context, policyID string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments WHERE policy_id = ?`, policyID).Scan(&n); err != nil {
		return false, fmt.Errorf("checking payments for policy %s: %w", policyID, err)
	}
	return n > 0, nil
}

func (r *SQLitePaymentRepo) ListByCoupon(ctx context.Context, couponID string) ([]*domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, coupon_id, policy_id, external_id, amount, method, paid_at
		FROM payments WHERE coupon_id = ? ORDER BY paid_at`, couponID)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		var p domain.Payment
		var amount int64
		var method, paidAt string
		if err := rows.Scan(&p.ID, &p.CouponID, &p.PolicyID, &p.ExternalID, &amount, &method, &paidAt); err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}
		p.Amount = domain.Money(amount)
		p.Method = domain.PaymentMethod(method)
		if p.PaidAt, err = time.Parse(time.RFC3339, paidAt); err != nil {
			return nil, fmt.Errorf("parsing paid_at: %w", err)
		}
		payments = append(payments, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating payments: %w", err)
	}
	return payments, nil
}
