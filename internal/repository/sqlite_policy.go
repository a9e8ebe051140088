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

// SQLitePolicyRepo implements PolicyRepo over contracted_policies and the
// three domain detail tables.
type SQLitePolicyRepo struct {
	db db.DBTX
}

func NewSQLitePolicyRepo(conn db.DBTX) *SQLitePolicyRepo {
	return &SQLitePolicyRepo{db: conn}
}

const policyColumns = `id, policy_number, owner_id, plan_id, domain, client_type, premium, request_id, created_by, created_at`

func (r *SQLitePolicyRepo) Create(ctx context.Context, p *domain.ContractedPolicy) error {
	query := `INSERT INTO contracted_policies (` + policyColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.PolicyNumber,
		p.OwnerID,
		p.PlanID,
		string(p.Domain),
		string(p.ClientType),
		int64(p.Premium),
		p.RequestID,
		p.CreatedByID,
		formatTime(p.CreatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("policy for request %s: %w", p.RequestID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("inserting policy: %w", err)
	}
	return nil
}

// CreateDetails inserts the detail row matching data's domain, keyed by the
// policy id.
func (r *SQLitePolicyRepo) CreateDetails(ctx context.Context, policyID string, data domain.Underwriting) error {
	var err error
	switch d := data.(type) {
	case domain.LifeData:
		var cert any
		if d.CertPresented {
			cert = d.CertData
		}
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO life_policy_details (policy_id, cert_presented, cert_data) VALUES (?, ?, ?)`,
			policyID, boolToInt(d.CertPresented), cert)
	case domain.HomeData:
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO home_policy_details (policy_id, construction_type, building_age, city, neighborhood) VALUES (?, ?, ?, ?, ?)`,
			policyID, string(d.ConstructionType), d.BuildingAge, d.City, d.Neighborhood)
	case domain.VehicleData:
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO vehicle_policy_details (policy_id, year, model, theft_risk, violations) VALUES (?, ?, ?, ?, ?)`,
			policyID, d.Year, d.Model, string(d.TheftRisk), d.Violations)
	default:
		return fmt.Errorf("unsupported underwriting data %T", data)
	}
	if err != nil {
		return fmt.Errorf("inserting %s details: %w", data.Domain(), err)
	}
	return nil
}

func (r *SQLitePolicyRepo) GetByID(ctx context.Context, id string) (*domain.ContractedPolicy, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+policyColumns+` FROM contracted_policies WHERE id = ?`, id)
	return scanPolicy(row)
}

func (r *SQLitePolicyRepo) GetByRequestID(ctx context.Context, requestID string) (*domain.ContractedPolicy, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+policyColumns+` FROM contracted_policies WHERE request_id = ?`, requestID)
	return scanPolicy(row)
}

func (r *SQLitePolicyRepo) GetDetails(ctx context.Context, policyID string, dom domain.InsuranceDomain) (domain.Underwriting, error) {
	var err error
	switch dom {
	case domain.DomainLife:
		var d domain.LifeData
		var presented int
		var cert sql.NullString
		err = r.db.QueryRowContext(ctx,
			`SELECT cert_presented, cert_data FROM life_policy_details WHERE policy_id = ?`, policyID).
			Scan(&presented, &cert)
		d.CertPresented = intToBool(presented)
		d.CertData = cert.String
		if err == nil {
			return d, nil
		}
	case domain.DomainHome:
		var d domain.HomeData
		var construction string
		err = r.db.QueryRowContext(ctx,
			`SELECT construction_type, building_age, city, neighborhood FROM home_policy_details WHERE policy_id = ?`, policyID).
			Scan(&construction, &d.BuildingAge, &d.City, &d.Neighborhood)
		d.ConstructionType = domain.ConstructionType(construction)
		if err == nil {
			return d, nil
		}
	case domain.DomainVehicle:
		var d domain.VehicleData
		var risk string
		err = r.db.QueryRowContext(ctx,
			`SELECT year, model, theft_risk, violations FROM vehicle_policy_details WHERE policy_id = ?`, policyID).
			Scan(&d.Year, &d.Model, &risk, &d.Violations)
		d.TheftRisk = domain.TheftRisk(risk)
		if err == nil {
			return d, nil
		}
	default:
		return nil, fmt.Errorf("unknown insurance domain %q", dom)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s details for policy %s: %w", dom, policyID, ErrNotFound)
	}
	return nil, fmt.Errorf("reading %s details: %w", dom, err)
}

func (r *SQLitePolicyRepo) ListByOwner(ctx context.Context, ownerID string) ([]*domain.ContractedPolicy, error) {
	return r.list(ctx,
		`SELECT `+policyColumns+` FROM contracted_policies WHERE owner_id = ? ORDER BY policy_number`, ownerID)
}

func (r *SQLitePolicyRepo) ListOrphans(ctx context.Context, cutoff time.Time) ([]*domain.ContractedPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM contracted_policies p
		WHERE p.created_at < ?
		AND NOT EXISTS (SELECT 1 FROM life_policy_details l WHERE l.policy_id = p.id)
		AND NOT EXISTS (SELECT 1 FROM home_policy_details h WHERE h.policy_id = p.id)
		AND NOT EXISTS (SELECT 1 FROM vehicle_policy_details v WHERE v.policy_id = p.id)
		ORDER BY p.created_at`
	return r.list(ctx, query, formatTime(cutoff))
}

func (r *SQLitePolicyRepo) list(ctx context.Context, query string, args ...any) ([]*domain.ContractedPolicy, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing policies: %w", err)
	}
	defer rows.Close()

	var policies []*domain.ContractedPolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating policies: %w", err)
	}
	return policies, nil
}

func (r *SQLitePolicyRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contracted_policies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting policy: %w", err)
	}
	return requireAffected(res, "policy "+id)
}

func scanPolicy(s scanner) (*domain.ContractedPolicy, error) {
	var p domain.ContractedPolicy
	var dom, clientType, createdAt string
	var premium int64

	err := s.Scan(&p.ID, &p.PolicyNumber, &p.OwnerID, &p.PlanID, &dom, &clientType,
		&premium, &p.RequestID, &p.CreatedByID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("policy: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning policy: %w", err)
	}
	p.Domain = domain.InsuranceDomain(dom)
	p.ClientType = domain.ClientType(clientType)
	p.Premium = domain.Money(premium)
	if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &p, nil
}
