package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"medtest-data/internal/domain"
)

// PostgresTechniciansRepo TechniciansRepository 的 Postgres 实现
type PostgresTechniciansRepo struct {
	db *sql.DB
}

func NewPostgresTechniciansRepo(db *sql.DB) *PostgresTechniciansRepo {
	return &PostgresTechniciansRepo{db: db}
}

const technicianColumns = `
	technician_id::text, name, phone, email, license_number, experience,
	pincodes, current_orders, max_orders_per_day, is_active, created_at, updated_at`

func scanTechnician(row interface{ Scan(...any) error }) (*domain.Technician, error) {
	var t domain.Technician
	if err := row.Scan(
		&t.TechnicianID, &t.Name, &t.Phone, &t.Email, &t.LicenseNumber, &t.Experience,
		&t.Pincodes, &t.CurrentOrders, &t.MaxOrdersPerDay, &t.IsActive,
		&t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PostgresTechniciansRepo) queryTechnicians(ctx context.Context, where string, args ...any) ([]*domain.Technician, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+technicianColumns+` FROM technicians WHERE `+where+` ORDER BY name`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Technician{}
	for rows.Next() {
		t, err := scanTechnician(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresTechniciansRepo) ListTechnicians(ctx context.Context, activeOnly bool) ([]*domain.Technician, error) {
	if activeOnly {
		return r.queryTechnicians(ctx, `is_active = TRUE`)
	}
	return r.queryTechnicians(ctx, `TRUE`)
}

func (r *PostgresTechniciansRepo) GetTechnician(ctx context.Context, technicianID string) (*domain.Technician, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+technicianColumns+` FROM technicians WHERE technician_id = $1`,
		technicianID)
	return scanTechnician(row)
}

// ListByPincode 服务区域包含目标 pincode 的在岗技师
func (r *PostgresTechniciansRepo) ListByPincode(ctx context.Context, pincode string) ([]*domain.Technician, error) {
	return r.queryTechnicians(ctx, `is_active = TRUE AND $1 = ANY(pincodes)`, pincode)
}

func (r *PostgresTechniciansRepo) CreateTechnician(ctx context.Context, tech *domain.Technician) (string, error) {
	id := tech.TechnicianID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO technicians (technician_id, name, phone, email, license_number,
		                          experience, pincodes, max_orders_per_day, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, tech.Name, tech.Phone, tech.Email, tech.LicenseNumber,
		tech.Experience, pq.Array([]string(tech.Pincodes)), tech.MaxOrdersPerDay, tech.IsActive,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create technician: %w", err)
	}
	tech.TechnicianID = id
	return id, nil
}

func (r *PostgresTechniciansRepo) UpdateTechnician(ctx context.Context, technicianID string, tech *domain.Technician) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE technicians
		 SET name = $2, phone = $3, email = $4, license_number = $5, experience = $6,
		     pincodes = $7, max_orders_per_day = $8, is_active = $9, updated_at = NOW()
		 WHERE technician_id = $1`,
		technicianID, tech.Name, tech.Phone, tech.Email, tech.LicenseNumber,
		tech.Experience, pq.Array([]string(tech.Pincodes)), tech.MaxOrdersPerDay, tech.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to update technician: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
