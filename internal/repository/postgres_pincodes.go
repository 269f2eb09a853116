package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"medtest-data/internal/domain"
)

// PostgresPincodesRepo PincodesRepository 的 Postgres 实现
type PostgresPincodesRepo struct {
	db *sql.DB
}

func NewPostgresPincodesRepo(db *sql.DB) *PostgresPincodesRepo {
	return &PostgresPincodesRepo{db: db}
}

const pincodeColumns = `
	pincode, city, state, is_serviceable, estimated_delivery, collection_charges, created_at`

func scanPincode(row interface{ Scan(...any) error }) (*domain.PincodeInfo, error) {
	var p domain.PincodeInfo
	if err := row.Scan(
		&p.Pincode, &p.City, &p.State, &p.IsServiceable,
		&p.EstimatedDelivery, &p.CollectionCharges, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresPincodesRepo) queryPincodes(ctx context.Context, where string, args ...any) ([]*domain.PincodeInfo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+pincodeColumns+` FROM pincodes WHERE `+where+` ORDER BY pincode`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.PincodeInfo{}
	for rows.Next() {
		p, err := scanPincode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresPincodesRepo) GetPincode(ctx context.Context, pincode string) (*domain.PincodeInfo, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+pincodeColumns+` FROM pincodes WHERE pincode = $1`, pincode)
	return scanPincode(row)
}

func (r *PostgresPincodesRepo) ListServiceable(ctx context.Context) ([]*domain.PincodeInfo, error) {
	return r.queryPincodes(ctx, `is_serviceable = TRUE`)
}

func (r *PostgresPincodesRepo) ListAll(ctx context.Context) ([]*domain.PincodeInfo, error) {
	return r.queryPincodes(ctx, `TRUE`)
}

func (r *PostgresPincodesRepo) SearchByCity(ctx context.Context, city string) ([]*domain.PincodeInfo, error) {
	return r.queryPincodes(ctx,
		`is_serviceable = TRUE AND city ILIKE '%' || $1 || '%'`, city)
}

func (r *PostgresPincodesRepo) SearchByState(ctx context.Context, state string) ([]*domain.PincodeInfo, error) {
	return r.queryPincodes(ctx,
		`is_serviceable = TRUE AND state ILIKE '%' || $1 || '%'`, state)
}

func (r *PostgresPincodesRepo) CreatePincode(ctx context.Context, info *domain.PincodeInfo) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pincodes (pincode, city, state, is_serviceable, estimated_delivery, collection_charges)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		info.Pincode, info.City, info.State, info.IsServiceable,
		info.EstimatedDelivery, info.CollectionCharges,
	)
	if err != nil {
		// 唯一键冲突映射为 ErrDuplicate
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create pincode: %w", err)
	}
	return nil
}

func (r *PostgresPincodesRepo) UpdatePincode(ctx context.Context, pincode string, info *domain.PincodeInfo) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE pincodes
		 SET city = $2, state = $3, is_serviceable = $4, estimated_delivery = $5, collection_charges = $6
		 WHERE pincode = $1`,
		pincode, info.City, info.State, info.IsServiceable,
		info.EstimatedDelivery, info.CollectionCharges,
	)
	if err != nil {
		return fmt.Errorf("failed to update pincode: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
