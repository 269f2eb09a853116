package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"medtest-data/internal/domain"
)

// PostgresUsersRepo UsersRepository 的 Postgres 实现
type PostgresUsersRepo struct {
	db *sql.DB
}

func NewPostgresUsersRepo(db *sql.DB) *PostgresUsersRepo {
	return &PostgresUsersRepo{db: db}
}

const userColumns = `
	user_id::text, email, password_hash, first_name, last_name,
	phone, role, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.UserID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Phone, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresUsersRepo) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID)
	return scanUser(row)
}

func (r *PostgresUsersRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

func (r *PostgresUsersRepo) CreateUser(ctx context.Context, user *domain.User) (string, error) {
	if user.Email == "" {
		return "", fmt.Errorf("email is required")
	}
	id := user.UserID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (user_id, email, password_hash, first_name, last_name, phone, role, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.Phone, user.Role, user.IsActive,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert user: %w", err)
	}
	return id, nil
}

func (r *PostgresUsersRepo) UpdateUser(ctx context.Context, userID string, user *domain.User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET first_name = $2, last_name = $3, phone = $4, role = $5,
		     is_active = $6, updated_at = NOW()
		 WHERE user_id = $1`,
		userID, user.FirstName, user.LastName, user.Phone, user.Role, user.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ============================================
// 地址操作
// ============================================

const addressColumns = `
	address_id::text, user_id::text, type, address_line1, address_line2,
	landmark, city, state, pincode, is_default, created_at, updated_at`

func scanAddress(row interface{ Scan(...any) error }) (*domain.Address, error) {
	var a domain.Address
	if err := row.Scan(
		&a.AddressID, &a.UserID, &a.Type, &a.AddressLine1, &a.AddressLine2,
		&a.Landmark, &a.City, &a.State, &a.Pincode, &a.IsDefault,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PostgresUsersRepo) ListAddresses(ctx context.Context, userID string) ([]*domain.Address, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+addressColumns+` FROM addresses
		 WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Address{}
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresUsersRepo) GetAddress(ctx context.Context, addressID string) (*domain.Address, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE address_id = $1`, addressID)
	return scanAddress(row)
}

func (r *PostgresUsersRepo) CreateAddress(ctx context.Context, addr *domain.Address) (string, error) {
	id := addr.AddressID
	if id == "" {
		id = uuid.NewString()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 新地址标记为默认时，先在同一事务内清除该用户的其它默认标记
	if addr.IsDefault {
		if _, err := tx.ExecContext(ctx,
			`UPDATE addresses SET is_default = FALSE, updated_at = NOW()
			 WHERE user_id = $1 AND is_default = TRUE`, addr.UserID); err != nil {
			return "", fmt.Errorf("failed to clear default address: %w", err)
		}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO addresses (address_id, user_id, type, address_line1, address_line2,
		                        landmark, city, state, pincode, is_default)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, addr.UserID, addr.Type, addr.AddressLine1, addr.AddressLine2,
		addr.Landmark, addr.City, addr.State, addr.Pincode, addr.IsDefault,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert address: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

func (r *PostgresUsersRepo) UpdateAddress(ctx context.Context, addressID string, addr *domain.Address) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE addresses
		 SET type = $2, address_line1 = $3, address_line2 = $4, landmark = $5,
		     city = $6, state = $7, pincode = $8, updated_at = NOW()
		 WHERE address_id = $1`,
		addressID, addr.Type, addr.AddressLine1, addr.AddressLine2, addr.Landmark,
		addr.City, addr.State, addr.Pincode,
	)
	if err != nil {
		return fmt.Errorf("failed to update address: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PostgresUsersRepo) DeleteAddress(ctx context.Context, userID, addressID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM addresses WHERE address_id = $1 AND user_id = $2`, addressID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetDefaultAddress 清除旧默认 + 设置新默认，单事务完成
// 并发请求下不会出现同一用户多个默认地址的可观察中间态
func (r *PostgresUsersRepo) SetDefaultAddress(ctx context.Context, userID, addressID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE addresses SET is_default = FALSE, updated_at = NOW()
		 WHERE user_id = $1 AND is_default = TRUE`, userID); err != nil {
		return fmt.Errorf("failed to clear default address: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE addresses SET is_default = TRUE, updated_at = NOW()
		 WHERE address_id = $1 AND user_id = $2`, addressID, userID)
	if err != nil {
		return fmt.Errorf("failed to set default address: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}
