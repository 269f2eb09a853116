package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"medtest-data/internal/domain"
)

// PostgresCatalogRepo CatalogRepository 的 Postgres 实现
type PostgresCatalogRepo struct {
	db *sql.DB
}

func NewPostgresCatalogRepo(db *sql.DB) *PostgresCatalogRepo {
	return &PostgresCatalogRepo{db: db}
}

const testColumns = `
	test_id::text, name, description, price, discounted_price, category_id::text,
	sample_type, duration, parameters, fasting, home_collection, popularity,
	tags, is_active, created_at, updated_at`

func scanTest(row interface{ Scan(...any) error }) (*domain.Test, error) {
	var t domain.Test
	if err := row.Scan(
		&t.TestID, &t.Name, &t.Description, &t.Price, &t.DiscountedPrice, &t.CategoryID,
		&t.SampleType, &t.Duration, &t.Parameters, &t.Fasting, &t.HomeCollection, &t.Popularity,
		&t.Tags, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PostgresCatalogRepo) queryTests(ctx context.Context, q string, args ...any) ([]*domain.Test, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Test{}
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresCatalogRepo) ListTests(ctx context.Context, activeOnly bool) ([]*domain.Test, error) {
	q := `SELECT ` + testColumns + ` FROM tests`
	if activeOnly {
		q += ` WHERE is_active = TRUE`
	}
	q += ` ORDER BY name`
	return r.queryTests(ctx, q)
}

func (r *PostgresCatalogRepo) GetTest(ctx context.Context, testID string) (*domain.Test, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+testColumns+` FROM tests WHERE test_id = $1`, testID)
	return scanTest(row)
}

// GetTestsByIDs 目录中不存在或停用的 id 静默跳过，不报错
func (r *PostgresCatalogRepo) GetTestsByIDs(ctx context.Context, testIDs []string) ([]*domain.Test, error) {
	if len(testIDs) == 0 {
		return []*domain.Test{}, nil
	}
	return r.queryTests(ctx,
		`SELECT `+testColumns+` FROM tests
		 WHERE test_id = ANY($1) AND is_active = TRUE`,
		pq.Array(testIDs))
}

func (r *PostgresCatalogRepo) ListTestsByCategory(ctx context.Context, categoryID string) ([]*domain.Test, error) {
	return r.queryTests(ctx,
		`SELECT `+testColumns+` FROM tests
		 WHERE category_id = $1 AND is_active = TRUE ORDER BY name`, categoryID)
}

func (r *PostgresCatalogRepo) CreateTest(ctx context.Context, test *domain.Test) (string, error) {
	if test.Name == "" {
		return "", fmt.Errorf("name is required")
	}
	id := test.TestID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tests (test_id, name, description, price, discounted_price, category_id,
		                    sample_type, duration, parameters, fasting, home_collection,
		                    popularity, tags, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		id, test.Name, test.Description, test.Price, test.DiscountedPrice, test.CategoryID,
		test.SampleType, test.Duration, test.Parameters, test.Fasting, test.HomeCollection,
		test.Popularity, pq.Array(test.Tags), test.IsActive,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert test: %w", err)
	}
	return id, nil
}

func (r *PostgresCatalogRepo) UpdateTest(ctx context.Context, testID string, test *domain.Test) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tests
		 SET name = $2, description = $3, price = $4, discounted_price = $5,
		     category_id = $6, sample_type = $7, duration = $8, parameters = $9,
		     fasting = $10, home_collection = $11, popularity = $12, tags = $13,
		     is_active = $14, updated_at = NOW()
		 WHERE test_id = $1`,
		testID, test.Name, test.Description, test.Price, test.DiscountedPrice,
		test.CategoryID, test.SampleType, test.Duration, test.Parameters,
		test.Fasting, test.HomeCollection, test.Popularity, pq.Array(test.Tags),
		test.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to update test: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ============================================
// 分类操作
// ============================================

func (r *PostgresCatalogRepo) ListCategories(ctx context.Context, activeOnly bool) ([]*domain.TestCategory, error) {
	q := `SELECT category_id::text, name, description, icon, sort_order, is_active, created_at
	      FROM test_categories`
	if activeOnly {
		q += ` WHERE is_active = TRUE`
	}
	q += ` ORDER BY sort_order, name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.TestCategory{}
	for rows.Next() {
		var c domain.TestCategory
		if err := rows.Scan(&c.CategoryID, &c.Name, &c.Description, &c.Icon,
			&c.SortOrder, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *PostgresCatalogRepo) GetCategory(ctx context.Context, categoryID string) (*domain.TestCategory, error) {
	var c domain.TestCategory
	err := r.db.QueryRowContext(ctx,
		`SELECT category_id::text, name, description, icon, sort_order, is_active, created_at
		 FROM test_categories WHERE category_id = $1`, categoryID,
	).Scan(&c.CategoryID, &c.Name, &c.Description, &c.Icon, &c.SortOrder, &c.IsActive, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostgresCatalogRepo) CreateCategory(ctx context.Context, category *domain.TestCategory) (string, error) {
	id := category.CategoryID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO test_categories (category_id, name, description, icon, sort_order, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, category.Name, category.Description, category.Icon, category.SortOrder, category.IsActive,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert category: %w", err)
	}
	return id, nil
}

// ============================================
// 采样时段目录
// ============================================

func (r *PostgresCatalogRepo) ListTimeSlots(ctx context.Context, activeOnly bool) ([]*domain.TimeSlot, error) {
	q := `SELECT slot_id::text, start_time, end_time, display_text, is_active, created_at
	      FROM time_slots`
	if activeOnly {
		q += ` WHERE is_active = TRUE`
	}
	q += ` ORDER BY start_time`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.TimeSlot{}
	for rows.Next() {
		var s domain.TimeSlot
		if err := rows.Scan(&s.SlotID, &s.StartTime, &s.EndTime, &s.DisplayText,
			&s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *PostgresCatalogRepo) GetTimeSlot(ctx context.Context, slotID string) (*domain.TimeSlot, error) {
	var s domain.TimeSlot
	err := r.db.QueryRowContext(ctx,
		`SELECT slot_id::text, start_time, end_time, display_text, is_active, created_at
		 FROM time_slots WHERE slot_id = $1`, slotID,
	).Scan(&s.SlotID, &s.StartTime, &s.EndTime, &s.DisplayText, &s.IsActive, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
