package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"medtest-data/internal/domain"
)

// PostgresReportsRepo ReportsRepository 的 Postgres 实现
// 报告结果是两级结构：report_tests（项目）+ report_parameters（指标）
type PostgresReportsRepo struct {
	db *sql.DB
}

func NewPostgresReportsRepo(db *sql.DB) *PostgresReportsRepo {
	return &PostgresReportsRepo{db: db}
}

const reportColumns = `
	report_id::text, order_id::text, user_id::text, patient_name, status,
	generated_at, download_url, valid_until, verified_by, created_at, updated_at`

func scanReport(row interface{ Scan(...any) error }) (*domain.Report, error) {
	var rep domain.Report
	if err := row.Scan(
		&rep.ReportID, &rep.OrderID, &rep.UserID, &rep.PatientName, &rep.Status,
		&rep.GeneratedAt, &rep.DownloadURL, &rep.ValidUntil, &rep.VerifiedBy,
		&rep.CreatedAt, &rep.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &rep, nil
}

// loadResults 加载项目结果及其指标参数
func (r *PostgresReportsRepo) loadResults(ctx context.Context, reportID string) ([]domain.ReportTest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id::text, test_id::text, test_name, interpretation
		 FROM report_tests WHERE report_id = $1 ORDER BY created_at`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tests := []domain.ReportTest{}
	rowIDs := []string{}
	for rows.Next() {
		var rowID string
		var t domain.ReportTest
		var interp sql.NullString
		if err := rows.Scan(&rowID, &t.TestID, &t.TestName, &interp); err != nil {
			return nil, err
		}
		t.Interpretation = interp.String
		tests = append(tests, t)
		rowIDs = append(rowIDs, rowID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, rowID := range rowIDs {
		prows, err := r.db.QueryContext(ctx,
			`SELECT name, value, unit, reference_range, status, note
			 FROM report_parameters WHERE report_test_id = $1 ORDER BY created_at`, rowID)
		if err != nil {
			return nil, err
		}
		params := []domain.ReportParameter{}
		for prows.Next() {
			var p domain.ReportParameter
			var note sql.NullString
			if err := prows.Scan(&p.Name, &p.Value, &p.Unit, &p.ReferenceRange, &p.Status, &note); err != nil {
				prows.Close()
				return nil, err
			}
			p.Note = note.String
			params = append(params, p)
		}
		if err := prows.Err(); err != nil {
			prows.Close()
			return nil, err
		}
		prows.Close()
		tests[i].Parameters = params
	}
	return tests, nil
}

func (r *PostgresReportsRepo) GetReport(ctx context.Context, reportID string) (*domain.Report, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE report_id = $1`, reportID)
	rep, err := scanReport(row)
	if err != nil {
		return nil, err
	}
	tests, err := r.loadResults(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to load report results: %w", err)
	}
	rep.Tests = tests
	return rep, nil
}

func (r *PostgresReportsRepo) queryReports(ctx context.Context, where string, args ...any) ([]*domain.Report, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE `+where+`
		 ORDER BY generated_at DESC NULLS LAST, created_at DESC`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Report{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, rep := range out {
		tests, err := r.loadResults(ctx, rep.ReportID)
		if err != nil {
			return nil, fmt.Errorf("failed to load report results: %w", err)
		}
		rep.Tests = tests
	}
	return out, nil
}

func (r *PostgresReportsRepo) ListReportsForUser(ctx context.Context, userID string) ([]*domain.Report, error) {
	return r.queryReports(ctx, `user_id = $1`, userID)
}

func (r *PostgresReportsRepo) ListAllReports(ctx context.Context) ([]*domain.Report, error) {
	return r.queryReports(ctx, `TRUE`)
}

func (r *PostgresReportsRepo) ListReportsForOrder(ctx context.Context, orderID string) ([]*domain.Report, error) {
	return r.queryReports(ctx, `order_id = $1`, orderID)
}

func (r *PostgresReportsRepo) CreateReport(ctx context.Context, report *domain.Report) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := report.ReportID
	if id == "" {
		id = uuid.NewString()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO reports (report_id, order_id, user_id, patient_name, status,
		                      generated_at, download_url, valid_until, verified_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, report.OrderID, report.UserID, report.PatientName, report.Status,
		report.GeneratedAt, report.DownloadURL, report.ValidUntil, report.VerifiedBy,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert report: %w", err)
	}
	if err := insertResultsTx(ctx, tx, id, report.Tests); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	report.ReportID = id
	return id, nil
}

func (r *PostgresReportsRepo) UpdateReport(ctx context.Context, reportID string, report *domain.Report) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reports
		 SET status = $2, generated_at = $3, download_url = $4, valid_until = $5,
		     verified_by = $6, updated_at = NOW()
		 WHERE report_id = $1`,
		reportID, report.Status, report.GeneratedAt, report.DownloadURL,
		report.ValidUntil, report.VerifiedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReplaceResults 整体替换报告结果：删旧插新，同一事务
func (r *PostgresReportsRepo) ReplaceResults(ctx context.Context, reportID string, tests []domain.ReportTest) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM reports WHERE report_id = $1)`, reportID,
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return sql.ErrNoRows
	}

	// report_parameters 通过外键级联删除
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM report_tests WHERE report_id = $1`, reportID); err != nil {
		return fmt.Errorf("failed to clear report results: %w", err)
	}
	if err := insertResultsTx(ctx, tx, reportID, tests); err != nil {
		return err
	}
	return tx.Commit()
}

func insertResultsTx(ctx context.Context, tx *sql.Tx, reportID string, tests []domain.ReportTest) error {
	for _, t := range tests {
		rowID := uuid.NewString()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO report_tests (id, report_id, test_id, test_name, interpretation)
			 VALUES ($1, $2, $3, $4, $5)`,
			rowID, reportID, t.TestID, t.TestName, t.Interpretation,
		); err != nil {
			return fmt.Errorf("failed to insert report test: %w", err)
		}
		for _, p := range t.Parameters {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO report_parameters (id, report_test_id, name, value, unit, reference_range, status, note)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				uuid.NewString(), rowID, p.Name, p.Value, p.Unit, p.ReferenceRange, p.Status, p.Note,
			); err != nil {
				return fmt.Errorf("failed to insert report parameter: %w", err)
			}
		}
	}
	return nil
}
