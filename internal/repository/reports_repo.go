package repository

import (
	"context"

	"medtest-data/internal/domain"
)

// ReportsRepository 检测报告Repository接口
type ReportsRepository interface {
	GetReport(ctx context.Context, reportID string) (*domain.Report, error)
	ListReportsForUser(ctx context.Context, userID string) ([]*domain.Report, error)
	ListAllReports(ctx context.Context) ([]*domain.Report, error)
	ListReportsForOrder(ctx context.Context, orderID string) ([]*domain.Report, error)
	CreateReport(ctx context.Context, report *domain.Report) (string, error)
	// UpdateReport 覆写状态/时间戳/下载地址等顶层字段
	UpdateReport(ctx context.Context, reportID string, report *domain.Report) error
	// ReplaceResults 覆写报告的项目结果与指标参数（LIS 同步用）
	ReplaceResults(ctx context.Context, reportID string, tests []domain.ReportTest) error
}
