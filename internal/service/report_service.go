package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"medtest-data/internal/domain"
	"medtest-data/internal/events"
	"medtest-data/internal/repository"
)

// 下载链接有效期
const downloadTTL = 24 * time.Hour

// LISFetcher 报告结果来源抽象
type LISFetcher interface {
	FetchResults(orderID string) ([]LISTestResult, error)
}

// ReportService 检测报告服务接口
type ReportService interface {
	// ListForUser 报告摘要列表；staff/admin 不传 userID 时查全量
	ListForUser(ctx context.Context, actor domain.Actor, userID string) ([]*ReportSummary, error)
	GetReport(ctx context.Context, actor domain.Actor, reportID string) (*domain.Report, error)
	RequestDownload(ctx context.Context, actor domain.Actor, reportID string) (*domain.ReportDownload, error)
	UpdateStatus(ctx context.Context, actor domain.Actor, reportID, newStatus string) error
	CreateReport(ctx context.Context, actor domain.Actor, req CreateReportRequest) (string, error)
	// SyncResults 从 LIS 拉取项目结果并整体替换
	SyncResults(ctx context.Context, actor domain.Actor, reportID string) error
}

type reportService struct {
	reportsRepo repository.ReportsRepository
	ordersRepo  repository.OrdersRepository
	lis         LISFetcher
	publisher   events.Publisher
	logger      *zap.Logger
}

// NewReportService 创建 ReportService 实例
// lis 为 nil 时 SyncResults 直接报错
func NewReportService(
	reportsRepo repository.ReportsRepository,
	ordersRepo repository.OrdersRepository,
	lis LISFetcher,
	publisher events.Publisher,
	logger *zap.Logger,
) ReportService {
	return &reportService{
		reportsRepo: reportsRepo,
		ordersRepo:  ordersRepo,
		lis:         lis,
		publisher:   publisher,
		logger:      logger,
	}
}

// ============================================
// Request/Response DTOs
// ============================================

// ReportSummary 列表视图：不含指标明细
type ReportSummary struct {
	ReportID     string     `json:"report_id"`
	OrderID      string     `json:"order_id"`
	PatientName  string     `json:"patient_name"`
	TestNames    []string   `json:"test_names"`
	Status       string     `json:"status"`
	GeneratedAt  *time.Time `json:"generated_at,omitempty"`
	Downloadable bool       `json:"downloadable"`
}

// CreateReportRequest 建立报告占位（staff）
type CreateReportRequest struct {
	OrderID string `json:"order_id"`
}

// ============================================
// 实现
// ============================================

func (s *reportService) ListForUser(ctx context.Context, actor domain.Actor, userID string) ([]*ReportSummary, error) {
	if !actor.IsAuthenticated() {
		return nil, domain.NewAuthorizationError("authentication required")
	}

	var reports []*domain.Report
	var err error
	switch {
	case actor.IsStaff() && userID == "":
		reports, err = s.reportsRepo.ListAllReports(ctx)
	case actor.IsStaff():
		reports, err = s.reportsRepo.ListReportsForUser(ctx, userID)
	default:
		reports, err = s.reportsRepo.ListReportsForUser(ctx, actor.UserID)
	}
	if err != nil {
		return nil, domain.NewServiceError("list reports", err)
	}

	out := make([]*ReportSummary, 0, len(reports))
	for _, r := range reports {
		out = append(out, summarize(r))
	}
	return out, nil
}

// GetReport 非属主且非 staff 返回 not found
func (s *reportService) GetReport(ctx context.Context, actor domain.Actor, reportID string) (*domain.Report, error) {
	report, err := s.loadReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.UserID != actor.UserID && !actor.IsStaff() {
		return nil, domain.NewNotFoundError("report")
	}
	return report, nil
}

func (s *reportService) RequestDownload(ctx context.Context, actor domain.Actor, reportID string) (*domain.ReportDownload, error) {
	report, err := s.GetReport(ctx, actor, reportID)
	if err != nil {
		return nil, err
	}
	if !report.Downloadable() {
		return nil, domain.NewValidationError("report", "report is not ready for download")
	}
	return &domain.ReportDownload{
		ReportID:    report.ReportID,
		Filename:    fmt.Sprintf("report-%s.pdf", report.ReportID),
		FileSize:    0, // 文件尺寸由存储端在下载时提供
		DownloadURL: report.DownloadURL.String,
		ExpiresAt:   time.Now().Add(downloadTTL),
	}, nil
}

// UpdateStatus 转入 ready 时补写 GeneratedAt（已有值不覆盖）
func (s *reportService) UpdateStatus(ctx context.Context, actor domain.Actor, reportID, newStatus string) error {
	if !actor.IsStaff() {
		return domain.NewAuthorizationError("staff role required")
	}
	if !domain.ValidReportStatus(newStatus) {
		return domain.NewValidationError("status", "unknown report status")
	}
	report, err := s.loadReport(ctx, reportID)
	if err != nil {
		return err
	}

	report.Status = newStatus
	if newStatus == domain.ReportReady && !report.GeneratedAt.Valid {
		report.GeneratedAt = sql.NullTime{Time: time.Now(), Valid: true}
	}
	if err := s.reportsRepo.UpdateReport(ctx, reportID, report); err != nil {
		return domain.NewServiceError("update report", err)
	}
	s.logger.Info("report status updated",
		zap.String("report_id", reportID),
		zap.String("status", newStatus))

	if newStatus == domain.ReportReady {
		s.publishReady(ctx, report)
	}
	return nil
}

func (s *reportService) CreateReport(ctx context.Context, actor domain.Actor, req CreateReportRequest) (string, error) {
	if !actor.IsStaff() {
		return "", domain.NewAuthorizationError("staff role required")
	}
	order, err := s.ordersRepo.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.NewNotFoundError("order")
		}
		return "", domain.NewServiceError("get order", err)
	}

	tests := make([]domain.ReportTest, 0, len(order.Tests))
	for _, item := range order.Tests {
		tests = append(tests, domain.ReportTest{
			TestID:   item.TestID,
			TestName: item.TestName,
		})
	}
	report := &domain.Report{
		OrderID:     order.OrderID,
		UserID:      order.UserID,
		PatientName: order.Patient.Name,
		Status:      domain.ReportPending,
		Tests:       tests,
	}
	id, err := s.reportsRepo.CreateReport(ctx, report)
	if err != nil {
		return "", domain.NewServiceError("create report", err)
	}
	s.logger.Info("report created",
		zap.String("report_id", id),
		zap.String("order_id", order.OrderID))
	return id, nil
}

func (s *reportService) SyncResults(ctx context.Context, actor domain.Actor, reportID string) error {
	if !actor.IsStaff() {
		return domain.NewAuthorizationError("staff role required")
	}
	if s.lis == nil {
		return domain.NewServiceError("sync results", errors.New("LIS integration is not configured"))
	}
	report, err := s.loadReport(ctx, reportID)
	if err != nil {
		return err
	}

	results, err := s.lis.FetchResults(report.OrderID)
	if err != nil {
		return domain.NewServiceError("fetch LIS results", err)
	}
	tests := make([]domain.ReportTest, 0, len(results))
	for _, r := range results {
		t := domain.ReportTest{
			TestID:         r.TestID,
			TestName:       r.TestName,
			Interpretation: r.Interpretation,
		}
		for _, p := range r.Parameters {
			t.Parameters = append(t.Parameters, domain.ReportParameter{
				Name:           p.Name,
				Value:          p.Value,
				Unit:           p.Unit,
				ReferenceRange: p.ReferenceRange,
				Status:         p.Status,
				Note:           p.Note,
			})
		}
		tests = append(tests, t)
	}
	if err := s.reportsRepo.ReplaceResults(ctx, reportID, tests); err != nil {
		return domain.NewServiceError("replace report results", err)
	}
	s.logger.Info("report results synced",
		zap.String("report_id", reportID),
		zap.Int("tests", len(tests)))
	return nil
}

// ============================================
// 内部工具
// ============================================

func (s *reportService) loadReport(ctx context.Context, reportID string) (*domain.Report, error) {
	report, err := s.reportsRepo.GetReport(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("report")
		}
		return nil, domain.NewServiceError("get report", err)
	}
	return report, nil
}

func (s *reportService) publishReady(ctx context.Context, report *domain.Report) {
	trackingID := ""
	if order, err := s.ordersRepo.GetOrder(ctx, report.OrderID); err == nil {
		trackingID = order.TrackingID
	}
	event := events.OrderEvent{
		Type:       events.EventReportReady,
		OrderID:    report.OrderID,
		UserID:     report.UserID,
		TrackingID: trackingID,
		OccurredAt: time.Now(),
	}
	if err := s.publisher.Publish(event); err != nil {
		s.logger.Warn("failed to publish report event", zap.Error(err))
	}
}

func summarize(r *domain.Report) *ReportSummary {
	names := make([]string, 0, len(r.Tests))
	for _, t := range r.Tests {
		names = append(names, t.TestName)
	}
	s := &ReportSummary{
		ReportID:     r.ReportID,
		OrderID:      r.OrderID,
		PatientName:  r.PatientName,
		TestNames:    names,
		Status:       r.Status,
		Downloadable: r.Downloadable(),
	}
	if r.GeneratedAt.Valid {
		t := r.GeneratedAt.Time
		s.GeneratedAt = &t
	}
	return s
}
