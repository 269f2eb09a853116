package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medtest-data/internal/domain"
	"medtest-data/internal/events"
	"medtest-data/internal/repository"
)

type fakeLIS struct {
	results []LISTestResult
	err     error
	calls   int
}

func (f *fakeLIS) FetchResults(orderID string) ([]LISTestResult, error) {
	f.calls++
	return f.results, f.err
}

type reportFixture struct {
	reports  *repository.MemoryReportsRepo
	orders   *repository.MemoryOrdersRepo
	lis      *fakeLIS
	svc      ReportService
	orderID  string
	customer domain.Actor
	staff    domain.Actor
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	reports := repository.NewMemoryReportsRepo()
	orders := repository.NewMemoryOrdersRepo(repository.NewMemoryTechniciansRepo())
	lis := &fakeLIS{}
	svc := NewReportService(reports, orders, lis, events.NopPublisher{}, zap.NewNop())

	orderID, err := orders.CreateOrder(context.Background(), &domain.Order{
		UserID:  "user-1",
		Status:  domain.OrderCompleted,
		Patient: domain.PatientInfo{Name: "Rahul Sharma"},
		Tests: []domain.OrderTest{
			{TestID: "t1", TestName: "Complete Blood Count", Price: 299},
		},
		Appointment: domain.AppointmentInfo{Date: time.Now()},
	})
	require.NoError(t, err)

	return &reportFixture{
		reports:  reports,
		orders:   orders,
		lis:      lis,
		svc:      svc,
		orderID:  orderID,
		customer: domain.Actor{UserID: "user-1", Role: domain.RoleCustomer},
		staff:    domain.Actor{UserID: "staff-1", Role: domain.RoleStaff},
	}
}

func TestReportService_CreateReport_CopiesOrderItems(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateReport(ctx, f.customer, CreateReportRequest{OrderID: f.orderID})
	require.True(t, domain.IsAuthorization(err))

	id, err := f.svc.CreateReport(ctx, f.staff, CreateReportRequest{OrderID: f.orderID})
	require.NoError(t, err)

	report, err := f.svc.GetReport(ctx, f.staff, id)
	require.NoError(t, err)
	require.Equal(t, domain.ReportPending, report.Status)
	require.Equal(t, "Rahul Sharma", report.PatientName)
	require.Len(t, report.Tests, 1)
	require.Equal(t, "Complete Blood Count", report.Tests[0].TestName)

	_, err = f.svc.CreateReport(ctx, f.staff, CreateReportRequest{OrderID: "missing"})
	require.True(t, domain.IsNotFound(err))
}

func TestReportService_GetReport_HidesOthersReports(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	id, err := f.svc.CreateReport(ctx, f.staff, CreateReportRequest{OrderID: f.orderID})
	require.NoError(t, err)

	got, err := f.svc.GetReport(ctx, f.customer, id)
	require.NoError(t, err)
	require.Equal(t, id, got.ReportID)

	other := domain.Actor{UserID: "user-2", Role: domain.RoleCustomer}
	_, err = f.svc.GetReport(ctx, other, id)
	require.True(t, domain.IsNotFound(err))
}

func TestReportService_UpdateStatus_StampsGeneratedAt(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	id, err := f.svc.CreateReport(ctx, f.staff, CreateReportRequest{OrderID: f.orderID})
	require.NoError(t, err)

	err = f.svc.UpdateStatus(ctx, f.customer, id, domain.ReportReady)
	require.True(t, domain.IsAuthorization(err))
	err = f.svc.UpdateStatus(ctx, f.staff, id, "finished")
	require.True(t, domain.IsValidation(err))

	require.NoError(t, f.svc.UpdateStatus(ctx, f.staff, id, domain.ReportReady))
	report, err := f.svc.GetReport(ctx, f.staff, id)
	require.NoError(t, err)
	require.Equal(t, domain.ReportReady, report.Status)
	require.True(t, report.GeneratedAt.Valid)

	// 再次流转不覆盖首次生成时间
	first := report.GeneratedAt.Time
	require.NoError(t, f.svc.UpdateStatus(ctx, f.staff, id, domain.ReportDelivered))
	require.NoError(t, f.svc.UpdateStatus(ctx, f.staff, id, domain.ReportReady))
	report, err = f.svc.GetReport(ctx, f.staff, id)
	require.NoError(t, err)
	require.Equal(t, first, report.GeneratedAt.Time)
}

func TestReportService_RequestDownload_GatedOnReady(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	id, err := f.svc.CreateReport(ctx, f.staff, CreateReportRequest{OrderID: f.orderID})
	require.NoError(t, err)

	// pending 不可下载
	_, err = f.svc.RequestDownload(ctx, f.customer, id)
	require.True(t, domain.IsValidation(err))

	report, err := f.reports.GetReport(ctx, id)
	require.NoError(t, err)
	report.Status = domain.ReportReady
	report.DownloadURL = sql.NullString{String: "https://files.example.com/r1.pdf", Valid: true}
	require.NoError(t, f.reports.UpdateReport(ctx, id, report))

	dl, err := f.svc.RequestDownload(ctx, f.customer, id)
	require.NoError(t, err)
	require.Equal(t, "https://files.example.com/r1.pdf", dl.DownloadURL)
	require.True(t, dl.ExpiresAt.After(time.Now()))

	other := domain.Actor{UserID: "user-2", Role: domain.RoleCustomer}
	_, err = f.svc.RequestDownload(ctx, other, id)
	require.True(t, domain.IsNotFound(err))
}

func TestReportService_SyncResults(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	id, err := f.svc.CreateReport(ctx, f.staff, CreateReportRequest{OrderID: f.orderID})
	require.NoError(t, err)

	f.lis.results = []LISTestResult{
		{
			TestID:   "t1",
			TestName: "Complete Blood Count",
			Parameters: []LISParameter{
				{Name: "Hemoglobin", Value: "14.2", Unit: "g/dL", ReferenceRange: "13.0-17.0", Status: domain.ParamNormal},
				{Name: "WBC", Value: "11.8", Unit: "10^3/uL", ReferenceRange: "4.0-11.0", Status: domain.ParamHigh},
			},
		},
	}

	err = f.svc.SyncResults(ctx, f.customer, id)
	require.True(t, domain.IsAuthorization(err))

	require.NoError(t, f.svc.SyncResults(ctx, f.staff, id))
	require.Equal(t, 1, f.lis.calls)

	report, err := f.svc.GetReport(ctx, f.staff, id)
	require.NoError(t, err)
	require.Len(t, report.Tests, 1)
	require.Len(t, report.Tests[0].Parameters, 2)
	require.Equal(t, domain.ParamHigh, report.Tests[0].Parameters[1].Status)

	// LIS 出错不落库
	f.lis.err = errors.New("lis unavailable")
	err = f.svc.SyncResults(ctx, f.staff, id)
	require.Error(t, err)
}

func TestReportService_SyncResults_RequiresLIS(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	svc := NewReportService(f.reports, f.orders, nil, events.NopPublisher{}, zap.NewNop())
	id, err := svc.CreateReport(ctx, f.staff, CreateReportRequest{OrderID: f.orderID})
	require.NoError(t, err)

	err = svc.SyncResults(ctx, f.staff, id)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not configured")
}

func TestReportService_ListForUser(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	id, err := f.svc.CreateReport(ctx, f.staff, CreateReportRequest{OrderID: f.orderID})
	require.NoError(t, err)

	own, err := f.svc.ListForUser(ctx, f.customer, "")
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.Equal(t, id, own[0].ReportID)
	require.False(t, own[0].Downloadable)

	// customer 指定他人 user_id 仍然只看到自己的
	own, err = f.svc.ListForUser(ctx, f.customer, "user-2")
	require.NoError(t, err)
	require.Len(t, own, 1)

	all, err := f.svc.ListForUser(ctx, f.staff, "")
	require.NoError(t, err)
	require.Len(t, all, 1)

	none, err := f.svc.ListForUser(ctx, f.staff, "user-2")
	require.NoError(t, err)
	require.Empty(t, none)
}
