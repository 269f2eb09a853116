package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medtest-data/internal/domain"
	"medtest-data/internal/events"
	"medtest-data/internal/repository"
)

type orderFixture struct {
	orders   *repository.MemoryOrdersRepo
	catalog  *repository.MemoryCatalogRepo
	techs    *repository.MemoryTechniciansRepo
	svc      OrderService
	testIDs  []string
	slotID   string
	customer domain.Actor
	staff    domain.Actor
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	catalog := repository.NewMemoryCatalogRepo()
	techs := repository.NewMemoryTechniciansRepo()
	orders := repository.NewMemoryOrdersRepo(techs)

	logger := zap.NewNop()
	tests := NewTestService(catalog, logger)
	svc := NewOrderService(orders, catalog, techs, tests, events.NopPublisher{}, logger)

	ctx := context.Background()
	id1, err := catalog.CreateTest(ctx, &domain.Test{
		Name: "Complete Blood Count", Price: 299, HomeCollection: true, IsActive: true,
	})
	require.NoError(t, err)
	id2, err := catalog.CreateTest(ctx, &domain.Test{
		Name:            "Lipid Profile",
		Price:           399,
		DiscountedPrice: sql.NullFloat64{Float64: 350, Valid: true},
		HomeCollection:  true,
		IsActive:        true,
	})
	require.NoError(t, err)

	catalog.SeedTimeSlot(domain.TimeSlot{
		SlotID: "slot-1", StartTime: "07:00", EndTime: "09:00",
		DisplayText: "07:00 - 09:00 AM", IsActive: true,
	})

	return &orderFixture{
		orders:   orders,
		catalog:  catalog,
		techs:    techs,
		svc:      svc,
		testIDs:  []string{id1, id2},
		slotID:   "slot-1",
		customer: domain.Actor{UserID: "user-1", Role: domain.RoleCustomer},
		staff:    domain.Actor{UserID: "staff-1", Role: domain.RoleStaff},
	}
}

func (f *orderFixture) createRequest(date time.Time) CreateOrderRequest {
	return CreateOrderRequest{
		TestIDs: f.testIDs,
		Patient: PatientRequest{Name: "Rahul Sharma", Age: 34, Gender: "male", Phone: "9876543210"},
		Address: OrderAddressInput{
			AddressLine1: "12 MG Road",
			City:         "Mumbai",
			State:        "Maharashtra",
			Pincode:      "400001",
		},
		AppointmentDate: date,
		TimeSlotID:      f.slotID,
		PaymentMethod:   domain.PaymentOnline,
	}
}

func TestOrderService_CreateOrder_Pricing(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, f.customer, f.createRequest(time.Now().Add(24*time.Hour)))
	require.NoError(t, err)

	require.Equal(t, domain.OrderPending, order.Status)
	require.True(t, strings.HasPrefix(order.TrackingID, "MT"))
	require.Len(t, order.Tests, 2)

	// 299 + 折后 350 = 649，达到免收门槛，上门费 0
	require.Equal(t, 649.0, order.Pricing.TestsTotal)
	require.Equal(t, 49.0, order.Pricing.Discount)
	require.Equal(t, 0.0, order.Pricing.CollectionCharges)
	require.Equal(t, 649.0, order.Pricing.Total)
	require.Equal(t, 649.0, order.Payment.Amount)
	require.Equal(t, domain.PaymentStatusPending, order.Payment.Status)
}

func TestOrderService_CreateOrder_Validation(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	date := time.Now().Add(24 * time.Hour)

	_, err := f.svc.CreateOrder(ctx, domain.Actor{}, f.createRequest(date))
	require.True(t, domain.IsAuthorization(err))

	req := f.createRequest(date)
	req.TestIDs = nil
	_, err = f.svc.CreateOrder(ctx, f.customer, req)
	require.True(t, domain.IsValidation(err))

	req = f.createRequest(date)
	req.TestIDs = append(req.TestIDs, "nonexistent")
	_, err = f.svc.CreateOrder(ctx, f.customer, req)
	require.True(t, domain.IsValidation(err))
	require.Contains(t, err.Error(), "nonexistent")

	req = f.createRequest(date)
	req.TimeSlotID = "unknown-slot"
	_, err = f.svc.CreateOrder(ctx, f.customer, req)
	require.True(t, domain.IsValidation(err))

	req = f.createRequest(date)
	req.PaymentMethod = "barter"
	_, err = f.svc.CreateOrder(ctx, f.customer, req)
	require.True(t, domain.IsValidation(err))
}

func TestOrderService_SlotConflict(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	date := time.Now().Add(48 * time.Hour)

	first, err := f.svc.CreateOrder(ctx, f.customer, f.createRequest(date))
	require.NoError(t, err)

	// pending 不占用时段；确认后才占用
	require.NoError(t, f.svc.UpdateStatus(ctx, f.staff, first.OrderID, domain.OrderConfirmed))

	slots, err := f.svc.AvailableTimeSlots(ctx, date, "400001")
	require.NoError(t, err)
	require.Empty(t, slots)

	other := domain.Actor{UserID: "user-2", Role: domain.RoleCustomer}
	_, err = f.svc.CreateOrder(ctx, other, f.createRequest(date))
	require.True(t, domain.IsValidation(err))

	// 其他 pincode 不受影响
	req := f.createRequest(date)
	req.Address.Pincode = "110001"
	_, err = f.svc.CreateOrder(ctx, other, req)
	require.NoError(t, err)

	// 取消后时段重新可用
	require.NoError(t, f.svc.UpdateStatus(ctx, f.staff, first.OrderID, domain.OrderCancelled))
	slots, err = f.svc.AvailableTimeSlots(ctx, date, "400001")
	require.NoError(t, err)
	require.Len(t, slots, 1)
}

func TestOrderService_CreateOrder_DuplicateTestIDsPriceOnce(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	// 重复的项目 id 折叠为一行，与 SQL ANY($1) 的语义一致
	req := f.createRequest(time.Now().Add(24 * time.Hour))
	req.TestIDs = append(req.TestIDs, f.testIDs[0])
	order, err := f.svc.CreateOrder(ctx, f.customer, req)
	require.NoError(t, err)
	require.Len(t, order.Tests, 2)
	require.Equal(t, 649.0, order.Pricing.TestsTotal)
	require.Equal(t, 649.0, order.Pricing.Total)
}

func TestOrderService_SlotConflictOnConfirm(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	date := time.Now().Add(48 * time.Hour)

	// 两个 pending 订单可以共存于同一时段
	first, err := f.svc.CreateOrder(ctx, f.customer, f.createRequest(date))
	require.NoError(t, err)
	other := domain.Actor{UserID: "user-2", Role: domain.RoleCustomer}
	second, err := f.svc.CreateOrder(ctx, other, f.createRequest(date))
	require.NoError(t, err)

	// 第一单确认占用时段，第二单不能再被确认
	require.NoError(t, f.svc.UpdateStatus(ctx, f.staff, first.OrderID, domain.OrderConfirmed))
	err = f.svc.UpdateStatus(ctx, f.staff, second.OrderID, domain.OrderConfirmed)
	require.True(t, domain.IsValidation(err))

	got, err := f.svc.GetOrder(ctx, f.staff, second.OrderID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderPending, got.Status)

	// 已占用订单自身的状态推进不受复查影响
	require.NoError(t, f.svc.UpdateStatus(ctx, f.staff, first.OrderID, domain.OrderSampleCollected))

	// 第一单取消后第二单可以确认
	require.NoError(t, f.svc.UpdateStatus(ctx, f.staff, first.OrderID, domain.OrderCancelled))
	require.NoError(t, f.svc.UpdateStatus(ctx, f.staff, second.OrderID, domain.OrderConfirmed))
}

func TestOrderService_GetOrder_HidesOthersOrders(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, f.customer, f.createRequest(time.Now().Add(24*time.Hour)))
	require.NoError(t, err)

	// 非属主看到 not found 而不是 forbidden
	other := domain.Actor{UserID: "user-2", Role: domain.RoleCustomer}
	_, err = f.svc.GetOrder(ctx, other, order.OrderID)
	require.True(t, domain.IsNotFound(err))

	_, err = f.svc.TrackOrder(ctx, other, order.TrackingID)
	require.True(t, domain.IsNotFound(err))

	// staff 可见
	got, err := f.svc.GetOrder(ctx, f.staff, order.OrderID)
	require.NoError(t, err)
	require.Equal(t, order.OrderID, got.OrderID)

	tracked, err := f.svc.TrackOrder(ctx, f.customer, order.TrackingID)
	require.NoError(t, err)
	require.Equal(t, "Order Placed", tracked.StatusDisplay)
}

func TestOrderService_UpdateStatus_RequiresStaff(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, f.customer, f.createRequest(time.Now().Add(24*time.Hour)))
	require.NoError(t, err)

	// 属主也不能直接改状态
	err = f.svc.UpdateStatus(ctx, f.customer, order.OrderID, domain.OrderConfirmed)
	require.True(t, domain.IsAuthorization(err))

	err = f.svc.UpdateStatus(ctx, f.staff, order.OrderID, "shipped")
	require.True(t, domain.IsValidation(err))

	require.NoError(t, f.svc.UpdateStatus(ctx, f.staff, order.OrderID, domain.OrderConfirmed))
	got, err := f.svc.GetOrder(ctx, f.staff, order.OrderID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderConfirmed, got.Status)
}

func TestOrderService_CancellationWindow(t *testing.T) {
	f := newOrderFixture(t)
	svc := f.svc.(*orderService)

	appointment := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	order := &domain.Order{
		UserID: "user-1",
		Status: domain.OrderConfirmed,
		Appointment: domain.AppointmentInfo{Date: appointment},
	}
	owner := domain.Actor{UserID: "user-1", Role: domain.RoleCustomer}

	// 距预约超过 4 小时可取消
	require.True(t, svc.CancellationAllowed(order, owner, appointment.Add(-5*time.Hour)))
	// 4 小时以内不可取消
	require.False(t, svc.CancellationAllowed(order, owner, appointment.Add(-3*time.Hour)))
	require.False(t, svc.CancellationAllowed(order, owner, appointment.Add(time.Hour)))

	// 非属主、终态订单都不可取消
	require.False(t, svc.CancellationAllowed(order, domain.Actor{UserID: "user-2"}, appointment.Add(-5*time.Hour)))
	order.Status = domain.OrderCompleted
	require.False(t, svc.CancellationAllowed(order, owner, appointment.Add(-5*time.Hour)))
}

func TestOrderService_CancelOrder(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	// 预约在近窗口内：本人取消被拒，staff 可越过窗口
	order, err := f.svc.CreateOrder(ctx, f.customer, f.createRequest(time.Now().Add(2*time.Hour)))
	require.NoError(t, err)

	err = f.svc.CancelOrder(ctx, f.customer, order.OrderID)
	require.True(t, domain.IsValidation(err))

	require.NoError(t, f.svc.CancelOrder(ctx, f.staff, order.OrderID))
	got, err := f.svc.GetOrder(ctx, f.staff, order.OrderID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderCancelled, got.Status)

	// 预约足够远：本人可取消
	order2, err := f.svc.CreateOrder(ctx, f.customer, f.createRequest(time.Now().Add(48*time.Hour)))
	require.NoError(t, err)
	require.NoError(t, f.svc.CancelOrder(ctx, f.customer, order2.OrderID))
}

func TestOrderService_AssignTechnician(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, f.customer, f.createRequest(time.Now().Add(24*time.Hour)))
	require.NoError(t, err)

	techID, err := f.techs.CreateTechnician(ctx, &domain.Technician{
		Name: "Amit Verma", Phone: "9000000001",
		Pincodes:        []string{"400001", "400002"},
		MaxOrdersPerDay: 2,
		IsActive:        true,
	})
	require.NoError(t, err)
	outsideID, err := f.techs.CreateTechnician(ctx, &domain.Technician{
		Name: "Suresh Kumar", Phone: "9000000002",
		Pincodes:        []string{"560001"},
		MaxOrdersPerDay: 2,
		IsActive:        true,
	})
	require.NoError(t, err)

	// 不服务该 pincode
	err = f.svc.AssignTechnician(ctx, f.staff, AssignTechnicianRequest{OrderID: order.OrderID, TechnicianID: outsideID})
	require.True(t, domain.IsValidation(err))

	// customer 不能派单
	err = f.svc.AssignTechnician(ctx, f.customer, AssignTechnicianRequest{OrderID: order.OrderID, TechnicianID: techID})
	require.True(t, domain.IsAuthorization(err))

	require.NoError(t, f.svc.AssignTechnician(ctx, f.staff, AssignTechnicianRequest{OrderID: order.OrderID, TechnicianID: techID}))

	got, err := f.svc.GetOrder(ctx, f.staff, order.OrderID)
	require.NoError(t, err)
	require.Equal(t, techID, got.Appointment.TechnicianID.String)
	require.Equal(t, "Amit Verma", got.Appointment.TechnicianName.String)

	tech, err := f.techs.GetTechnician(ctx, techID)
	require.NoError(t, err)
	require.Equal(t, 1, tech.CurrentOrders)
}

func TestOrderService_AssignTechnician_CapacityLimit(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	techID, err := f.techs.CreateTechnician(ctx, &domain.Technician{
		Name: "Amit Verma", Phone: "9000000001",
		Pincodes:        []string{"400001"},
		CurrentOrders:   2,
		MaxOrdersPerDay: 2,
		IsActive:        true,
	})
	require.NoError(t, err)

	order, err := f.svc.CreateOrder(ctx, f.customer, f.createRequest(time.Now().Add(24*time.Hour)))
	require.NoError(t, err)

	err = f.svc.AssignTechnician(ctx, f.staff, AssignTechnicianRequest{OrderID: order.OrderID, TechnicianID: techID})
	require.True(t, domain.IsValidation(err))
}

func TestOrderService_MarkPaid(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, f.customer, f.createRequest(time.Now().Add(24*time.Hour)))
	require.NoError(t, err)

	err = f.svc.MarkPaid(ctx, f.customer, MarkPaidRequest{OrderID: order.OrderID, TransactionID: "txn-1"})
	require.True(t, domain.IsAuthorization(err))

	require.NoError(t, f.svc.MarkPaid(ctx, f.staff, MarkPaidRequest{OrderID: order.OrderID, TransactionID: "txn-1"}))

	got, err := f.svc.GetOrder(ctx, f.staff, order.OrderID)
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStatusCompleted, got.Payment.Status)

	payments, err := f.svc.ListPayments(ctx, f.customer, order.OrderID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	require.Equal(t, 649.0, payments[0].Amount)
	require.Equal(t, "INR", payments[0].Currency)
}

func TestOrderService_ListOrders_ScopedToOwner(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	date := time.Now().Add(24 * time.Hour)

	_, err := f.svc.CreateOrder(ctx, f.customer, f.createRequest(date))
	require.NoError(t, err)

	other := domain.Actor{UserID: "user-2", Role: domain.RoleCustomer}
	req := f.createRequest(date)
	req.Address.Pincode = "110001"
	_, err = f.svc.CreateOrder(ctx, other, req)
	require.NoError(t, err)

	// customer 即使指定他人 user_id 也只能看到自己的
	orders, err := f.svc.ListOrders(ctx, f.customer, ListOrdersRequest{UserID: "user-2"})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, "user-1", orders[0].UserID)

	// staff 可查全量
	orders, err = f.svc.ListOrders(ctx, f.staff, ListOrdersRequest{})
	require.NoError(t, err)
	require.Len(t, orders, 2)

	_, err = f.svc.Stats(ctx, f.customer)
	require.True(t, domain.IsAuthorization(err))
	stats, err := f.svc.Stats(ctx, f.staff)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalOrders)
}
