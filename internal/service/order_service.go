package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"medtest-data/internal/domain"
	"medtest-data/internal/events"
	"medtest-data/internal/repository"
)

// 取消窗口：预约时刻 4 小时前
const cancellationWindow = 4 * time.Hour

// OrderService 订单服务接口
type OrderService interface {
	CreateOrder(ctx context.Context, actor domain.Actor, req CreateOrderRequest) (*domain.Order, error)
	// ListOrders 普通用户只能查自己的订单；staff/admin 可指定其他用户或全量
	ListOrders(ctx context.Context, actor domain.Actor, req ListOrdersRequest) ([]*domain.Order, error)
	GetOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error)
	TrackOrder(ctx context.Context, actor domain.Actor, trackingID string) (*OrderTracking, error)

	UpdateStatus(ctx context.Context, actor domain.Actor, orderID, newStatus string) error
	AssignTechnician(ctx context.Context, actor domain.Actor, req AssignTechnicianRequest) error
	MarkPaid(ctx context.Context, actor domain.Actor, req MarkPaidRequest) error
	ListPayments(ctx context.Context, actor domain.Actor, orderID string) ([]*domain.Payment, error)

	AvailableTimeSlots(ctx context.Context, date time.Time, pincode string) ([]*domain.TimeSlot, error)
	CancellationAllowed(order *domain.Order, actor domain.Actor, now time.Time) bool
	CancelOrder(ctx context.Context, actor domain.Actor, orderID string) error

	Stats(ctx context.Context, actor domain.Actor) (*domain.OrderStats, error)
}

type orderService struct {
	ordersRepo      repository.OrdersRepository
	catalogRepo     repository.CatalogRepository
	techniciansRepo repository.TechniciansRepository
	tests           TestService
	publisher       events.Publisher
	logger          *zap.Logger
}

// NewOrderService 创建 OrderService 实例
func NewOrderService(
	ordersRepo repository.OrdersRepository,
	catalogRepo repository.CatalogRepository,
	techniciansRepo repository.TechniciansRepository,
	tests TestService,
	publisher events.Publisher,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		ordersRepo:      ordersRepo,
		catalogRepo:     catalogRepo,
		techniciansRepo: techniciansRepo,
		tests:           tests,
		publisher:       publisher,
		logger:          logger,
	}
}

// ============================================
// Request/Response DTOs
// ============================================

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	TestIDs             []string          `json:"test_ids"`
	Patient             PatientRequest    `json:"patient"`
	Address             OrderAddressInput `json:"address"`
	AppointmentDate     time.Time         `json:"appointment_date"`
	TimeSlotID          string            `json:"time_slot_id"`
	PaymentMethod       string            `json:"payment_method"`
	SpecialInstructions string            `json:"special_instructions"`
}

// PatientRequest 受检人信息
type PatientRequest struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
	Phone  string `json:"phone"`
	Email  string `json:"email"`
}

// OrderAddressInput 采样地址
type OrderAddressInput struct {
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	Landmark     string `json:"landmark"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
}

// ListOrdersRequest 订单查询请求
type ListOrdersRequest struct {
	UserID string // staff/admin 可指定；为空时 staff 查全量、customer 查自己
	Status string
}

// AssignTechnicianRequest 派单请求
type AssignTechnicianRequest struct {
	OrderID      string `json:"order_id"`
	TechnicianID string `json:"technician_id"`
}

// MarkPaidRequest 支付回执请求
type MarkPaidRequest struct {
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
}

// OrderTracking 跟踪视图：订单 + 用户可见的状态文案
type OrderTracking struct {
	Order         *domain.Order `json:"order"`
	StatusDisplay string        `json:"status_display"`
}

// ============================================
// 实现
// ============================================

func (s *orderService) CreateOrder(ctx context.Context, actor domain.Actor, req CreateOrderRequest) (*domain.Order, error) {
	if !actor.IsAuthenticated() {
		return nil, domain.NewAuthorizationError("authentication required")
	}
	if len(req.TestIDs) == 0 {
		return nil, domain.NewValidationError("test_ids", "at least one test is required")
	}
	if req.Patient.Name == "" {
		return nil, domain.NewValidationError("patient.name", "patient name is required")
	}
	if req.Address.Pincode == "" {
		return nil, domain.NewValidationError("address.pincode", "pincode is required")
	}
	if req.PaymentMethod != domain.PaymentOnline && req.PaymentMethod != domain.PaymentCashOnCollection {
		return nil, domain.NewValidationError("payment_method", "unknown payment method")
	}

	// 所有项目都必须能解析为在售项目；报出缺失的 id
	tests, err := s.catalogRepo.GetTestsByIDs(ctx, req.TestIDs)
	if err != nil {
		return nil, domain.NewServiceError("resolve tests", err)
	}
	if missing := missingIDs(req.TestIDs, tests); len(missing) > 0 {
		return nil, domain.NewValidationError("test_ids", "unknown or inactive tests: "+strings.Join(missing, ", "))
	}

	// 时段必须在有效时段目录内
	slot, err := s.catalogRepo.GetTimeSlot(ctx, req.TimeSlotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewValidationError("time_slot_id", "unknown time slot")
		}
		return nil, domain.NewServiceError("resolve time slot", err)
	}
	if !slot.IsActive {
		return nil, domain.NewValidationError("time_slot_id", "time slot is not active")
	}

	// 定价
	testsTotal := 0.0
	discount := 0.0
	for _, t := range tests {
		testsTotal += t.EffectivePrice()
		discount += t.Savings()
	}
	collectionCharges, err := s.tests.CollectionCharge(ctx, req.TestIDs, testsTotal)
	if err != nil {
		return nil, err
	}
	total := testsTotal + collectionCharges

	items := make([]domain.OrderTest, 0, len(tests))
	for _, t := range tests {
		items = append(items, domain.OrderTest{
			TestID:          t.TestID,
			TestName:        t.Name,
			Price:           t.Price,
			DiscountedPrice: t.DiscountedPrice,
		})
	}

	order := &domain.Order{
		UserID: actor.UserID,
		Status: domain.OrderPending,
		Tests:  items,
		Patient: domain.PatientInfo{
			Name:   req.Patient.Name,
			Age:    req.Patient.Age,
			Gender: req.Patient.Gender,
			Phone:  req.Patient.Phone,
			Email:  req.Patient.Email,
		},
		Address: domain.OrderAddress{
			AddressLine1: req.Address.AddressLine1,
			AddressLine2: req.Address.AddressLine2,
			Landmark:     req.Address.Landmark,
			City:         req.Address.City,
			State:        req.Address.State,
			Pincode:      req.Address.Pincode,
		},
		Appointment: domain.AppointmentInfo{
			Date:     req.AppointmentDate,
			TimeSlot: *slot,
		},
		Payment: domain.PaymentInfo{
			Method: req.PaymentMethod,
			Status: domain.PaymentStatusPending,
			Amount: total,
		},
		Pricing: domain.OrderPricing{
			TestsTotal:        testsTotal,
			Discount:          discount,
			CollectionCharges: collectionCharges,
			Total:             total,
		},
		SpecialInstructions: sql.NullString{
			String: req.SpecialInstructions,
			Valid:  req.SpecialInstructions != "",
		},
	}

	orderID, err := s.ordersRepo.CreateOrder(ctx, order)
	if err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, domain.NewValidationError("time_slot_id", "time slot is no longer available")
		}
		return nil, domain.NewServiceError("create order", err)
	}

	s.logger.Info("order created",
		zap.String("order_id", orderID),
		zap.String("tracking_id", order.TrackingID),
		zap.Float64("total", total))
	s.publish(events.OrderEvent{
		Type:       events.EventOrderCreated,
		OrderID:    orderID,
		UserID:     order.UserID,
		TrackingID: order.TrackingID,
		Status:     order.Status,
	})
	return s.loadOrder(ctx, orderID)
}

func (s *orderService) ListOrders(ctx context.Context, actor domain.Actor, req ListOrdersRequest) ([]*domain.Order, error) {
	if !actor.IsAuthenticated() {
		return nil, domain.NewAuthorizationError("authentication required")
	}
	filters := repository.OrderFilters{Status: req.Status}
	if actor.IsStaff() {
		filters.UserID = req.UserID
	} else {
		filters.UserID = actor.UserID
	}
	orders, err := s.ordersRepo.ListOrders(ctx, filters)
	if err != nil {
		return nil, domain.NewServiceError("list orders", err)
	}
	return orders, nil
}

// GetOrder 非属主且非 staff 返回 not found，不返回 forbidden
func (s *orderService) GetOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.UserID && !actor.IsStaff() {
		return nil, domain.NewNotFoundError("order")
	}
	return order, nil
}

func (s *orderService) TrackOrder(ctx context.Context, actor domain.Actor, trackingID string) (*OrderTracking, error) {
	order, err := s.ordersRepo.GetOrderByTracking(ctx, trackingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("order")
		}
		return nil, domain.NewServiceError("track order", err)
	}
	if order.UserID != actor.UserID && !actor.IsStaff() {
		return nil, domain.NewNotFoundError("order")
	}
	return &OrderTracking{
		Order:         order,
		StatusDisplay: domain.OrderStatusDisplay(order.Status),
	}, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, actor domain.Actor, orderID, newStatus string) error {
	if !actor.IsStaff() {
		return domain.NewAuthorizationError("staff role required")
	}
	if !domain.ValidOrderStatus(newStatus) {
		return domain.NewValidationError("status", "unknown order status")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if err := s.ordersRepo.UpdateStatus(ctx, orderID, newStatus); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return domain.NewValidationError("status", "time slot is no longer available")
		}
		return domain.NewServiceError("update order status", err)
	}
	s.logger.Info("order status updated",
		zap.String("order_id", orderID),
		zap.String("from", order.Status),
		zap.String("to", newStatus))
	if event := statusEvent(newStatus); event != "" {
		s.publish(events.OrderEvent{
			Type:       event,
			OrderID:    orderID,
			UserID:     order.UserID,
			TrackingID: order.TrackingID,
			Status:     newStatus,
		})
	}
	return nil
}

func (s *orderService) AssignTechnician(ctx context.Context, actor domain.Actor, req AssignTechnicianRequest) error {
	if !actor.IsStaff() {
		return domain.NewAuthorizationError("staff role required")
	}
	order, err := s.loadOrder(ctx, req.OrderID)
	if err != nil {
		return err
	}
	tech, err := s.techniciansRepo.GetTechnician(ctx, req.TechnicianID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewNotFoundError("technician")
		}
		return domain.NewServiceError("get technician", err)
	}
	if !tech.IsActive {
		return domain.NewValidationError("technician_id", "technician is not active")
	}
	if !tech.Serves(order.Address.Pincode) {
		return domain.NewValidationError("technician_id", "technician does not serve this pincode")
	}
	if !tech.HasCapacity() {
		return domain.NewValidationError("technician_id", "technician has no capacity today")
	}
	if err := s.ordersRepo.AssignTechnician(ctx, req.OrderID, tech.TechnicianID, tech.Name, tech.Phone); err != nil {
		return domain.NewServiceError("assign technician", err)
	}
	s.logger.Info("technician assigned",
		zap.String("order_id", req.OrderID),
		zap.String("technician_id", tech.TechnicianID))
	return nil
}

func (s *orderService) MarkPaid(ctx context.Context, actor domain.Actor, req MarkPaidRequest) error {
	if !actor.IsStaff() {
		return domain.NewAuthorizationError("staff role required")
	}
	order, err := s.loadOrder(ctx, req.OrderID)
	if err != nil {
		return err
	}
	now := time.Now()
	payment := &domain.Payment{
		OrderID:       req.OrderID,
		Amount:        order.Pricing.Total,
		Currency:      "INR",
		Method:        order.Payment.Method,
		Status:        domain.PaymentStatusCompleted,
		TransactionID: sql.NullString{String: req.TransactionID, Valid: req.TransactionID != ""},
		PaidAt:        sql.NullTime{Time: now, Valid: true},
	}
	if err := s.ordersRepo.MarkPaid(ctx, req.OrderID, payment); err != nil {
		return domain.NewServiceError("mark order paid", err)
	}
	s.publish(events.OrderEvent{
		Type:       events.EventPaymentReceived,
		OrderID:    req.OrderID,
		UserID:     order.UserID,
		TrackingID: order.TrackingID,
	})
	return nil
}

func (s *orderService) ListPayments(ctx context.Context, actor domain.Actor, orderID string) ([]*domain.Payment, error) {
	if _, err := s.GetOrder(ctx, actor, orderID); err != nil {
		return nil, err
	}
	payments, err := s.ordersRepo.ListPayments(ctx, orderID)
	if err != nil {
		return nil, domain.NewServiceError("list payments", err)
	}
	return payments, nil
}

// AvailableTimeSlots 有效时段减去已被占用的（同日历日 + 同 pincode，
// 状态 confirmed/sample_collected）；被取消订单持有的时段重新可用
func (s *orderService) AvailableTimeSlots(ctx context.Context, date time.Time, pincode string) ([]*domain.TimeSlot, error) {
	slots, err := s.catalogRepo.ListTimeSlots(ctx, true)
	if err != nil {
		return nil, domain.NewServiceError("list time slots", err)
	}
	booked, err := s.ordersRepo.BookedSlotIDs(ctx, date, pincode)
	if err != nil {
		return nil, domain.NewServiceError("list booked slots", err)
	}
	taken := make(map[string]bool, len(booked))
	for _, id := range booked {
		taken[id] = true
	}
	out := make([]*domain.TimeSlot, 0, len(slots))
	for _, slot := range slots {
		if !taken[slot.SlotID] {
			out = append(out, slot)
		}
	}
	return out, nil
}

// CancellationAllowed 仅当属主本人、状态为 pending/confirmed、
// 且距预约时刻超过 4 小时才允许取消
func (s *orderService) CancellationAllowed(order *domain.Order, actor domain.Actor, now time.Time) bool {
	if order == nil || order.UserID != actor.UserID {
		return false
	}
	if order.Status != domain.OrderPending && order.Status != domain.OrderConfirmed {
		return false
	}
	return order.Appointment.Date.Sub(now) > cancellationWindow
}

func (s *orderService) CancelOrder(ctx context.Context, actor domain.Actor, orderID string) error {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.UserID != actor.UserID && !actor.IsStaff() {
		return domain.NewNotFoundError("order")
	}
	// staff 可以越过取消窗口，本人受窗口约束
	if !actor.IsStaff() && !s.CancellationAllowed(order, actor, time.Now()) {
		return domain.NewValidationError("order", "order can no longer be cancelled")
	}
	if err := s.ordersRepo.UpdateStatus(ctx, orderID, domain.OrderCancelled); err != nil {
		return domain.NewServiceError("cancel order", err)
	}
	s.logger.Info("order cancelled", zap.String("order_id", orderID))
	s.publish(events.OrderEvent{
		Type:       events.EventOrderCancelled,
		OrderID:    orderID,
		UserID:     order.UserID,
		TrackingID: order.TrackingID,
		Status:     domain.OrderCancelled,
	})
	return nil
}

func (s *orderService) Stats(ctx context.Context, actor domain.Actor) (*domain.OrderStats, error) {
	if !actor.IsStaff() {
		return nil, domain.NewAuthorizationError("staff role required")
	}
	stats, err := s.ordersRepo.Stats(ctx)
	if err != nil {
		return nil, domain.NewServiceError("order stats", err)
	}
	return stats, nil
}

// ============================================
// 内部工具
// ============================================

func (s *orderService) loadOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.ordersRepo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("order")
		}
		return nil, domain.NewServiceError("get order", err)
	}
	return order, nil
}

func (s *orderService) publish(event events.OrderEvent) {
	event.OccurredAt = time.Now()
	if err := s.publisher.Publish(event); err != nil {
		// 事件投递失败不影响主流程
		s.logger.Warn("failed to publish order event",
			zap.String("type", event.Type), zap.Error(err))
	}
}

func statusEvent(status string) string {
	switch status {
	case domain.OrderConfirmed:
		return events.EventOrderConfirmed
	case domain.OrderSampleCollected:
		return events.EventSampleCollected
	case domain.OrderCompleted:
		return events.EventOrderCompleted
	case domain.OrderCancelled:
		return events.EventOrderCancelled
	}
	return ""
}

func missingIDs(requested []string, resolved []*domain.Test) []string {
	found := make(map[string]bool, len(resolved))
	for _, t := range resolved {
		found[t.TestID] = true
	}
	missing := []string{}
	for _, id := range requested {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
