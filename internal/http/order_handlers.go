package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"medtest-data/internal/service"
)

// OrderHandler 订单 Handler
type OrderHandler struct {
	orderService service.OrderService
	authService  service.AuthService
	logger       *zap.Logger
}

// NewOrderHandler 创建订单 Handler
func NewOrderHandler(orderService service.OrderService, authService service.AuthService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		authService:  authService,
		logger:       logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *OrderHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/orders":
		switch r.Method {
		case http.MethodGet:
			h.ListOrders(w, r)
		case http.MethodPost:
			h.CreateOrder(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case path == "/api/v1/orders/stats":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Stats(w, r)
	case strings.HasPrefix(path, "/api/v1/orders/track/"):
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		trackingID := strings.TrimPrefix(path, "/api/v1/orders/track/")
		h.TrackOrder(w, r, trackingID)
	case strings.HasPrefix(path, "/api/v1/orders/"):
		rest := strings.TrimPrefix(path, "/api/v1/orders/")
		parts := strings.SplitN(rest, "/", 2)
		orderID := parts[0]
		if orderID == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		action := ""
		if len(parts) == 2 {
			action = parts[1]
		}
		h.dispatchOrder(w, r, orderID, action)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *OrderHandler) dispatchOrder(w http.ResponseWriter, r *http.Request, orderID, action string) {
	switch action {
	case "":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetOrder(w, r, orderID)
	case "cancel":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.CancelOrder(w, r, orderID)
	case "status":
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.UpdateStatus(w, r, orderID)
	case "technician":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.AssignTechnician(w, r, orderID)
	case "payment":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.MarkPaid(w, r, orderID)
	case "payments":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListPayments(w, r, orderID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// CreateOrder 创建订单
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	var req service.CreateOrderRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	order, err := h.orderService.CreateOrder(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(order))
}

// ListOrders 订单列表
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	req := service.ListOrdersRequest{
		UserID: r.URL.Query().Get("user_id"),
		Status: r.URL.Query().Get("status"),
	}
	orders, err := h.orderService.ListOrders(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(orders))
}

// GetOrder 订单详情
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request, orderID string) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	order, err := h.orderService.GetOrder(r.Context(), actor, orderID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(order))
}

// TrackOrder 按 tracking id 查询
func (h *OrderHandler) TrackOrder(w http.ResponseWriter, r *http.Request, trackingID string) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	tracking, err := h.orderService.TrackOrder(r.Context(), actor, trackingID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(tracking))
}

// CancelOrder 取消订单
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request, orderID string) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	if err := h.orderService.CancelOrder(r.Context(), actor, orderID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// UpdateStatus 状态更新（staff）
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, orderID string) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if err := h.orderService.UpdateStatus(r.Context(), actor, orderID, body.Status); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// AssignTechnician 派单（staff）
func (h *OrderHandler) AssignTechnician(w http.ResponseWriter, r *http.Request, orderID string) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	var body struct {
		TechnicianID string `json:"technician_id"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	req := service.AssignTechnicianRequest{OrderID: orderID, TechnicianID: body.TechnicianID}
	if err := h.orderService.AssignTechnician(r.Context(), actor, req); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// MarkPaid 支付回执（staff）
func (h *OrderHandler) MarkPaid(w http.ResponseWriter, r *http.Request, orderID string) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	var body struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	req := service.MarkPaidRequest{OrderID: orderID, TransactionID: body.TransactionID}
	if err := h.orderService.MarkPaid(r.Context(), actor, req); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// ListPayments 支付流水
func (h *OrderHandler) ListPayments(w http.ResponseWriter, r *http.Request, orderID string) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	payments, err := h.orderService.ListPayments(r.Context(), actor, orderID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(payments))
}

// Stats 看板统计（staff）
func (h *OrderHandler) Stats(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	stats, err := h.orderService.Stats(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}
