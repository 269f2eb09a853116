package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterAuthRoutes 注册注册/登录/会话路由
func (r *Router) RegisterAuthRoutes(h *AuthHandler) {
	r.HandleHandler("/api/v1/auth/", h)
}

// RegisterCatalogRoutes 检测项目目录 + 时段
func (r *Router) RegisterCatalogRoutes(h *CatalogHandler) {
	r.HandleHandler("/api/v1/tests", h)
	r.HandleHandler("/api/v1/tests/", h)
	r.HandleHandler("/api/v1/categories", h)
	r.HandleHandler("/api/v1/categories/", h)
	r.HandleHandler("/api/v1/time-slots", h)
	r.HandleHandler("/api/v1/time-slots/", h)
}

// RegisterOrderRoutes 预约订单
func (r *Router) RegisterOrderRoutes(h *OrderHandler) {
	r.HandleHandler("/api/v1/orders", h)
	r.HandleHandler("/api/v1/orders/", h)
}

// RegisterReportRoutes 检测报告
func (r *Router) RegisterReportRoutes(h *ReportHandler) {
	r.HandleHandler("/api/v1/reports", h)
	r.HandleHandler("/api/v1/reports/", h)
}

// RegisterPincodeRoutes 服务范围（pincode）
func (r *Router) RegisterPincodeRoutes(h *PincodeHandler) {
	r.HandleHandler("/api/v1/pincodes", h)
	r.HandleHandler("/api/v1/pincodes/", h)
}

// RegisterTechnicianRoutes 采样技师管理
func (r *Router) RegisterTechnicianRoutes(h *TechnicianHandler) {
	r.HandleHandler("/api/v1/technicians", h)
	r.HandleHandler("/api/v1/technicians/", h)
}

// RegisterNotificationRoutes 用户通知
func (r *Router) RegisterNotificationRoutes(h *NotificationHandler) {
	r.HandleHandler("/api/v1/notifications", h)
	r.HandleHandler("/api/v1/notifications/", h)
}

// RegisterAddressRoutes 收样地址簿
func (r *Router) RegisterAddressRoutes(h *AddressHandler) {
	r.HandleHandler("/api/v1/addresses", h)
	r.HandleHandler("/api/v1/addresses/", h)
}
