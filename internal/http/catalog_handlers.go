package httpapi

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"medtest-data/internal/domain"
	"medtest-data/internal/service"
)

// CatalogHandler 检测项目目录 Handler
type CatalogHandler struct {
	testService  service.TestService
	orderService service.OrderService
	authService  service.AuthService
	logger       *zap.Logger
}

// NewCatalogHandler 创建目录 Handler
func NewCatalogHandler(testService service.TestService, orderService service.OrderService,
	authService service.AuthService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		testService:  testService,
		orderService: orderService,
		authService:  authService,
		logger:       logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *CatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/tests":
		switch r.Method {
		case http.MethodGet:
			h.SearchTests(w, r)
		case http.MethodPost:
			h.CreateTest(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case path == "/api/v1/tests/popular":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.PopularTests(w, r)
	case strings.HasPrefix(path, "/api/v1/categories/") && strings.HasSuffix(path, "/tests"):
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		categoryID := strings.TrimSuffix(strings.TrimPrefix(path, "/api/v1/categories/"), "/tests")
		if categoryID == "" || strings.Contains(categoryID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.TestsByCategory(w, r, categoryID)
	case strings.HasPrefix(path, "/api/v1/tests/"):
		id := strings.TrimPrefix(path, "/api/v1/tests/")
		if id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.GetTest(w, r, id)
		case http.MethodPut:
			h.UpdateTest(w, r, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case path == "/api/v1/categories":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListCategories(w, r)
	case path == "/api/v1/time-slots":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListTimeSlots(w, r)
	case path == "/api/v1/time-slots/available":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.AvailableTimeSlots(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// SearchTests 目录搜索；无过滤参数时等价于全量列表
func (h *CatalogHandler) SearchTests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := domain.TestSearchFilters{
		Query:          q.Get("q"),
		CategoryID:     q.Get("category_id"),
		PriceMin:       parseFloat(q.Get("price_min")),
		PriceMax:       parseFloat(q.Get("price_max")),
		Fasting:        parseBool(q.Get("fasting")),
		HomeCollection: parseBool(q.Get("home_collection")),
		SortBy:         q.Get("sort_by"),
	}
	if st := q.Get("sample_types"); st != "" {
		filters.SampleTypes = strings.Split(st, ",")
	}
	resp, err := h.testService.SearchTests(r.Context(), filters)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// GetTest 项目详情
func (h *CatalogHandler) GetTest(w http.ResponseWriter, r *http.Request, testID string) {
	test, err := h.testService.GetTest(r.Context(), testID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(test))
}

// CreateTest 新增项目（staff）
func (h *CatalogHandler) CreateTest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	var test domain.Test
	if err := readBodyJSON(r, 1<<20, &test); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	test.IsActive = true
	id, err := h.testService.CreateTest(r.Context(), actor, &test)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"test_id": id}))
}

// UpdateTest 更新项目（staff）
func (h *CatalogHandler) UpdateTest(w http.ResponseWriter, r *http.Request, testID string) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	var test domain.Test
	if err := readBodyJSON(r, 1<<20, &test); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if err := h.testService.UpdateTest(r.Context(), actor, testID, &test); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// PopularTests 热门项目；limit 缺省 10
func (h *CatalogHandler) PopularTests(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 10)
	tests, err := h.testService.PopularTests(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(tests))
}

// TestsByCategory 按分类列项目
func (h *CatalogHandler) TestsByCategory(w http.ResponseWriter, r *http.Request, categoryID string) {
	tests, err := h.testService.TestsByCategory(r.Context(), categoryID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(tests))
}

// ListCategories 分类列表
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.testService.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(cats))
}

// ListTimeSlots 全部有效时段
func (h *CatalogHandler) ListTimeSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.testService.ListTimeSlots(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(slots))
}

// AvailableTimeSlots 指定日期 + pincode 下仍可预约的时段
func (h *CatalogHandler) AvailableTimeSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pincode := q.Get("pincode")
	if pincode == "" {
		writeJSON(w, http.StatusBadRequest, Fail("pincode is required"))
		return
	}
	date, err := time.Parse("2006-01-02", q.Get("date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("date must be YYYY-MM-DD"))
		return
	}
	slots, err := h.orderService.AvailableTimeSlots(r.Context(), date, pincode)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(slots))
}
