package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"medtest-data/internal/domain"
	"medtest-data/internal/service"
)

// TechnicianHandler 采样技师 Handler（全部 staff 接口）
type TechnicianHandler struct {
	technicianService service.TechnicianService
	authService       service.AuthService
	logger            *zap.Logger
}

// NewTechnicianHandler 创建技师 Handler
func NewTechnicianHandler(technicianService service.TechnicianService, authService service.AuthService, logger *zap.Logger) *TechnicianHandler {
	return &TechnicianHandler{
		technicianService: technicianService,
		authService:       authService,
		logger:            logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *TechnicianHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/technicians":
		switch r.Method {
		case http.MethodGet:
			h.ListTechnicians(w, r)
		case http.MethodPost:
			h.CreateTechnician(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case path == "/api/v1/technicians/candidates":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Candidates(w, r)
	case strings.HasPrefix(path, "/api/v1/technicians/"):
		id := strings.TrimPrefix(path, "/api/v1/technicians/")
		if id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.GetTechnician(w, r, id)
		case http.MethodPut:
			h.UpdateTechnician(w, r, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ListTechnicians 技师列表
func (h *TechnicianHandler) ListTechnicians(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	out, err := h.technicianService.ListTechnicians(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

// GetTechnician 技师详情
func (h *TechnicianHandler) GetTechnician(w http.ResponseWriter, r *http.Request, technicianID string) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	tech, err := h.technicianService.GetTechnician(r.Context(), actor, technicianID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(tech))
}

// Candidates 可派往目标 pincode 的技师
func (h *TechnicianHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	pincode := r.URL.Query().Get("pincode")
	if pincode == "" {
		writeJSON(w, http.StatusBadRequest, Fail("pincode is required"))
		return
	}
	out, err := h.technicianService.CandidatesForPincode(r.Context(), actor, pincode)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

// CreateTechnician 新增技师
func (h *TechnicianHandler) CreateTechnician(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	var tech domain.Technician
	if err := readBodyJSON(r, 1<<20, &tech); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	tech.IsActive = true
	id, err := h.technicianService.CreateTechnician(r.Context(), actor, &tech)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"technician_id": id}))
}

// UpdateTechnician 更新技师
func (h *TechnicianHandler) UpdateTechnician(w http.ResponseWriter, r *http.Request, technicianID string) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	var tech domain.Technician
	if err := readBodyJSON(r, 1<<20, &tech); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if err := h.technicianService.UpdateTechnician(r.Context(), actor, technicianID, &tech); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}
