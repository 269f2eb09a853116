package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"medtest-data/internal/domain"
	"medtest-data/internal/service"
)

// PincodeHandler 可服务区域 Handler
type PincodeHandler struct {
	pincodeService service.PincodeService
	authService    service.AuthService
	logger         *zap.Logger
}

// NewPincodeHandler 创建区域 Handler
func NewPincodeHandler(pincodeService service.PincodeService, authService service.AuthService, logger *zap.Logger) *PincodeHandler {
	return &PincodeHandler{
		pincodeService: pincodeService,
		authService:    authService,
		logger:         logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *PincodeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/pincodes":
		switch r.Method {
		case http.MethodGet:
			h.ListPincodes(w, r)
		case http.MethodPost:
			h.AddPincode(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case path == "/api/v1/pincodes/check":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.CheckServiceability(w, r)
	case path == "/api/v1/pincodes/search":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Search(w, r)
	case path == "/api/v1/pincodes/export":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Export(w, r)
	case path == "/api/v1/pincodes/import":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Import(w, r)
	case strings.HasPrefix(path, "/api/v1/pincodes/"):
		code := strings.TrimPrefix(path, "/api/v1/pincodes/")
		if code == "" || strings.Contains(code, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.UpdatePincode(w, r, code)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// CheckServiceability 区域可服务性查询（公开接口，无需登录）
func (h *PincodeHandler) CheckServiceability(w http.ResponseWriter, r *http.Request) {
	info, err := h.pincodeService.CheckServiceability(r.Context(), r.URL.Query().Get("pincode"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(info))
}

// ListPincodes 区域列表；staff 带 all=true 查全量（含不可服务）
func (h *PincodeHandler) ListPincodes(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("all") == "true" {
		actor, ok := requireAuth(w, r, h.authService)
		if !ok {
			return
		}
		out, err := h.pincodeService.ListAll(r.Context(), actor)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(out))
		return
	}
	out, err := h.pincodeService.ListServiceable(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

// Search 按城市/州名模糊查询
func (h *PincodeHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if city := q.Get("city"); city != "" {
		out, err := h.pincodeService.SearchByCity(r.Context(), city)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(out))
		return
	}
	if state := q.Get("state"); state != "" {
		out, err := h.pincodeService.SearchByState(r.Context(), state)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(out))
		return
	}
	writeJSON(w, http.StatusBadRequest, Fail("city or state query is required"))
}

// AddPincode 新增区域（staff）
func (h *PincodeHandler) AddPincode(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	var info domain.PincodeInfo
	if err := readBodyJSON(r, 1<<20, &info); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if err := h.pincodeService.AddPincode(r.Context(), actor, &info); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// UpdatePincode 更新区域（staff）
func (h *PincodeHandler) UpdatePincode(w http.ResponseWriter, r *http.Request, pincode string) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	var info domain.PincodeInfo
	if err := readBodyJSON(r, 1<<20, &info); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if err := h.pincodeService.UpdatePincode(r.Context(), actor, pincode, &info); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// Export 导出全量区域表（staff）
func (h *PincodeHandler) Export(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	data, err := h.pincodeService.ListAll(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	payload, err := GeneratePincodeExport(data)
	if err != nil {
		h.logger.Error("failed to generate pincode export", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to generate export"))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="pincodes.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// Import 批量导入区域表（staff）
// 已存在的 pincode 按更新处理，新 pincode 插入
func (h *PincodeHandler) Import(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("file upload is required"))
		return
	}
	defer file.Close()

	entries, err := ParsePincodeImport(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid excel file"))
		return
	}

	imported := 0
	updated := 0
	for _, info := range entries {
		err := h.pincodeService.AddPincode(r.Context(), actor, info)
		if err == nil {
			imported++
			continue
		}
		if domain.IsValidation(err) {
			if uerr := h.pincodeService.UpdatePincode(r.Context(), actor, info.Pincode, info); uerr == nil {
				updated++
				continue
			}
		}
		h.logger.Warn("skipping pincode import row",
			zap.String("pincode", info.Pincode), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]int{
		"imported": imported,
		"updated":  updated,
		"total":    len(entries),
	}))
}
