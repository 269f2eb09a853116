package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"medtest-data/internal/service"
)

// ReportHandler 检测报告 Handler
type ReportHandler struct {
	reportService service.ReportService
	authService   service.AuthService
	logger        *zap.Logger
}

// NewReportHandler 创建报告 Handler
func NewReportHandler(reportService service.ReportService, authService service.AuthService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		authService:   authService,
		logger:        logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/reports":
		switch r.Method {
		case http.MethodGet:
			h.ListReports(w, r)
		case http.MethodPost:
			h.CreateReport(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasPrefix(path, "/api/v1/reports/"):
		rest := strings.TrimPrefix(path, "/api/v1/reports/")
		parts := strings.SplitN(rest, "/", 2)
		reportID := parts[0]
		if reportID == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		action := ""
		if len(parts) == 2 {
			action = parts[1]
		}
		h.dispatchReport(w, r, reportID, action)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *ReportHandler) dispatchReport(w http.ResponseWriter, r *http.Request, reportID, action string) {
	switch action {
	case "":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetReport(w, r, reportID)
	case "download":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.RequestDownload(w, r, reportID)
	case "status":
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.UpdateStatus(w, r, reportID)
	case "sync":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.SyncResults(w, r, reportID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ListReports 报告摘要列表
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	summaries, err := h.reportService.ListForUser(r.Context(), actor, r.URL.Query().Get("user_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(summaries))
}

// GetReport 报告详情
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request, reportID string) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	report, err := h.reportService.GetReport(r.Context(), actor, reportID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(report))
}

// RequestDownload 签发限时下载描述符
func (h *ReportHandler) RequestDownload(w http.ResponseWriter, r *http.Request, reportID string) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	download, err := h.reportService.RequestDownload(r.Context(), actor, reportID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(download))
}

// UpdateStatus 报告状态更新（staff）
func (h *ReportHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, reportID string) {
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
	if err := h.reportService.UpdateStatus(r.Context(), actor, reportID, body.Status); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// CreateReport 建立报告占位（staff）
func (h *ReportHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	var req service.CreateReportRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	id, err := h.reportService.CreateReport(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"report_id": id}))
}

// SyncResults 从 LIS 同步项目结果（staff）
func (h *ReportHandler) SyncResults(w http.ResponseWriter, r *http.Request, reportID string) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	if err := h.reportService.SyncResults(r.Context(), actor, reportID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}
