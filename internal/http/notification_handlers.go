package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"medtest-data/internal/service"
)

// NotificationHandler 用户通知 Handler
type NotificationHandler struct {
	notificationService service.NotificationService
	authService         service.AuthService
	logger              *zap.Logger
}

// NewNotificationHandler 创建通知 Handler
func NewNotificationHandler(notificationService service.NotificationService, authService service.AuthService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		authService:         authService,
		logger:              logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *NotificationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/notifications":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.List(w, r)
	case path == "/api/v1/notifications/unread-count":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.UnreadCount(w, r)
	case path == "/api/v1/notifications/read-all":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.MarkAllRead(w, r)
	case strings.HasPrefix(path, "/api/v1/notifications/") && strings.HasSuffix(path, "/read"):
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/api/v1/notifications/"), "/read")
		if id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.MarkRead(w, r, id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// List 当前用户的通知
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	out, err := h.notificationService.List(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

// UnreadCount 未读条数
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	count, err := h.notificationService.UnreadCount(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]int{"count": count}))
}

// MarkRead 标记单条已读
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request, notificationID string) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	if err := h.notificationService.MarkRead(r.Context(), actor, notificationID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// MarkAllRead 全部标记已读
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	if err := h.notificationService.MarkAllRead(r.Context(), actor); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}
