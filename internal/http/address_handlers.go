package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"medtest-data/internal/service"
)

// AddressHandler 收样地址 Handler
type AddressHandler struct {
	addressService service.AddressService
	authService    service.AuthService
	logger         *zap.Logger
}

// NewAddressHandler 创建地址 Handler
func NewAddressHandler(addressService service.AddressService, authService service.AuthService, logger *zap.Logger) *AddressHandler {
	return &AddressHandler{
		addressService: addressService,
		authService:    authService,
		logger:         logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *AddressHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/addresses":
		switch r.Method {
		case http.MethodGet:
			h.List(w, r)
		case http.MethodPost:
			h.Create(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasPrefix(path, "/api/v1/addresses/"):
		rest := strings.TrimPrefix(path, "/api/v1/addresses/")
		id, action, _ := strings.Cut(rest, "/")
		if id == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch action {
		case "":
			switch r.Method {
			case http.MethodPut:
				h.Update(w, r, id)
			case http.MethodDelete:
				h.Delete(w, r, id)
			default:
				w.WriteHeader(http.StatusMethodNotAllowed)
			}
		case "default":
			if r.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.SetDefault(w, r, id)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// List 当前用户地址簿
func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	out, err := h.addressService.ListAddresses(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

// Create 新增地址
func (h *AddressHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	var req service.AddressRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	id, err := h.addressService.CreateAddress(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"address_id": id}))
}

// Update 更新地址
func (h *AddressHandler) Update(w http.ResponseWriter, r *http.Request, addressID string) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	var req service.AddressRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if err := h.addressService.UpdateAddress(r.Context(), actor, addressID, req); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// Delete 删除地址
func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request, addressID string) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	if err := h.addressService.DeleteAddress(r.Context(), actor, addressID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// SetDefault 设为默认地址
func (h *AddressHandler) SetDefault(w http.ResponseWriter, r *http.Request, addressID string) {
	actor, ok := requireAuth(w, r, h.authService)
	if !ok {
		return
	}
	if err := h.addressService.SetDefault(r.Context(), actor, addressID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}
