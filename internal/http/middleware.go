package httpapi

import (
	"net/http"
	"strings"

	"medtest-data/internal/domain"
	"medtest-data/internal/service"
)

// bearerToken 从 Authorization 头提取 token
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return h
}

// actorFrom 按请求还原调用者身份；未登录返回零值 Actor
// 角色只来自会话，从不信任请求体里的自报角色
func actorFrom(r *http.Request, auth service.AuthService) domain.Actor {
	return auth.Resolve(r.Context(), bearerToken(r))
}

// requireAuth 未登录统一返回 401 + TokenExpired code
func requireAuth(w http.ResponseWriter, r *http.Request, auth service.AuthService) (domain.Actor, bool) {
	actor := actorFrom(r, auth)
	if !actor.IsAuthenticated() {
		writeJSON(w, http.StatusUnauthorized, Result[any]{
			Code:    ResultTokenExpired,
			Type:    "error",
			Message: "authentication required",
		})
		return domain.Actor{}, false
	}
	return actor, true
}
