package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medtest-data/internal/repository"
	"medtest-data/internal/service"
	"medtest-data/internal/store"
)

func newAuthTestRouter() *Router {
	logger := zap.NewNop()
	auth := service.NewAuthService(repository.NewMemoryUsersRepo(), store.NewMemoryKV(), logger)
	router := NewRouter(logger)
	router.RegisterAuthRoutes(NewAuthHandler(auth, logger))
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAuthHandler_RegisterLoginProfile(t *testing.T) {
	router := newAuthTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "",
		`{"email":"priya@example.com","password":"secret123","first_name":"Priya","last_name":"Patel"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeResult(t, rec)
	require.Equal(t, float64(ResultSuccess), out["code"])
	token := out["result"].(map[string]any)["token"].(string)
	require.NotEmpty(t, token)

	// 带 token 查资料
	rec = doJSON(t, router, http.MethodGet, "/api/v1/auth/profile", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	out = decodeResult(t, rec)
	profile := out["result"].(map[string]any)
	require.Equal(t, "priya@example.com", profile["email"])
	require.Equal(t, "customer", profile["role"])

	// 未登录 401 + TokenExpired code
	rec = doJSON(t, router, http.MethodGet, "/api/v1/auth/profile", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	out = decodeResult(t, rec)
	require.Equal(t, float64(ResultTokenExpired), out["code"])

	// 登录拿到新 token
	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "",
		`{"email":"priya@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// 密码错误映射为 400
	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "",
		`{"email":"priya@example.com","password":"wrong"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	out = decodeResult(t, rec)
	require.Equal(t, float64(ResultError), out["code"])

	// 注销后会话失效
	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/logout", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, router, http.MethodGet, "/api/v1/auth/profile", token, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandler_UpdateProfile(t *testing.T) {
	router := newAuthTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "",
		`{"email":"a@b.com","password":"secret123","first_name":"Priya"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	token := decodeResult(t, rec)["result"].(map[string]any)["token"].(string)

	rec = doJSON(t, router, http.MethodPut, "/api/v1/auth/profile", token, `{"phone":"9000000001"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decodeResult(t, rec)["result"].(map[string]any)
	require.Equal(t, "9000000001", profile["phone"])
	require.Equal(t, "Priya", profile["first_name"])
}

func TestAuthHandler_MethodNotAllowed(t *testing.T) {
	router := newAuthTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/api/v1/auth/register", "", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/auth/unknown", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
