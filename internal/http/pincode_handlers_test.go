package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medtest-data/internal/domain"
	"medtest-data/internal/repository"
	"medtest-data/internal/service"
	"medtest-data/internal/store"
)

// staffToken registers a user and flips the role to staff directly in the repo,
// then logs in again so the session carries the staff role.
func staffToken(t *testing.T, users *repository.MemoryUsersRepo, auth service.AuthService) string {
	t.Helper()
	ctx := context.Background()
	resp, err := auth.Register(ctx, service.RegisterRequest{Email: "ops@medtest.in", Password: "secret123"})
	require.NoError(t, err)

	user, err := users.GetUser(ctx, resp.User.UserID)
	require.NoError(t, err)
	user.Role = domain.RoleStaff
	require.NoError(t, users.UpdateUser(ctx, user.UserID, user))

	login, err := auth.Login(ctx, service.LoginRequest{Email: "ops@medtest.in", Password: "secret123"})
	require.NoError(t, err)
	return login.Token
}

func newPincodeTestRouter(t *testing.T) (*Router, string) {
	t.Helper()
	logger := zap.NewNop()
	users := repository.NewMemoryUsersRepo()
	auth := service.NewAuthService(users, store.NewMemoryKV(), logger)

	pincodes := repository.NewMemoryPincodesRepo()
	ctx := context.Background()
	seed := []domain.PincodeInfo{
		{Pincode: "400001", City: "Mumbai", State: "Maharashtra", IsServiceable: true, EstimatedDelivery: 1},
		{Pincode: "999999", City: "Remote Area", State: "Unknown", IsServiceable: false},
	}
	for i := range seed {
		require.NoError(t, pincodes.CreatePincode(ctx, &seed[i]))
	}

	svc := service.NewPincodeService(pincodes, store.NewMemoryKV(), logger)
	router := NewRouter(logger)
	router.RegisterPincodeRoutes(NewPincodeHandler(svc, auth, logger))
	return router, staffToken(t, users, auth)
}

func TestPincodeHandler_Check(t *testing.T) {
	router, _ := newPincodeTestRouter(t)

	// 公开接口，无需登录
	rec := doJSON(t, router, http.MethodGet, "/api/v1/pincodes/check?pincode=400001", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	info := decodeResult(t, rec)["result"].(map[string]any)
	require.Equal(t, true, info["IsServiceable"])

	// 格式错误 400，查无记录 404
	rec = doJSON(t, router, http.MethodGet, "/api/v1/pincodes/check?pincode=12", "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doJSON(t, router, http.MethodGet, "/api/v1/pincodes/check?pincode=123456", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	// 不可服务区域是成功结果
	rec = doJSON(t, router, http.MethodGet, "/api/v1/pincodes/check?pincode=999999", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	info = decodeResult(t, rec)["result"].(map[string]any)
	require.Equal(t, false, info["IsServiceable"])
}

func TestPincodeHandler_ListAndAdminGating(t *testing.T) {
	router, token := newPincodeTestRouter(t)

	// 默认只列可服务区域
	rec := doJSON(t, router, http.MethodGet, "/api/v1/pincodes", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeResult(t, rec)["result"].([]any)
	require.Len(t, list, 1)

	// 全量需要 staff
	rec = doJSON(t, router, http.MethodGet, "/api/v1/pincodes?all=true", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = doJSON(t, router, http.MethodGet, "/api/v1/pincodes?all=true", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list = decodeResult(t, rec)["result"].([]any)
	require.Len(t, list, 2)

	// staff 新增后出现在列表里
	rec = doJSON(t, router, http.MethodPost, "/api/v1/pincodes", token,
		`{"Pincode":"110001","City":"New Delhi","State":"Delhi","IsServiceable":true,"EstimatedDelivery":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, router, http.MethodGet, "/api/v1/pincodes", "", "")
	list = decodeResult(t, rec)["result"].([]any)
	require.Len(t, list, 2)
}

func TestPincodeExcel_RoundTrip(t *testing.T) {
	data := []*domain.PincodeInfo{
		{Pincode: "400001", City: "Mumbai", State: "Maharashtra", IsServiceable: true, EstimatedDelivery: 1},
		{Pincode: "560001", City: "Bangalore", State: "Karnataka", IsServiceable: true, EstimatedDelivery: 2, CollectionCharges: 50},
		{Pincode: "999999", City: "Remote Area", State: "Unknown", IsServiceable: false},
	}

	raw, err := GeneratePincodeExport(data)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	parsed, err := ParsePincodeImport(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, parsed, 3)

	byCode := map[string]*domain.PincodeInfo{}
	for _, p := range parsed {
		byCode[p.Pincode] = p
	}
	require.Equal(t, "Mumbai", byCode["400001"].City)
	require.True(t, byCode["400001"].IsServiceable)
	require.Equal(t, 2, byCode["560001"].EstimatedDelivery)
	require.Equal(t, 50.0, byCode["560001"].CollectionCharges)
	require.False(t, byCode["999999"].IsServiceable)
}
