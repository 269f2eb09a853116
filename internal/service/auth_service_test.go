package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medtest-data/internal/domain"
	"medtest-data/internal/repository"
	"medtest-data/internal/store"
)

func newAuthFixture() AuthService {
	return NewAuthService(repository.NewMemoryUsersRepo(), store.NewMemoryKV(), zap.NewNop())
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc := newAuthFixture()
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{
		Email:     "Priya@Example.com",
		Password:  "secret123",
		FirstName: "Priya",
		LastName:  "Patel",
		Phone:     "9876543210",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	// 邮箱归一化为小写；新用户默认 customer
	require.Equal(t, "priya@example.com", resp.User.Email)
	require.Equal(t, domain.RoleCustomer, resp.User.Role)

	// 重复注册
	_, err = svc.Register(ctx, RegisterRequest{Email: "priya@example.com", Password: "another1"})
	require.True(t, domain.IsValidation(err))

	login, err := svc.Login(ctx, LoginRequest{Email: "PRIYA@example.com", Password: "secret123"})
	require.NoError(t, err)
	require.NotEmpty(t, login.Token)

	// 密码错误与账号不存在不做区分
	_, err = svc.Login(ctx, LoginRequest{Email: "priya@example.com", Password: "wrong"})
	require.True(t, domain.IsValidation(err))
	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	require.True(t, domain.IsValidation(err))
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := newAuthFixture()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "not-an-email", Password: "secret123"})
	require.True(t, domain.IsValidation(err))

	_, err = svc.Register(ctx, RegisterRequest{Email: "a@b.com", Password: "short"})
	require.True(t, domain.IsValidation(err))
}

func TestAuthService_ResolveSession(t *testing.T) {
	svc := newAuthFixture()
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{Email: "a@b.com", Password: "secret123"})
	require.NoError(t, err)

	actor := svc.Resolve(ctx, resp.Token)
	require.True(t, actor.IsAuthenticated())
	require.Equal(t, resp.User.UserID, actor.UserID)
	require.Equal(t, domain.RoleCustomer, actor.Role)

	// 未知 token 解析为匿名
	require.False(t, svc.Resolve(ctx, "bogus-token").IsAuthenticated())

	require.NoError(t, svc.Logout(ctx, resp.Token))
	require.False(t, svc.Resolve(ctx, resp.Token).IsAuthenticated())
}

func TestAuthService_UpdateProfile(t *testing.T) {
	svc := newAuthFixture()
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{
		Email: "a@b.com", Password: "secret123", FirstName: "Priya", LastName: "Patel",
	})
	require.NoError(t, err)
	actor := svc.Resolve(ctx, resp.Token)

	// nil 字段不修改
	phone := "9000000001"
	updated, err := svc.UpdateProfile(ctx, actor, UpdateProfileRequest{Phone: &phone})
	require.NoError(t, err)
	require.Equal(t, "Priya", updated.FirstName)
	require.Equal(t, "9000000001", updated.Phone)

	first := "Priyanka"
	updated, err = svc.UpdateProfile(ctx, actor, UpdateProfileRequest{FirstName: &first})
	require.NoError(t, err)
	require.Equal(t, "Priyanka", updated.FirstName)
	require.Equal(t, "9000000001", updated.Phone)

	profile, err := svc.GetProfile(ctx, actor)
	require.NoError(t, err)
	require.Equal(t, "Priyanka", profile.FirstName)

	_, err = svc.GetProfile(ctx, domain.Actor{})
	require.True(t, domain.IsAuthorization(err))
}
