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

func newPincodeFixture(t *testing.T) (*repository.MemoryPincodesRepo, PincodeService) {
	t.Helper()
	repo := repository.NewMemoryPincodesRepo()
	svc := NewPincodeService(repo, store.NewMemoryKV(), zap.NewNop())

	ctx := context.Background()
	seed := []domain.PincodeInfo{
		{Pincode: "400001", City: "Mumbai", State: "Maharashtra", IsServiceable: true, EstimatedDelivery: 1},
		{Pincode: "560001", City: "Bangalore", State: "Karnataka", IsServiceable: true, EstimatedDelivery: 2, CollectionCharges: 50},
		{Pincode: "999999", City: "Remote Area", State: "Unknown", IsServiceable: false},
	}
	for i := range seed {
		require.NoError(t, repo.CreatePincode(ctx, &seed[i]))
	}
	return repo, svc
}

func TestPincodeService_CheckServiceability(t *testing.T) {
	_, svc := newPincodeFixture(t)
	ctx := context.Background()

	info, err := svc.CheckServiceability(ctx, "400001")
	require.NoError(t, err)
	require.True(t, info.IsServiceable)
	require.Equal(t, "Mumbai", info.City)
	require.Equal(t, 1, info.EstimatedDelivery)

	// 格式错误与查无记录是不同结局
	_, err = svc.CheckServiceability(ctx, "99999")
	require.True(t, domain.IsValidation(err))
	_, err = svc.CheckServiceability(ctx, "40000a")
	require.True(t, domain.IsValidation(err))
	_, err = svc.CheckServiceability(ctx, "123456")
	require.True(t, domain.IsNotFound(err))

	// 记录存在但不可服务：成功返回
	info, err = svc.CheckServiceability(ctx, "999999")
	require.NoError(t, err)
	require.False(t, info.IsServiceable)
}

func TestPincodeService_CheckServiceability_CachesLookups(t *testing.T) {
	repo, svc := newPincodeFixture(t)
	ctx := context.Background()

	_, err := svc.CheckServiceability(ctx, "560001")
	require.NoError(t, err)

	// 命中缓存后即使表中记录变了也返回旧值（TTL 内）
	require.NoError(t, repo.UpdatePincode(ctx, "560001", &domain.PincodeInfo{
		Pincode: "560001", City: "Bengaluru", State: "Karnataka", IsServiceable: false,
	}))
	info, err := svc.CheckServiceability(ctx, "560001")
	require.NoError(t, err)
	require.True(t, info.IsServiceable)
	require.Equal(t, "Bangalore", info.City)
}

func TestPincodeService_AdminOperations(t *testing.T) {
	_, svc := newPincodeFixture(t)
	ctx := context.Background()
	customer := domain.Actor{UserID: "u1", Role: domain.RoleCustomer}
	staff := domain.Actor{UserID: "s1", Role: domain.RoleStaff}

	_, err := svc.ListAll(ctx, customer)
	require.True(t, domain.IsAuthorization(err))

	all, err := svc.ListAll(ctx, staff)
	require.NoError(t, err)
	require.Len(t, all, 3)

	err = svc.AddPincode(ctx, staff, &domain.PincodeInfo{
		Pincode: "110001", City: "New Delhi", State: "Delhi", IsServiceable: true, EstimatedDelivery: 1,
	})
	require.NoError(t, err)

	// 重复添加
	err = svc.AddPincode(ctx, staff, &domain.PincodeInfo{
		Pincode: "110001", City: "New Delhi", State: "Delhi", IsServiceable: true,
	})
	require.True(t, domain.IsValidation(err))

	// 更新使缓存失效
	_, err = svc.CheckServiceability(ctx, "110001")
	require.NoError(t, err)
	err = svc.UpdatePincode(ctx, staff, "110001", &domain.PincodeInfo{
		Pincode: "110001", City: "New Delhi", State: "Delhi", IsServiceable: false,
	})
	require.NoError(t, err)
	info, err := svc.CheckServiceability(ctx, "110001")
	require.NoError(t, err)
	require.False(t, info.IsServiceable)
}

func TestPincodeService_Search(t *testing.T) {
	_, svc := newPincodeFixture(t)
	ctx := context.Background()

	byCity, err := svc.SearchByCity(ctx, "mumbai")
	require.NoError(t, err)
	require.Len(t, byCity, 1)
	require.Equal(t, "400001", byCity[0].Pincode)

	byState, err := svc.SearchByState(ctx, "Karnataka")
	require.NoError(t, err)
	require.Len(t, byState, 1)

	serviceable, err := svc.ListServiceable(ctx)
	require.NoError(t, err)
	require.Len(t, serviceable, 2)
}
