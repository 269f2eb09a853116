package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medtest-data/internal/domain"
	"medtest-data/internal/repository"
)

func newAddressFixture() (AddressService, domain.Actor) {
	svc := NewAddressService(repository.NewMemoryUsersRepo(), zap.NewNop())
	return svc, domain.Actor{UserID: "user-1", Role: domain.RoleCustomer}
}

func validAddressRequest() AddressRequest {
	return AddressRequest{
		Type:         "home",
		AddressLine1: "12 MG Road",
		City:         "Mumbai",
		State:        "Maharashtra",
		Pincode:      "400001",
	}
}

func TestAddressService_CreateAndList(t *testing.T) {
	svc, me := newAddressFixture()
	ctx := context.Background()

	id, err := svc.CreateAddress(ctx, me, validAddressRequest())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	list, err := svc.ListAddresses(ctx, me)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "12 MG Road", list[0].AddressLine1)

	// 地址簿按用户隔离
	other := domain.Actor{UserID: "user-2", Role: domain.RoleCustomer}
	list, err = svc.ListAddresses(ctx, other)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestAddressService_Validation(t *testing.T) {
	svc, me := newAddressFixture()
	ctx := context.Background()

	req := validAddressRequest()
	req.AddressLine1 = ""
	_, err := svc.CreateAddress(ctx, me, req)
	require.True(t, domain.IsValidation(err))

	req = validAddressRequest()
	req.City = ""
	_, err = svc.CreateAddress(ctx, me, req)
	require.True(t, domain.IsValidation(err))

	req = validAddressRequest()
	req.Pincode = "40001"
	_, err = svc.CreateAddress(ctx, me, req)
	require.True(t, domain.IsValidation(err))

	_, err = svc.CreateAddress(ctx, domain.Actor{}, validAddressRequest())
	require.True(t, domain.IsAuthorization(err))
}

func TestAddressService_DefaultExclusivity(t *testing.T) {
	svc, me := newAddressFixture()
	ctx := context.Background()

	req1 := validAddressRequest()
	req1.IsDefault = true
	id1, err := svc.CreateAddress(ctx, me, req1)
	require.NoError(t, err)

	req2 := validAddressRequest()
	req2.Type = "work"
	req2.AddressLine1 = "5 Marine Drive"
	id2, err := svc.CreateAddress(ctx, me, req2)
	require.NoError(t, err)

	require.NoError(t, svc.SetDefault(ctx, me, id2))

	list, err := svc.ListAddresses(ctx, me)
	require.NoError(t, err)
	defaults := map[string]bool{}
	for _, a := range list {
		defaults[a.AddressID] = a.IsDefault
	}
	require.False(t, defaults[id1])
	require.True(t, defaults[id2])
}

func TestAddressService_UpdateAndDelete_OwnerOnly(t *testing.T) {
	svc, me := newAddressFixture()
	ctx := context.Background()

	id, err := svc.CreateAddress(ctx, me, validAddressRequest())
	require.NoError(t, err)

	other := domain.Actor{UserID: "user-2", Role: domain.RoleCustomer}
	err = svc.UpdateAddress(ctx, other, id, validAddressRequest())
	require.True(t, domain.IsNotFound(err))
	err = svc.DeleteAddress(ctx, other, id)
	require.True(t, domain.IsNotFound(err))

	req := validAddressRequest()
	req.Landmark = "Near City Mall"
	require.NoError(t, svc.UpdateAddress(ctx, me, id, req))

	list, err := svc.ListAddresses(ctx, me)
	require.NoError(t, err)
	require.Equal(t, "Near City Mall", list[0].Landmark.String)

	require.NoError(t, svc.DeleteAddress(ctx, me, id))
	list, err = svc.ListAddresses(ctx, me)
	require.NoError(t, err)
	require.Empty(t, list)
}
