package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medtest-data/internal/domain"
	"medtest-data/internal/repository"
)

func TestTechnicianService_StaffOnly(t *testing.T) {
	svc := NewTechnicianService(repository.NewMemoryTechniciansRepo(), zap.NewNop())
	ctx := context.Background()
	customer := domain.Actor{UserID: "u1", Role: domain.RoleCustomer}

	_, err := svc.ListTechnicians(ctx, customer)
	require.True(t, domain.IsAuthorization(err))
	_, err = svc.CandidatesForPincode(ctx, customer, "400001")
	require.True(t, domain.IsAuthorization(err))
	_, err = svc.CreateTechnician(ctx, customer, &domain.Technician{Name: "Amit", Phone: "9000000001"})
	require.True(t, domain.IsAuthorization(err))
}

func TestTechnicianService_CandidatesForPincode(t *testing.T) {
	repo := repository.NewMemoryTechniciansRepo()
	svc := NewTechnicianService(repo, zap.NewNop())
	ctx := context.Background()
	staff := domain.Actor{UserID: "s1", Role: domain.RoleStaff}

	_, err := svc.CreateTechnician(ctx, staff, &domain.Technician{
		Name: "Amit Verma", Phone: "9000000001",
		Pincodes: []string{"400001"}, MaxOrdersPerDay: 2, IsActive: true,
	})
	require.NoError(t, err)
	_, err = svc.CreateTechnician(ctx, staff, &domain.Technician{
		Name: "Suresh Kumar", Phone: "9000000002",
		Pincodes: []string{"400001"}, CurrentOrders: 2, MaxOrdersPerDay: 2, IsActive: true,
	})
	require.NoError(t, err)
	_, err = svc.CreateTechnician(ctx, staff, &domain.Technician{
		Name: "Ravi Singh", Phone: "9000000003",
		Pincodes: []string{"560001"}, MaxOrdersPerDay: 2, IsActive: true,
	})
	require.NoError(t, err)

	// 满载的技师不在候选里
	candidates, err := svc.CandidatesForPincode(ctx, staff, "400001")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "Amit Verma", candidates[0].Name)

	all, err := svc.ListTechnicians(ctx, staff)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestTechnicianService_CreateTechnician_Defaults(t *testing.T) {
	repo := repository.NewMemoryTechniciansRepo()
	svc := NewTechnicianService(repo, zap.NewNop())
	ctx := context.Background()
	staff := domain.Actor{UserID: "s1", Role: domain.RoleStaff}

	id, err := svc.CreateTechnician(ctx, staff, &domain.Technician{
		Name: "Amit Verma", Phone: "9000000001", Pincodes: []string{"400001"}, IsActive: true,
	})
	require.NoError(t, err)

	tech, err := svc.GetTechnician(ctx, staff, id)
	require.NoError(t, err)
	require.Equal(t, 8, tech.MaxOrdersPerDay)

	_, err = svc.GetTechnician(ctx, staff, "missing")
	require.True(t, domain.IsNotFound(err))
}
