package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medtest-data/internal/domain"
	"medtest-data/internal/repository"
)

func seedTest(t *testing.T, repo *repository.MemoryCatalogRepo, test domain.Test) string {
	t.Helper()
	test.IsActive = true
	id, err := repo.CreateTest(context.Background(), &test)
	require.NoError(t, err)
	return id
}

func TestTestService_PriceTotal_UsesEffectivePrices(t *testing.T) {
	repo := repository.NewMemoryCatalogRepo()
	svc := NewTestService(repo, zap.NewNop())
	ctx := context.Background()

	// 299 无折扣 + 399 折后 350 = 649
	id1 := seedTest(t, repo, domain.Test{Name: "Complete Blood Count", Price: 299, HomeCollection: true})
	id2 := seedTest(t, repo, domain.Test{
		Name:            "Lipid Profile",
		Price:           399,
		DiscountedPrice: sql.NullFloat64{Float64: 350, Valid: true},
		HomeCollection:  true,
	})

	total, err := svc.PriceTotal(ctx, []string{id1, id2})
	require.NoError(t, err)
	require.Equal(t, 649.0, total)

	savings, err := svc.SavingsTotal(ctx, []string{id1, id2})
	require.NoError(t, err)
	require.Equal(t, 49.0, savings)
}

func TestTestService_CollectionCharge(t *testing.T) {
	repo := repository.NewMemoryCatalogRepo()
	svc := NewTestService(repo, zap.NewNop())
	ctx := context.Background()

	home := seedTest(t, repo, domain.Test{Name: "CBC", Price: 299, HomeCollection: true})
	labOnly := seedTest(t, repo, domain.Test{Name: "Tissue Biopsy", Price: 1500, HomeCollection: false})

	// 小计达到免收门槛
	charge, err := svc.CollectionCharge(ctx, []string{home}, 649)
	require.NoError(t, err)
	require.Equal(t, 0.0, charge)

	// 小计低于门槛
	charge, err = svc.CollectionCharge(ctx, []string{home}, 299)
	require.NoError(t, err)
	require.Equal(t, 100.0, charge)

	// 含到店项目时不提供上门采样，不收上门费
	charge, err = svc.CollectionCharge(ctx, []string{home, labOnly}, 299)
	require.NoError(t, err)
	require.Equal(t, 0.0, charge)
}

func TestTestService_SearchTests_Filters(t *testing.T) {
	repo := repository.NewMemoryCatalogRepo()
	svc := NewTestService(repo, zap.NewNop())
	ctx := context.Background()

	seedTest(t, repo, domain.Test{
		Name: "Complete Blood Count", Price: 299, SampleType: domain.SampleBlood,
		Fasting: false, HomeCollection: true, Popularity: 90,
	})
	seedTest(t, repo, domain.Test{
		Name: "Fasting Blood Sugar", Price: 149, SampleType: domain.SampleBlood,
		Fasting: true, HomeCollection: true, Popularity: 80,
	})
	seedTest(t, repo, domain.Test{
		Name: "Urine Routine", Price: 199, SampleType: domain.SampleUrine,
		Fasting: false, HomeCollection: true, Popularity: 60,
	})

	resp, err := svc.SearchTests(ctx, domain.TestSearchFilters{Query: "blood"})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Total)

	fasting := true
	resp, err = svc.SearchTests(ctx, domain.TestSearchFilters{Fasting: &fasting})
	require.NoError(t, err)
	require.Len(t, resp.Tests, 1)
	require.Equal(t, "Fasting Blood Sugar", resp.Tests[0].Name)

	min := 150.0
	max := 250.0
	resp, err = svc.SearchTests(ctx, domain.TestSearchFilters{PriceMin: &min, PriceMax: &max})
	require.NoError(t, err)
	require.Len(t, resp.Tests, 1)
	require.Equal(t, "Urine Routine", resp.Tests[0].Name)

	resp, err = svc.SearchTests(ctx, domain.TestSearchFilters{SampleTypes: []string{domain.SampleUrine}})
	require.NoError(t, err)
	require.Len(t, resp.Tests, 1)
}

func TestTestService_SearchTests_Sorting(t *testing.T) {
	repo := repository.NewMemoryCatalogRepo()
	svc := NewTestService(repo, zap.NewNop())
	ctx := context.Background()

	seedTest(t, repo, domain.Test{Name: "B Test", Price: 300, Popularity: 50})
	seedTest(t, repo, domain.Test{Name: "A Test", Price: 100, Popularity: 90})
	seedTest(t, repo, domain.Test{
		Name: "C Test", Price: 500,
		DiscountedPrice: sql.NullFloat64{Float64: 200, Valid: true},
		Popularity:      70,
	})

	// 默认热度降序
	resp, err := svc.SearchTests(ctx, domain.TestSearchFilters{})
	require.NoError(t, err)
	require.Equal(t, "A Test", resp.Tests[0].Name)

	// 价格升序按生效价格（C 折后 200 排第二）
	resp, err = svc.SearchTests(ctx, domain.TestSearchFilters{SortBy: domain.SortPriceLow})
	require.NoError(t, err)
	require.Equal(t, "A Test", resp.Tests[0].Name)
	require.Equal(t, "C Test", resp.Tests[1].Name)
	require.Equal(t, "B Test", resp.Tests[2].Name)

	resp, err = svc.SearchTests(ctx, domain.TestSearchFilters{SortBy: domain.SortName})
	require.NoError(t, err)
	require.Equal(t, "A Test", resp.Tests[0].Name)
	require.Equal(t, "B Test", resp.Tests[1].Name)
}

func TestTestService_PreBookingHelpers(t *testing.T) {
	repo := repository.NewMemoryCatalogRepo()
	svc := NewTestService(repo, zap.NewNop())
	ctx := context.Background()

	fastingID := seedTest(t, repo, domain.Test{Name: "Fasting Blood Sugar", Price: 149, Fasting: true, HomeCollection: true, Popularity: 80})
	cbcID := seedTest(t, repo, domain.Test{Name: "CBC", Price: 299, HomeCollection: true, Popularity: 90})
	labOnlyID := seedTest(t, repo, domain.Test{Name: "Tissue Biopsy", Price: 1500, Popularity: 10})

	fasting, err := svc.RequiresFasting(ctx, []string{cbcID})
	require.NoError(t, err)
	require.False(t, fasting)
	fasting, err = svc.RequiresFasting(ctx, []string{cbcID, fastingID})
	require.NoError(t, err)
	require.True(t, fasting)

	home, err := svc.HomeCollectionAvailable(ctx, []string{cbcID, fastingID})
	require.NoError(t, err)
	require.True(t, home)
	home, err = svc.HomeCollectionAvailable(ctx, []string{cbcID, labOnlyID})
	require.NoError(t, err)
	require.False(t, home)

	popular, err := svc.PopularTests(ctx, 2)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	require.Equal(t, "CBC", popular[0].Name)
	require.Equal(t, "Fasting Blood Sugar", popular[1].Name)
}

func TestTestService_CreateTest_RequiresStaff(t *testing.T) {
	repo := repository.NewMemoryCatalogRepo()
	svc := NewTestService(repo, zap.NewNop())
	ctx := context.Background()

	customer := domain.Actor{UserID: "u1", Role: domain.RoleCustomer}
	_, err := svc.CreateTest(ctx, customer, &domain.Test{Name: "CBC", Price: 299})
	require.True(t, domain.IsAuthorization(err))

	staff := domain.Actor{UserID: "s1", Role: domain.RoleStaff}
	id, err := svc.CreateTest(ctx, staff, &domain.Test{Name: "CBC", Price: 299})
	require.NoError(t, err)
	require.NotEmpty(t, id)
}
