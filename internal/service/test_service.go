package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"medtest-data/internal/domain"
	"medtest-data/internal/repository"
)

// 定价常量（卢比）
const (
	freeCollectionThreshold = 500.0
	collectionFee           = 100.0
)

// TestService 检测项目目录服务接口
type TestService interface {
	ListTests(ctx context.Context) ([]*domain.Test, error)
	GetTest(ctx context.Context, testID string) (*domain.Test, error)
	SearchTests(ctx context.Context, filters domain.TestSearchFilters) (*SearchTestsResponse, error)
	PopularTests(ctx context.Context, limit int) ([]*domain.Test, error)
	TestsByCategory(ctx context.Context, categoryID string) ([]*domain.Test, error)
	ListCategories(ctx context.Context) ([]*domain.TestCategory, error)
	ListTimeSlots(ctx context.Context) ([]*domain.TimeSlot, error)

	// 预约前的项目属性查询
	RequiresFasting(ctx context.Context, testIDs []string) (bool, error)
	HomeCollectionAvailable(ctx context.Context, testIDs []string) (bool, error)

	// 定价：目录中不存在的 id 贡献 0，不报错
	PriceTotal(ctx context.Context, testIDs []string) (float64, error)
	SavingsTotal(ctx context.Context, testIDs []string) (float64, error)
	CollectionCharge(ctx context.Context, testIDs []string, subtotal float64) (float64, error)

	// 管理操作（staff/admin）
	CreateTest(ctx context.Context, actor domain.Actor, test *domain.Test) (string, error)
	UpdateTest(ctx context.Context, actor domain.Actor, testID string, test *domain.Test) error
}

type testService struct {
	catalogRepo repository.CatalogRepository
	logger      *zap.Logger
}

// NewTestService 创建 TestService 实例
func NewTestService(catalogRepo repository.CatalogRepository, logger *zap.Logger) TestService {
	return &testService{
		catalogRepo: catalogRepo,
		logger:      logger,
	}
}

// SearchTestsResponse 搜索响应
// 不做真分页：Total 即结果条数
type SearchTestsResponse struct {
	Tests []*domain.Test `json:"tests"`
	Total int            `json:"total"`
}

func (s *testService) ListTests(ctx context.Context) ([]*domain.Test, error) {
	tests, err := s.catalogRepo.ListTests(ctx, true)
	if err != nil {
		return nil, domain.NewServiceError("list tests", err)
	}
	return tests, nil
}

func (s *testService) GetTest(ctx context.Context, testID string) (*domain.Test, error) {
	test, err := s.catalogRepo.GetTest(ctx, testID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("test")
		}
		return nil, domain.NewServiceError("get test", err)
	}
	return test, nil
}

// SearchTests 过滤 + 排序在服务层完成（目录量级小，全量加载可接受）
func (s *testService) SearchTests(ctx context.Context, filters domain.TestSearchFilters) (*SearchTestsResponse, error) {
	tests, err := s.catalogRepo.ListTests(ctx, true)
	if err != nil {
		return nil, domain.NewServiceError("list tests", err)
	}

	out := make([]*domain.Test, 0, len(tests))
	for _, t := range tests {
		if matchesFilters(t, filters) {
			out = append(out, t)
		}
	}
	sortTests(out, filters.SortBy)
	return &SearchTestsResponse{Tests: out, Total: len(out)}, nil
}

func matchesFilters(t *domain.Test, f domain.TestSearchFilters) bool {
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(t.Name), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) &&
			!tagsContain(t.Tags, q) {
			return false
		}
	}
	if f.CategoryID != "" && t.CategoryID != f.CategoryID {
		return false
	}
	// 价格过滤作用于生效价格
	price := t.EffectivePrice()
	if f.PriceMin != nil && price < *f.PriceMin {
		return false
	}
	if f.PriceMax != nil && price > *f.PriceMax {
		return false
	}
	if len(f.SampleTypes) > 0 {
		found := false
		for _, st := range f.SampleTypes {
			if t.SampleType == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Fasting != nil && t.Fasting != *f.Fasting {
		return false
	}
	if f.HomeCollection != nil && t.HomeCollection != *f.HomeCollection {
		return false
	}
	return true
}

func tagsContain(tags []string, q string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func sortTests(tests []*domain.Test, sortBy string) {
	switch sortBy {
	case domain.SortPriceLow:
		sort.SliceStable(tests, func(i, j int) bool {
			return tests[i].EffectivePrice() < tests[j].EffectivePrice()
		})
	case domain.SortPriceHigh:
		sort.SliceStable(tests, func(i, j int) bool {
			return tests[i].EffectivePrice() > tests[j].EffectivePrice()
		})
	case domain.SortName:
		sort.SliceStable(tests, func(i, j int) bool {
			return tests[i].Name < tests[j].Name
		})
	case domain.SortDuration:
		sort.SliceStable(tests, func(i, j int) bool {
			return tests[i].Duration < tests[j].Duration
		})
	default: // 热度降序
		sort.SliceStable(tests, func(i, j int) bool {
			return tests[i].Popularity > tests[j].Popularity
		})
	}
}

// PopularTests 按热度取前 limit 个
func (s *testService) PopularTests(ctx context.Context, limit int) ([]*domain.Test, error) {
	tests, err := s.catalogRepo.ListTests(ctx, true)
	if err != nil {
		return nil, domain.NewServiceError("list tests", err)
	}
	sortTests(tests, domain.SortPopularity)
	if limit > 0 && limit < len(tests) {
		tests = tests[:limit]
	}
	return tests, nil
}

func (s *testService) TestsByCategory(ctx context.Context, categoryID string) ([]*domain.Test, error) {
	tests, err := s.catalogRepo.ListTestsByCategory(ctx, categoryID)
	if err != nil {
		return nil, domain.NewServiceError("list tests by category", err)
	}
	return tests, nil
}

// RequiresFasting 任一所选项目要求空腹即为 true
func (s *testService) RequiresFasting(ctx context.Context, testIDs []string) (bool, error) {
	tests, err := s.catalogRepo.GetTestsByIDs(ctx, testIDs)
	if err != nil {
		return false, domain.NewServiceError("resolve tests", err)
	}
	for _, t := range tests {
		if t.Fasting {
			return true, nil
		}
	}
	return false, nil
}

// HomeCollectionAvailable 所有所选项目都支持上门采样才为 true
func (s *testService) HomeCollectionAvailable(ctx context.Context, testIDs []string) (bool, error) {
	tests, err := s.catalogRepo.GetTestsByIDs(ctx, testIDs)
	if err != nil {
		return false, domain.NewServiceError("resolve tests", err)
	}
	for _, t := range tests {
		if !t.HomeCollection {
			return false, nil
		}
	}
	return true, nil
}

func (s *testService) ListCategories(ctx context.Context) ([]*domain.TestCategory, error) {
	cats, err := s.catalogRepo.ListCategories(ctx, true)
	if err != nil {
		return nil, domain.NewServiceError("list categories", err)
	}
	return cats, nil
}

func (s *testService) ListTimeSlots(ctx context.Context) ([]*domain.TimeSlot, error) {
	slots, err := s.catalogRepo.ListTimeSlots(ctx, true)
	if err != nil {
		return nil, domain.NewServiceError("list time slots", err)
	}
	return slots, nil
}

func (s *testService) PriceTotal(ctx context.Context, testIDs []string) (float64, error) {
	tests, err := s.catalogRepo.GetTestsByIDs(ctx, testIDs)
	if err != nil {
		return 0, domain.NewServiceError("resolve tests", err)
	}
	total := 0.0
	for _, t := range tests {
		total += t.EffectivePrice()
	}
	return total, nil
}

func (s *testService) SavingsTotal(ctx context.Context, testIDs []string) (float64, error) {
	tests, err := s.catalogRepo.GetTestsByIDs(ctx, testIDs)
	if err != nil {
		return 0, domain.NewServiceError("resolve tests", err)
	}
	savings := 0.0
	for _, t := range tests {
		savings += t.Savings()
	}
	return savings, nil
}

// CollectionCharge 上门采样费
// 小计达到免收门槛返回 0；所选项目不全支持上门采样时也返回 0（沿用既有行为）
func (s *testService) CollectionCharge(ctx context.Context, testIDs []string, subtotal float64) (float64, error) {
	if subtotal >= freeCollectionThreshold {
		return 0, nil
	}
	tests, err := s.catalogRepo.GetTestsByIDs(ctx, testIDs)
	if err != nil {
		return 0, domain.NewServiceError("resolve tests", err)
	}
	for _, t := range tests {
		if !t.HomeCollection {
			return 0, nil
		}
	}
	return collectionFee, nil
}

func (s *testService) CreateTest(ctx context.Context, actor domain.Actor, test *domain.Test) (string, error) {
	if !actor.IsStaff() {
		return "", domain.NewAuthorizationError("staff role required")
	}
	if test.Name == "" {
		return "", domain.NewValidationError("name", "name is required")
	}
	if test.Price <= 0 {
		return "", domain.NewValidationError("price", "price must be positive")
	}
	id, err := s.catalogRepo.CreateTest(ctx, test)
	if err != nil {
		return "", domain.NewServiceError("create test", err)
	}
	s.logger.Info("test created", zap.String("test_id", id), zap.String("name", test.Name))
	return id, nil
}

func (s *testService) UpdateTest(ctx context.Context, actor domain.Actor, testID string, test *domain.Test) error {
	if !actor.IsStaff() {
		return domain.NewAuthorizationError("staff role required")
	}
	if err := s.catalogRepo.UpdateTest(ctx, testID, test); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewNotFoundError("test")
		}
		return domain.NewServiceError("update test", err)
	}
	return nil
}
