package repository

import (
	"context"

	"medtest-data/internal/domain"
)

// CatalogRepository 检测项目目录Repository接口
// 覆盖 tests / test_categories / time_slots 三张表
type CatalogRepository interface {
	// 检测项目
	ListTests(ctx context.Context, activeOnly bool) ([]*domain.Test, error)
	GetTest(ctx context.Context, testID string) (*domain.Test, error)
	// GetTestsByIDs 按 id 集合查询有效项目；目录中不存在的 id 静默跳过
	GetTestsByIDs(ctx context.Context, testIDs []string) ([]*domain.Test, error)
	ListTestsByCategory(ctx context.Context, categoryID string) ([]*domain.Test, error)
	CreateTest(ctx context.Context, test *domain.Test) (string, error)
	UpdateTest(ctx context.Context, testID string, test *domain.Test) error

	// 分类
	ListCategories(ctx context.Context, activeOnly bool) ([]*domain.TestCategory, error)
	GetCategory(ctx context.Context, categoryID string) (*domain.TestCategory, error)
	CreateCategory(ctx context.Context, category *domain.TestCategory) (string, error)

	// 采样时段目录
	ListTimeSlots(ctx context.Context, activeOnly bool) ([]*domain.TimeSlot, error)
	GetTimeSlot(ctx context.Context, slotID string) (*domain.TimeSlot, error)
}
