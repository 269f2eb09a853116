package domain

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// 样本类型
const (
	SampleBlood  = "blood"
	SampleUrine  = "urine"
	SampleStool  = "stool"
	SampleSaliva = "saliva"
	SampleTissue = "tissue"
	SampleSwab   = "swab"
)

// Test 检测项目目录条目（对应 tests 表）
// 一旦被订单行引用即视为不可变：历史价格快照在 OrderTest 中，不回读目录
type Test struct {
	TestID          string          `db:"test_id"`
	Name            string          `db:"name"`
	Description     string          `db:"description"`
	Price           float64         `db:"price"`
	DiscountedPrice sql.NullFloat64 `db:"discounted_price"`
	CategoryID      string          `db:"category_id"`
	SampleType      string          `db:"sample_type"`
	Duration        string          `db:"duration"` // 如 "4-6 hours", "24-48 hours"
	Parameters      int             `db:"parameters"`
	Fasting         bool            `db:"fasting"`
	HomeCollection  bool            `db:"home_collection"`
	Popularity      int             `db:"popularity"` // 0-100
	Tags            pq.StringArray  `db:"tags"`
	IsActive        bool            `db:"is_active"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// EffectivePrice 生效价格：有折扣价用折扣价，否则原价
// 所有定价计算统一走这里
func (t Test) EffectivePrice() float64 {
	if t.DiscountedPrice.Valid {
		return t.DiscountedPrice.Float64
	}
	return t.Price
}

// Savings 折扣让利（无折扣价时为 0）
func (t Test) Savings() float64 {
	if t.DiscountedPrice.Valid {
		return t.Price - t.DiscountedPrice.Float64
	}
	return 0
}

// TestCategory 检测项目分类（对应 test_categories 表）
type TestCategory struct {
	CategoryID  string         `db:"category_id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	Icon        sql.NullString `db:"icon"`
	SortOrder   int            `db:"sort_order"`
	IsActive    bool           `db:"is_active"`
	CreatedAt   time.Time      `db:"created_at"`
}

// 搜索排序方式
const (
	SortPopularity = "popularity" // 默认：热度降序
	SortPriceLow   = "price_low"
	SortPriceHigh  = "price_high"
	SortName       = "name"
	SortDuration   = "duration"
)

// TestSearchFilters 目录搜索过滤条件
// 零值字段表示不过滤；价格过滤作用于生效价格
type TestSearchFilters struct {
	Query          string
	CategoryID     string
	PriceMin       *float64
	PriceMax       *float64
	SampleTypes    []string
	Fasting        *bool
	HomeCollection *bool
	SortBy         string
}

// TimeSlot 上门采样时段（固定目录，不动态生成）
type TimeSlot struct {
	SlotID      string    `db:"slot_id"`
	StartTime   string    `db:"start_time"` // "07:00"
	EndTime     string    `db:"end_time"`   // "09:00"
	DisplayText string    `db:"display_text"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
}
