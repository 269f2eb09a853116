package repository

import (
	"context"
	"errors"
	"time"

	"medtest-data/internal/domain"
)

// ErrSlotTaken 创建订单时目标时段已被同日同 pincode 的有效订单占用
// （有效 = confirmed / sample_collected）
var ErrSlotTaken = errors.New("time slot already booked")

// OrderFilters 订单查询过滤器
type OrderFilters struct {
	UserID       string
	Status       string
	TechnicianID string
}

// OrdersRepository 订单Repository接口
type OrdersRepository interface {
	// CreateOrder 创建订单：订单行 + 行项目插入 + 时段占用复查在同一事务内完成，
	// 并在事务内生成 TrackingID（MT + 年份 + 零填充序号）。
	// 时段已被占用时返回 ErrSlotTaken，事务回滚，不留下半截订单。
	CreateOrder(ctx context.Context, order *domain.Order) (string, error)

	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	GetOrderByTracking(ctx context.Context, trackingID string) (*domain.Order, error)
	// ListOrders 按过滤器查询，创建时间新到旧排序
	ListOrders(ctx context.Context, filters OrderFilters) ([]*domain.Order, error)

	UpdateStatus(ctx context.Context, orderID, status string) error

	// AssignTechnician 覆写预约的技师字段，并在同一事务内维护技师的
	// current_orders 计数（新技师 +1，原技师 -1）
	AssignTechnician(ctx context.Context, orderID, technicianID, name, phone string) error

	// BookedSlotIDs 指定日期（按日历日比较）+ pincode 下，
	// 被 confirmed/sample_collected 订单占用的时段 id 集合
	BookedSlotIDs(ctx context.Context, date time.Time, pincode string) ([]string, error)

	// MarkPaid 支付回执：更新订单内嵌支付字段并插入 payments 流水，同一事务
	MarkPaid(ctx context.Context, orderID string, payment *domain.Payment) error
	ListPayments(ctx context.Context, orderID string) ([]*domain.Payment, error)

	// Stats 员工看板统计
	Stats(ctx context.Context) (*domain.OrderStats, error)
}
