package domain

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// Technician 采样技师（对应 technicians 表）
// 派单规则：服务 pincode 列表包含目标 pincode 且当日负载未到上限
// CurrentOrders 计数在派单/取消时随订单更新事务同步维护
type Technician struct {
	TechnicianID    string         `db:"technician_id"`
	Name            string         `db:"name"`
	Phone           string         `db:"phone"`
	Email           sql.NullString `db:"email"`
	LicenseNumber   sql.NullString `db:"license_number"`
	Experience      int            `db:"experience"` // 年
	Pincodes        pq.StringArray `db:"pincodes"`   // 可服务的 pincode 列表
	CurrentOrders   int            `db:"current_orders"`
	MaxOrdersPerDay int            `db:"max_orders_per_day"`
	IsActive        bool           `db:"is_active"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// Serves 技师是否服务指定 pincode
func (t Technician) Serves(pincode string) bool {
	for _, p := range t.Pincodes {
		if p == pincode {
			return true
		}
	}
	return false
}

// HasCapacity 当日是否还有派单余量
func (t Technician) HasCapacity() bool {
	return t.CurrentOrders < t.MaxOrdersPerDay
}
