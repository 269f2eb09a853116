package domain

import "time"

// PincodeInfo 可服务 pincode 静态表条目（对应 pincodes 表）
// 由运营直接维护，不做推导
type PincodeInfo struct {
	Pincode           string    `db:"pincode"`
	City              string    `db:"city"`
	State             string    `db:"state"`
	IsServiceable     bool      `db:"is_serviceable"`
	EstimatedDelivery int       `db:"estimated_delivery"` // 天
	CollectionCharges float64   `db:"collection_charges"`
	CreatedAt         time.Time `db:"created_at"`
}
