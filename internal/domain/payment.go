package domain

import (
	"database/sql"
	"time"
)

// Payment 支付流水记录（对应 payments 表）
// 网关对接在本服务之外，这里只保存回执
type Payment struct {
	PaymentID     string         `db:"payment_id"`
	OrderID       string         `db:"order_id"`
	Amount        float64        `db:"amount"`
	Currency      string         `db:"currency"` // 默认 INR
	Method        string         `db:"method"`
	Status        string         `db:"status"`
	TransactionID sql.NullString `db:"transaction_id"`
	PaidAt        sql.NullTime   `db:"paid_at"`
	CreatedAt     time.Time      `db:"created_at"`
}
