package domain

import (
	"database/sql"
	"time"
)

// 通知类型
const (
	NotifyOrderConfirmed      = "order_confirmed"
	NotifySampleCollected     = "sample_collected"
	NotifyReportReady         = "report_ready"
	NotifyPaymentReceived     = "payment_received"
	NotifyAppointmentReminder = "appointment_reminder"
	NotifySystemUpdate        = "system_update"
)

// Notification 用户通知（对应 notifications 表）
// IsRead 只通过显式标记翻转，没有 TTL
type Notification struct {
	NotificationID string         `db:"notification_id"`
	UserID         string         `db:"user_id"`
	OrderID        sql.NullString `db:"order_id"`
	Type           string         `db:"type"`
	Title          string         `db:"title"`
	Message        string         `db:"message"`
	IsRead         bool           `db:"is_read"`
	ReadAt         sql.NullTime   `db:"read_at"`
	CreatedAt      time.Time      `db:"created_at"`
}
