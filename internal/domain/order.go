package domain

import (
	"database/sql"
	"time"
)

// 订单状态（扁平枚举）
// 状态迁移不做强校验：任何状态都可以跟在任何状态之后（刻意保留的宽松模型）
const (
	OrderPending         = "pending"
	OrderConfirmed       = "confirmed"
	OrderSampleCollected = "sample_collected"
	OrderProcessing      = "processing"
	OrderCompleted       = "completed"
	OrderCancelled       = "cancelled"
)

var orderStatusDisplay = map[string]string{
	OrderPending:         "Order Placed",
	OrderConfirmed:       "Order Confirmed",
	OrderSampleCollected: "Sample Collected",
	OrderProcessing:      "Processing",
	OrderCompleted:       "Completed",
	OrderCancelled:       "Cancelled",
}

// ValidOrderStatus 是否为已知状态值
func ValidOrderStatus(s string) bool {
	_, ok := orderStatusDisplay[s]
	return ok
}

// OrderStatusDisplay 用户可见的状态文案
func OrderStatusDisplay(s string) string {
	if d, ok := orderStatusDisplay[s]; ok {
		return d
	}
	return s
}

// 支付方式与支付状态
const (
	PaymentOnline           = "online"
	PaymentCashOnCollection = "cash_on_collection"

	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Order 订单聚合根（对应 orders 表 + order_items 表）
// TrackingId 在创建时生成，是对外查询键，与内部 OrderID 区分
type Order struct {
	OrderID             string         `db:"order_id"`
	UserID              string         `db:"user_id"`
	TrackingID          string         `db:"tracking_id"`
	Status              string         `db:"status"`
	Tests               []OrderTest    // 行项目，创建后不可变
	Patient             PatientInfo    // 内嵌受检人信息
	Address             OrderAddress   // 地址快照（独立于 addresses 表后续变更）
	Appointment         AppointmentInfo
	Payment             PaymentInfo
	Pricing             OrderPricing
	SpecialInstructions sql.NullString `db:"special_instructions"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
}

// OrderTest 订单行项目：下单时刻的项目快照
// 价格复制自目录，目录后续改价不影响历史订单
type OrderTest struct {
	TestID          string          `db:"test_id"`
	TestName        string          `db:"test_name"`
	Price           float64         `db:"price"`
	DiscountedPrice sql.NullFloat64 `db:"discounted_price"`
}

// PatientInfo 受检人信息
type PatientInfo struct {
	Name   string `db:"patient_name"`
	Age    int    `db:"patient_age"`
	Gender string `db:"patient_gender"` // male, female, other
	Phone  string `db:"patient_phone"`
	Email  string `db:"patient_email"`
}

// OrderAddress 订单地址快照
type OrderAddress struct {
	AddressLine1 string `db:"address_line1"`
	AddressLine2 string `db:"address_line2"`
	Landmark     string `db:"landmark"`
	City         string `db:"city"`
	State        string `db:"state"`
	Pincode      string `db:"pincode"`
}

// AppointmentInfo 上门采样预约信息
type AppointmentInfo struct {
	Date            time.Time      `db:"appointment_date"`
	TimeSlot        TimeSlot       // 预约时段（下单时从时段目录解析）
	TechnicianID    sql.NullString `db:"technician_id"`
	TechnicianName  sql.NullString `db:"technician_name"`
	TechnicianPhone sql.NullString `db:"technician_phone"`
}

// PaymentInfo 支付信息（本服务不做支付网关对接，仅记录）
type PaymentInfo struct {
	Method        string         `db:"payment_method"`
	Status        string         `db:"payment_status"`
	Amount        float64        `db:"payment_amount"`
	TransactionID sql.NullString `db:"transaction_id"`
	PaidAt        sql.NullTime   `db:"paid_at"`
}

// OrderPricing 订单价格汇总
// 不变式：Total == TestsTotal - 0 + CollectionCharges（Discount 已含在 TestsTotal 的生效价中，
// 单独记录让利金额供展示），创建时计算一次；行项目不可变，因此恒成立
type OrderPricing struct {
	TestsTotal        float64 `db:"tests_total"`
	Discount          float64 `db:"discount"`
	CollectionCharges float64 `db:"collection_charges"`
	Total             float64 `db:"total_amount"`
}

// OrderStats 员工看板统计
type OrderStats struct {
	TotalOrders       int
	PendingOrders     int
	CompletedOrders   int
	TotalRevenue      float64
	AverageOrderValue float64
}
