package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"medtest-data/internal/domain"
)

// PostgresOrdersRepo OrdersRepository 的 Postgres 实现
type PostgresOrdersRepo struct {
	db *sql.DB
}

func NewPostgresOrdersRepo(db *sql.DB) *PostgresOrdersRepo {
	return &PostgresOrdersRepo{db: db}
}

const orderColumns = `
	o.order_id::text, o.user_id::text, o.tracking_id, o.status,
	o.patient_name, o.patient_age, o.patient_gender, o.patient_phone, o.patient_email,
	o.address_line1, o.address_line2, o.landmark, o.city, o.state, o.pincode,
	o.appointment_date, o.slot_id::text, o.slot_start_time, o.slot_end_time, o.slot_display,
	o.technician_id, o.technician_name, o.technician_phone,
	o.payment_method, o.payment_status, o.payment_amount, o.transaction_id, o.paid_at,
	o.tests_total, o.discount, o.collection_charges, o.total_amount,
	o.special_instructions, o.created_at, o.updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	var o domain.Order
	var addr2, landmark sql.NullString
	if err := row.Scan(
		&o.OrderID, &o.UserID, &o.TrackingID, &o.Status,
		&o.Patient.Name, &o.Patient.Age, &o.Patient.Gender, &o.Patient.Phone, &o.Patient.Email,
		&o.Address.AddressLine1, &addr2, &landmark, &o.Address.City, &o.Address.State, &o.Address.Pincode,
		&o.Appointment.Date, &o.Appointment.TimeSlot.SlotID,
		&o.Appointment.TimeSlot.StartTime, &o.Appointment.TimeSlot.EndTime, &o.Appointment.TimeSlot.DisplayText,
		&o.Appointment.TechnicianID, &o.Appointment.TechnicianName, &o.Appointment.TechnicianPhone,
		&o.Payment.Method, &o.Payment.Status, &o.Payment.Amount, &o.Payment.TransactionID, &o.Payment.PaidAt,
		&o.Pricing.TestsTotal, &o.Pricing.Discount, &o.Pricing.CollectionCharges, &o.Pricing.Total,
		&o.SpecialInstructions, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	o.Address.AddressLine2 = addr2.String
	o.Address.Landmark = landmark.String
	return &o, nil
}

// CreateOrder 单事务创建：
//  1. pg_advisory_xact_lock 串行化同一 (pincode, 日期, 时段) 的并发创建
//  2. 复查时段占用（confirmed/sample_collected）
//  3. 按年份递增的计数器生成 TrackingID（MT + 年份 + 零填充序号，每年从 001 重新开始）
//  4. 插入订单 + 行项目
//
// 任一步失败整体回滚，不留下半截订单
func (r *PostgresOrdersRepo) CreateOrder(ctx context.Context, order *domain.Order) (string, error) {
	if order.UserID == "" {
		return "", fmt.Errorf("user_id is required")
	}
	if len(order.Tests) == 0 {
		return "", fmt.Errorf("order has no tests")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	slotKey := order.Address.Pincode + ":" +
		order.Appointment.Date.Format("2006-01-02") + ":" +
		order.Appointment.TimeSlot.SlotID
	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1))`, slotKey); err != nil {
		return "", fmt.Errorf("failed to take slot lock: %w", err)
	}

	var taken bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM orders
			WHERE pincode = $1
			  AND appointment_date::date = $2::date
			  AND slot_id = $3
			  AND status IN ('confirmed', 'sample_collected')
		 )`,
		order.Address.Pincode, order.Appointment.Date, order.Appointment.TimeSlot.SlotID,
	).Scan(&taken)
	if err != nil {
		return "", fmt.Errorf("failed to check slot availability: %w", err)
	}
	if taken {
		return "", ErrSlotTaken
	}

	year := time.Now().Year()
	var seq int
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO order_tracking_counters (year, seq) VALUES ($1, 1)
		 ON CONFLICT (year) DO UPDATE SET seq = order_tracking_counters.seq + 1
		 RETURNING seq`, year).Scan(&seq); err != nil {
		return "", fmt.Errorf("failed to advance tracking sequence: %w", err)
	}
	trackingID := fmt.Sprintf("MT%d%03d", year, seq)

	id := order.OrderID
	if id == "" {
		id = uuid.NewString()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (
			order_id, user_id, tracking_id, status,
			patient_name, patient_age, patient_gender, patient_phone, patient_email,
			address_line1, address_line2, landmark, city, state, pincode,
			appointment_date, slot_id, slot_start_time, slot_end_time, slot_display,
			payment_method, payment_status, payment_amount,
			tests_total, discount, collection_charges, total_amount,
			special_instructions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		         $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)`,
		id, order.UserID, trackingID, order.Status,
		order.Patient.Name, order.Patient.Age, order.Patient.Gender,
		order.Patient.Phone, order.Patient.Email,
		order.Address.AddressLine1, order.Address.AddressLine2, order.Address.Landmark,
		order.Address.City, order.Address.State, order.Address.Pincode,
		order.Appointment.Date, order.Appointment.TimeSlot.SlotID,
		order.Appointment.TimeSlot.StartTime, order.Appointment.TimeSlot.EndTime,
		order.Appointment.TimeSlot.DisplayText,
		order.Payment.Method, order.Payment.Status, order.Payment.Amount,
		order.Pricing.TestsTotal, order.Pricing.Discount,
		order.Pricing.CollectionCharges, order.Pricing.Total,
		order.SpecialInstructions,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range order.Tests {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (item_id, order_id, test_id, test_name, price, discounted_price)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.NewString(), id, item.TestID, item.TestName, item.Price, item.DiscountedPrice,
		); err != nil {
			return "", fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	order.OrderID = id
	order.TrackingID = trackingID
	return id, nil
}

func (r *PostgresOrdersRepo) loadItems(ctx context.Context, q interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}, orderID string) ([]domain.OrderTest, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT test_id::text, test_name, price, discounted_price
		 FROM order_items WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.OrderTest{}
	for rows.Next() {
		var it domain.OrderTest
		if err := rows.Scan(&it.TestID, &it.TestName, &it.Price, &it.DiscountedPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PostgresOrdersRepo) getOrderWhere(ctx context.Context, where string, arg any) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE `+where, arg)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	items, err := r.loadItems(ctx, r.db, o.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	o.Tests = items
	return o, nil
}

func (r *PostgresOrdersRepo) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return r.getOrderWhere(ctx, `o.order_id = $1`, orderID)
}

func (r *PostgresOrdersRepo) GetOrderByTracking(ctx context.Context, trackingID string) (*domain.Order, error) {
	return r.getOrderWhere(ctx, `o.tracking_id = $1`, trackingID)
}

func (r *PostgresOrdersRepo) ListOrders(ctx context.Context, filters OrderFilters) ([]*domain.Order, error) {
	where := "TRUE"
	args := []any{}
	idx := 1
	if filters.UserID != "" {
		where += fmt.Sprintf(" AND o.user_id = $%d", idx)
		args = append(args, filters.UserID)
		idx++
	}
	if filters.Status != "" {
		where += fmt.Sprintf(" AND o.status = $%d", idx)
		args = append(args, filters.Status)
		idx++
	}
	if filters.TechnicianID != "" {
		where += fmt.Sprintf(" AND o.technician_id = $%d", idx)
		args = append(args, filters.TechnicianID)
		idx++
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE `+where+` ORDER BY o.created_at DESC`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, o := range out {
		items, err := r.loadItems(ctx, r.db, o.OrderID)
		if err != nil {
			return nil, fmt.Errorf("failed to load order items: %w", err)
		}
		o.Tests = items
	}
	return out, nil
}

// UpdateStatus 状态覆写（不做迁移表校验）
// 进入占用时段的状态（confirmed/sample_collected）时在 CreateOrder 同款
// 咨询锁下复查时段冲突；取消已派单的订单时同一事务内释放技师当日负载
func (r *PostgresOrdersRepo) UpdateStatus(ctx context.Context, orderID, status string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var oldStatus, pincode, slotID string
	var apptDate time.Time
	var technicianID sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT status, technician_id, pincode, appointment_date, slot_id::text
		 FROM orders WHERE order_id = $1 FOR UPDATE`,
		orderID).Scan(&oldStatus, &technicianID, &pincode, &apptDate, &slotID)
	if err != nil {
		return err
	}

	if slotHolding(status) && !slotHolding(oldStatus) {
		slotKey := pincode + ":" + apptDate.Format("2006-01-02") + ":" + slotID
		if _, err := tx.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtext($1))`, slotKey); err != nil {
			return fmt.Errorf("failed to take slot lock: %w", err)
		}
		var taken bool
		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (
				SELECT 1 FROM orders
				WHERE pincode = $1
				  AND appointment_date::date = $2::date
				  AND slot_id = $3
				  AND status IN ('confirmed', 'sample_collected')
				  AND order_id <> $4
			 )`,
			pincode, apptDate, slotID, orderID,
		).Scan(&taken)
		if err != nil {
			return fmt.Errorf("failed to check slot availability: %w", err)
		}
		if taken {
			return ErrSlotTaken
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE order_id = $1`,
		orderID, status); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if status == domain.OrderCancelled && oldStatus != domain.OrderCancelled && technicianID.Valid {
		if _, err := tx.ExecContext(ctx,
			`UPDATE technicians
			 SET current_orders = GREATEST(current_orders - 1, 0), updated_at = NOW()
			 WHERE technician_id = $1`, technicianID.String); err != nil {
			return fmt.Errorf("failed to release technician load: %w", err)
		}
	}
	return tx.Commit()
}

// AssignTechnician 覆写预约技师字段并维护 current_orders 计数（单事务）
func (r *PostgresOrdersRepo) AssignTechnician(ctx context.Context, orderID, technicianID, name, phone string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var prev sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT technician_id FROM orders WHERE order_id = $1 FOR UPDATE`,
		orderID).Scan(&prev)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE orders
		 SET technician_id = $2, technician_name = $3, technician_phone = $4, updated_at = NOW()
		 WHERE order_id = $1`,
		orderID, technicianID, name, phone); err != nil {
		return fmt.Errorf("failed to assign technician: %w", err)
	}

	if prev.Valid && prev.String != technicianID {
		if _, err := tx.ExecContext(ctx,
			`UPDATE technicians
			 SET current_orders = GREATEST(current_orders - 1, 0), updated_at = NOW()
			 WHERE technician_id = $1`, prev.String); err != nil {
			return fmt.Errorf("failed to release previous technician: %w", err)
		}
	}
	if !prev.Valid || prev.String != technicianID {
		if _, err := tx.ExecContext(ctx,
			`UPDATE technicians
			 SET current_orders = current_orders + 1, updated_at = NOW()
			 WHERE technician_id = $1`, technicianID); err != nil {
			return fmt.Errorf("failed to add technician load: %w", err)
		}
	}
	return tx.Commit()
}

func (r *PostgresOrdersRepo) BookedSlotIDs(ctx context.Context, date time.Time, pincode string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT slot_id::text FROM orders
		 WHERE pincode = $1
		   AND appointment_date::date = $2::date
		   AND status IN ('confirmed', 'sample_collected')`,
		pincode, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *PostgresOrdersRepo) MarkPaid(ctx context.Context, orderID string, payment *domain.Payment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders
		 SET payment_status = $2, transaction_id = $3, paid_at = $4, updated_at = NOW()
		 WHERE order_id = $1`,
		orderID, payment.Status, payment.TransactionID, payment.PaidAt)
	if err != nil {
		return fmt.Errorf("failed to update order payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	id := payment.PaymentID
	if id == "" {
		id = uuid.NewString()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO payments (payment_id, order_id, amount, currency, method, status, transaction_id, paid_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, orderID, payment.Amount, payment.Currency, payment.Method,
		payment.Status, payment.TransactionID, payment.PaidAt,
	); err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return tx.Commit()
}

func (r *PostgresOrdersRepo) ListPayments(ctx context.Context, orderID string) ([]*domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT payment_id::text, order_id::text, amount, currency, method, status,
		        transaction_id, paid_at, created_at
		 FROM payments WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Payment{}
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.PaymentID, &p.OrderID, &p.Amount, &p.Currency, &p.Method,
			&p.Status, &p.TransactionID, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *PostgresOrdersRepo) Stats(ctx context.Context) (*domain.OrderStats, error) {
	var s domain.OrderStats
	err := r.db.QueryRowContext(ctx,
		`SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status IN ('pending', 'confirmed', 'sample_collected', 'processing')),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COALESCE(SUM(payment_amount) FILTER (WHERE payment_status = 'completed'), 0)
		 FROM orders`,
	).Scan(&s.TotalOrders, &s.PendingOrders, &s.CompletedOrders, &s.TotalRevenue)
	if err != nil {
		return nil, fmt.Errorf("failed to compute order stats: %w", err)
	}
	if s.TotalOrders > 0 {
		s.AverageOrderValue = s.TotalRevenue / float64(s.TotalOrders)
	}
	return &s, nil
}
