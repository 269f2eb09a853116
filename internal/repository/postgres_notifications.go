package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"medtest-data/internal/domain"
)

// PostgresNotificationsRepo NotificationsRepository 的 Postgres 实现
type PostgresNotificationsRepo struct {
	db *sql.DB
}

func NewPostgresNotificationsRepo(db *sql.DB) *PostgresNotificationsRepo {
	return &PostgresNotificationsRepo{db: db}
}

const notificationColumns = `
	notification_id::text, user_id::text, order_id::text, type, title, message,
	is_read, read_at, created_at`

func (r *PostgresNotificationsRepo) queryNotifications(ctx context.Context, where string, args ...any) ([]*domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE `+where+`
		 ORDER BY created_at DESC`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Notification{}
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.NotificationID, &n.UserID, &n.OrderID, &n.Type, &n.Title, &n.Message,
			&n.IsRead, &n.ReadAt, &n.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (r *PostgresNotificationsRepo) ListForUser(ctx context.Context, userID string) ([]*domain.Notification, error) {
	return r.queryNotifications(ctx, `user_id = $1`, userID)
}

func (r *PostgresNotificationsRepo) ListUnread(ctx context.Context, userID string) ([]*domain.Notification, error) {
	return r.queryNotifications(ctx, `user_id = $1 AND is_read = FALSE`, userID)
}

func (r *PostgresNotificationsRepo) CreateNotification(ctx context.Context, n *domain.Notification) (string, error) {
	id := n.NotificationID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (notification_id, user_id, order_id, type, title, message)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, n.UserID, n.OrderID, n.Type, n.Title, n.Message,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create notification: %w", err)
	}
	n.NotificationID = id
	return id, nil
}

// MarkRead 只允许本人标记自己的通知
func (r *PostgresNotificationsRepo) MarkRead(ctx context.Context, userID, notificationID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = NOW()
		 WHERE notification_id = $1 AND user_id = $2`,
		notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PostgresNotificationsRepo) MarkAllRead(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = NOW()
		 WHERE user_id = $1 AND is_read = FALSE`,
		userID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}
