package repository

import (
	"context"

	"medtest-data/internal/domain"
)

// NotificationsRepository 用户通知Repository接口
type NotificationsRepository interface {
	ListForUser(ctx context.Context, userID string) ([]*domain.Notification, error)
	ListUnread(ctx context.Context, userID string) ([]*domain.Notification, error)
	CreateNotification(ctx context.Context, n *domain.Notification) (string, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) error
}
