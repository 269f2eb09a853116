package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"medtest-data/internal/domain"
	"medtest-data/internal/repository"
)

// NotificationService 用户通知服务接口
type NotificationService interface {
	List(ctx context.Context, actor domain.Actor) ([]*domain.Notification, error)
	UnreadCount(ctx context.Context, actor domain.Actor) (int, error)
	MarkRead(ctx context.Context, actor domain.Actor, notificationID string) error
	MarkAllRead(ctx context.Context, actor domain.Actor) error
}

type notificationService struct {
	notificationsRepo repository.NotificationsRepository
	logger            *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(notificationsRepo repository.NotificationsRepository, logger *zap.Logger) NotificationService {
	return &notificationService{
		notificationsRepo: notificationsRepo,
		logger:            logger,
	}
}

func (s *notificationService) List(ctx context.Context, actor domain.Actor) ([]*domain.Notification, error) {
	if !actor.IsAuthenticated() {
		return nil, domain.NewAuthorizationError("authentication required")
	}
	out, err := s.notificationsRepo.ListForUser(ctx, actor.UserID)
	if err != nil {
		return nil, domain.NewServiceError("list notifications", err)
	}
	return out, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, actor domain.Actor) (int, error) {
	if !actor.IsAuthenticated() {
		return 0, domain.NewAuthorizationError("authentication required")
	}
	unread, err := s.notificationsRepo.ListUnread(ctx, actor.UserID)
	if err != nil {
		return 0, domain.NewServiceError("count unread notifications", err)
	}
	return len(unread), nil
}

// MarkRead 只能标记自己的通知；他人的通知表现为 not found
func (s *notificationService) MarkRead(ctx context.Context, actor domain.Actor, notificationID string) error {
	if !actor.IsAuthenticated() {
		return domain.NewAuthorizationError("authentication required")
	}
	if err := s.notificationsRepo.MarkRead(ctx, actor.UserID, notificationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewNotFoundError("notification")
		}
		return domain.NewServiceError("mark notification read", err)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, actor domain.Actor) error {
	if !actor.IsAuthenticated() {
		return domain.NewAuthorizationError("authentication required")
	}
	if err := s.notificationsRepo.MarkAllRead(ctx, actor.UserID); err != nil {
		return domain.NewServiceError("mark notifications read", err)
	}
	return nil
}
