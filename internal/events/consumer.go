package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"medtest-data/internal/domain"
	"medtest-data/internal/repository"
)

// NotificationHandler 消费订单事件并落地用户通知
// 通知生成走事件总线而不是内联在订单服务里，订单写路径不被通知失败拖慢
type NotificationHandler struct {
	notifications repository.NotificationsRepository
	logger        *zap.Logger
}

func NewNotificationHandler(notifications repository.NotificationsRepository, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

func (h *NotificationHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *NotificationHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *NotificationHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var event OrderEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			h.logger.Warn("skipping malformed order event",
				zap.Int64("offset", msg.Offset), zap.Error(err))
			session.MarkMessage(msg, "")
			continue
		}
		if err := h.handle(session.Context(), event); err != nil {
			h.logger.Error("failed to handle order event",
				zap.String("type", event.Type),
				zap.String("order_id", event.OrderID),
				zap.Error(err))
			// 不 Mark，等待重投
			continue
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

func (h *NotificationHandler) handle(ctx context.Context, event OrderEvent) error {
	n := notificationFor(event)
	if n == nil {
		return nil
	}
	_, err := h.notifications.CreateNotification(ctx, n)
	return err
}

// notificationFor 事件到通知的映射；不关心的事件返回 nil
func notificationFor(event OrderEvent) *domain.Notification {
	base := domain.Notification{
		UserID:  event.UserID,
		OrderID: sql.NullString{String: event.OrderID, Valid: event.OrderID != ""},
	}
	switch event.Type {
	case EventOrderConfirmed:
		base.Type = domain.NotifyOrderConfirmed
		base.Title = "Order Confirmed"
		base.Message = fmt.Sprintf("Your order %s has been confirmed. Our technician will arrive in the selected time slot.", event.TrackingID)
	case EventSampleCollected:
		base.Type = domain.NotifySampleCollected
		base.Title = "Sample Collected"
		base.Message = fmt.Sprintf("Samples for order %s have been collected and sent to the lab.", event.TrackingID)
	case EventPaymentReceived:
		base.Type = domain.NotifyPaymentReceived
		base.Title = "Payment Received"
		base.Message = fmt.Sprintf("We have received the payment for order %s.", event.TrackingID)
	case EventReportReady:
		base.Type = domain.NotifyReportReady
		base.Title = "Report Ready"
		base.Message = fmt.Sprintf("Your test report for order %s is ready for download.", event.TrackingID)
	default:
		return nil
	}
	return &base
}

// StartConsumer 挂起消费直到 ctx 取消
func StartConsumer(ctx context.Context, brokers []string, groupID, topic string,
	handler sarama.ConsumerGroupHandler, logger *zap.Logger) error {

	config := sarama.NewConfig()
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	defer group.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if err := group.Consume(ctx, []string{topic}, handler); err != nil {
				logger.Error("consumer error", zap.Error(err))
			}
		}
	}
}
