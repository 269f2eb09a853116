package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medtest-data/internal/domain"
	"medtest-data/internal/repository"
)

func TestNotificationFor_MapsEventTypes(t *testing.T) {
	event := OrderEvent{
		Type:       EventOrderConfirmed,
		OrderID:    "order-1",
		UserID:     "user-1",
		TrackingID: "MT2026001",
	}

	n := notificationFor(event)
	require.NotNil(t, n)
	require.Equal(t, domain.NotifyOrderConfirmed, n.Type)
	require.Equal(t, "user-1", n.UserID)
	require.Equal(t, "order-1", n.OrderID.String)
	require.Contains(t, n.Message, "MT2026001")

	event.Type = EventReportReady
	n = notificationFor(event)
	require.NotNil(t, n)
	require.Equal(t, domain.NotifyReportReady, n.Type)

	event.Type = EventPaymentReceived
	n = notificationFor(event)
	require.NotNil(t, n)
	require.Equal(t, domain.NotifyPaymentReceived, n.Type)

	// created/cancelled 不产生通知
	event.Type = EventOrderCreated
	require.Nil(t, notificationFor(event))
	event.Type = EventOrderCancelled
	require.Nil(t, notificationFor(event))
	event.Type = "unknown"
	require.Nil(t, notificationFor(event))
}

func TestNotificationHandler_PersistsNotification(t *testing.T) {
	repo := repository.NewMemoryNotificationsRepo()
	h := NewNotificationHandler(repo, zap.NewNop())

	err := h.handle(context.Background(), OrderEvent{
		Type:       EventSampleCollected,
		OrderID:    "order-1",
		UserID:     "user-1",
		TrackingID: "MT2026001",
	})
	require.NoError(t, err)

	list, err := repo.ListForUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, domain.NotifySampleCollected, list[0].Type)
	require.False(t, list[0].IsRead)

	// 不映射的事件不落库
	require.NoError(t, h.handle(context.Background(), OrderEvent{Type: EventOrderCreated, UserID: "user-1"}))
	list, err = repo.ListForUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
}
