package events

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// 订单事件类型
const (
	EventOrderCreated    = "order.created"
	EventOrderConfirmed  = "order.confirmed"
	EventSampleCollected = "order.sample_collected"
	EventOrderCompleted  = "order.completed"
	EventOrderCancelled  = "order.cancelled"
	EventPaymentReceived = "order.payment_received"
	EventReportReady     = "report.ready"
)

// OrderEvent 发往事件总线的订单变更消息
type OrderEvent struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	TrackingID string    `json:"tracking_id"`
	Status     string    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher 订单事件发布接口
// Kafka 未启用时注入 NopPublisher，调用方不感知
type Publisher interface {
	Publish(event OrderEvent) error
	Close() error
}

// SaramaPublisher 基于 sarama SyncProducer 的实现
type SaramaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

func NewSaramaPublisher(brokers []string, topic string, logger *zap.Logger) (*SaramaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Timeout = 5 * time.Second
	prod, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}
	return &SaramaPublisher{producer: prod, topic: topic, logger: logger}, nil
}

func (p *SaramaPublisher) Publish(event OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.OrderID),
		Value: sarama.ByteEncoder(payload),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.Error("failed to publish order event",
			zap.String("type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.Error(err))
		return err
	}
	p.logger.Debug("order event published",
		zap.String("type", event.Type),
		zap.String("order_id", event.OrderID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

func (p *SaramaPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher 丢弃所有事件
type NopPublisher struct{}

func (NopPublisher) Publish(OrderEvent) error { return nil }
func (NopPublisher) Close() error             { return nil }
