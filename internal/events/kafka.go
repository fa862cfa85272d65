package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"pesagate/config"
	"pesagate/internal/service"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaPublisher mirrors payment outcomes onto Kafka topics so systems
// outside the gateway (fulfilment, accounting) can react. It implements
// service.PaymentListener.
type KafkaPublisher struct {
	writer         *kafka.Writer
	completedTopic string
	failedTopic    string
	log            *zap.Logger
}

func NewKafkaPublisher(cfg config.EventsConfig, log *zap.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
		Logger:       kafka.LoggerFunc(func(msg string, args ...interface{}) { log.Debug(fmt.Sprintf(msg, args...)) }),
		ErrorLogger:  kafka.LoggerFunc(func(msg string, args ...interface{}) { log.Error(fmt.Sprintf(msg, args...)) }),
	}
	return &KafkaPublisher{
		writer:         writer,
		completedTopic: cfg.CompletedTopic,
		failedTopic:    cfg.FailedTopic,
		log:            log,
	}
}

func (p *KafkaPublisher) PaymentCompleted(ctx context.Context, ev service.PaymentEvent) error {
	return p.publish(ctx, p.completedTopic, ev)
}

func (p *KafkaPublisher) PaymentFailed(ctx context.Context, ev service.PaymentEvent) error {
	return p.publish(ctx, p.failedTopic, ev)
}

func (p *KafkaPublisher) publish(ctx context.Context, topic string, ev service.PaymentEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(strconv.FormatUint(uint64(ev.OrderID), 10)),
		Value: value,
	}
	publishCtx, cancel := context.WithTimeout(ctx, p.writer.WriteTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(publishCtx, msg); err != nil {
		p.log.Error("failed to publish payment event",
			zap.String("topic", topic),
			zap.Uint("order_id", ev.OrderID),
			zap.Error(err))
		return fmt.Errorf("publish payment event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
