package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/vadiminshakov/dipbuyer/internal/events"
	"go.uber.org/zap"
)

const (
	DefaultKafkaTopic = "dipbuyer.checks"

	kafkaDialTimeout  = 10 * time.Second
	kafkaBatchTimeout = 200 * time.Millisecond
	kafkaWriteTimeout = 10 * time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes check events to a topic keyed by account id, so all
// events of an account land in one partition in order.
type KafkaPublisher struct {
	writer messageWriter
	logger *zap.Logger
}

// NewKafkaWriter constructs a kafka.Writer for the events topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	if topic == "" {
		topic = DefaultKafkaTopic
	}

	dialer := &kafka.Dialer{
		Timeout:   kafkaDialTimeout,
		DualStack: true,
	}

	return kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		Dialer:       dialer,
		BatchTimeout: kafkaBatchTimeout,
		RequiredAcks: int(kafka.RequireOne),
	})
}

func NewKafkaPublisher(writer messageWriter, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{writer: writer, logger: logger}
}

// Publish writes the event. Failures are logged.
func (p *KafkaPublisher) Publish(ctx context.Context, ev events.CheckEvent) {
	if err := p.publish(ctx, ev); err != nil {
		p.logger.Warn("check event not published",
			zap.String("account", ev.AccountID),
			zap.String("symbol", ev.Symbol),
			zap.Error(err))
	}
}

func (p *KafkaPublisher) publish(ctx context.Context, ev events.CheckEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal check event")
	}

	ctx, cancel := context.WithTimeout(ctx, kafkaWriteTimeout)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.AccountID),
		Value: payload,
		Time:  ev.Timestamp,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
