package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/agentstation/legisync/pkg/constants"
	"github.com/agentstation/legisync/pkg/errors"
	"github.com/agentstation/legisync/pkg/logging"
)

// Writer is the subset of *kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// Kafka publishes events as JSON messages keyed by activity GUID.
type Kafka struct {
	writer Writer
	topic  string
}

var _ Notifier = (*Kafka)(nil)

// NewKafka creates a publisher writing to cfg.Topic.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.NewConfigError("kafka", "at least one broker is required", nil)
	}
	if cfg.Topic == "" {
		cfg.Topic = constants.DefaultKafkaTopic
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}
	return NewKafkaWithWriter(writer, cfg.Topic), nil
}

// NewKafkaWithWriter creates a publisher over an existing writer.
func NewKafkaWithWriter(w Writer, topic string) *Kafka {
	return &Kafka{writer: w, topic: topic}
}

// Notify implements Notifier.
func (k *Kafka) Notify(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return errors.WrapParse("json", e.GUID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.GUID),
			Value: value,
			Time:  e.Time,
			Headers: []kafka.Header{
				{Key: "run_id", Value: []byte(e.RunID)},
				{Key: "variety", Value: []byte(e.Variety)},
			},
		})
	}
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return errors.WrapResource("publish", "activity", k.topic, err)
	}
	logging.FromContext(ctx).Debug().Str("topic", k.topic).Int("count", len(msgs)).Msg("Published activity events")
	return nil
}

// Close implements Notifier.
func (k *Kafka) Close() error {
	return k.writer.Close()
}
