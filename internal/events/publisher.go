package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

// Publisher публикует факты в kafka. На каждый топик заводится свой writer;
// список топиков фиксируется при старте сервиса, а не глобальным состоянием.
type Publisher struct {
	writers map[string]*kafka.Writer
}

func NewPublisher(brokers []string, topics ...string) *Publisher {
	writers := make(map[string]*kafka.Writer, len(topics))
	for _, topic := range topics {
		writers[topic] = &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		}
	}
	return &Publisher{writers: writers}
}

// Publish сериализует payload в JSON и отправляет в топик с ключом key.
// Ключ определяет порядок доставки внутри топика.
func (p *Publisher) Publish(ctx context.Context, topic string, key string, payload any) error {
	w, ok := p.writers[topic]
	if !ok {
		return errors.Errorf("publisher is not configured for topic %q", topic)
	}

	value, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return errors.Wrapf(marshalErr, "marshaling payload for topic %q", topic)
	}

	if writeErr := w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	}); writeErr != nil {
		return errors.Wrapf(writeErr, "writing message to topic %q", topic)
	}
	return nil
}

func (p *Publisher) Close() error {
	var err error
	for _, w := range p.writers {
		if closeErr := w.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}
