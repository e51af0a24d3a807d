package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// HandlerFunc обработчик сообщения топика. Обработчики обязаны быть идемпотентными:
// доставка at-least-once, сообщение может прийти повторно.
type HandlerFunc func(ctx context.Context, value []byte) error

// максимальный размер кеша просмотренных eventId до сброса.
const maxSeenEvents = 10_000

type readerFactory func(topic string) reader

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer читает топики kafka и раздает сообщения по явной таблице
// topic -> handler. Повторные доставки отсекаются в два эшелона: кеш eventId
// в памяти процесса и проверка существования в обработчике.
type Consumer struct {
	handlers  map[string]HandlerFunc
	newReader readerFactory
	seen      *xsync.MapOf[string, struct{}]
	l         *logrus.Entry
}

func NewConsumer(brokers []string, groupID string, l *logrus.Logger) *Consumer {
	return &Consumer{
		handlers: make(map[string]HandlerFunc),
		newReader: func(topic string) reader {
			return kafka.NewReader(kafka.ReaderConfig{
				Brokers: brokers,
				GroupID: groupID,
				Topic:   topic,
			})
		},
		seen: xsync.NewMapOf[string, struct{}](),
		l: l.WithFields(logrus.Fields{
			"component": "events",
			"module":    "consumer",
		}),
	}
}

// Handle регистрирует обработчик топика. Повторная регистрация топика затирает предыдущую.
func (c *Consumer) Handle(topic string, fn HandlerFunc) *Consumer {
	c.handlers[topic] = fn
	return c
}

// Run читает зарегистрированные топики до отмены контекста. Оффсет коммитится только
// после успешной обработки: упавший обработчик означает повторную доставку.
func (c *Consumer) Run(ctx context.Context) {
	wg := new(sync.WaitGroup)
	for topic, fn := range c.handlers {
		wg.Add(1)
		go func(topic string, fn HandlerFunc) {
			defer wg.Done()
			c.consumeTopic(ctx, topic, fn)
		}(topic, fn)
	}
	wg.Wait()
}

func (c *Consumer) consumeTopic(ctx context.Context, topic string, fn HandlerFunc) {
	r := c.newReader(topic)
	defer func() {
		if closeErr := r.Close(); closeErr != nil {
			c.l.WithError(closeErr).Errorf("closing reader for topic %s", topic)
		}
	}()

	l := c.l.WithField("topic", topic)

	for {
		msg, fetchErr := r.FetchMessage(ctx)
		if fetchErr != nil {
			if errors.Is(fetchErr, context.Canceled) {
				return
			}
			l.WithError(fetchErr).Error("fetching message")
			continue
		}

		if c.alreadySeen(msg.Value) {
			l.Warn("duplicate event delivery, skipping")
			c.commit(ctx, r, msg, l)
			continue
		}

		if handleErr := fn(ctx, msg.Value); handleErr != nil {
			// оффсет не коммитим: сообщение будет доставлено повторно.
			l.WithError(handleErr).Error("handling message")
			continue
		}

		c.markSeen(msg.Value)
		c.commit(ctx, r, msg, l)
	}
}

func (c *Consumer) commit(ctx context.Context, r reader, msg kafka.Message, l *logrus.Entry) {
	if commitErr := r.CommitMessages(ctx, msg); commitErr != nil {
		l.WithError(commitErr).Error("committing offset")
	}
}

func (c *Consumer) alreadySeen(value []byte) bool {
	id := peekEventID(value)
	if id == "" {
		return false
	}
	_, ok := c.seen.Load(id)
	return ok
}

func (c *Consumer) markSeen(value []byte) {
	id := peekEventID(value)
	if id == "" {
		return
	}
	if c.seen.Size() >= maxSeenEvents {
		c.seen.Clear()
	}
	c.seen.Store(id, struct{}{})
}

func peekEventID(value []byte) string {
	var envelope Envelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		return ""
	}
	return envelope.EventID
}
