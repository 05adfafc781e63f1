// Package eventbus carries domain events between business operations and
// their consumers over an in-process watermill pub/sub.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"leaguesync/pkg/logger"
)

// Handler consumes one decoded payload
type Handler func(ctx context.Context, payload []byte) error

// Bus publishes JSON payloads to topics and dispatches them to subscribers
type Bus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter
	wg     sync.WaitGroup
}

// New creates a Bus. bufferSize bounds the per-subscriber queue.
func New(log *logger.Logger, bufferSize int64) *Bus {
	adapter := NewLoggerAdapter(log)
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: bufferSize,
		}, adapter),
		logger: adapter,
	}
}

// Publish marshals v to JSON and publishes it on topic
func (b *Bus) Publish(ctx context.Context, topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(context.WithoutCancel(ctx))

	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Subscribe starts a goroutine feeding messages from topic to handler until ctx
// is done or the bus is closed. Handlers own their retries: a failed message
// is logged and acknowledged so it is not redelivered in a hot loop.
func (b *Bus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to topic: %w", err)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range messages {
			if err := handler(msg.Context(), msg.Payload); err != nil {
				b.logger.Error("Error handling message", err, watermill.LogFields{
					"message_uuid": msg.UUID,
					"topic":        topic,
				})
			}
			msg.Ack()
		}
	}()

	return nil
}

// Close stops the pub/sub and waits for subscriber goroutines to drain
func (b *Bus) Close() error {
	err := b.pubsub.Close()
	b.wg.Wait()
	return err
}
