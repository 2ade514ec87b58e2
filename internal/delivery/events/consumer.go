package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/reviewhub/internal/config"
	"github.com/Pesokrava/reviewhub/internal/pkg/logger"
	"github.com/Pesokrava/reviewhub/internal/usecase/review"
)

// Handler processes one event payload
type Handler func(data []byte) error

// Consumer handles consuming events from NATS
type Consumer struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *logger.Logger
	sub    *nats.Subscription
}

// NewConsumer creates a new NATS consumer
func NewConsumer(cfg *config.Config, name string, log *logger.Logger) (*Consumer, error) {
	nc, err := nats.Connect(cfg.NATS.URL, nats.Name(name))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	log.Infof("Connected to NATS at %s", cfg.NATS.URL)

	return &Consumer{
		nc:     nc,
		js:     js,
		logger: log,
	}, nil
}

// Subscribe receives every message on subject without acknowledgment.
// Used by observers that must not take work off the queue.
func (c *Consumer) Subscribe(subject string, handler Handler) error {
	sub, err := c.nc.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(msg.Data); err != nil {
			c.logger.Errorf(err, "Failed to handle message on subject %s", subject)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}

	c.sub = sub
	c.logger.Infof("Subscribed to NATS subject: %s", subject)
	return nil
}

// ConsumeDurable binds to the worker's durable consumer and feeds fetched
// messages to handler until ctx is cancelled. Failed messages are nacked and
// redelivered with backoff.
func (c *Consumer) ConsumeDurable(ctx context.Context, handler Handler) error {
	streams := NewStreamConfig(c.js, c.logger)
	if err := streams.EnsureStream(); err != nil {
		return err
	}
	if err := streams.EnsureConsumer(); err != nil {
		return err
	}

	sub, err := c.js.PullSubscribe(StreamSubjects, ConsumerName, nats.Bind(StreamName, ConsumerName), nats.ManualAck())
	if err != nil {
		return fmt.Errorf("failed to subscribe to JetStream consumer: %w", err)
	}
	c.sub = sub

	c.logger.WithFields(logger.Fields{
		"stream":   StreamName,
		"consumer": ConsumerName,
	}).Info("Subscribed to JetStream consumer")

	for {
		if ctx.Err() != nil {
			return nil
		}

		fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		msgs, err := sub.Fetch(10, nats.Context(fetchCtx))
		cancel()
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to fetch messages from JetStream", err)

			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		for _, msg := range msgs {
			if err := handler(msg.Data); err != nil {
				c.logger.Error("Failed to handle event", err)
				if nakErr := msg.Nak(); nakErr != nil {
					c.logger.Error("Failed to NAK message", nakErr)
				}
				continue
			}

			if ackErr := msg.Ack(); ackErr != nil {
				c.logger.Error("Failed to ACK message", ackErr)
			}
		}
	}
}

// Close unsubscribes and closes the NATS connection
func (c *Consumer) Close() {
	if c.sub != nil {
		if err := c.sub.Unsubscribe(); err != nil {
			c.logger.Warnf("Failed to unsubscribe from NATS: %v", err)
		}
	}
	if c.nc != nil {
		c.nc.Close()
		c.logger.Info("NATS consumer connection closed")
	}
}

// LoggingHandler logs each review event with its key fields
func LoggingHandler(log *logger.Logger) Handler {
	return func(data []byte) error {
		var event review.ReviewEvent
		if err := json.Unmarshal(data, &event); err != nil {
			log.Error("Failed to unmarshal event", err)
			return err
		}

		fields := logger.Fields{
			"event_id":   event.EventID.String(),
			"event_type": event.EventType,
			"item_id":    event.ItemID,
			"timestamp":  event.Timestamp,
		}
		if event.Review != nil {
			fields["review_id"] = event.Review.ID
			fields["user_id"] = event.Review.UserID
			fields["rating"] = event.Review.Rating
		}

		log.WithFields(fields).Info("Review event received")
		return nil
	}
}
