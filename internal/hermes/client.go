// Package hermes carries PayLens events over NATS. Batch completions and
// stored artifacts are kept in the PAYLENS_EVENTS JetStream stream so
// downstream consumers can replay a week of reconciliation history.
package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// publishTimeout bounds how long a publisher waits for the stream ack.
const publishTimeout = 5 * time.Second

// Client publishes PayLens events. A nil Client is valid wherever the
// service accepts one; publishing is then skipped.
type Client interface {
	Publish(subject string, data interface{}) error
	Subscribe(subject string, handler func(subject string, data []byte)) error
	Close()
}

type NATSClient struct {
	conn *nats.Conn
	js   jetstream.JetStream
	// streamed is set once PAYLENS_EVENTS exists; until then events go out
	// as plain NATS messages and are not retained.
	streamed bool
	subs     []*nats.Subscription
	logger   *slog.Logger
}

// NewNATSClient connects to url and makes sure the event stream exists. A
// missing stream is logged, not fatal: live subscribers still see events.
func NewNATSClient(ctx context.Context, url string, logger *slog.Logger) (*NATSClient, error) {
	nc, err := nats.Connect(url,
		nats.Name("paylens"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("hermes disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("hermes reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("hermes connect %s: %w", url, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("hermes jetstream: %w", err)
	}

	c := &NATSClient{conn: nc, js: js, logger: logger}
	if err := c.ensureStream(ctx); err != nil {
		logger.Warn("event stream unavailable, events will not be retained", "stream", StreamName, "error", err)
	} else {
		c.streamed = true
	}
	return c, nil
}

func (c *NATSClient) ensureStream(ctx context.Context) error {
	maxAge, err := time.ParseDuration(StreamMaxAge)
	if err != nil {
		return fmt.Errorf("stream max age %q: %w", StreamMaxAge, err)
	}
	_, err = c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       StreamName,
		Subjects:   []string{SubjectAll},
		MaxAge:     maxAge,
		Duplicates: 2 * time.Minute,
	})
	return err
}

// Publish sends data as JSON. Retained events carry a message id so a
// retried publish is stored once.
func (c *NATSClient) Publish(subject string, data interface{}) error {
	payload, msgID, err := encodeEvent(subject, data)
	if err != nil {
		return err
	}
	if !c.streamed {
		if err := c.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("publish %s: %w", subject, err)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if _, err := c.js.Publish(ctx, subject, payload, jetstream.WithMsgID(msgID)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func encodeEvent(subject string, data interface{}) ([]byte, string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, "", fmt.Errorf("encode %s: %w", subject, err)
	}
	return payload, uuid.NewString(), nil
}

// Subscribe delivers live events on subject; it does not replay the stream.
func (c *NATSClient) Subscribe(subject string, handler func(string, []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	return nil
}

// Close drops subscriptions and flushes pending publishes.
func (c *NATSClient) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
}
