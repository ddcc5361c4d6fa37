// Package notify announces captured webhooks on a NATS subject. Messages carry
// metadata only; headers and bodies never leave the service this way.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/webhookcatcher/internal/logfields"
	"git.home.luguber.info/inful/webhookcatcher/internal/metrics"
)

// CapturedEvent is the payload published for each capture.
type CapturedEvent struct {
	ID          int64  `json:"id"`
	Timestamp   string `json:"timestamp"`
	ContentType string `json:"content_type,omitempty"`
	Source      string `json:"source,omitempty"`
	SizeBytes   int    `json:"size_bytes"`
	IsJSON      bool   `json:"is_json"`
}

// Notifier publishes capture notifications.
type Notifier interface {
	Notify(ctx context.Context, event CapturedEvent)
	Close() error
}

// Noop discards notifications.
type Noop struct{}

func (Noop) Notify(context.Context, CapturedEvent) {}
func (Noop) Close() error                          { return nil }

// msgPublisher is the subset of *nats.Conn used for publishing.
type msgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSNotifier publishes to a NATS subject.
type NATSNotifier struct {
	conn     *nats.Conn
	pub      msgPublisher
	subject  string
	recorder metrics.Recorder
}

// NewNATSNotifier connects to url. Connection failures at startup are retried
// in the background by the client, so the service starts without NATS.
func NewNATSNotifier(url, subject string, recorder metrics.Recorder) (*NATSNotifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("webhookcatcher"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", logfields.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("NATS reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	slog.Info("NATS notifier initialized",
		slog.String("url", url),
		slog.String("subject", subject))

	return &NATSNotifier{
		conn:     conn,
		pub:      conn,
		subject:  subject,
		recorder: metrics.OrNoop(recorder),
	}, nil
}

// Notify publishes event. Failures are logged and counted, never returned.
func (n *NATSNotifier) Notify(ctx context.Context, event CapturedEvent) {
	if err := n.publish(event); err != nil {
		n.recorder.IncNotify(metrics.ResultError)
		slog.WarnContext(ctx, "Failed to publish capture notification",
			logfields.EventID(event.ID),
			logfields.Error(err))
		return
	}
	n.recorder.IncNotify(metrics.ResultSuccess)
	slog.DebugContext(ctx, "Published capture notification", logfields.EventID(event.ID))
}

func (n *NATSNotifier) publish(event CapturedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := nats.NewMsg(n.subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, uuid.NewString())
	msg.Header.Set("Content-Type", "application/json")

	if err := n.pub.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close drains the NATS connection.
func (n *NATSNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}
