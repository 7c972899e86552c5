package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/stationmap/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, js, err := connect(url, "stationmap-subscriber")
	if err != nil {
		return nil, err
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeStationCreated delivers new stations to handler. Every API
// instance needs every event for its own sessions, so the consumer is
// ephemeral and starts at new messages.
func (s *Subscriber) SubscribeStationCreated(ctx context.Context, handler func(ctx context.Context, st *domain.Station) error) error {
	sub, err := s.js.Subscribe(stationsCreatedWild, func(msg *nats.Msg) {
		if err := handleStationCreated(ctx, msg.Data, handler); err != nil {
			slog.Warn("station created event rejected", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		_ = msg.Ack()
	},
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.AckExplicit(),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", stationsCreatedWild, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

func handleStationCreated(ctx context.Context, data []byte, handler func(ctx context.Context, st *domain.Station) error) error {
	var st domain.Station
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode station: %w", err)
	}
	if st.ID == 0 {
		return domain.ValidationError{Field: "id", Msg: "is required"}
	}
	return handler(ctx, &st)
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
