package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/stationmap/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the STATIONS stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, js, err := connect(url, "stationmap-publisher")
	if err != nil {
		return nil, err
	}

	cfg := &nats.StreamConfig{
		Name:      stationsStream,
		Subjects:  []string{stationsCreatedWild},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishStationCreated announces a newly stored station.
func (p *Publisher) PublishStationCreated(ctx context.Context, st *domain.Station) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	subject := stationsCreatedTopic + strconv.FormatInt(st.ID, 10)
	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return domain.NetworkError{Op: "publish " + subject, Err: err}
	}
	return nil
}

// Connected reports whether the connection is currently up.
func (p *Publisher) Connected() bool {
	return p.conn.IsConnected()
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
