package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/stationmap/internal/core/domain"
	"github.com/samirrijal/stationmap/internal/core/session"
)

const (
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// wsInbound is a command sent by a map client.
//
//	{"type":"region","region":{"latitude":43.26,"longitude":-2.93,"latitude_delta":0.05,"longitude_delta":0.05}}
//	{"type":"filter","term":"repsol"}
//	{"type":"find_trip","origin":{"lat":..,"lon":..},"destination":{"lat":..,"lon":..}}
//	{"type":"cancel_trip"} | {"type":"refresh"} | {"type":"snapshot"}
//	{"type":"locate","location":{"lat":..,"lon":..}} | {"type":"locate","denied":true}
type wsInbound struct {
	Type        string            `json:"type"`
	Region      *domain.GeoRegion `json:"region,omitempty"`
	Term        string            `json:"term,omitempty"`
	Origin      *domain.GeoPoint  `json:"origin,omitempty"`
	Destination *domain.GeoPoint  `json:"destination,omitempty"`
	Location    *domain.GeoPoint  `json:"location,omitempty"`
	Denied      bool              `json:"denied,omitempty"`
}

// wsOutbound is a frame pushed to the client: view, camera, notice, session or error.
type wsOutbound struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type cameraCenter struct {
	Action      string  `json:"action"`
	Lon         float64 `json:"lon"`
	Lat         float64 `json:"lat"`
	Zoom        float64 `json:"zoom"`
	AnimationMs int     `json:"animation_ms"`
}

type cameraFit struct {
	Action      string               `json:"action"`
	Bounds      domain.BoundingBox   `json:"bounds"`
	Padding     domain.CameraPadding `json:"padding"`
	AnimationMs int                  `json:"animation_ms"`
}

// socketClient renders a session onto one WebSocket connection.
type socketClient struct {
	conn *websocket.Conn
	log  *slog.Logger
	mu   sync.Mutex
}

func (sc *socketClient) send(typ string, data any) error {
	payload, err := json.Marshal(wsOutbound{Type: typ, Data: data})
	if err != nil {
		return err
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	_ = sc.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return sc.conn.WriteMessage(websocket.TextMessage, payload)
}

func (sc *socketClient) ping() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	_ = sc.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return sc.conn.WriteMessage(websocket.PingMessage, nil)
}

func (sc *socketClient) Render(v session.View) {
	if err := sc.send("view", v); err != nil {
		sc.log.Debug("ws write failed", "error", err)
	}
}

func (sc *socketClient) Notify(n session.Notice) {
	if err := sc.send("notice", n); err != nil {
		sc.log.Debug("ws write failed", "error", err)
	}
}

func (sc *socketClient) SetCenter(lon, lat, zoom float64, animationMs int) {
	_ = sc.send("camera", cameraCenter{Action: "center", Lon: lon, Lat: lat, Zoom: zoom, AnimationMs: animationMs})
}

func (sc *socketClient) FitBounds(bounds domain.BoundingBox, padding domain.CameraPadding, animationMs int) {
	_ = sc.send("camera", cameraFit{Action: "fit", Bounds: bounds, Padding: padding, AnimationMs: animationMs})
}

// SessionSocketHandler runs one map session per WebSocket connection.
func SessionSocketHandler(sessions *session.Manager) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		client := &socketClient{conn: c, log: slog.With("remote_addr", c.RemoteAddr().String())}
		s := sessions.Open(client)
		defer sessions.Close(s.ID())
		client.log = client.log.With("session_id", s.ID())
		client.log.Info("ws session connected")

		if err := client.send("session", map[string]string{"id": s.ID()}); err != nil {
			return
		}

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := client.ping(); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var msg wsInbound
			if err := json.Unmarshal(raw, &msg); err != nil {
				_ = client.send("error", wsError("bad_request", "invalid JSON"))
				continue
			}
			if err := dispatch(s, client, msg); err != nil {
				if errors.Is(err, session.ErrClosed) {
					break
				}
				_ = client.send("error", wsErrorFrom(err))
			}
		}

		client.log.Info("ws session disconnected")
	}
}

// dispatch applies one client command to the session.
func dispatch(s *session.Session, client *socketClient, msg wsInbound) error {
	switch msg.Type {
	case "region":
		if msg.Region == nil {
			return domain.ValidationError{Field: "region", Msg: "is required"}
		}
		return s.UpdateRegion(*msg.Region)
	case "filter":
		return s.SetFilter(msg.Term)
	case "find_trip":
		if msg.Origin == nil || msg.Destination == nil {
			return domain.ValidationError{Msg: "origin and destination are required"}
		}
		return s.FindTrip(*msg.Origin, *msg.Destination)
	case "cancel_trip":
		return s.CancelTrip()
	case "locate":
		if msg.Denied {
			return s.LocationDenied()
		}
		if msg.Location == nil {
			return domain.ValidationError{Field: "location", Msg: "is required unless denied"}
		}
		return s.Locate(*msg.Location, nil)
	case "refresh":
		return s.Refresh()
	case "snapshot":
		v, err := s.Snapshot()
		if err != nil {
			return err
		}
		return client.send("view", v)
	}
	return domain.ValidationError{Field: "type", Msg: "unknown message type " + msg.Type}
}

func wsError(code, message string) APIError {
	return APIError{Code: code, Message: message}
}

func wsErrorFrom(err error) APIError {
	switch {
	case domain.IsValidation(err):
		return wsError("bad_request", err.Error())
	case errors.Is(err, session.ErrTripInProgress), errors.Is(err, domain.ErrInvalidTransition):
		return wsError("conflict", err.Error())
	}
	return wsError("internal_error", err.Error())
}
