package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/stationmap/internal/core/domain"
	"github.com/samirrijal/stationmap/internal/core/session"
)

func TestManager_OpenBroadcastClose(t *testing.T) {
	m := session.NewManager(testConfig(), session.Deps{Stations: &fakeStations{}})
	defer m.Shutdown()

	a := m.Open(&fakeClient{})
	b := m.Open(&fakeClient{})
	if a.ID() == b.ID() {
		t.Fatal("session ids must be unique")
	}
	if m.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", m.Len())
	}

	_ = a.UpdateRegion(region(43.26, -2.93))
	_ = b.UpdateRegion(region(10, 10))

	st := &domain.Station{ID: 77, Name: "New", Location: domain.GeoPoint{Lat: 43.26, Lon: -2.93}}
	if err := m.HandleStationCreated(context.Background(), st); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if v := snapshot(t, a); v.Total != 1 {
		t.Errorf("session in range should ingest the station, got %d", v.Total)
	}
	if v := snapshot(t, b); v.Total != 0 {
		t.Errorf("session out of range should ignore the station, got %d", v.Total)
	}

	got, ok := m.Get(a.ID())
	if !ok || got != a {
		t.Error("expected to find session a")
	}
	m.Close(a.ID())
	if _, ok := m.Get(a.ID()); ok {
		t.Error("closed session still registered")
	}
	m.Close("unknown")
	if m.Len() != 1 {
		t.Errorf("expected 1 session, got %d", m.Len())
	}
}

// stuckClient blocks every Render until release is closed.
type stuckClient struct {
	fakeClient
	entered sync.Once
	inside  chan struct{}
	release chan struct{}
}

func (c *stuckClient) Render(v session.View) {
	c.entered.Do(func() { close(c.inside) })
	<-c.release
}

func TestManager_BroadcastNotBlockedBySlowSession(t *testing.T) {
	m := session.NewManager(testConfig(), session.Deps{Stations: &fakeStations{}})
	defer m.Shutdown()

	stuck := &stuckClient{inside: make(chan struct{}), release: make(chan struct{})}
	defer close(stuck.release)
	slow := m.Open(stuck)
	fast := m.Open(&fakeClient{})
	_ = fast.UpdateRegion(region(43.26, -2.93))

	// The first render parks the run goroutine, the next ones fill the intake.
	_ = slow.SetFilter("a")
	<-stuck.inside
	for i := 0; i < 64; i++ {
		_ = slow.SetFilter("b")
	}

	if err := slow.IngestStation(domain.Station{ID: 2}); !errors.Is(err, session.ErrBusy) {
		t.Errorf("expected ErrBusy from a full intake, got %v", err)
	}

	done := make(chan struct{})
	go func() {
		m.Broadcast(domain.Station{ID: 1, Location: domain.GeoPoint{Lat: 43.26, Lon: -2.93}})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast waited on a slow session")
	}

	if v := snapshot(t, fast); v.Total != 1 {
		t.Errorf("healthy session should receive the station, got %d", v.Total)
	}
}
