package natsadapter

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/stationmap/internal/core/domain"
)

func TestHandleStationCreated(t *testing.T) {
	var got *domain.Station
	handler := func(ctx context.Context, st *domain.Station) error {
		got = st
		return nil
	}

	err := handleStationCreated(context.Background(),
		[]byte(`{"id":12,"name":"Repsol","location":{"lat":43.26,"lon":-2.93}}`), handler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != 12 || got.Location.Lat != 43.26 {
		t.Errorf("unexpected station %+v", got)
	}
}

func TestHandleStationCreated_Rejects(t *testing.T) {
	called := false
	handler := func(ctx context.Context, st *domain.Station) error {
		called = true
		return nil
	}

	if err := handleStationCreated(context.Background(), []byte(`{not json`), handler); err == nil {
		t.Error("expected decode error")
	}
	if err := handleStationCreated(context.Background(), []byte(`{"name":"no id"}`), handler); !domain.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if called {
		t.Error("handler must not run for rejected messages")
	}

	boom := errors.New("boom")
	failing := func(ctx context.Context, st *domain.Station) error { return boom }
	if err := handleStationCreated(context.Background(), []byte(`{"id":1}`), failing); !errors.Is(err, boom) {
		t.Errorf("expected handler error, got %v", err)
	}
}
