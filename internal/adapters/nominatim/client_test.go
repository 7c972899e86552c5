package nominatim_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samirrijal/stationmap/internal/adapters/nominatim"
	"github.com/samirrijal/stationmap/internal/core/domain"
)

func newServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/reverse", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.Header.Get("User-Agent") != "stationmap-test" {
			t.Errorf("missing user agent, got %q", r.Header.Get("User-Agent"))
		}
		if r.URL.Query().Get("lat") == "0.000000" {
			_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
			return
		}
		_, _ = w.Write([]byte(`{"address":{"town":"Getxo","country":"España","country_code":"es"}}`))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Query().Get("q") != "guggenheim" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[
			{"osm_type":"way","osm_id":41234567,"display_name":"Guggenheim Museoa, Bilbo","lat":"43.2687","lon":"-2.9340"},
			{"osm_type":"node","osm_id":99,"display_name":"Guggenheim (metro)","lat":"43.27","lon":"-2.93"}
		]`))
	})
	mux.HandleFunc("/lookup", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Query().Get("osm_ids") != "W41234567" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[{"osm_type":"way","osm_id":41234567,"name":"Guggenheim Museoa","lat":"43.2687","lon":"-2.9340"}]`))
	})
	mux.HandleFunc("/broken/search", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})
	return httptest.NewServer(mux)
}

func newClient(url string) *nominatim.Client {
	return nominatim.New(nominatim.Options{
		BaseURL:   url,
		UserAgent: "stationmap-test",
		Language:  "en",
		Timeout:   5 * time.Second,
		CacheSize: 100,
	})
}

func TestClient_ReverseGeocode(t *testing.T) {
	var calls int32
	srv := newServer(t, &calls)
	defer srv.Close()
	c := newClient(srv.URL)

	name, err := c.ReverseGeocode(context.Background(), 43.35, -3.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name.City != "Getxo" || name.CountryCode != "ES" {
		t.Errorf("unexpected name %+v", name)
	}

	// Served from cache.
	if _, err := c.ReverseGeocode(context.Background(), 43.35, -3.01); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected 1 upstream call, got %d", n)
	}

	if _, err := c.ReverseGeocode(context.Background(), 0, 0); !domain.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestClient_SearchAndDetails(t *testing.T) {
	var calls int32
	srv := newServer(t, &calls)
	defer srv.Close()
	c := newClient(srv.URL)

	got, err := c.Search(context.Background(), "guggenheim")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].PlaceID != "W41234567" || got[1].PlaceID != "N99" {
		t.Fatalf("unexpected candidates %+v", got)
	}

	p, err := c.Details(context.Background(), got[0].PlaceID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Guggenheim Museoa" || p.Location.Lat != 43.2687 || p.Location.Lon != -2.9340 {
		t.Errorf("unexpected place %+v", p)
	}

	if _, err := c.Details(context.Background(), "N1"); !domain.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}

	empty, err := c.Search(context.Background(), "nothing here")
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty result, got %v %v", empty, err)
	}
}

func TestClient_UpstreamError(t *testing.T) {
	var calls int32
	srv := newServer(t, &calls)
	defer srv.Close()
	c := newClient(srv.URL + "/broken")

	if _, err := c.Search(context.Background(), "guggenheim"); !domain.IsNetwork(err) {
		t.Errorf("expected network error, got %v", err)
	}
}

func TestClient_CachedValuesAreCopies(t *testing.T) {
	var calls int32
	srv := newServer(t, &calls)
	defer srv.Close()
	c := newClient(srv.URL)
	ctx := context.Background()

	name, err := c.ReverseGeocode(ctx, 43.35, -3.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	name.City = "changed"

	candidates, err := c.Search(ctx, "guggenheim")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	candidates[0].Description = "changed"

	place, err := c.Details(ctx, "W41234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	place.Name = "changed"

	if again, _ := c.ReverseGeocode(ctx, 43.35, -3.01); again.City != "Getxo" {
		t.Errorf("cached location name was mutated: %+v", again)
	}
	again, _ := c.Search(ctx, "guggenheim")
	if again[0].Description != "Guggenheim Museoa, Bilbo" {
		t.Errorf("cached candidates were mutated: %+v", again)
	}
	again[0].Description = "changed twice"
	if third, _ := c.Search(ctx, "guggenheim"); third[0].Description != "Guggenheim Museoa, Bilbo" {
		t.Errorf("cache hit shares its slice: %+v", third)
	}
	if p, _ := c.Details(ctx, "W41234567"); p.Name != "Guggenheim Museoa" {
		t.Errorf("cached place was mutated: %+v", p)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 upstream calls, got %d", got)
	}
}
