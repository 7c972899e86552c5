// Package osrm is a ports.Router backed by an OSRM HTTP server.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samirrijal/stationmap/internal/core/domain"
)

// Client calls the OSRM route service.
type Client struct {
	baseURL string
	profile string
	http    *http.Client
}

// New creates a Client. profile defaults to "driving".
func New(baseURL, profile string, timeout time.Duration) *Client {
	if profile == "" {
		profile = "driving"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		profile: profile,
		http:    &http.Client{Timeout: timeout},
	}
}

type routeResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][2]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// Route returns the best route between two points as a GeoJSON line.
func (c *Client) Route(ctx context.Context, startLat, startLon, destLat, destLon float64) (*domain.RouteResult, error) {
	url := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?overview=full&geometries=geojson",
		c.baseURL, c.profile, startLon, startLat, destLon, destLat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build route request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.NetworkError{Op: "osrm route", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, domain.NetworkError{Op: "osrm route", Err: fmt.Errorf("status %d: %s", resp.StatusCode, body)}
	}

	// OSRM reports routing failures (NoRoute, NoSegment) as 400 with a JSON body.
	var out routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, domain.NetworkError{Op: "osrm route", Err: fmt.Errorf("decode: %w", err)}
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return nil, domain.NotFoundError{Resource: "route", Err: fmt.Errorf("osrm %s: %s", out.Code, out.Message)}
	}

	r := out.Routes[0]
	return &domain.RouteResult{
		Coordinates:     r.Geometry.Coordinates,
		DistanceMeters:  r.Distance,
		DurationSeconds: r.Duration,
	}, nil
}
