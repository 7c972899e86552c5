// Package nominatim is a ports.Geocoder backed by a Nominatim server.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bluele/gcache"

	"github.com/samirrijal/stationmap/internal/core/domain"
	"github.com/samirrijal/stationmap/internal/pkg/metrics"
)

const (
	searchLimit = 5
	cacheTTL    = 24 * time.Hour
)

// Options configures a Client.
type Options struct {
	BaseURL   string
	UserAgent string
	Language  string
	Timeout   time.Duration
	CacheSize int
}

// Client calls the Nominatim search, reverse and lookup endpoints. Answers
// are kept in an in-process LRU since the public server is rate limited.
type Client struct {
	baseURL   string
	userAgent string
	language  string
	http      *http.Client
	cache     gcache.Cache
}

// New creates a Client.
func New(opts Options) *Client {
	size := opts.CacheSize
	if size <= 0 {
		size = 1000
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		language:  opts.Language,
		http:      &http.Client{Timeout: opts.Timeout},
		cache:     gcache.New(size).LRU().Expiration(cacheTTL).Build(),
	}
}

type place struct {
	OSMType     string `json:"osm_type"`
	OSMID       int64  `json:"osm_id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Address     struct {
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		Country     string `json:"country"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
	Error string `json:"error"`
}

// placeID is the OSM type initial followed by the OSM id, the form /lookup takes.
func (p place) placeID() string {
	if p.OSMType == "" {
		return ""
	}
	return strings.ToUpper(p.OSMType[:1]) + strconv.FormatInt(p.OSMID, 10)
}

func (p place) point() (domain.GeoPoint, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}
	return domain.GeoPoint{Lat: lat, Lon: lon}, nil
}

// ReverseGeocode names the city and country around a point.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (*domain.LocationName, error) {
	key := fmt.Sprintf("reverse:%.3f:%.3f", lat, lon)
	if v, err := c.cache.Get(key); err == nil {
		metrics.CacheHits.WithLabelValues("geocode_reverse").Inc()
		cached := v.(domain.LocationName)
		return &cached, nil
	}
	metrics.CacheMisses.WithLabelValues("geocode_reverse").Inc()

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("zoom", "10")
	q.Set("addressdetails", "1")

	var p place
	if err := c.get(ctx, "/reverse", q, &p); err != nil {
		return nil, err
	}
	if p.Error != "" {
		return nil, domain.NotFoundError{Resource: "location name", Err: fmt.Errorf("nominatim: %s", p.Error)}
	}

	name := domain.LocationName{
		City:        firstNonEmpty(p.Address.City, p.Address.Town, p.Address.Village),
		Country:     p.Address.Country,
		CountryCode: strings.ToUpper(p.Address.CountryCode),
	}
	_ = c.cache.Set(key, name)
	return &name, nil
}

// Search returns up to five candidates for free text.
func (c *Client) Search(ctx context.Context, text string) ([]domain.PlaceCandidate, error) {
	key := "search:" + strings.ToLower(text)
	if v, err := c.cache.Get(key); err == nil {
		metrics.CacheHits.WithLabelValues("geocode_search").Inc()
		return slices.Clone(v.([]domain.PlaceCandidate)), nil
	}
	metrics.CacheMisses.WithLabelValues("geocode_search").Inc()

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("q", text)
	q.Set("limit", strconv.Itoa(searchLimit))

	var places []place
	if err := c.get(ctx, "/search", q, &places); err != nil {
		return nil, err
	}

	out := make([]domain.PlaceCandidate, 0, len(places))
	for _, p := range places {
		id := p.placeID()
		if id == "" {
			continue
		}
		out = append(out, domain.PlaceCandidate{PlaceID: id, Description: p.DisplayName})
	}
	_ = c.cache.Set(key, slices.Clone(out))
	return out, nil
}

// Details resolves a place id returned by Search.
func (c *Client) Details(ctx context.Context, placeID string) (*domain.Place, error) {
	key := "details:" + placeID
	if v, err := c.cache.Get(key); err == nil {
		metrics.CacheHits.WithLabelValues("geocode_details").Inc()
		cached := v.(domain.Place)
		return &cached, nil
	}
	metrics.CacheMisses.WithLabelValues("geocode_details").Inc()

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("osm_ids", placeID)

	var places []place
	if err := c.get(ctx, "/lookup", q, &places); err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, domain.NotFoundError{Resource: "place " + placeID}
	}

	p := places[0]
	pt, err := p.point()
	if err != nil {
		return nil, domain.NetworkError{Op: "nominatim lookup", Err: err}
	}
	out := domain.Place{
		PlaceID:  placeID,
		Name:     firstNonEmpty(p.Name, p.DisplayName),
		Location: pt,
	}
	_ = c.cache.Set(key, out)
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.language != "" {
		req.Header.Set("Accept-Language", c.language)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.NetworkError{Op: "nominatim " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.NetworkError{Op: "nominatim " + path, Err: fmt.Errorf("status %d: %s", resp.StatusCode, body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NetworkError{Op: "nominatim " + path, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
