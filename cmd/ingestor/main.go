// Command ingestor bulk-loads station catalogues listed in a manifest.
//
//	ingestor [manifest.json] [source,source...]
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/samirrijal/stationmap/internal/adapters/postgres"
	"github.com/samirrijal/stationmap/internal/pkg/config"
	"github.com/samirrijal/stationmap/internal/pkg/logging"
)

const service = "stationmap-ingestor"

// Manifest lists the catalogues to import.
type Manifest struct {
	Sources []SourceEntry `json:"sources"`
}

// SourceEntry is one catalogue, fetched from URL or read from Path.
// Zip archives are accepted; their first CSV member is imported.
type SourceEntry struct {
	Name     string `json:"name"`
	URL      string `json:"url,omitempty"`
	Path     string `json:"path,omitempty"`
	FuelType string `json:"fuel_type,omitempty"`
}

func main() {
	cfg, err := config.Load(service)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, service)

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	repo := postgres.NewStationRepo(db)

	manifestPath := "manifest.json"
	if len(os.Args) > 1 {
		manifestPath = os.Args[1]
	}
	manifest, err := loadManifest(manifestPath)
	if err != nil {
		log.Fatalf("manifest: %v", err)
	}

	// Optional CLI arg: comma-separated source names
	only := map[string]bool{}
	if len(os.Args) > 2 {
		for _, s := range strings.Split(os.Args[2], ",") {
			only[strings.TrimSpace(s)] = true
		}
	}

	slog.Info("station import starting", "sources", len(manifest.Sources), "manifest", manifestPath)

	client := &http.Client{Timeout: 120 * time.Second}

	var wg sync.WaitGroup
	sem := make(chan struct{}, 4) // max 4 concurrent downloads

	for _, src := range manifest.Sources {
		if len(only) > 0 && !only[src.Name] {
			continue
		}

		wg.Add(1)
		go func(s SourceEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ingestSource(ctx, repo, client, s); err != nil {
				slog.Error("import failed", "source", s.Name, "error", err)
			}
		}(src)
	}

	wg.Wait()
	slog.Info("station import complete")
}

func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, s := range m.Sources {
		if s.Name == "" || (s.URL == "") == (s.Path == "") {
			return nil, fmt.Errorf("source %d: needs a name and exactly one of url or path", i)
		}
	}
	return &m, nil
}

func ingestSource(ctx context.Context, repo *postgres.StationRepo, client *http.Client, src SourceEntry) error {
	start := time.Now()
	data, err := fetch(ctx, client, src)
	if err != nil {
		return err
	}

	var r io.Reader = bytes.NewReader(data)
	if isZip(data) {
		rc, err := openCSV(data)
		if err != nil {
			return err
		}
		defer rc.Close()
		r = rc
	}

	rows, skipped, err := parseCatalogue(r, src.FuelType)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	written, err := repo.UpsertImported(ctx, src.Name, rows)
	if err != nil {
		return fmt.Errorf("store after %d rows: %w", written, err)
	}

	slog.Info("source imported",
		"source", src.Name,
		"stations", written,
		"skipped", skipped,
		"duration", time.Since(start).String(),
	)
	return nil
}

func fetch(ctx context.Context, client *http.Client, src SourceEntry) ([]byte, error) {
	if src.Path != "" {
		return os.ReadFile(src.Path)
	}

	slog.Info("downloading catalogue", "source", src.Name, "url", src.URL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, src.URL)
	}
	return io.ReadAll(resp.Body)
}

func isZip(data []byte) bool {
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}
