package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/stationmap/internal/pkg/config"
	"github.com/samirrijal/stationmap/internal/pkg/logging"
)

var (
	upFiles = []string{
		"migrations/001_init_extensions.sql",
		"migrations/002_stations.sql",
		"migrations/003_station_sources.sql",
	}
	downFiles = []string{
		"migrations/003_station_sources.down.sql",
		"migrations/002_stations.down.sql",
	}
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}

	cfg, err := config.Load("stationmap-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, "stationmap-migrate")

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	switch os.Args[1] {
	case "up":
		run(ctx, pool, upFiles)
	case "down":
		run(ctx, pool, downFiles)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

func run(ctx context.Context, pool *pgxpool.Pool, files []string) {
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}

		if _, err := pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}

		slog.Info("migration applied", "file", f)
	}

	slog.Info("all migrations applied", "count", len(files))
}
