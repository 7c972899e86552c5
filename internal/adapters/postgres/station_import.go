package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/stationmap/internal/core/domain"
)

// ImportBatchSize is the number of upserts sent per round trip.
const ImportBatchSize = 500

// ImportRow is one station of an external catalogue.
type ImportRow struct {
	ExternalID string
	Station    domain.StationInput
}

// UpsertImported inserts or refreshes catalogue stations keyed by
// (source, external_id) and returns how many rows were written.
// User submissions (source NULL) are never touched.
func (r *StationRepo) UpsertImported(ctx context.Context, source string, rows []ImportRow) (int, error) {
	written := 0
	for start := 0; start < len(rows); start += ImportBatchSize {
		chunk := rows[start:min(start+ImportBatchSize, len(rows))]

		batch := &pgx.Batch{}
		for _, row := range chunk {
			in := row.Station
			batch.Queue(`
				INSERT INTO stations (name, location, price, address, fuel_type, source, external_id)
				VALUES ($1, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8)
				ON CONFLICT (source, external_id) WHERE source IS NOT NULL DO UPDATE
				SET name = EXCLUDED.name, location = EXCLUDED.location,
				    price = EXCLUDED.price, address = EXCLUDED.address,
				    fuel_type = EXCLUDED.fuel_type, updated_at = now()
			`, in.Name, in.Location.Lon, in.Location.Lat, in.Price, in.Address, in.FuelType, source, row.ExternalID)
		}

		if err := r.flush(ctx, batch, len(chunk)); err != nil {
			return written, domain.NetworkError{Op: fmt.Sprintf("upsert %s stations", source), Err: err}
		}
		written += len(chunk)
	}
	return written, nil
}

func (r *StationRepo) flush(ctx context.Context, batch *pgx.Batch, count int) error {
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < count; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch item %d: %w", i, err)
		}
	}
	return nil
}
