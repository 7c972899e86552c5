package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/stationmap/internal/core/domain"
)

const stationColumns = `
	id, name,
	ST_Y(location::geometry) AS lat,
	ST_X(location::geometry) AS lon,
	price, COALESCE(address, ''), COALESCE(fuel_type, ''), created_at`

// StationRepo implements ports.StationRepository with pgx and PostGIS.
type StationRepo struct {
	db *DB
}

// NewStationRepo creates a new StationRepo.
func NewStationRepo(db *DB) *StationRepo {
	return &StationRepo{db: db}
}

// FindInRegion returns stations inside the bounding box using the GiST index.
func (r *StationRepo) FindInRegion(ctx context.Context, b domain.BoundingBox, limit int) ([]domain.Station, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+stationColumns+`
		FROM stations
		WHERE location::geometry && ST_MakeEnvelope($1, $2, $3, $4, 4326)
		ORDER BY id
		LIMIT $5
	`, b.SouthwestLon, b.SouthwestLat, b.NortheastLon, b.NortheastLat, limit)
	if err != nil {
		return nil, domain.NetworkError{Op: "query stations in region", Err: err}
	}
	defer rows.Close()
	return scanStations(rows, false)
}

// FindNearPoint returns stations within radiusMeters using ST_DWithin.
func (r *StationRepo) FindNearPoint(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Station, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+stationColumns+`,
		       ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) AS distance
		FROM stations
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY distance
		LIMIT $4
	`, lon, lat, radiusMeters, limit)
	if err != nil {
		return nil, domain.NetworkError{Op: "query stations near point", Err: err}
	}
	defer rows.Close()
	return scanStations(rows, true)
}

// GetByID returns a station by id.
func (r *StationRepo) GetByID(ctx context.Context, id int64) (*domain.Station, error) {
	var s domain.Station
	err := r.db.Pool.QueryRow(ctx, `
		SELECT `+stationColumns+`
		FROM stations WHERE id = $1
	`, id).Scan(
		&s.ID, &s.Name, &s.Location.Lat, &s.Location.Lon,
		&s.Price, &s.Address, &s.FuelType, &s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFoundError{Resource: fmt.Sprintf("station %d", id), Err: err}
	}
	if err != nil {
		return nil, domain.NetworkError{Op: "get station", Err: err}
	}
	return &s, nil
}

// Insert stores a station and returns it with its generated id.
func (r *StationRepo) Insert(ctx context.Context, in domain.StationInput, submittedBy string) (*domain.Station, error) {
	s := domain.Station{
		Name:     in.Name,
		Location: in.Location,
		Price:    in.Price,
		Address:  in.Address,
		FuelType: in.FuelType,
	}
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO stations (name, location, price, address, fuel_type, submitted_by)
		VALUES ($1, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
		RETURNING id, created_at
	`, in.Name, in.Location.Lon, in.Location.Lat, in.Price, in.Address, in.FuelType, submittedBy,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return nil, domain.NetworkError{Op: "insert station", Err: err}
	}
	return &s, nil
}

func scanStations(rows pgx.Rows, withDistance bool) ([]domain.Station, error) {
	var stations []domain.Station
	for rows.Next() {
		var s domain.Station
		dest := []any{
			&s.ID, &s.Name, &s.Location.Lat, &s.Location.Lon,
			&s.Price, &s.Address, &s.FuelType, &s.CreatedAt,
		}
		var dist float64
		if withDistance {
			dest = append(dest, &dist)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		if withDistance {
			d := dist
			s.Distance = &d
		}
		stations = append(stations, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NetworkError{Op: "read stations", Err: err}
	}
	return stations, nil
}
