package http

import (
	natsadapter "github.com/samirrijal/stationmap/internal/adapters/nats"
	"github.com/samirrijal/stationmap/internal/adapters/postgres"
	"github.com/samirrijal/stationmap/internal/adapters/valkey"
	"github.com/samirrijal/stationmap/internal/core/session"
	"github.com/samirrijal/stationmap/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
// Infrastructure handles are only used by the readiness probe and may be nil.
type Dependencies struct {
	Stations  *usecases.StationService
	Places    *usecases.PlaceService
	Trips     *usecases.TripService
	Sessions  *session.Manager
	Auth      *Authenticator
	DB        *postgres.DB
	Cache     *valkey.Cache
	Publisher *natsadapter.Publisher
}
