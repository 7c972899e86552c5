package http

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/stationmap/internal/core/domain"
)

// queryFloat reads a required float query parameter.
func queryFloat(c *fiber.Ctx, name string) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return v, nil
}

// queryPoint reads a lat/lon pair from two query parameters.
func queryPoint(c *fiber.Ctx, latName, lonName string) (domain.GeoPoint, error) {
	lat, err := queryFloat(c, latName)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	lon, err := queryFloat(c, lonName)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	return domain.GeoPoint{Lat: lat, Lon: lon}, nil
}

// queryRegion reads a viewport from lat, lon, lat_delta and lon_delta.
func queryRegion(c *fiber.Ctx) (domain.GeoRegion, error) {
	center, err := queryPoint(c, "lat", "lon")
	if err != nil {
		return domain.GeoRegion{}, err
	}
	latDelta, err := queryFloat(c, "lat_delta")
	if err != nil {
		return domain.GeoRegion{}, err
	}
	lonDelta, err := queryFloat(c, "lon_delta")
	if err != nil {
		return domain.GeoRegion{}, err
	}
	return domain.GeoRegion{
		Latitude:       center.Lat,
		Longitude:      center.Lon,
		LatitudeDelta:  latDelta,
		LongitudeDelta: lonDelta,
	}, nil
}

// ListStationsHandler returns the stations inside a viewport, optionally
// narrowed by a case-insensitive name filter.
func ListStationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		region, err := queryRegion(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		stations, err := deps.Stations.FindInRegion(c.UserContext(), region)
		if err != nil {
			return errFromDomain(c, err)
		}
		visible := domain.NewStationSet(stations...).Filter(c.Query("q")).Sorted()

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 500 {
			limit = 100
		}

		total := len(visible)
		if offset >= total {
			visible = []domain.Station{}
		} else {
			visible = visible[offset:min(offset+limit, total)]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: visible, Pagination: pg})
	}
}

// NearbyStationsHandler returns stations within a radius of a point, nearest first.
func NearbyStationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := queryPoint(c, "lat", "lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		radius := c.QueryFloat("radius", 1000)
		limit := c.QueryInt("limit", 20)

		stations, err := deps.Stations.FindNearPoint(c.UserContext(), p.Lat, p.Lon, radius, limit)
		if err != nil {
			return errFromDomain(c, err)
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(stations)
	}
}

// StationClustersHandler groups the stations of a viewport into map clusters.
func StationClustersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		region, err := queryRegion(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		clusters, err := deps.Stations.Clusters(c.UserContext(), region, c.QueryInt("level", 0))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(clusters)
	}
}

// GetStationHandler returns a station by ID.
func GetStationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil || id <= 0 {
			return errBadRequest(c, "station id must be a positive integer")
		}
		st, err := deps.Stations.GetByID(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(st)
	}
}

// CreateStationHandler stores a user-submitted station.
func CreateStationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in domain.StationInput
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		st, err := deps.Stations.Submit(c.UserContext(), UserID(c), in)
		if err != nil {
			return errFromDomain(c, err)
		}

		c.Location(fmt.Sprintf("/v1/stations/%d", st.ID))
		return c.Status(fiber.StatusCreated).JSON(st)
	}
}

// SearchPlacesHandler autocompletes a free-text destination.
func SearchPlacesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := strings.TrimSpace(c.Query("q"))
		if q == "" {
			return errBadRequest(c, "q query parameter is required")
		}
		if len(q) > 200 {
			return errBadRequest(c, "query too long (max 200 characters)")
		}

		candidates, err := deps.Places.Search(c.UserContext(), q)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(candidates)
	}
}

// GetPlaceHandler resolves a place candidate to coordinates.
func GetPlaceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		place, err := deps.Places.Details(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(place)
	}
}

// ReverseGeocodeHandler names the city and country around a point.
func ReverseGeocodeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := queryPoint(c, "lat", "lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if !p.Valid() {
			return errBadRequest(c, "lat/lon out of range")
		}

		name := deps.Places.ReverseGeocode(c.UserContext(), p.Lat, p.Lon)
		if name == nil {
			return errNotFound(c, "location name unavailable")
		}
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(name)
	}
}

// RouteHandler plans a driving route and returns its map overlay.
func RouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, err := queryPoint(c, "from_lat", "from_lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		to, err := queryPoint(c, "to_lat", "to_lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		overlay, err := deps.Trips.Plan(c.UserContext(), from, to)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(overlay)
	}
}
