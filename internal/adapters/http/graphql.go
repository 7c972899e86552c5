package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/stationmap/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
// Field resolution falls back on the json tags of the domain types.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	stationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Station",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.Int},
			"name":       &graphql.Field{Type: graphql.String},
			"location":   &graphql.Field{Type: geoPointType},
			"price":      &graphql.Field{Type: graphql.Float},
			"address":    &graphql.Field{Type: graphql.String},
			"fuel_type":  &graphql.Field{Type: graphql.String},
			"distance":   &graphql.Field{Type: graphql.Float},
			"created_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	clusterType := graphql.NewObject(graphql.ObjectConfig{
		Name: "StationCluster",
		Fields: graphql.Fields{
			"cell_id": &graphql.Field{Type: graphql.String},
			"level":   &graphql.Field{Type: graphql.Int},
			"center":  &graphql.Field{Type: geoPointType},
			"count":   &graphql.Field{Type: graphql.Int},
		},
	})

	candidateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PlaceCandidate",
		Fields: graphql.Fields{
			"place_id":    &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
		},
	})

	placeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Place",
		Fields: graphql.Fields{
			"place_id": &graphql.Field{Type: graphql.String},
			"name":     &graphql.Field{Type: graphql.String},
			"location": &graphql.Field{Type: geoPointType},
		},
	})

	locationNameType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LocationName",
		Fields: graphql.Fields{
			"city":         &graphql.Field{Type: graphql.String},
			"country":      &graphql.Field{Type: graphql.String},
			"country_code": &graphql.Field{Type: graphql.String},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BoundingBox",
		Fields: graphql.Fields{
			"sw_lon": &graphql.Field{Type: graphql.Float},
			"sw_lat": &graphql.Field{Type: graphql.Float},
			"ne_lon": &graphql.Field{Type: graphql.Float},
			"ne_lat": &graphql.Field{Type: graphql.Float},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteOverlay",
		Fields: graphql.Fields{
			"path": &graphql.Field{
				Type:        graphql.NewList(graphql.NewList(graphql.Float)),
				Description: "Route line as [lon, lat] pairs",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					overlay, ok := p.Source.(*domain.RouteOverlay)
					if !ok || overlay == nil {
						return nil, nil
					}
					out := make([][]float64, len(overlay.Path))
					for i, c := range overlay.Path {
						out[i] = []float64{c[0], c[1]}
					}
					return out, nil
				},
			},
			"bounds":           &graphql.Field{Type: boundsType},
			"distance_meters":  &graphql.Field{Type: graphql.Float},
			"duration_seconds": &graphql.Field{Type: graphql.Float},
			"distance":         &graphql.Field{Type: graphql.String},
			"duration":         &graphql.Field{Type: graphql.String},
		},
	})

	regionArgs := graphql.FieldConfigArgument{
		"lat":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
		"lon":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
		"latDelta": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
		"lonDelta": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
	}
	regionFrom := func(args map[string]interface{}) domain.GeoRegion {
		return domain.GeoRegion{
			Latitude:       args["lat"].(float64),
			Longitude:      args["lon"].(float64),
			LatitudeDelta:  args["latDelta"].(float64),
			LongitudeDelta: args["lonDelta"].(float64),
		}
	}
	withArgs := func(base graphql.FieldConfigArgument, extra graphql.FieldConfigArgument) graphql.FieldConfigArgument {
		out := make(graphql.FieldConfigArgument, len(base)+len(extra))
		for k, v := range base {
			out[k] = v
		}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"stations": &graphql.Field{
				Type:        graphql.NewList(stationType),
				Description: "Stations inside a viewport, optionally filtered by name",
				Args: withArgs(regionArgs, graphql.FieldConfigArgument{
					"q": &graphql.ArgumentConfig{Type: graphql.String},
				}),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					stations, err := deps.Stations.FindInRegion(p.Context, regionFrom(p.Args))
					if err != nil {
						return nil, err
					}
					q, _ := p.Args["q"].(string)
					return domain.NewStationSet(stations...).Filter(q).Sorted(), nil
				},
			},
			"station": &graphql.Field{
				Type:        stationType,
				Description: "Get a station by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Stations.GetByID(p.Context, int64(p.Args["id"].(int)))
				},
			},
			"nearbyStations": &graphql.Field{
				Type:        graphql.NewList(stationType),
				Description: "Stations within a radius of a point, nearest first",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 1000.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Stations.FindNearPoint(p.Context,
						p.Args["lat"].(float64), p.Args["lon"].(float64),
						p.Args["radius"].(float64), p.Args["limit"].(int))
				},
			},
			"clusters": &graphql.Field{
				Type:        graphql.NewList(clusterType),
				Description: "Station clusters for a viewport; level 0 picks one from the viewport size",
				Args: withArgs(regionArgs, graphql.FieldConfigArgument{
					"level": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				}),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Stations.Clusters(p.Context, regionFrom(p.Args), p.Args["level"].(int))
				},
			},
			"places": &graphql.Field{
				Type:        graphql.NewList(candidateType),
				Description: "Autocomplete a destination",
				Args: graphql.FieldConfigArgument{
					"q": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Places.Search(p.Context, p.Args["q"].(string))
				},
			},
			"place": &graphql.Field{
				Type: placeType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Places.Details(p.Context, p.Args["id"].(string))
				},
			},
			"locationName": &graphql.Field{
				Type: locationNameType,
				Args: graphql.FieldConfigArgument{
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					name := deps.Places.ReverseGeocode(p.Context, p.Args["lat"].(float64), p.Args["lon"].(float64))
					if name == nil {
						return nil, nil
					}
					return name, nil
				},
			},
			"route": &graphql.Field{
				Type:        routeType,
				Description: "Plan a driving route between two points",
				Args: graphql.FieldConfigArgument{
					"fromLat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"fromLon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"toLat":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"toLon":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					from := domain.GeoPoint{Lat: p.Args["fromLat"].(float64), Lon: p.Args["fromLon"].(float64)}
					to := domain.GeoPoint{Lat: p.Args["toLat"].(float64), Lon: p.Args["toLon"].(float64)}
					return deps.Trips.Plan(p.Context, from, to)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil || req.Query == "" {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})
		if result.HasErrors() {
			LoggerFromCtx(c.UserContext()).Debug("graphql errors", "count", len(result.Errors))
		}

		return c.JSON(result)
	}
}
