package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/ericnem/passepartout/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	messageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Message",
		Fields: graphql.Fields{
			"role":    &graphql.Field{Type: graphql.String},
			"content": &graphql.Field{Type: graphql.String},
		},
	})

	waypointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Waypoint",
		Fields: graphql.Fields{
			"name":               &graphql.Field{Type: graphql.String},
			"location":           &graphql.Field{Type: geoPointType},
			"script":             &graphql.Field{Type: graphql.String},
			"duration_from_prev": &graphql.Field{Type: graphql.Float},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"id":                         &graphql.Field{Type: graphql.String},
			"waypoints":                  &graphql.Field{Type: graphql.NewList(waypointType)},
			"path":                       &graphql.Field{Type: graphql.NewList(geoPointType)},
			"total_distance_km":          &graphql.Field{Type: graphql.Float},
			"estimated_duration_minutes": &graphql.Field{Type: graphql.Float},
		},
	})

	tripInfoType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TripInfo",
		Fields: graphql.Fields{
			"total_distance_km":          &graphql.Field{Type: graphql.Float},
			"estimated_duration_minutes": &graphql.Field{Type: graphql.Float},
			"estimated_arrival":          &graphql.Field{Type: graphql.String},
			"estimated_energy_kcal":      &graphql.Field{Type: graphql.Int},
		},
	})

	weatherType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Weather",
		Fields: graphql.Fields{
			"name":         &graphql.Field{Type: graphql.String},
			"temp_c":       &graphql.Field{Type: graphql.Float},
			"feels_like_c": &graphql.Field{Type: graphql.Float},
			"description":  &graphql.Field{Type: graphql.String},
			"icon":         &graphql.Field{Type: graphql.String},
			"humidity":     &graphql.Field{Type: graphql.Int},
			"wind_speed":   &graphql.Field{Type: graphql.Float},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"position":      &graphql.Field{Type: geoPointType},
			"route":         &graphql.Field{Type: routeType},
			"transcript":    &graphql.Field{Type: graphql.NewList(messageType)},
			"audio_enabled": &graphql.Field{Type: graphql.Boolean},
			"roam_enabled":  &graphql.Field{Type: graphql.Boolean},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "Get a session snapshot by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					s, err := deps.Sessions.Get(id)
					if err != nil {
						return nil, err
					}
					return s.Snapshot(), nil
				},
			},
			"trip": &graphql.Field{
				Type:        tripInfoType,
				Description: "Derived metrics for a session's active route",
				Args: graphql.FieldConfigArgument{
					"session_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["session_id"].(string)
					s, err := deps.Sessions.Get(id)
					if err != nil {
						return nil, err
					}
					return s.Trip(time.Now())
				},
			},
			"transcript": &graphql.Field{
				Type:        graphql.NewList(messageType),
				Description: "Conversation transcript for a session",
				Args: graphql.FieldConfigArgument{
					"session_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["session_id"].(string)
					s, err := deps.Sessions.Get(id)
					if err != nil {
						return nil, err
					}
					return s.Snapshot().Transcript, nil
				},
			},
			"weather": &graphql.Field{
				Type:        weatherType,
				Description: "Current conditions at a coordinate",
				Args: graphql.FieldConfigArgument{
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					return deps.Weather.CurrentAt(p.Context, domain.GeoPoint{Lat: lat, Lon: lon})
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
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
