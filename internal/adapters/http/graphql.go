package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

// buildSchema creates the read-only GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	caregiverType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Caregiver",
		Fields: graphql.Fields{
			"id":    &graphql.Field{Type: graphql.String},
			"name":  &graphql.Field{Type: graphql.String},
			"email": &graphql.Field{Type: graphql.String},
			"phone": &graphql.Field{Type: graphql.String},
			"role":  &graphql.Field{Type: graphql.String},
		},
	})

	patientType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Patient",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.String},
			"name":      &graphql.Field{Type: graphql.String},
			"address":   &graphql.Field{Type: graphql.String},
			"condition": &graphql.Field{Type: graphql.String},
		},
	})

	deviceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Device",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"device_id":  &graphql.Field{Type: graphql.String},
			"label":      &graphql.Field{Type: graphql.String},
			"stream_url": &graphql.Field{Type: graphql.String},
			"active":     &graphql.Field{Type: graphql.Boolean},
		},
	})

	trackingType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TrackingState",
		Fields: graphql.Fields{
			"subject_id":      &graphql.Field{Type: graphql.String},
			"distance_meters": &graphql.Field{Type: graphql.Float},
			"connectivity":    &graphql.Field{Type: graphql.String},
			"coordinates":     &graphql.Field{Type: geoPointType},
			"updated_at":      &graphql.Field{Type: graphql.String},
		},
	})

	distanceEntryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "DistanceLogEntry",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"subject_id": &graphql.Field{Type: graphql.String},
			"meters":     &graphql.Field{Type: graphql.Float},
			"location":   &graphql.Field{Type: geoPointType},
			"time":       &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"caregivers": &graphql.Field{
				Type:        graphql.NewList(caregiverType),
				Description: "List all caregivers",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Caregivers.List(p.Context)
				},
			},
			"patients": &graphql.Field{
				Type:        graphql.NewList(patientType),
				Description: "List all patients",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Patients.List(p.Context)
				},
			},
			"patient": &graphql.Field{
				Type:        patientType,
				Description: "Get a patient by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Patients.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"devices": &graphql.Field{
				Type:        graphql.NewList(deviceType),
				Description: "List all registered bracelets",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Devices.List(p.Context)
				},
			},
			"tracking": &graphql.Field{
				Type:        trackingType,
				Description: "Live tracked-subject state",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Tracking == nil {
						return nil, nil
					}
					state := deps.Tracking.State()
					m := map[string]interface{}{
						"subject_id":      state.SubjectID,
						"distance_meters": deps.Tracking.GetDistanceOrDefault(),
						"connectivity":    string(state.Connectivity),
						"updated_at":      state.UpdatedAt.Format(time.RFC3339),
					}
					if state.Coordinates != nil {
						m["coordinates"] = *state.Coordinates
					}
					return m, nil
				},
			},
			"distanceLog": &graphql.Field{
				Type:        graphql.NewList(distanceEntryType),
				Description: "Recent distance history for a subject",
				Args: graphql.FieldConfigArgument{
					"subject_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"hours":      &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 24},
					"limit":      &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 200},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.DistanceLog == nil {
						return nil, nil
					}
					subjectID := p.Args["subject_id"].(string)
					hours := p.Args["hours"].(int)
					limit := p.Args["limit"].(int)
					to := time.Now()
					from := to.Add(-time.Duration(hours) * time.Hour)
					entries, err := deps.DistanceLog.ListBySubject(p.Context, subjectID, from, to, limit)
					if err != nil {
						return nil, err
					}
					var result []map[string]interface{}
					for _, e := range entries {
						m := map[string]interface{}{
							"id":         e.ID,
							"subject_id": e.SubjectID,
							"meters":     e.Meters,
							"time":       e.Time.Format(time.RFC3339),
						}
						if e.Location != nil {
							m["location"] = *e.Location
						}
						result = append(result, m)
					}
					return result, nil
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
