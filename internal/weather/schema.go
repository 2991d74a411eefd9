// file: internal/weather/schema.go
package weather

import (
	gschema "github.com/google/jsonschema-go/jsonschema"
	"github.com/marekdano/weather-mcp-server/internal/schema"
)

// responseSchemaName is the name the provider schema is compiled under.
const responseSchemaName = "openweathermap.current"

// ResponseSchema describes the subset of the OpenWeatherMap current-weather
// payload the client depends on.
func ResponseSchema() *gschema.Schema {
	return schema.Object(map[string]*gschema.Schema{
		"coord": schema.Object(map[string]*gschema.Schema{
			"lon": schema.Number("Longitude."),
			"lat": schema.Number("Latitude."),
		}, "lon", "lat"),
		"weather": schema.NonEmptyArray(schema.Object(map[string]*gschema.Schema{
			"id":          schema.Number("Condition id."),
			"main":        schema.String("Condition group."),
			"description": schema.String("Condition description."),
			"icon":        schema.String("Icon id."),
		}, "id", "main", "description", "icon")),
		"main": schema.Object(map[string]*gschema.Schema{
			"temp":       schema.Number("Temperature in Celsius."),
			"feels_like": schema.Number("Perceived temperature in Celsius."),
			"humidity":   schema.Number("Humidity in percent."),
		}, "temp", "feels_like", "humidity"),
		"name": schema.String("City name."),
	}, "coord", "weather", "main", "name")
}

// apiResponse mirrors ResponseSchema for decoding after validation.
type apiResponse struct {
	Coord struct {
		Lon float64 `json:"lon"`
		Lat float64 `json:"lat"`
	} `json:"coord"`
	Weather []struct {
		ID          float64 `json:"id"`
		Main        string  `json:"main"`
		Description string  `json:"description"`
		Icon        string  `json:"icon"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Name string `json:"name"`
}
