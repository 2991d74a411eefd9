// Package tools declares the tools and resources this server exposes.
// file: internal/tools/tools.go
package tools

import (
	"context"
	"fmt"

	gschema "github.com/google/jsonschema-go/jsonschema"
	"github.com/marekdano/weather-mcp-server/internal/registry"
	"github.com/marekdano/weather-mcp-server/internal/schema"
	"github.com/marekdano/weather-mcp-server/internal/weather"
)

// Names of the declared capabilities.
const (
	AddToolName         = "add"
	WeatherToolName     = "getWeather"
	GreetingName        = "greeting"
	GreetingURITemplate = "greeting://{name}"
)

// WeatherFetcher is the part of weather.Client the getWeather tool needs.
type WeatherFetcher interface {
	FetchWeather(ctx context.Context, city string) (weather.Record, error)
}

// Register declares add, getWeather and the greeting resource on reg.
func Register(reg *registry.Registry, fetcher WeatherFetcher) error {
	if err := reg.RegisterTool(AddTool()); err != nil {
		return err
	}
	if err := reg.RegisterTool(WeatherTool(fetcher)); err != nil {
		return err
	}
	return reg.RegisterResource(GreetingResource())
}

// AddTool sums two numbers.
func AddTool() registry.Tool {
	return registry.Tool{
		Name:        AddToolName,
		Title:       "Addition Tool",
		Description: "Add two numbers",
		InputSchema: schema.Object(map[string]*gschema.Schema{
			"a": schema.Number("First addend."),
			"b": schema.Number("Second addend."),
		}, "a", "b"),
		OutputSchema: schema.Object(map[string]*gschema.Schema{
			"result": schema.Number("Sum of a and b."),
		}, "result"),
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			a, _ := args["a"].(float64)
			b, _ := args["b"].(float64)
			return map[string]float64{"result": a + b}, nil
		},
	}
}

// WeatherTool reports current conditions for a city.
func WeatherTool(fetcher WeatherFetcher) registry.Tool {
	return registry.Tool{
		Name:        WeatherToolName,
		Title:       "city",
		Description: "get weather in a city",
		InputSchema: schema.Object(map[string]*gschema.Schema{
			"city": schema.String("City name, e.g. London."),
		}, "city"),
		OutputSchema: schema.Object(map[string]*gschema.Schema{
			"city":        schema.String("City name as reported by the provider."),
			"temperature": schema.Number("Temperature in Celsius."),
			"description": schema.String("Short description of conditions."),
		}, "city", "temperature", "description"),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			city, _ := args["city"].(string)
			return fetcher.FetchWeather(ctx, city)
		},
	}
}

// GreetingResource renders "Hello, {name}!" for greeting://{name}.
func GreetingResource() registry.Resource {
	return registry.Resource{
		Name:        GreetingName,
		URITemplate: GreetingURITemplate,
		Title:       "Greeting Resource",
		Description: "Dynamic greeting generator",
		MIMEType:    "text/plain",
		Handler: func(_ context.Context, uri string, vars map[string]string) ([]registry.Content, error) {
			return []registry.Content{{
				URI:  uri,
				Text: fmt.Sprintf("Hello, %s!", vars["name"]),
			}}, nil
		},
	}
}
