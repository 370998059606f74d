package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const WeatherToolName = "getCurrentWeather"

type WeatherInput struct {
	Location string `json:"location" jsonschema:"required" jsonschema_description:"The city to look up such as Beijing or Shanghai"`
	Unit     string `json:"unit,omitempty" jsonschema:"enum=celsius,enum=fahrenheit" jsonschema_description:"Temperature unit (default celsius)"`
}

// WeatherReport field order is the payload order the model sees.
type WeatherReport struct {
	Location    string `json:"location"`
	Temperature string `json:"temperature"`
	Unit        string `json:"unit"`
	Forecast    string `json:"forecast"`
}

// Weather returns the demo weather tool. It answers from a fixed table; no
// weather service is called.
func Weather() Spec {
	return Spec{
		Name:        WeatherToolName,
		Description: "Get the current weather in a given location",
		Parameters:  SchemaFor[WeatherInput](),
		Handler:     currentWeather,
	}
}

func currentWeather(_ context.Context, args map[string]any) (string, error) {
	in, err := DecodeArgs[WeatherInput](args)
	if err != nil {
		return "", err
	}
	if in.Location == "" {
		return "", fmt.Errorf("location is required")
	}
	unit := in.Unit
	if unit == "" {
		unit = "celsius"
	}

	report := WeatherReport{Location: in.Location, Temperature: "unknown", Unit: unit, Forecast: "unknown"}
	loc := strings.ToLower(in.Location)
	switch {
	case strings.Contains(loc, "beijing") || strings.Contains(loc, "北京"):
		report = WeatherReport{Location: "Beijing", Temperature: "10", Unit: unit, Forecast: "sunny"}
	case strings.Contains(loc, "shanghai") || strings.Contains(loc, "上海"):
		report = WeatherReport{Location: "Shanghai", Temperature: "12", Unit: unit, Forecast: "cloudy"}
	}

	b, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("encoding weather report: %w", err)
	}
	return string(b), nil
}

// DecodeArgs converts a decoded argument payload into a typed input struct.
func DecodeArgs[T any](args map[string]any) (T, error) {
	var out T
	if args == nil {
		return out, nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return out, fmt.Errorf("encoding arguments: %w", err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("decoding arguments: %w", err)
	}
	return out, nil
}
