package opensky

import (
	"fmt"

	"github.com/timzifer/colint/config"
)

const (
	defaultEndpoint  = "https://opensky-network.org/api/states/all"
	defaultMaxRows   = 6
	defaultMaxPoints = 15
	metersToFeet     = 3.28
)

// Bounds is the bounding box sent to the states endpoint.
type Bounds struct {
	LatMin float64 `yaml:"lamin"`
	LonMin float64 `yaml:"lomin"`
	LatMax float64 `yaml:"lamax"`
	LonMax float64 `yaml:"lomax"`
}

var colombiaBounds = Bounds{LatMin: -4.5, LonMin: -79.5, LatMax: 13.5, LonMax: -66.5}

// FallbackFlight is a static row shown when no live states are available.
type FallbackFlight struct {
	Callsign string `yaml:"callsign"`
	Info     string `yaml:"info"`
	Altitude string `yaml:"altitude"`
}

var defaultFallback = []FallbackFlight{
	{Callsign: "AVA024", Info: "Avianca", Altitude: "35,000 ft"},
	{Callsign: "FAC1001", Info: "Fuerza Aérea", Altitude: "28,000 ft"},
	{Callsign: "HK-5023", Info: "Privado", Altitude: "42,000 ft"},
}

// Settings describes the configuration accepted via driver_settings.
type Settings struct {
	Bounds    *Bounds          `yaml:"bounds,omitempty"`
	MaxRows   int              `yaml:"max_rows,omitempty"`
	MaxPoints int              `yaml:"max_points,omitempty"`
	Fallback  []FallbackFlight `yaml:"fallback,omitempty"`
}

func parseSettings(cfg config.SourceConfig) (Settings, error) {
	var settings Settings
	if err := cfg.DecodeSettings(&settings); err != nil {
		return Settings{}, err
	}
	if settings.Bounds == nil {
		bounds := colombiaBounds
		settings.Bounds = &bounds
	}
	b := settings.Bounds
	if b.LatMin >= b.LatMax || b.LonMin >= b.LonMax {
		return Settings{}, fmt.Errorf("source %s: bounds must satisfy lamin < lamax and lomin < lomax", cfg.ID)
	}
	if settings.MaxRows < 0 || settings.MaxPoints < 0 {
		return Settings{}, fmt.Errorf("source %s: max_rows and max_points must not be negative", cfg.ID)
	}
	if settings.MaxRows == 0 {
		settings.MaxRows = defaultMaxRows
	}
	if settings.MaxPoints == 0 {
		settings.MaxPoints = defaultMaxPoints
	}
	if len(settings.Fallback) == 0 {
		settings.Fallback = defaultFallback
	}
	return settings, nil
}
