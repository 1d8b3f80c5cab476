package datosgov

import (
	"fmt"
	"strings"

	"github.com/timzifer/colint/config"
)

const (
	defaultTRMEndpoint   = "https://www.datos.gov.co/resource/32sa-8pi3.json"
	defaultSECOPEndpoint = "https://www.datos.gov.co/resource/jbjy-vk9h.json"
	defaultTRMFallback   = "4150"
	defaultSECOPLimit    = 8
	defaultObjectLength  = 80
)

// MarketRow is a static quote listed under the exchange rate.
type MarketRow struct {
	Name     string `yaml:"name"`
	Price    string `yaml:"price"`
	Change   string `yaml:"change"`
	Positive bool   `yaml:"positive"`
}

var defaultMarkets = []MarketRow{
	{Name: "BVC COLCAP", Price: "1,248.50", Change: "+0.65%", Positive: true},
	{Name: "EUR/COP", Price: "4,520.30", Change: "-0.12%"},
	{Name: "ECOPETROL", Price: "2,180", Change: "-1.25%"},
}

// TRMSettings configures the exchange rate panel.
type TRMSettings struct {
	Label    string      `yaml:"label,omitempty"`
	Fallback string      `yaml:"fallback,omitempty"`
	Change   string      `yaml:"change,omitempty"`
	Markets  []MarketRow `yaml:"markets,omitempty"`
}

// SECOPSettings configures the procurement panel.
type SECOPSettings struct {
	Limit        int    `yaml:"limit,omitempty"`
	ObjectLength int    `yaml:"object_length,omitempty"`
	Where        string `yaml:"where,omitempty"`
}

func parseTRMSettings(cfg config.SourceConfig) (TRMSettings, error) {
	settings := TRMSettings{Markets: defaultMarkets}
	if err := cfg.DecodeSettings(&settings); err != nil {
		return TRMSettings{}, err
	}
	if settings.Label == "" {
		settings.Label = "USD/COP (TRM)"
	}
	if settings.Fallback == "" {
		settings.Fallback = defaultTRMFallback
	}
	if settings.Change == "" {
		settings.Change = "+0.18%"
	}
	for i, market := range settings.Markets {
		if strings.TrimSpace(market.Name) == "" {
			return TRMSettings{}, fmt.Errorf("source %s: market %d has no name", cfg.ID, i)
		}
	}
	return settings, nil
}

func parseSECOPSettings(cfg config.SourceConfig) (SECOPSettings, error) {
	var settings SECOPSettings
	if err := cfg.DecodeSettings(&settings); err != nil {
		return SECOPSettings{}, err
	}
	if settings.Limit < 0 || settings.ObjectLength < 0 {
		return SECOPSettings{}, fmt.Errorf("source %s: limit and object_length must not be negative", cfg.ID)
	}
	if settings.Limit == 0 {
		settings.Limit = defaultSECOPLimit
	}
	if settings.ObjectLength == 0 {
		settings.ObjectLength = defaultObjectLength
	}
	return settings, nil
}
