package coingecko

import (
	"fmt"
	"strings"

	"github.com/timzifer/colint/config"
)

const defaultEndpoint = "https://api.coingecko.com/api/v3/simple/price"

var (
	defaultCoins = []string{
		"bitcoin", "ethereum", "solana", "dogecoin", "cardano",
		"avalanche-2", "official-trump", "shiba-inu", "pepe", "bonk",
	}
	defaultTicker  = []string{"bitcoin", "ethereum", "solana"}
	defaultSymbols = map[string]string{
		"bitcoin":        "BTC",
		"ethereum":       "ETH",
		"solana":         "SOL",
		"dogecoin":       "DOGE",
		"cardano":        "ADA",
		"avalanche-2":    "AVAX",
		"official-trump": "TRUMP",
		"shiba-inu":      "SHIB",
	}
)

// Settings describes the configuration accepted via driver_settings.
type Settings struct {
	Coins      []string          `yaml:"coins,omitempty"`
	VsCurrency string            `yaml:"vs_currency,omitempty"`
	Ticker     []string          `yaml:"ticker,omitempty"`
	Symbols    map[string]string `yaml:"symbols,omitempty"`
}

func parseSettings(cfg config.SourceConfig) (Settings, error) {
	var settings Settings
	if err := cfg.DecodeSettings(&settings); err != nil {
		return Settings{}, err
	}
	if len(settings.Coins) == 0 {
		settings.Coins = append([]string(nil), defaultCoins...)
	}
	if settings.VsCurrency == "" {
		settings.VsCurrency = "usd"
	}
	settings.VsCurrency = strings.ToLower(settings.VsCurrency)
	if settings.Ticker == nil {
		settings.Ticker = append([]string(nil), defaultTicker...)
	}
	symbols := make(map[string]string, len(defaultSymbols)+len(settings.Symbols))
	for id, symbol := range defaultSymbols {
		symbols[id] = symbol
	}
	for id, symbol := range settings.Symbols {
		symbols[id] = symbol
	}
	settings.Symbols = symbols
	for _, coin := range settings.Coins {
		if strings.TrimSpace(coin) == "" {
			return Settings{}, fmt.Errorf("source %s: empty coin id", cfg.ID)
		}
	}
	return settings, nil
}

func (s Settings) symbol(id string) string {
	if symbol, ok := s.Symbols[id]; ok {
		return symbol
	}
	return strings.ToUpper(id)
}
