package bundle

import (
	"github.com/timzifer/colint/drivers/coingecko"
	"github.com/timzifer/colint/drivers/datosgov"
	"github.com/timzifer/colint/drivers/opensky"
	"github.com/timzifer/colint/drivers/reddit"
	"github.com/timzifer/colint/drivers/rss"
	"github.com/timzifer/colint/drivers/static"
	"github.com/timzifer/colint/drivers/usgs"
	"github.com/timzifer/colint/service"
)

// Driver names accepted in the sources[].driver field.
const (
	CoinGeckoDriver = "coingecko"
	TRMDriver       = "trm"
	SECOPDriver     = "secop"
	OpenSkyDriver   = "opensky"
	USGSDriver      = "usgs"
	RSSDriver       = "rss"
	RedditDriver    = "reddit"
	StaticDriver    = "static"
)

// Options returns service options that register the bundled drivers.
func Options() []service.Option {
	opts := WithLive()
	return append(opts, WithStatic())
}

// WithLive registers only the drivers that call upstream services.
func WithLive() []service.Option {
	return []service.Option{
		service.WithSourceFactory(CoinGeckoDriver, coingecko.NewFactory()),
		service.WithSourceFactory(TRMDriver, datosgov.NewTRMFactory()),
		service.WithSourceFactory(SECOPDriver, datosgov.NewSECOPFactory()),
		service.WithSourceFactory(OpenSkyDriver, opensky.NewFactory()),
		service.WithSourceFactory(USGSDriver, usgs.NewFactory()),
		service.WithSourceFactory(RSSDriver, rss.NewFactory()),
		service.WithSourceFactory(RedditDriver, reddit.NewFactory()),
	}
}

// WithStatic registers the mock panel driver.
func WithStatic() service.Option {
	return service.WithSourceFactory(StaticDriver, static.NewFactory())
}

// Drivers lists the registered driver names in a stable order.
func Drivers() []string {
	return []string{CoinGeckoDriver, TRMDriver, SECOPDriver, OpenSkyDriver, USGSDriver, RSSDriver, RedditDriver, StaticDriver}
}
