package bundle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/colint/config"
	"github.com/timzifer/colint/service"
)

func TestShippedConfigurationBuilds(t *testing.T) {
	cfg, err := config.Load("../../configs/colint.yaml")
	require.NoError(t, err)

	srv, err := service.New(cfg, zerolog.Nop(), Options()...)
	require.NoError(t, err)
	defer srv.Close()

	ids := make(map[string]config.SourceConfig)
	for _, src := range srv.Sources() {
		ids[src.ID] = src
	}
	for _, id := range []string{
		"crypto", "mercados", "noticias", "secop", "vuelos", "sismos", "reddit",
		"commodities", "deportes", "futbolint", "cuentas", "regalias", "contraloria",
		"twitter", "alertas", "mineria", "conflictos", "congreso", "sigep", "elecciones",
		"encuestas", "sanciones", "frontera", "emergencias", "clima", "personaje", "telegram",
	} {
		require.Contains(t, ids, id)
	}
	require.Equal(t, config.CadenceFast, ids["crypto"].Cadence)
	require.Equal(t, config.CadenceMedium, ids["vuelos"].Cadence)
	require.Equal(t, "mock-panels", ids["alertas"].Source.Name)
	require.True(t, strings.HasSuffix(ids["alertas"].Source.File, "seguridad.yaml"))

	intervals := srv.Intervals()
	require.Len(t, intervals, 3)
	require.Equal(t, 1, intervals[1].Sources)
	require.Equal(t, 1, intervals[2].Sources)
}

// TestShippedConfigurationFullPass runs one full pass over the shipped
// configuration. The RSS proxy answers with one fresh headline; every other
// upstream is down.
func TestShippedConfigurationFullPass(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rss" {
			http.Error(w, "upstream down", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","items":[{"title":"Titular de ` +
			r.URL.Query().Get("rss_url") + `","link":"https://example.com/n","pubDate":"` +
			time.Now().UTC().Format("2006-01-02 15:04:05") + `"}]}`))
	}))
	defer proxy.Close()

	cfg, err := config.Load("../../configs/colint.yaml")
	require.NoError(t, err)
	mock, rss := 0, 0
	for i := range cfg.Sources {
		src := &cfg.Sources[i]
		switch src.Driver {
		case StaticDriver, OpenSkyDriver:
			// OpenSky serves its configured fallback flights when the upstream is down.
			mock++
			src.Endpoint = proxy.URL + "/" + src.ID
		case RSSDriver:
			rss++
			src.Endpoint = proxy.URL + "/rss"
		default:
			src.Endpoint = proxy.URL + "/" + src.ID
		}
	}

	srv, err := service.New(cfg, zerolog.Nop(), Options()...)
	require.NoError(t, err)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	tally := srv.RunFullPass(ctx)
	require.Equal(t, len(cfg.Sources), tally.Total)
	require.Equal(t, mock+rss, tally.Active)
	require.Equal(t, rss, tally.Live)
	require.Equal(t, tally, srv.Health())

	commodities, ok := srv.Panel("commodities")
	require.True(t, ok)
	require.Equal(t, service.PanelMock, commodities.Status)
	require.NotEmpty(t, commodities.Content.Rows)
	first := commodities.Content.Rows[0]
	require.Equal(t, "Petróleo Brent", first.Title)
	require.Equal(t, "$73.85", first.Value)
	require.Equal(t, "-0.95%", first.Change)

	noticias, ok := srv.Panel("noticias")
	require.True(t, ok)
	require.Equal(t, service.PanelOK, noticias.Status)
	require.Len(t, noticias.Content.Rows, 2)
	titles := noticias.Content.Rows[0].Title + " " + noticias.Content.Rows[1].Title
	require.Contains(t, titles, "eltiempo.com")
	require.Contains(t, titles, "semana.com")

	vuelos, ok := srv.Panel("vuelos")
	require.True(t, ok)
	require.Equal(t, service.PanelMock, vuelos.Status)

	crypto, ok := srv.Panel("crypto")
	require.True(t, ok)
	require.Equal(t, service.PanelError, crypto.Status)
	require.NotEmpty(t, crypto.Reason)
}

func TestLiveOptionsRejectStaticDriver(t *testing.T) {
	cfg := &config.Config{Sources: []config.SourceConfig{{ID: "clima", Driver: StaticDriver}}}
	err := service.Validate(cfg, zerolog.Nop(), WithLive()...)
	require.ErrorContains(t, err, "no source factory registered for driver static")
}

func TestDriversMatchOptions(t *testing.T) {
	require.Len(t, Drivers(), len(Options()))
}
