package sources

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timzifer/colint/config"
)

func TestOutcomeConstructors(t *testing.T) {
	panel := Panel{Title: "Crypto", Rows: []Row{{Title: "BTC", Value: "$65,000"}}}

	ok := Success(panel)
	require.True(t, ok.OK)
	require.False(t, ok.Mock)
	require.Equal(t, panel, ok.Content)

	mock := MockSuccess(panel)
	require.True(t, mock.OK)
	require.True(t, mock.Mock)

	failed := Failure("", fmt.Errorf("coingecko: %w", ErrEmpty))
	require.False(t, failed.OK)
	require.ErrorIs(t, failed.Err, ErrEmpty)
	require.Equal(t, "coingecko: no data", failed.Reason)

	require.Equal(t, "Error Feed", Failure("Error Feed", ErrNetwork).Reason)
}

func TestNewBaseDefaultsCadence(t *testing.T) {
	base := NewBase(config.SourceConfig{ID: "noticias"})
	require.Equal(t, "noticias", base.ID())
	require.Equal(t, config.CadenceGlobal, base.Cadence())

	base = NewBase(config.SourceConfig{ID: "crypto", Cadence: config.CadenceFast})
	require.Equal(t, config.CadenceFast, base.Cadence())
}

func TestPanelTitle(t *testing.T) {
	require.Equal(t, "Sismos", PanelTitle(config.SourceConfig{Name: "Sismos"}, "USGS"))
	require.Equal(t, "USGS", PanelTitle(config.SourceConfig{}, "USGS"))
}

func TestDependenciesDefaults(t *testing.T) {
	var deps Dependencies
	require.NotNil(t, deps.Client())
	require.NotNil(t, deps.Clock())
}
