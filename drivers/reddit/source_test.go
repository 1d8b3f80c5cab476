package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timzifer/colint/config"
	"github.com/timzifer/colint/runtime/sources"
)

func TestInvokeListsTopPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "10", r.URL.Query().Get("limit"))
		var children []string
		for i := 1; i <= 7; i++ {
			children = append(children, fmt.Sprintf(`{"data":{"title":"Post %d","permalink":"/r/Colombia/comments/%d/","score":%d,"created_utc":1700000000.0}}`, i, i, i*10))
		}
		_, _ = w.Write([]byte(`{"data":{"children":[` + strings.Join(children, ",") + `]}}`))
	}))
	defer srv.Close()

	src, err := NewFactory()(config.SourceConfig{ID: "reddit", Endpoint: srv.URL}, sources.Dependencies{})
	require.NoError(t, err)

	outcome := src.Invoke(context.Background())
	require.True(t, outcome.OK, outcome.Reason)
	rows := outcome.Content.Rows
	require.Len(t, rows, 5)
	require.Equal(t, "Post 1", rows[0].Title)
	require.Equal(t, "https://reddit.com/r/Colombia/comments/1/", rows[0].Link)
	require.Equal(t, "↑10", rows[0].Value)
	require.Equal(t, "r/Colombia", rows[0].Detail)
	require.Equal(t, int64(1700000000), rows[0].Time.Unix())
}

func TestInvokeEmptyListingFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"children":[]}}`))
	}))
	defer srv.Close()

	src, err := NewFactory()(config.SourceConfig{ID: "reddit", Endpoint: srv.URL}, sources.Dependencies{})
	require.NoError(t, err)
	outcome := src.Invoke(context.Background())
	require.False(t, outcome.OK)
	require.ErrorIs(t, outcome.Err, sources.ErrEmpty)
}
