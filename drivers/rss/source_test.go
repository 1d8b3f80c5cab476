package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/timzifer/colint/config"
	"github.com/timzifer/colint/runtime/sources"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newSource(t *testing.T, endpoint, name, settings string) sources.DataSource {
	t.Helper()
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(settings), &node))
	cfg := config.SourceConfig{ID: "feed", Name: name, Endpoint: endpoint, DriverSettings: *node.Content[0]}
	src, err := NewFactory()(cfg, sources.Dependencies{Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	return src
}

func proxy(t *testing.T, feeds map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := feeds[r.URL.Query().Get("rss_url")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSingleFeedKeepsFirstItems(t *testing.T) {
	var items []string
	for i := 0; i < 7; i++ {
		items = append(items, `{"title":"Titular número `+string(rune('A'+i))+` con un texto largo","link":"https://bbc/`+string(rune('a'+i))+`","pubDate":"2026-03-01 11:30:00"}`)
	}
	srv := proxy(t, map[string]string{
		"https://feeds.bbci.co.uk/news/world/latin_america/rss.xml": `{"status":"ok","items":[` + strings.Join(items, ",") + `]}`,
	})
	src := newSource(t, srv.URL, "Americas", `
feed: https://feeds.bbci.co.uk/news/world/latin_america/rss.xml
title_length: 20
`)

	outcome := src.Invoke(context.Background())
	require.True(t, outcome.OK, outcome.Reason)
	rows := outcome.Content.Rows
	require.Len(t, rows, 5)
	require.Equal(t, "Titular número A con...", rows[0].Title)
	require.Equal(t, "https://bbc/a", rows[0].Link)
	require.Equal(t, "30m", rows[0].Meta)
	require.Empty(t, rows[0].Detail)
	require.Equal(t, "Americas", outcome.Content.Title)
}

func TestSingleFeedNotOKIsNoData(t *testing.T) {
	srv := proxy(t, map[string]string{"https://x/rss": `{"status":"error","message":"blocked","items":[]}`})
	outcome := newSource(t, srv.URL, "", "feed: https://x/rss").Invoke(context.Background())
	require.False(t, outcome.OK)
	require.ErrorIs(t, outcome.Err, sources.ErrEmpty)
	require.Equal(t, "Sin datos", outcome.Reason)
}

func TestSingleFeedEmptyItemsIsNoData(t *testing.T) {
	srv := proxy(t, map[string]string{"https://x/rss": `{"status":"ok","items":[]}`})
	outcome := newSource(t, srv.URL, "", "feed: https://x/rss").Invoke(context.Background())
	require.False(t, outcome.OK)
	require.ErrorIs(t, outcome.Err, sources.ErrEmpty)
}

func TestSingleFeedTransportErrorIsFeedError(t *testing.T) {
	srv := proxy(t, nil)
	outcome := newSource(t, srv.URL, "", "feed: https://x/rss").Invoke(context.Background())
	require.False(t, outcome.OK)
	require.ErrorIs(t, outcome.Err, sources.ErrNetwork)
	require.Equal(t, "Error Feed", outcome.Reason)
}

func TestMergedFeedsSortNewestFirstAndSurviveFailures(t *testing.T) {
	srv := proxy(t, map[string]string{
		"https://eltiempo/rss": `{"status":"ok","items":[
			{"title":"ET viejo","link":"l1","pubDate":"2026-03-01 08:00:00"},
			{"title":"ET nuevo","link":"l2","pubDate":"2026-03-01 11:00:00"}]}`,
		"https://semana/rss": `{"status":"ok","items":[
			{"title":"Semana medio","link":"l3","pubDate":"2026-03-01 10:00:00"}]}`,
	})
	src := newSource(t, srv.URL, "Noticias", `
feeds:
  - {url: "https://eltiempo/rss", source: "El Tiempo"}
  - {url: "https://semana/rss", source: "Semana"}
  - {url: "https://down/rss", source: "Caído"}
empty_reason: Sin noticias
`)

	outcome := src.Invoke(context.Background())
	require.True(t, outcome.OK, outcome.Reason)
	rows := outcome.Content.Rows
	require.Len(t, rows, 3)
	require.Equal(t, "ET nuevo", rows[0].Title)
	require.Equal(t, "El Tiempo", rows[0].Detail)
	require.Equal(t, "Semana medio", rows[1].Title)
	require.Equal(t, "Semana", rows[1].Detail)
	require.Equal(t, "ET viejo", rows[2].Title)
}

func TestMergedFeedsAllFailingIsNoData(t *testing.T) {
	srv := proxy(t, nil)
	src := newSource(t, srv.URL, "Noticias", `
feeds: [{url: "https://a/rss"}, {url: "https://b/rss"}]
empty_reason: Sin noticias
`)
	outcome := src.Invoke(context.Background())
	require.False(t, outcome.OK)
	require.Equal(t, "Sin noticias", outcome.Reason)
	require.ErrorIs(t, outcome.Err, sources.ErrEmpty)
}

func TestFilterExpression(t *testing.T) {
	srv := proxy(t, map[string]string{"https://x/rss": `{"status":"ok","items":[
		{"title":"Combates con el ELN en Catatumbo","pubDate":"2026-03-01 11:00:00"},
		{"title":"Resultados de fútbol","pubDate":"2026-03-01 11:00:00"},
		{"title":"ELN anuncia paro armado","pubDate":"2026-02-20 11:00:00"}]}`})
	src := newSource(t, srv.URL, "", `
feed: https://x/rss
filter: 'lower(title) contains "eln" && age_hours < 48'
`)
	outcome := src.Invoke(context.Background())
	require.True(t, outcome.OK, outcome.Reason)
	require.Len(t, outcome.Content.Rows, 1)
	require.Equal(t, "Combates con el ELN en Catatumbo", outcome.Content.Rows[0].Title)
}

func TestFactoryValidation(t *testing.T) {
	cases := map[string]string{
		"no feed":    `limit: 3`,
		"both":       "feed: https://a\nfeeds: [{url: https://b}]",
		"empty url":  `feeds: [{url: ""}]`,
		"bad filter": "feed: https://a\nfilter: 'title +'",
		"negative":   "feed: https://a\nlimit: -1",
	}
	for name, settings := range cases {
		t.Run(name, func(t *testing.T) {
			var node yaml.Node
			require.NoError(t, yaml.Unmarshal([]byte(settings), &node))
			_, err := NewFactory()(config.SourceConfig{ID: "feed", DriverSettings: *node.Content[0]}, sources.Dependencies{})
			require.Error(t, err)
		})
	}
}

func TestParsePubDate(t *testing.T) {
	require.Equal(t, time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC), parsePubDate("2026-03-01 11:00:00"))
	require.Equal(t, time.Date(2026, 3, 1, 16, 0, 0, 0, time.UTC), parsePubDate("Sun, 01 Mar 2026 11:00:00 -0500"))
	require.True(t, parsePubDate("yesterday").IsZero())
}
