package datosgov

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"github.com/timzifer/colint/config"
	"github.com/timzifer/colint/format"
	"github.com/timzifer/colint/runtime/fetch"
	"github.com/timzifer/colint/runtime/sources"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var secopColumns = []string{
	"objeto_del_contrato",
	"valor_del_contrato",
	"nombre_entidad",
	"fecha_de_firma",
	"proveedor_adjudicado",
	"urlproceso",
}

type contract struct {
	Objeto    string              `json:"objeto_del_contrato"`
	Valor     string              `json:"valor_del_contrato"`
	Entidad   string              `json:"nombre_entidad"`
	Firma     string              `json:"fecha_de_firma"`
	Proveedor string              `json:"proveedor_adjudicado"`
	URL       jsoniter.RawMessage `json:"urlproceso"`
}

// NewSECOPFactory returns a sources.Factory for the secop driver.
func NewSECOPFactory() sources.Factory {
	return func(cfg config.SourceConfig, deps sources.Dependencies) (sources.DataSource, error) {
		if cfg.ID == "" {
			return nil, errors.New("source id must not be empty")
		}
		settings, err := parseSECOPSettings(cfg)
		if err != nil {
			return nil, err
		}
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = defaultSECOPEndpoint
		}
		return &SECOPSource{
			Base:     sources.NewBase(cfg),
			title:    sources.PanelTitle(cfg, "SECOP"),
			endpoint: endpoint,
			settings: settings,
			deps:     deps,
		}, nil
	}
}

// SECOPSource lists the most recently signed procurement contracts.
type SECOPSource struct {
	sources.Base
	title    string
	endpoint string
	settings SECOPSettings
	deps     sources.Dependencies
}

// Live implements sources.DataSource.
func (s *SECOPSource) Live() bool { return true }

// Invoke implements sources.DataSource.
func (s *SECOPSource) Invoke(ctx context.Context) sources.Outcome {
	query := url.Values{
		"$limit":  {strconv.Itoa(s.settings.Limit)},
		"$order":  {"fecha_de_firma DESC"},
		"$select": {strings.Join(secopColumns, ",")},
	}
	if s.settings.Where != "" {
		query.Set("$where", s.settings.Where)
	}
	var contracts []contract
	err := fetch.GetJSON(ctx, s.deps.Client(), fetch.Request{
		URL:       s.endpoint,
		Query:     query,
		UserAgent: s.deps.UserAgent,
		BodyLimit: s.deps.BodyLimit,
	}, &contracts)
	if err != nil {
		return sources.Failure("Error SECOP", fmt.Errorf("secop: %w", err))
	}
	if len(contracts) == 0 {
		return sources.Failure("Sin contratos", fmt.Errorf("secop: %w", sources.ErrEmpty))
	}

	panel := sources.Panel{Title: s.title}
	for _, c := range contracts {
		signed := parseFloatingTimestamp(c.Firma)
		meta := c.Proveedor + " • " + format.ShortDate(signed)
		panel.Rows = append(panel.Rows, sources.Row{
			Title:  format.OrNA(c.Entidad),
			Link:   contractURL(c.URL),
			Value:  format.Currency(parseAmount(c.Valor)),
			Detail: format.Truncate(c.Objeto, s.settings.ObjectLength),
			Meta:   meta,
			Time:   signed,
		})
	}
	return sources.Success(panel)
}

// parseAmount reads a Socrata number; unreadable values count as zero.
func parseAmount(raw string) float64 {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return value.InexactFloat64()
}

// Socrata floating timestamps carry no zone.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

func parseFloatingTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// urlproceso is either a plain string or an object with a url member.
func contractURL(raw jsoniter.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}
	var link struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &link); err == nil {
		return link.URL
	}
	return ""
}
