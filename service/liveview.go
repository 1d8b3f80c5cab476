package service

import (
	"context"
	"errors"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/timzifer/colint/config"
	"github.com/timzifer/colint/internal/logging"
	"github.com/timzifer/colint/reference"
	"github.com/timzifer/colint/runtime/monitors"
	"github.com/timzifer/colint/runtime/sources"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// departmentFocusRadiusKm bounds the hotspots listed for a focused department.
const departmentFocusRadiusKm = 250

type liveViewServer struct {
	logger   zerolog.Logger
	service  *Service
	hub      *wsHub
	validate *validator.Validate
	metrics  http.Handler
	server   *http.Server
	ln       net.Listener
}

type liveState struct {
	Name     string        `json:"name,omitempty"`
	Health   liveHealth    `json:"health"`
	Panels   []livePanel   `json:"panels"`
	Monitors []liveMonitor `json:"monitors"`
	Timers   []liveTimer   `json:"timers"`
	Clients  int           `json:"clients"`
}

type liveHealth struct {
	Active      int        `json:"active"`
	Live        int        `json:"live"`
	Total       int        `json:"total"`
	Label       string     `json:"label"`
	Pass        uint64     `json:"pass"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DurationMS  float64    `json:"duration_ms"`
}

type livePanel struct {
	ID         string                  `json:"id"`
	Name       string                  `json:"name,omitempty"`
	Icon       string                  `json:"icon,omitempty"`
	Driver     string                  `json:"driver,omitempty"`
	Cadence    config.Cadence          `json:"cadence,omitempty"`
	Live       bool                    `json:"live"`
	Visible    bool                    `json:"visible"`
	Status     string                  `json:"status"`
	Title      string                  `json:"title,omitempty"`
	Rows       []sources.Row           `json:"rows,omitempty"`
	Ticker     []sources.Row           `json:"ticker,omitempty"`
	Points     []sources.Point         `json:"points,omitempty"`
	Reason     string                  `json:"reason,omitempty"`
	Error      string                  `json:"error,omitempty"`
	Sequence   uint64                  `json:"sequence,omitempty"`
	Running    bool                    `json:"running"`
	UpdatedAt  *time.Time              `json:"updated_at,omitempty"`
	DurationMS float64                 `json:"duration_ms,omitempty"`
	Source     *config.ModuleReference `json:"source,omitempty"`
}

type liveMonitor struct {
	monitors.Monitor
	Display string `json:"display_keywords"`
}

type liveTimer struct {
	Cadence    config.Cadence `json:"cadence"`
	IntervalMS int64          `json:"interval_ms"`
	Sources    int            `json:"sources"`
	InFlight   int64          `json:"in_flight"`
}

type liveMap struct {
	Department  *reference.Department  `json:"department,omitempty"`
	Departments []reference.Department `json:"departments,omitempty"`
	Hotspots    []liveHotspot          `json:"hotspots"`
	Points      []livePoint            `json:"points"`
}

type liveHotspot struct {
	reference.Hotspot
	Label       string `json:"label"`
	Coordinates string `json:"coordinates"`
}

type livePoint struct {
	sources.Point
	Panel string `json:"panel"`
}

type monitorRequest struct {
	Name     string `json:"name" validate:"required,max=80"`
	Keywords string `json:"keywords" validate:"max=200"`
	Source   string `json:"source" validate:"max=64"`
}

type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func toLiveHealth(tally HealthTally) liveHealth {
	return liveHealth{
		Active:      tally.Active,
		Live:        tally.Live,
		Total:       tally.Total,
		Label:       tally.Ratio(),
		Pass:        tally.Pass,
		CompletedAt: timePtr(tally.CompletedAt),
		DurationMS:  durationToMillis(tally.Duration),
	}
}

func toLivePanel(state PanelState) livePanel {
	panel := livePanel{
		ID:         state.ID,
		Name:       state.Name,
		Icon:       state.Icon,
		Driver:     state.Driver,
		Cadence:    state.Cadence,
		Live:       state.Live,
		Visible:    state.Visible,
		Status:     state.Status,
		Title:      state.Content.Title,
		Rows:       state.Content.Rows,
		Ticker:     state.Content.Ticker,
		Points:     state.Content.Points,
		Reason:     state.Reason,
		Error:      state.Error,
		Sequence:   state.Sequence,
		Running:    state.Running,
		UpdatedAt:  timePtr(state.UpdatedAt),
		DurationMS: durationToMillis(state.Duration),
	}
	if state.Source.File != "" || state.Source.Name != "" {
		src := state.Source
		panel.Source = &src
	}
	return panel
}

func toLivePanelUpdate(id string, outcome sources.Outcome) livePanel {
	panel := livePanel{ID: id, Visible: true}
	switch {
	case !outcome.OK:
		panel.Status = PanelError
		panel.Reason = outcome.Reason
		if outcome.Err != nil {
			panel.Error = outcome.Err.Error()
		}
	case outcome.Mock:
		panel.Status = PanelMock
	default:
		panel.Status = PanelOK
	}
	if outcome.OK {
		panel.Title = outcome.Content.Title
		panel.Rows = outcome.Content.Rows
		panel.Ticker = outcome.Content.Ticker
		panel.Points = outcome.Content.Points
	}
	return panel
}

func toLiveHotspot(spot reference.Hotspot) liveHotspot {
	return liveHotspot{Hotspot: spot, Label: spot.Level.Label(), Coordinates: spot.Coordinates()}
}

func newLiveViewServer(listen string, svc *Service, logger zerolog.Logger) (*liveViewServer, error) {
	server := newLiveViewHandler(svc, logger)
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{Handler: server.routes(), ReadHeaderTimeout: 10 * time.Second}
	server.server = srv
	server.ln = ln

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("live view server stopped")
		}
	}()

	logger.Info().Str("listen", ln.Addr().String()).Msg("live view started")
	return server, nil
}

func newLiveViewHandler(svc *Service, logger zerolog.Logger) *liveViewServer {
	server := &liveViewServer{
		logger:   logger,
		service:  svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		metrics:  promhttp.Handler(),
	}
	server.hub = newWSHub(logging.Component(svc.logger, svc.cfg.Logging, "websocket"), func() *liveState {
		state := server.state()
		return &state
	})
	server.hub.lookup = svc.Panel
	return server
}

func (s *liveViewServer) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/refresh", s.handleRefresh)
	mux.HandleFunc("/api/monitors", s.handleMonitors)
	mux.HandleFunc("/api/monitors/", s.handleMonitorDelete)
	mux.HandleFunc("/api/panels/", s.handlePanelVisibility)
	mux.HandleFunc("/api/map", s.handleMap)
	mux.HandleFunc("/ws", s.hub.serve)
	mux.Handle("/metrics", s.metrics)
	return mux
}

func (s *liveViewServer) state() liveState {
	svc := s.service
	panelStates := svc.Panels()
	panels := make([]livePanel, 0, len(panelStates))
	for _, state := range panelStates {
		panels = append(panels, toLivePanel(state))
	}
	list := svc.Monitors().List()
	mons := make([]liveMonitor, 0, len(list))
	for _, m := range list {
		mons = append(mons, liveMonitor{Monitor: m, Display: m.DisplayKeywords()})
	}
	inFlight := svc.InFlight()
	intervals := svc.Intervals()
	timers := make([]liveTimer, 0, len(intervals))
	for _, timer := range intervals {
		timers = append(timers, liveTimer{
			Cadence:    timer.Cadence,
			IntervalMS: timer.Interval.Milliseconds(),
			Sources:    timer.Sources,
			InFlight:   inFlight[timer.Cadence],
		})
	}
	state := liveState{
		Health:   toLiveHealth(svc.Health()),
		Panels:   panels,
		Monitors: mons,
		Timers:   timers,
	}
	if svc.cfg != nil {
		state.Name = svc.cfg.Name
	}
	if s.hub != nil {
		state.Clients = s.hub.ClientCount()
	}
	return state
}

func (s *liveViewServer) writeJSON(w http.ResponseWriter, status int, payload interface{}, what string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("encode " + what)
	}
}

func (s *liveViewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	name := "COLINT"
	if s.service.cfg != nil && s.service.cfg.Name != "" {
		name = s.service.cfg.Name
	}
	if err := liveViewTemplate.Execute(w, map[string]string{"Name": name}); err != nil {
		s.logger.Error().Err(err).Msg("render live view page")
	}
}

func (s *liveViewServer) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.state(), "live view state")
}

func (s *liveViewServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.service.RequestRefresh()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"}, "refresh response")
}

func (s *liveViewServer) handleMonitors(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list := s.service.Monitors().List()
		out := make([]liveMonitor, 0, len(list))
		for _, m := range list {
			out = append(out, liveMonitor{Monitor: m, Display: m.DisplayKeywords()})
		}
		s.writeJSON(w, http.StatusOK, out, "monitor list")
	case http.MethodPost:
		defer r.Body.Close()
		var req monitorRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Keywords = strings.TrimSpace(req.Keywords)
		req.Source = strings.TrimSpace(req.Source)
		if err := s.validate.Struct(req); err != nil {
			http.Error(w, describeValidation(err), http.StatusBadRequest)
			return
		}
		monitor, err := s.service.Monitors().Create(req.Name, req.Keywords, req.Source)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.logger.Info().Int64("monitor", monitor.ID).Str("name", monitor.Name).Msg("monitor created")
		s.writeJSON(w, http.StatusCreated, liveMonitor{Monitor: monitor, Display: monitor.DisplayKeywords()}, "monitor")
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	default:
		return field + " is invalid"
	}
}

func (s *liveViewServer) handleMonitorDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/api/monitors/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if !s.service.Monitors().Delete(id) {
		http.NotFound(w, r)
		return
	}
	s.logger.Info().Int64("monitor", id).Msg("monitor deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *liveViewServer) handlePanelVisibility(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/panels/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	defer r.Body.Close()
	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Visible == nil {
		http.Error(w, "visible flag required", http.StatusBadRequest)
		return
	}
	state, err := s.service.SetPanelVisible(id, *req.Visible)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, toLivePanel(state), "panel visibility response")
}

func (s *liveViewServer) handleMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := liveMap{Points: s.mapPoints()}
	var spots []reference.Hotspot
	if code := r.URL.Query().Get("department"); code != "" {
		dept, ok := reference.LookupDepartment(code)
		if !ok {
			http.Error(w, "department "+code+" not found", http.StatusNotFound)
			return
		}
		resp.Department = &dept
		spots = reference.HotspotsNear(dept, departmentFocusRadiusKm)
	} else {
		resp.Departments = reference.Departments()
		spots = reference.Hotspots()
	}
	resp.Hotspots = make([]liveHotspot, 0, len(spots))
	for _, spot := range spots {
		resp.Hotspots = append(resp.Hotspots, toLiveHotspot(spot))
	}
	s.writeJSON(w, http.StatusOK, resp, "map")
}

func (s *liveViewServer) mapPoints() []livePoint {
	points := []livePoint{}
	for _, state := range s.service.Panels() {
		if !state.Visible {
			continue
		}
		for _, pt := range state.Content.Points {
			points = append(points, livePoint{Point: pt, Panel: state.ID})
		}
	}
	return points
}

func (s *liveViewServer) close() {
	if s == nil || s.server == nil {
		return
	}
	s.hub.close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil && err != context.Canceled {
		s.logger.Error().Err(err).Msg("shutdown live view")
	}
}

var liveViewTemplate = template.Must(template.New("liveview").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>{{ .Name }}</title>
<style>
body { font-family: "Courier New", monospace; margin: 0; background: #0a0e14; color: #c8d3e0; }
header { display: flex; justify-content: space-between; align-items: center; padding: 0.75rem 1.5rem; border-bottom: 1px solid #1f2a38; }
header h1 { font-size: 1.1rem; margin: 0; letter-spacing: 0.2em; }
header .health { font-weight: bold; }
header button { background: #1f2a38; color: inherit; border: 1px solid #34465c; padding: 0.3rem 0.8rem; cursor: pointer; }
#ticker { padding: 0.4rem 1.5rem; background: #111824; font-size: 0.85rem; white-space: nowrap; overflow: hidden; }
main { display: grid; grid-template-columns: repeat(auto-fill, minmax(320px, 1fr)); gap: 1rem; padding: 1rem 1.5rem; }
.panel { background: #111824; border: 1px solid #1f2a38; padding: 0.75rem; }
.panel.hidden { display: none; }
.panel h2 { font-size: 0.9rem; margin: 0 0 0.5rem; display: flex; justify-content: space-between; }
.panel .status { font-size: 0.7rem; text-transform: uppercase; }
.panel .status.error { color: #ff5f56; }
.panel .status.mock { color: #f0b429; }
.panel .status.ok { color: #3ddc84; }
.row { display: flex; justify-content: space-between; gap: 0.5rem; padding: 0.2rem 0; border-bottom: 1px dotted #1f2a38; font-size: 0.8rem; }
.row a { color: inherit; text-decoration: none; }
.row .meta { color: #6b7a8f; font-size: 0.7rem; }
.positive { color: #3ddc84; }
.negative, .danger { color: #ff5f56; }
.warning { color: #f0b429; }
.empty { color: #6b7a8f; font-style: italic; font-size: 0.8rem; }
#monitors form { display: flex; flex-direction: column; gap: 0.3rem; }
#monitors input { background: #0a0e14; color: inherit; border: 1px solid #34465c; padding: 0.2rem; }
</style>
</head>
<body>
<header>
  <h1>{{ .Name }}</h1>
  <span class="health" id="health">0/0</span>
  <button id="refresh">Actualizar</button>
</header>
<div id="ticker"></div>
<main id="panels"></main>
<section class="panel" id="monitors">
  <h2>Monitores</h2>
  <form id="monitor-form">
    <input name="name" placeholder="Nombre" maxlength="80" required>
    <input name="keywords" placeholder="Palabras clave" maxlength="200">
    <input name="source" placeholder="Fuente" maxlength="64">
    <button type="submit">Crear</button>
  </form>
  <div id="monitor-list"></div>
</section>
<script>
const panels = new Map();
function esc(v) { const d = document.createElement('div'); d.textContent = v == null ? '' : String(v); return d.innerHTML; }
function renderHealth(h) { document.getElementById('health').textContent = h.label + ' fuentes'; }
function renderPanel(p) {
  const merged = Object.assign({}, panels.get(p.id) || {}, p);
  panels.set(p.id, merged);
  let el = document.getElementById('panel-' + p.id);
  if (!el) { el = document.createElement('section'); el.id = 'panel-' + p.id; el.className = 'panel'; document.getElementById('panels').appendChild(el); }
  el.classList.toggle('hidden', merged.visible === false);
  let body = '';
  if (merged.status === 'error') {
    body = '<div class="empty">' + esc(merged.reason) + '</div>';
  } else {
    for (const r of (merged.rows || [])) {
      const title = r.link ? '<a href="' + esc(r.link) + '" target="_blank" rel="noopener">' + esc(r.title) + '</a>' : esc(r.title);
      body += '<div class="row"><span>' + title + '<br><span class="meta">' + esc(r.detail || '') + ' ' + esc(r.meta || '') + '</span></span>' +
        '<span class="' + esc(r.tone || '') + '">' + esc(r.value || '') + ' ' + esc(r.change || '') + '</span></div>';
    }
  }
  el.innerHTML = '<h2><span>' + esc(merged.icon || '') + ' ' + esc(merged.name || merged.title || merged.id) + '</span><span class="status ' + esc(merged.status) + '">' + esc(merged.status) + '</span></h2>' + body;
  if (merged.ticker && merged.ticker.length) {
    document.getElementById('ticker').innerHTML = merged.ticker.map(t => esc(t.title) + ' ' + esc(t.value) + ' <span class="' + esc(t.tone) + '">' + esc(t.change) + '</span>').join(' | ');
  }
}
function renderMonitors(list) {
  document.getElementById('monitor-list').innerHTML = (list || []).map(m =>
    '<div class="row"><span>' + esc(m.name) + '<br><span class="meta">' + esc(m.display_keywords) + '</span></span><button data-id="' + m.id + '">x</button></div>').join('');
}
async function loadMonitors() { const r = await fetch('/api/monitors'); renderMonitors(await r.json()); }
document.getElementById('monitor-list').addEventListener('click', async ev => {
  const id = ev.target.dataset.id; if (!id) return;
  await fetch('/api/monitors/' + id, { method: 'DELETE' }); loadMonitors();
});
document.getElementById('monitor-form').addEventListener('submit', async ev => {
  ev.preventDefault();
  const f = new FormData(ev.target);
  const r = await fetch('/api/monitors', { method: 'POST', headers: { 'Content-Type': 'application/json' }, body: JSON.stringify(Object.fromEntries(f)) });
  if (r.ok) { ev.target.reset(); loadMonitors(); }
});
document.getElementById('refresh').addEventListener('click', () => fetch('/api/refresh', { method: 'POST' }));
function connect() {
  const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
  ws.onmessage = ev => {
    const msg = JSON.parse(ev.data);
    if (msg.type === 'state') { renderHealth(msg.state.health); (msg.state.panels || []).forEach(renderPanel); renderMonitors(msg.state.monitors); }
    if (msg.type === 'health') renderHealth(msg.health);
    if (msg.type === 'panel') renderPanel(msg.panel);
  };
  ws.onclose = () => setTimeout(connect, 3000);
}
connect();
</script>
</body>
</html>
`))
