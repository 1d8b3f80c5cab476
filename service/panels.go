package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/timzifer/colint/config"
	"github.com/timzifer/colint/runtime/sources"
)

// Panel states reported to observers.
const (
	PanelPending = "pending"
	PanelOK      = "ok"
	PanelMock    = "mock"
	PanelError   = "error"
)

// PanelState is a read-only snapshot of one panel slot.
type PanelState struct {
	ID        string
	Name      string
	Icon      string
	Driver    string
	Cadence   config.Cadence
	Live      bool
	Visible   bool
	Status    string
	Content   sources.Panel
	Reason    string
	Error     string
	Sequence  uint64
	Running   bool
	UpdatedAt time.Time
	Duration  time.Duration
	Source    config.ModuleReference
}

type panelSlot struct {
	cfg      config.SourceConfig
	cadence  config.Cadence
	live     bool
	visible  bool
	started  uint64
	recorded uint64
	outcome  sources.Outcome
	updated  time.Time
	duration time.Duration
}

// panelStore keeps the last outcome per source. A slot only accepts an
// outcome whose sequence number is newer than the one it holds.
type panelStore struct {
	mu    sync.RWMutex
	slots map[string]*panelSlot
	order []string
}

func newPanelStore() *panelStore {
	return &panelStore{slots: make(map[string]*panelSlot)}
}

func (p *panelStore) register(rs *registeredSource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := rs.source.ID()
	if _, ok := p.slots[id]; !ok {
		p.order = append(p.order, id)
	}
	p.slots[id] = &panelSlot{
		cfg:     rs.cfg,
		cadence: rs.source.Cadence(),
		live:    rs.source.Live(),
		visible: true,
	}
}

func (p *panelStore) begin(id string, seq uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	slot, ok := p.slots[id]
	if !ok {
		return
	}
	if seq > slot.started {
		slot.started = seq
	}
}

func (p *panelStore) record(id string, seq uint64, outcome sources.Outcome, at time.Time, duration time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	slot, ok := p.slots[id]
	if !ok || seq <= slot.recorded {
		return false
	}
	slot.recorded = seq
	slot.outcome = outcome
	slot.updated = at
	slot.duration = duration
	return true
}

func (p *panelStore) setVisible(id string, visible bool) (PanelState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	slot, ok := p.slots[id]
	if !ok {
		return PanelState{}, fmt.Errorf("panel %s not found", id)
	}
	slot.visible = visible
	return slot.snapshot(id), nil
}

func (p *panelStore) get(id string) (PanelState, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	slot, ok := p.slots[id]
	if !ok {
		return PanelState{}, false
	}
	return slot.snapshot(id), true
}

func (p *panelStore) states() []PanelState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PanelState, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.slots[id].snapshot(id))
	}
	return out
}

func (s *panelSlot) snapshot(id string) PanelState {
	state := PanelState{
		ID:        id,
		Name:      firstNonEmpty(s.cfg.Name, id),
		Icon:      s.cfg.Icon,
		Driver:    s.cfg.Driver,
		Cadence:   s.cadence,
		Live:      s.live,
		Visible:   s.visible,
		Sequence:  s.recorded,
		Running:   s.started > s.recorded,
		UpdatedAt: s.updated,
		Duration:  s.duration,
		Source:    s.cfg.Source,
	}
	switch {
	case s.recorded == 0:
		state.Status = PanelPending
	case !s.outcome.OK:
		state.Status = PanelError
		state.Reason = s.outcome.Reason
		if s.outcome.Err != nil {
			state.Error = s.outcome.Err.Error()
		}
	case s.outcome.Mock:
		state.Status = PanelMock
		state.Content = clonePanel(s.outcome.Content)
	default:
		state.Status = PanelOK
		state.Content = clonePanel(s.outcome.Content)
	}
	return state
}

func clonePanel(panel sources.Panel) sources.Panel {
	out := panel
	out.Rows = append([]sources.Row(nil), panel.Rows...)
	out.Ticker = append([]sources.Row(nil), panel.Ticker...)
	out.Points = append([]sources.Point(nil), panel.Points...)
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Panels returns a snapshot of every panel slot in registration order.
func (s *Service) Panels() []PanelState {
	if s == nil || s.panels == nil {
		return nil
	}
	return s.panels.states()
}

// Panel returns the snapshot of one panel slot.
func (s *Service) Panel(id string) (PanelState, bool) {
	if s == nil || s.panels == nil {
		return PanelState{}, false
	}
	return s.panels.get(id)
}

// SetPanelVisible toggles whether the dashboard shows a panel. It has no
// effect on scheduling or the tally.
func (s *Service) SetPanelVisible(id string, visible bool) (PanelState, error) {
	if s == nil || s.panels == nil {
		return PanelState{}, fmt.Errorf("panel %s not found", id)
	}
	return s.panels.setVisible(id, visible)
}
