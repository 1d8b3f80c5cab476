// Package monitors keeps the user-defined keyword monitors of the dashboard.
package monitors

import (
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrNameRequired is returned when a monitor is created without a name.
var ErrNameRequired = errors.New("monitor name is required")

// Monitor is a user-defined watch entry.
type Monitor struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Keywords  string    `json:"keywords"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayKeywords returns the keywords or N/A when none were given.
func (m Monitor) DisplayKeywords() string {
	if m.Keywords == "" {
		return "N/A"
	}
	return m.Keywords
}

// Registry stores monitors in creation order. The zero value is not usable;
// construct it with New.
type Registry struct {
	mu       sync.RWMutex
	monitors []Monitor
	lastID   int64
	now      func() time.Time
}

// New constructs an empty registry. A nil clock defaults to time.Now.
func New(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{now: now}
}

// Create appends a monitor. Its id is the creation time in Unix milliseconds,
// bumped when necessary so ids stay strictly increasing.
func (r *Registry) Create(name, keywords, source string) (Monitor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Monitor{}, ErrNameRequired
	}
	created := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	id := created.UnixMilli()
	if id <= r.lastID {
		id = r.lastID + 1
	}
	r.lastID = id
	monitor := Monitor{
		ID:        id,
		Name:      name,
		Keywords:  strings.TrimSpace(keywords),
		Source:    source,
		CreatedAt: created,
	}
	r.monitors = append(r.monitors, monitor)
	return monitor, nil
}

// Delete removes the monitor with the given id and reports whether it existed.
func (r *Registry) Delete(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, monitor := range r.monitors {
		if monitor.ID == id {
			r.monitors = append(r.monitors[:i], r.monitors[i+1:]...)
			return true
		}
	}
	return false
}

// List returns a copy of the monitors in creation order.
func (r *Registry) List() []Monitor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Monitor, len(r.monitors))
	copy(out, r.monitors)
	return out
}
