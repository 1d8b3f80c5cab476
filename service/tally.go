package service

import (
	"strconv"
	"time"
)

// HealthTally summarises the most recent completed full pass.
type HealthTally struct {
	// Active counts sources that succeeded, mock sources included.
	Active int `json:"active"`
	// Live counts successes served by a live upstream.
	Live        int           `json:"live"`
	Total       int           `json:"total"`
	Pass        uint64        `json:"pass"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration"`
}

// Ratio renders the tally as the "active/total" label shown in the header.
func (t HealthTally) Ratio() string {
	return strconv.Itoa(t.Active) + "/" + strconv.Itoa(t.Total)
}
