package models

import "time"

// Sync lifecycle states.
const (
	StateDormant = "dormant"
	StateQueued  = "queued"
	StateRunning = "running"
	StateFailed  = "failed"
	StateTimeout = "timeout"
)

// Sync actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionFull   = "full"
)

// Sync is one recurring synchronization task: one target kind pulled through
// one consumer token. History keeps the report of every run, oldest first.
type Sync struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	TokenID        int64     `json:"token_id"`
	Action         string    `json:"action"` // create, update, full
	ForModel       string    `json:"for_model"`
	State          string    `json:"state"`
	History        []Report  `json:"history"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Incomplete reports whether the sync is queued or mid-run.
func (s *Sync) Incomplete() bool {
	return s.State == StateQueued || s.State == StateRunning
}

// Skip records one hard per-record failure inside a run.
type Skip struct {
	Errors map[string][]string `json:"errors"`
}

// Report is the immutable outcome of a single run. AllowableSkips keys depend
// on the target kind: customers have none, invoices count missing customers,
// payments additionally count missing invoices.
type Report struct {
	RunID          string         `json:"run_id"`
	StartedAt      time.Time      `json:"started_at"`
	Count          int            `json:"count"`
	Skips          []Skip         `json:"skips"`
	AllowableSkips map[string]int `json:"allowable_skips,omitempty"`
	ExceptionMsg   string         `json:"exception_msg,omitempty"`
}
