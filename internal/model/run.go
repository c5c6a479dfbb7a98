// Package model defines the tables, segments, conditions, and run records
// shared by the lead-balancing engine and its collaborators.
package model

import "time"

// RunStatus represents the state of a recorded run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded invocation of a flow.
type Run struct {
	ID        string    `json:"id"`
	Flow      Flow      `json:"flow"`
	Source    string    `json:"source"`
	Status    RunStatus `json:"status"`
	Report    *Report   `json:"report,omitempty"`
	Error     *RunError `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunError records why a run produced no output.
type RunError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
