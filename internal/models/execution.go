package models

import "time"

// RunStatus is the lifecycle state of one scheduled run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// ExecutionRecord is the durable audit entry for one run of the
// collect-decide-execute pipeline. A record moves running -> completed or
// running -> failed, never backwards.
type ExecutionRecord struct {
	StartTime       time.Time      `json:"start_time"`
	EndTime         *time.Time     `json:"end_time,omitempty"`
	Status          RunStatus      `json:"status"`
	TradesCollected int            `json:"trades_collected"`
	AlertsSent      int            `json:"alerts_sent"`
	CollectionStats map[string]int `json:"collection_stats,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// Complete marks the record terminal.
func (r *ExecutionRecord) Complete(at time.Time) {
	r.EndTime = &at
	r.Status = RunCompleted
}

// Fail marks the record terminal with the first fatal error.
func (r *ExecutionRecord) Fail(at time.Time, err error) {
	r.EndTime = &at
	r.Status = RunFailed
	if err != nil {
		r.Error = err.Error()
	}
}
