package model

import (
	"time"
)

// SyncReport summarizes one sync run of a single root.
//
// A report is filled in by exactly one consumer goroutine (the pipeline that
// drains the crawler's output), so it carries no lock.
type SyncReport struct {
	// RunID uniquely identifies the run. It is also the primary key of the
	// sync_runs table.
	RunID string `json:"run_id"`

	// RootID is the block id the crawl started from.
	RootID string `json:"root_id"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Counts is the number of records received per kind, duplicates included.
	Counts map[Kind]int `json:"counts"`

	// Duplicates is the number of records whose (id, kind) pair had already
	// been seen in this run.
	Duplicates int `json:"duplicates"`

	// Errors lists the failed tasks in arrival order.
	Errors []string `json:"errors,omitempty"`

	// Canceled is true when the run stopped before the crawl was exhausted.
	Canceled bool `json:"canceled"`
}

// NewSyncReport creates a report for the given run and root.
func NewSyncReport(runID, rootID string) *SyncReport {
	return &SyncReport{
		RunID:     runID,
		RootID:    rootID,
		StartedAt: time.Now(),
		Counts:    make(map[Kind]int),
	}
}

// AddRecord counts one received record.
func (r *SyncReport) AddRecord(kind Kind) {
	if r.Counts == nil {
		r.Counts = make(map[Kind]int)
	}
	r.Counts[kind]++
}

// AddError records a failed task.
func (r *SyncReport) AddError(err error) {
	if err == nil {
		return
	}
	r.Errors = append(r.Errors, err.Error())
}

// Total returns the number of records received.
func (r *SyncReport) Total() int {
	total := 0
	for _, n := range r.Counts {
		total += n
	}
	return total
}

// Finish stamps the end time.
func (r *SyncReport) Finish() {
	r.FinishedAt = time.Now()
}

// Duration returns how long the run took.
// It is zero until Finish has been called.
func (r *SyncReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// HasErrors reports whether any task failed.
func (r *SyncReport) HasErrors() bool {
	return len(r.Errors) > 0
}
