package models

import (
	"time"
)

// Generation sources recorded in the generation log
const (
	SourceScheduler = "cron-scheduler"
	SourceManual    = "manual"
)

// GenerationLogEntry records one successful generation for observability
type GenerationLogEntry struct {
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	PRURL     string    `json:"prUrl"`
	PRNumber  int       `json:"prNumber"`
	Source    string    `json:"source"`
}

// ReconcileReport summarises one reconciliation run
type ReconcileReport struct {
	Checked   int      `json:"checked"`
	Published []string `json:"published"`
	Failed    []string `json:"failed"`
}

// GenerationResult is the outcome of one generation trigger. Idea is nil when
// the queue held nothing to generate.
type GenerationResult struct {
	Idea        *Idea           `json:"idea,omitempty"`
	PullRequest *PullRequestRef `json:"pullRequest,omitempty"`
}
