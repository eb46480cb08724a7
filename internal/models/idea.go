package models

import (
	"time"
)

// IdeaStatus represents where an idea sits in its lifecycle
type IdeaStatus string

const (
	IdeaStatusPending        IdeaStatus = "pending"
	IdeaStatusInProgress     IdeaStatus = "in-progress"
	IdeaStatusAwaitingReview IdeaStatus = "awaiting-review"
	IdeaStatusPublished      IdeaStatus = "published"
	IdeaStatusSkipped        IdeaStatus = "skipped"
	IdeaStatusFailed         IdeaStatus = "failed"
)

// ValidIdeaStatuses lists every known status
var ValidIdeaStatuses = map[IdeaStatus]bool{
	IdeaStatusPending:        true,
	IdeaStatusInProgress:     true,
	IdeaStatusAwaitingReview: true,
	IdeaStatusPublished:      true,
	IdeaStatusSkipped:        true,
	IdeaStatusFailed:         true,
}

// IsTerminal reports whether no further transition is allowed
func (s IdeaStatus) IsTerminal() bool {
	return s == IdeaStatusPublished || s == IdeaStatusSkipped
}

// transitions maps each status to the statuses it may move to
var transitions = map[IdeaStatus][]IdeaStatus{
	IdeaStatusPending:        {IdeaStatusInProgress, IdeaStatusSkipped},
	IdeaStatusInProgress:     {IdeaStatusAwaitingReview, IdeaStatusFailed, IdeaStatusPending, IdeaStatusSkipped},
	IdeaStatusAwaitingReview: {IdeaStatusPublished, IdeaStatusSkipped},
	IdeaStatusFailed:         {IdeaStatusPending, IdeaStatusSkipped},
}

// CanTransition reports whether from -> to is an edge of the lifecycle
func CanTransition(from, to IdeaStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Risk is the editorial risk level of an idea
type Risk string

const (
	RiskLow  Risk = "low"
	RiskHigh Risk = "high"
)

// ValidRisks defines allowed risk values
var ValidRisks = map[Risk]bool{
	RiskLow:  true,
	RiskHigh: true,
}

// IdeaSeed is an idea as submitted through the API or an idea-seed file
type IdeaSeed struct {
	Title          string   `json:"title" yaml:"title"`
	Topic          string   `json:"topic" yaml:"topic"`
	Tags           []string `json:"tags" yaml:"tags"`
	Context        string   `json:"context,omitempty" yaml:"context,omitempty"`
	TargetAudience string   `json:"targetAudience,omitempty" yaml:"targetAudience,omitempty"`
	CodeExample    bool     `json:"codeExample,omitempty" yaml:"codeExample,omitempty"`
	Risk           Risk     `json:"risk,omitempty" yaml:"risk,omitempty"`
}

// Idea is the persisted record, one per slug
type Idea struct {
	IdeaSeed

	Slug        string     `json:"slug,omitempty"`
	Status      IdeaStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	GeneratedAt *time.Time `json:"generatedAt,omitempty"`
	PRURL       string     `json:"prUrl,omitempty"`
	PRNumber    int        `json:"prNumber,omitempty"`
	Attempts    int        `json:"attempts,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
}

// StatusMetadata carries optional fields merged into a record on a status change
type StatusMetadata struct {
	PRURL     string
	PRNumber  int
	LastError string
}
