// Package events publishes idea lifecycle transitions for downstream
// consumers such as notifiers and dashboards.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nugget-pipeline/internal/models"
)

// TypeTransition is the event type of a status change
const TypeTransition = "idea.transition"

// LifecycleEvent describes one status change of an idea
type LifecycleEvent struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Slug       string            `json:"slug"`
	Title      string            `json:"title,omitempty"`
	From       models.IdeaStatus `json:"from,omitempty"`
	To         models.IdeaStatus `json:"to"`
	PRURL      string            `json:"prUrl,omitempty"`
	PRNumber   int               `json:"prNumber,omitempty"`
	Error      string            `json:"error,omitempty"`
	Source     string            `json:"source,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// Transition builds the event for idea having moved from -> idea.Status
func Transition(idea *models.Idea, from models.IdeaStatus, source string, at time.Time) LifecycleEvent {
	return LifecycleEvent{
		ID:         uuid.New().String(),
		Type:       TypeTransition,
		Slug:       idea.Slug,
		Title:      idea.Title,
		From:       from,
		To:         idea.Status,
		PRURL:      idea.PRURL,
		PRNumber:   idea.PRNumber,
		Error:      idea.LastError,
		Source:     source,
		OccurredAt: at.UTC(),
	}
}

// Emitter delivers lifecycle events. Delivery is best effort.
type Emitter interface {
	Emit(ctx context.Context, ev LifecycleEvent) error
	Close() error
}

// NopEmitter drops every event
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, LifecycleEvent) error { return nil }

func (NopEmitter) Close() error { return nil }
