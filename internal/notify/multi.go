// Package notify carries moderation events from the background workers to
// whichever channels are configured.
package notify

import (
	"context"
	"log/slog"
	"time"
)

const (
	EventClipReady      = "clip.ready_for_review"
	EventClipFailed     = "clip.processing_failed"
	EventTitleGenerated = "clip.title_generated"
)

type Event struct {
	Name   string
	ClipID string
	Title  string
	Detail string
	At     time.Time
}

type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Multi fans an event out to every registered notifier. Failures are logged
// and never returned, so a broken channel does not fail the worker.
type Multi struct {
	notifiers []Notifier
}

// NewMulti ignores nil notifiers; with none left Notify is a no-op.
func NewMulti(notifiers ...Notifier) *Multi {
	m := &Multi{}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

func (m *Multi) Len() int {
	if m == nil {
		return 0
	}
	return len(m.notifiers)
}

func (m *Multi) Notify(ctx context.Context, e Event) error {
	if m == nil {
		return nil
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, e); err != nil {
			slog.Error("multi-notifier: notification failed", "event", e.Name, "clip_id", e.ClipID, "error", err)
		}
	}
	return nil
}
