// Package processor holds the synchronization state every billing entity
// keeps about its copy in the payment gateway.
package processor

import (
	"fmt"

	"github.com/pkg/errors"
)

type Status string

const (
	StatusNew       Status = "new"
	StatusSaved     Status = "saved"
	StatusChanged   Status = "changed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

var ErrInvalidTransition = errors.New("invalid processor state transition")

func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusSaved, StatusChanged, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the entity is out of the sync cycle.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusFailed
}

// NeedsSync reports whether the gateway has to create or update the entity.
func (s Status) NeedsSync() bool {
	return s == StatusNew || s == StatusChanged
}

// Link is the remote identity and sync status of one entity. The zero value
// is a new, never synced link.
type Link struct {
	ID     string `json:"id,omitempty"`
	Status Status `json:"state"`
}

func NewLink() Link {
	return Link{Status: StatusNew}
}

func SavedLink(id string) Link {
	return Link{ID: id, Status: StatusSaved}
}

func (l Link) GoString() string {
	return fmt.Sprintf("{ID: %q, Status: %s}", l.ID, l.Status)
}

func (l Link) HasID() bool {
	return l.ID != ""
}

// State normalizes the zero status to StatusNew.
func (l Link) State() Status {
	if l.Status == "" {
		return StatusNew
	}
	return l.Status
}

// MarkSaved records a successful create or update round-trip.
func (l *Link) MarkSaved(id string) error {
	if id == "" {
		return errors.Wrap(ErrInvalidTransition, "saved link must have a remote id")
	}
	if l.HasID() && l.ID != id {
		return errors.Wrapf(ErrInvalidTransition, "remote id changed from %s to %s", l.ID, id)
	}

	l.ID = id
	l.Status = StatusSaved
	return nil
}

// MarkChanged moves a synced entity to CHANGED. Entities without a remote id
// stay NEW and terminal states are kept; the return value reports whether
// the status changed.
func (l *Link) MarkChanged() bool {
	if l.State().IsTerminal() {
		return false
	}
	if !l.HasID() {
		l.Status = StatusNew
		return false
	}

	if l.State() == StatusChanged {
		return false
	}
	l.Status = StatusChanged
	return true
}

// MarkCancelled records a successful cancel round-trip.
func (l *Link) MarkCancelled() {
	l.Status = StatusCancelled
}

// MarkFailed records a non-retryable gateway rejection.
func (l *Link) MarkFailed() {
	l.Status = StatusFailed
}

// Retry puts a FAILED link back into the sync cycle so the next save
// attempts it again.
func (l *Link) Retry() error {
	if l.State() != StatusFailed {
		return errors.Wrapf(ErrInvalidTransition, "can't retry link in state %s", l.State())
	}

	if l.HasID() {
		l.Status = StatusChanged
	} else {
		l.Status = StatusNew
	}
	return nil
}
