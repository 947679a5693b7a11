package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EntrySource string

const (
	EntrySourceManual    EntrySource = "manual"
	EntrySourceRecurring EntrySource = "recurring"
)

// Entry is a concrete, one-time financial record. Entries generated from a
// recurring template carry the originating template and its aggregate link;
// they are never themselves recurring.
type Entry struct {
	ID          int64           `json:"id"`
	Label       string          `json:"label"`
	Kind        TemplateKind    `json:"kind"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	// OccursOn is the due date this entry represents, not the time it was
	// written.
	OccursOn    time.Time   `json:"occursOn"`
	TemplateID  *int64      `json:"templateId,omitempty"`
	AggregateID *int64      `json:"aggregateId,omitempty"`
	Source      EntrySource `json:"source"`
	IsPaid      bool        `json:"isPaid"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type EntryRepository interface {
	// Create persists a new entry. The store enforces uniqueness on
	// (template, occurrence date) for recurring entries and returns
	// ErrDuplicateEntry when the pair is already materialized.
	Create(e *Entry) (*Entry, error)
	// FindDueBetween returns unpaid entries whose occurrence date falls
	// within [from, to] inclusive. Used for reminder evaluation.
	FindDueBetween(from, to time.Time) ([]*Entry, error)
}
