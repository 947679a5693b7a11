package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TemplateKind string

const (
	TemplateExpense     TemplateKind = "expense"
	TemplateIncome      TemplateKind = "income"
	TemplateLimitPeriod TemplateKind = "limit_period"
)

// RecurringTemplate is a user-defined repeating financial event: a recurring
// expense, recurring income, or a spending-limit period definition. The engine
// generates concrete Entry records from it and is the only writer of NextDue.
type RecurringTemplate struct {
	ID           int64           `json:"id"`
	Label        string          `json:"label"`
	Kind         TemplateKind    `json:"kind"`
	Category     string          `json:"category"`
	Amount       decimal.Decimal `json:"amount"`
	AnchorDate   time.Time       `json:"anchorDate"`
	IntervalDays int32           `json:"intervalDays"`
	// NextDue is the date of the next occurrence to generate. Nil only when
	// recurrence is disabled.
	NextDue     *time.Time `json:"nextDue,omitempty"`
	Recurring   bool       `json:"recurring"`
	AggregateID *int64     `json:"aggregateId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// Validate checks the recurrence invariant: an enabled template must carry a
// positive interval and a next-due date.
func (t *RecurringTemplate) Validate() error {
	if len(t.Label) > MaxLabelLength {
		return ErrMalformedTemplate
	}
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if t.Recurring {
		if t.IntervalDays <= 0 {
			return ErrInvalidInterval
		}
		if t.NextDue == nil {
			return ErrMalformedTemplate
		}
	}
	return nil
}

type TemplateRepository interface {
	// FindDue returns all enabled, non-deleted templates whose next-due date
	// is on or before asOf.
	FindDue(asOf time.Time) ([]*RecurringTemplate, error)
	// FindUpcoming returns enabled templates whose next-due date falls within
	// [from, to] inclusive. Used for reminder evaluation.
	FindUpcoming(from, to time.Time) ([]*RecurringTemplate, error)
	GetByID(id int64) (*RecurringTemplate, error)
	// Update persists all mutable fields of the template in a single update.
	Update(t *RecurringTemplate) (*RecurringTemplate, error)
}
