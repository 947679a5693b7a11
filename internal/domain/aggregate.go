package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AggregateKind string

const (
	AggregateLimitUsage     AggregateKind = "limit_usage"
	AggregateSavingsBalance AggregateKind = "savings_balance"
)

// Aggregate is a running total mutated as a side effect of entry generation:
// the amount spent against a spending limit this period, or the current
// balance of a savings project.
type Aggregate struct {
	ID          int64           `json:"id"`
	Label       string          `json:"label"`
	Kind        AggregateKind   `json:"kind"`
	Accumulated decimal.Decimal `json:"accumulated"`
	// ClampZero keeps the accumulated value at or above zero. Set for
	// spend totals, unset for savings balances.
	ClampZero bool      `json:"clampZero"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type AggregateStore interface {
	// AddAmount atomically increments the aggregate's accumulated value.
	// The amount may be negative for reversals. The store performs a single
	// atomic increment, never a client-side read-modify-write, so retries
	// are safe under concurrent mutation.
	AddAmount(id int64, amount decimal.Decimal) error
	GetByID(id int64) (*Aggregate, error)
}
