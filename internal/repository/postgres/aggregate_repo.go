package postgres

import (
	"context"
	"time"

	"github.com/Measdoulas/CASHRULER-sub000/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// AggregateRepository implements domain.AggregateStore using PostgreSQL
type AggregateRepository struct {
	pool *pgxpool.Pool
}

// NewAggregateRepository creates a new AggregateRepository
func NewAggregateRepository(pool *pgxpool.Pool) *AggregateRepository {
	return &AggregateRepository{pool: pool}
}

// AddAmount increments the aggregate's accumulated value in a single UPDATE.
// The increment happens inside the database, so a concurrent foreground edit
// and a background generation run cannot lose each other's update.
func (r *AggregateRepository) AddAmount(id int64, amount decimal.Decimal) error {
	ctx := context.Background()

	delta, err := decimalToPgNumeric(amount)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE aggregates
		SET accumulated = CASE
		        WHEN clamp_zero THEN GREATEST(accumulated + $2, 0)
		        ELSE accumulated + $2
		    END,
		    updated_at = now()
		WHERE id = $1`,
		id, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAggregateNotFound
	}

	return nil
}

// GetByID retrieves an aggregate by ID
func (r *AggregateRepository) GetByID(id int64) (*domain.Aggregate, error) {
	ctx := context.Background()

	var (
		a           domain.Aggregate
		kind        string
		accumulated pgtype.Numeric
		updatedAt   pgtype.Timestamptz
	)

	err := r.pool.QueryRow(ctx, `
		SELECT id, label, kind, accumulated, clamp_zero, updated_at
		FROM aggregates
		WHERE id = $1`,
		id).Scan(&a.ID, &a.Label, &kind, &accumulated, &a.ClampZero, &updatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrAggregateNotFound
		}
		return nil, err
	}

	a.Kind = domain.AggregateKind(kind)
	a.Accumulated = pgNumericToDecimal(accumulated)
	a.UpdatedAt = updatedAt.Time

	return &a, nil
}

// Helper functions to convert between pg and domain types

func decimalToPgNumeric(d decimal.Decimal) (pgtype.Numeric, error) {
	var num pgtype.Numeric
	if err := num.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, err
	}
	return num, nil
}

func pgNumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	if n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func timeToPgDate(t time.Time) pgtype.Date {
	return pgtype.Date{
		Time:  t,
		Valid: true,
	}
}

func timePtrToPgDate(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return timeToPgDate(*t)
}

func pgDateToTime(d pgtype.Date) time.Time {
	if !d.Valid {
		return time.Time{}
	}
	return d.Time
}

func int64PtrToPgInt8(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}
