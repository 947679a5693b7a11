package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Measdoulas/CASHRULER-sub000/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint breach
const uniqueViolation = "23505"

// EntryRepository implements domain.EntryRepository using PostgreSQL
type EntryRepository struct {
	pool *pgxpool.Pool
}

// NewEntryRepository creates a new EntryRepository
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

// Create persists a new entry. The recurring_entry_occurrence unique index on
// (template_id, occurs_on) makes generation idempotent: re-creating an
// occurrence that a crashed run already materialized yields ErrDuplicateEntry
// instead of a second row.
func (r *EntryRepository) Create(e *domain.Entry) (*domain.Entry, error) {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(e.Amount)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO entries (label, kind, category, amount, occurs_on, template_id, aggregate_id, source, is_paid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		e.Label, string(e.Kind), e.Category, amount, timeToPgDate(e.OccursOn),
		int64PtrToPgInt8(e.TemplateID), int64PtrToPgInt8(e.AggregateID), string(e.Source), e.IsPaid)

	var createdAt pgtype.Timestamptz
	if err := row.Scan(&e.ID, &createdAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrDuplicateEntry
		}
		return nil, err
	}
	e.CreatedAt = createdAt.Time

	return e, nil
}

// FindDueBetween retrieves unpaid entries whose occurrence date falls within
// [from, to] inclusive
func (r *EntryRepository) FindDueBetween(from, to time.Time) ([]*domain.Entry, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx, `
		SELECT id, label, kind, category, amount, occurs_on, template_id, aggregate_id, source, is_paid, created_at
		FROM entries
		WHERE NOT is_paid
		  AND occurs_on BETWEEN $1 AND $2
		ORDER BY occurs_on, id`,
		timeToPgDate(from), timeToPgDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var (
		e           domain.Entry
		kind        string
		source      string
		amount      pgtype.Numeric
		occursOn    pgtype.Date
		templateID  pgtype.Int8
		aggregateID pgtype.Int8
		createdAt   pgtype.Timestamptz
	)

	if err := row.Scan(&e.ID, &e.Label, &kind, &e.Category, &amount, &occursOn,
		&templateID, &aggregateID, &source, &e.IsPaid, &createdAt); err != nil {
		return nil, err
	}

	e.Kind = domain.TemplateKind(kind)
	e.Source = domain.EntrySource(source)
	e.Amount = pgNumericToDecimal(amount)
	e.OccursOn = pgDateToTime(occursOn)
	e.CreatedAt = createdAt.Time

	if templateID.Valid {
		e.TemplateID = &templateID.Int64
	}
	if aggregateID.Valid {
		e.AggregateID = &aggregateID.Int64
	}

	return &e, nil
}
