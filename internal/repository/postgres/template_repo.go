package postgres

import (
	"context"
	"time"

	"github.com/Measdoulas/CASHRULER-sub000/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TemplateRepository implements domain.TemplateRepository using PostgreSQL
type TemplateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository creates a new TemplateRepository
func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

const templateColumns = `id, label, kind, category, amount, anchor_date, interval_days, next_due, recurring, aggregate_id, created_at, updated_at, deleted_at`

// FindDue retrieves all enabled templates whose next-due date is on or before asOf
func (r *TemplateRepository) FindDue(asOf time.Time) ([]*domain.RecurringTemplate, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx, `
		SELECT `+templateColumns+`
		FROM recurring_templates
		WHERE recurring
		  AND deleted_at IS NULL
		  AND next_due IS NOT NULL
		  AND next_due <= $1
		ORDER BY id`,
		timeToPgDate(asOf))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTemplates(rows)
}

// FindUpcoming retrieves enabled templates with a next-due date within [from, to]
func (r *TemplateRepository) FindUpcoming(from, to time.Time) ([]*domain.RecurringTemplate, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx, `
		SELECT `+templateColumns+`
		FROM recurring_templates
		WHERE recurring
		  AND deleted_at IS NULL
		  AND next_due BETWEEN $1 AND $2
		ORDER BY next_due, id`,
		timeToPgDate(from), timeToPgDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTemplates(rows)
}

// GetByID retrieves a template by ID
func (r *TemplateRepository) GetByID(id int64) (*domain.RecurringTemplate, error) {
	ctx := context.Background()

	row := r.pool.QueryRow(ctx, `
		SELECT `+templateColumns+`
		FROM recurring_templates
		WHERE id = $1 AND deleted_at IS NULL`,
		id)

	tpl, err := scanTemplate(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, err
	}
	return tpl, nil
}

// Update persists all mutable fields of a template in a single update.
// A soft-deleted template is reported as not found, so a generation run
// racing a user deletion cannot resurrect it.
func (r *TemplateRepository) Update(t *domain.RecurringTemplate) (*domain.RecurringTemplate, error) {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(t.Amount)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE recurring_templates
		SET label = $2,
		    kind = $3,
		    category = $4,
		    amount = $5,
		    interval_days = $6,
		    next_due = $7,
		    recurring = $8,
		    aggregate_id = $9,
		    updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+templateColumns,
		t.ID, t.Label, string(t.Kind), t.Category, amount,
		t.IntervalDays, timePtrToPgDate(t.NextDue), t.Recurring, int64PtrToPgInt8(t.AggregateID))

	updated, err := scanTemplate(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, err
	}
	return updated, nil
}

func scanTemplates(rows pgx.Rows) ([]*domain.RecurringTemplate, error) {
	var templates []*domain.RecurringTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

func scanTemplate(row pgx.Row) (*domain.RecurringTemplate, error) {
	var (
		tpl         domain.RecurringTemplate
		kind        string
		amount      pgtype.Numeric
		anchorDate  pgtype.Date
		nextDue     pgtype.Date
		aggregateID pgtype.Int8
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
		deletedAt   pgtype.Timestamptz
	)

	if err := row.Scan(&tpl.ID, &tpl.Label, &kind, &tpl.Category, &amount, &anchorDate,
		&tpl.IntervalDays, &nextDue, &tpl.Recurring, &aggregateID,
		&createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}

	tpl.Kind = domain.TemplateKind(kind)
	tpl.Amount = pgNumericToDecimal(amount)
	tpl.AnchorDate = pgDateToTime(anchorDate)
	tpl.CreatedAt = createdAt.Time
	tpl.UpdatedAt = updatedAt.Time

	if nextDue.Valid {
		d := pgDateToTime(nextDue)
		tpl.NextDue = &d
	}
	if aggregateID.Valid {
		tpl.AggregateID = &aggregateID.Int64
	}
	if deletedAt.Valid {
		tpl.DeletedAt = &deletedAt.Time
	}

	return &tpl, nil
}
