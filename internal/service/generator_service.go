package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Measdoulas/CASHRULER-sub000/internal/domain"
	"github.com/rs/zerolog"
)

// GeneratorService materializes due recurring templates into concrete entries.
// One run backfills every occurrence a template missed while the engine was
// not running, applies the aggregate side effect per entry, and finally
// advances the template's next-due date.
type GeneratorService struct {
	templateRepo domain.TemplateRepository
	entryRepo    domain.EntryRepository
	aggregates   domain.AggregateStore
	logger       zerolog.Logger
}

// NewGeneratorService creates a new GeneratorService
func NewGeneratorService(
	templateRepo domain.TemplateRepository,
	entryRepo domain.EntryRepository,
	aggregates domain.AggregateStore,
	logger zerolog.Logger,
) *GeneratorService {
	return &GeneratorService{
		templateRepo: templateRepo,
		entryRepo:    entryRepo,
		aggregates:   aggregates,
		logger:       logger.With().Str("component", "generator").Logger(),
	}
}

type templateStatus string

const (
	templateGenerated templateStatus = "generated"
	templateSkipped   templateStatus = "skipped"
	templateFailed    templateStatus = "failed"
)

// TemplateOutcome is the per-template result of a generation run. Errors stay
// inside the outcome; they never cross the per-template boundary.
type TemplateOutcome struct {
	TemplateID int64          `json:"templateId"`
	Label      string         `json:"label"`
	Status     templateStatus `json:"status"`
	Generated  int            `json:"generated"`
	Err        string         `json:"error,omitempty"`
}

// GenerationReport holds the aggregated result of one generation run
type GenerationReport struct {
	Templates int               `json:"templates"`
	Generated int               `json:"generated"`
	Skipped   int               `json:"skipped"`
	Failed    int               `json:"failed"`
	Outcomes  []TemplateOutcome `json:"outcomes,omitempty"`
}

// Name identifies the generation job to the scheduling collaborator.
func (s *GeneratorService) Name() string { return "recurring-generation" }

// Run executes one generation pass and folds the report into a single error
// suitable for retry classification: nil when every template succeeded,
// non-nil when any template failed and its due window must be reprocessed.
// The report is returned alongside so a manual trigger can surface it.
func (s *GeneratorService) Run(ctx context.Context, asOf time.Time) (any, error) {
	report, err := s.GenerateDue(ctx, asOf)
	if err != nil {
		return report, err
	}
	if report.Failed > 0 {
		var msgs []string
		for _, o := range report.Outcomes {
			if o.Status == templateFailed {
				msgs = append(msgs, o.Err)
			}
		}
		return report, fmt.Errorf("%d of %d templates failed: %s", report.Failed, report.Templates, strings.Join(msgs, "; "))
	}
	return report, nil
}

// GenerateDue finds every template due on or before asOf and backfills all
// missed occurrences for each. A failing template aborts only its own
// remaining work; unrelated templates continue.
func (s *GeneratorService) GenerateDue(ctx context.Context, asOf time.Time) (*GenerationReport, error) {
	today := domain.DayOf(asOf)

	templates, err := s.templateRepo.FindDue(today)
	if err != nil {
		return nil, fmt.Errorf("find due templates: %w", err)
	}

	report := &GenerationReport{
		Templates: len(templates),
		Outcomes:  make([]TemplateOutcome, 0, len(templates)),
	}

	for _, tpl := range templates {
		if err := ctx.Err(); err != nil {
			// Cancelled by the scheduling collaborator: completed templates
			// are consistent, the rest reprocess on the next run.
			s.logger.Warn().Int("remaining", report.Templates-len(report.Outcomes)).Msg("Generation cancelled")
			return report, err
		}

		outcome := s.processTemplate(tpl, today)
		report.Outcomes = append(report.Outcomes, outcome)

		switch outcome.Status {
		case templateGenerated:
			report.Generated += outcome.Generated
		case templateSkipped:
			report.Skipped++
		case templateFailed:
			report.Failed++
		}
	}

	s.logger.Info().
		Int("templates", report.Templates).
		Int("generated", report.Generated).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("Generation run complete")

	return report, nil
}

// processTemplate backfills one template up to and including today.
// Ordering within the loop is strict: the entry is persisted before its
// aggregate side effect, and both complete before the cursor advances.
// The template's next-due date is written last, so a crash at any earlier
// point leaves a state the next run can resume from.
func (s *GeneratorService) processTemplate(tpl *domain.RecurringTemplate, today time.Time) TemplateOutcome {
	outcome := TemplateOutcome{TemplateID: tpl.ID, Label: tpl.Label}

	if tpl.IntervalDays <= 0 {
		// Data-integrity problem, not a batch failure.
		s.logger.Warn().
			Int64("template_id", tpl.ID).
			Int32("interval_days", tpl.IntervalDays).
			Msg("Skipping template with non-positive interval")
		outcome.Status = templateSkipped
		return outcome
	}
	if tpl.NextDue == nil {
		s.logger.Warn().Int64("template_id", tpl.ID).Msg("Skipping recurring template without next-due date")
		outcome.Status = templateSkipped
		return outcome
	}

	cursor := domain.DayOf(*tpl.NextDue)
	for !cursor.After(today) {
		created, err := s.materialize(tpl, cursor)
		if err != nil {
			outcome.Status = templateFailed
			outcome.Err = fmt.Sprintf("template %d (%s): %v", tpl.ID, tpl.Label, err)
			s.logger.Error().Err(err).
				Int64("template_id", tpl.ID).
				Str("occurs_on", cursor.Format("2006-01-02")).
				Msg("Backfill aborted for template")
			// NextDue is deliberately left behind so the window is retried.
			return outcome
		}
		if created {
			outcome.Generated++
		}

		next, err := domain.NextOccurrence(cursor, tpl.IntervalDays)
		if err != nil {
			outcome.Status = templateFailed
			outcome.Err = fmt.Sprintf("template %d (%s): %v", tpl.ID, tpl.Label, err)
			return outcome
		}
		cursor = next
	}

	tpl.NextDue = &cursor
	if _, err := s.templateRepo.Update(tpl); err != nil {
		outcome.Status = templateFailed
		outcome.Err = fmt.Sprintf("template %d (%s): advance next due: %v", tpl.ID, tpl.Label, err)
		return outcome
	}

	outcome.Status = templateGenerated
	return outcome
}

// materialize persists one occurrence and applies its aggregate side effect.
// An entry that already exists for this (template, date) pair was written by
// a run that crashed before advancing the template; its side effect was
// applied then, so it is not re-applied here. Returns whether a new entry
// was created.
func (s *GeneratorService) materialize(tpl *domain.RecurringTemplate, occursOn time.Time) (bool, error) {
	entry := &domain.Entry{
		Label:       tpl.Label,
		Kind:        tpl.Kind,
		Category:    tpl.Category,
		Amount:      tpl.Amount,
		OccursOn:    occursOn,
		TemplateID:  &tpl.ID,
		AggregateID: tpl.AggregateID,
		Source:      domain.EntrySourceRecurring,
	}

	created, err := s.entryRepo.Create(entry)
	if errors.Is(err, domain.ErrDuplicateEntry) {
		s.logger.Debug().
			Int64("template_id", tpl.ID).
			Str("occurs_on", occursOn.Format("2006-01-02")).
			Msg("Occurrence already materialized, skipping side effect")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create entry: %w", err)
	}

	if tpl.AggregateID != nil {
		if err := s.aggregates.AddAmount(*tpl.AggregateID, created.Amount); err != nil {
			// The entry is persisted but its side effect is not; this must
			// surface as retry, never as success.
			return false, fmt.Errorf("apply amount to aggregate %d: %w", *tpl.AggregateID, err)
		}
	}

	return true, nil
}
