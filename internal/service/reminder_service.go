package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Measdoulas/CASHRULER-sub000/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	// ReminderWindowDays is the lookahead window: items due today through
	// this many days ahead produce a reminder.
	ReminderWindowDays = 3

	// DefaultRenderRate is the default number of render calls per second
	// passed to the notification collaborator.
	DefaultRenderRate = 20
	// DefaultRenderBurst is the default render burst size
	DefaultRenderBurst = 5
)

// ReminderService decides which upcoming items deserve a user-facing reminder
// and delegates presentation to the notification renderer. It never mutates
// schedule state; advancing next-due dates is the generator's job alone.
type ReminderService struct {
	templateRepo domain.TemplateRepository
	entryRepo    domain.EntryRepository
	renderer     domain.NotificationRenderer
	limiter      *rate.Limiter
	logger       zerolog.Logger
}

// NewReminderService creates a new ReminderService
func NewReminderService(
	templateRepo domain.TemplateRepository,
	entryRepo domain.EntryRepository,
	renderer domain.NotificationRenderer,
	logger zerolog.Logger,
) *ReminderService {
	return &ReminderService{
		templateRepo: templateRepo,
		entryRepo:    entryRepo,
		renderer:     renderer,
		limiter:      rate.NewLimiter(rate.Limit(DefaultRenderRate), DefaultRenderBurst),
		logger:       logger.With().Str("component", "reminder").Logger(),
	}
}

// ReminderReport holds the result of one reminder evaluation run
type ReminderReport struct {
	Evaluated int      `json:"evaluated"`
	Fired     int      `json:"fired"`
	Errors    []string `json:"errors,omitempty"`
}

// Name identifies the reminder job to the scheduling collaborator.
func (s *ReminderService) Name() string { return "due-reminders" }

// Run executes one reminder evaluation and folds the report into an error for
// retry classification. The report is returned alongside so a manual trigger
// can surface it.
func (s *ReminderService) Run(ctx context.Context, asOf time.Time) (any, error) {
	report, err := s.Evaluate(ctx, asOf)
	if err != nil {
		return report, err
	}
	if len(report.Errors) > 0 {
		return report, fmt.Errorf("%d of %d reminders failed to render", len(report.Errors), report.Evaluated)
	}
	return report, nil
}

// Evaluate scans unpaid entries and upcoming template occurrences, fires a
// reminder for each item due within the lookahead window, and skips the rest.
// Already-overdue items are the generator's responsibility, not a reminder.
func (s *ReminderService) Evaluate(ctx context.Context, asOf time.Time) (*ReminderReport, error) {
	today := domain.DayOf(asOf)
	horizon := today.AddDate(0, 0, ReminderWindowDays)

	report := &ReminderReport{Errors: make([]string, 0)}

	entries, err := s.entryRepo.FindDueBetween(today, horizon)
	if err != nil {
		return nil, fmt.Errorf("find due entries: %w", err)
	}
	for _, e := range entries {
		report.Evaluated++
		s.remind(ctx, report, entryNotificationID(e.ID), e.Label, e.Amount, domain.DaysUntil(today, e.OccursOn))
	}

	templates, err := s.templateRepo.FindUpcoming(today, horizon)
	if err != nil {
		return nil, fmt.Errorf("find upcoming templates: %w", err)
	}
	for _, tpl := range templates {
		if tpl.NextDue == nil {
			continue
		}
		report.Evaluated++
		s.remind(ctx, report, templateNotificationID(tpl.ID), tpl.Label, tpl.Amount, domain.DaysUntil(today, *tpl.NextDue))
	}

	s.logger.Info().
		Int("evaluated", report.Evaluated).
		Int("fired", report.Fired).
		Int("errors", len(report.Errors)).
		Msg("Reminder evaluation complete")

	return report, nil
}

// Entry- and template-derived notification IDs live on opposite parities, so
// the two spaces stay disjoint for every record ID.
func entryNotificationID(id int64) int    { return int(id) * 2 }
func templateNotificationID(id int64) int { return int(id)*2 + 1 }

// remind fires a single reminder when daysUntil falls inside [0, window].
func (s *ReminderService) remind(ctx context.Context, report *ReminderReport, notificationID int, label string, amount decimal.Decimal, daysUntil int) {
	if daysUntil < 0 || daysUntil > ReminderWindowDays {
		return
	}

	if err := s.limiter.Wait(ctx); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", label, err))
		return
	}

	title, body := reminderMessage(label, amount, daysUntil)
	if err := s.renderer.Render(notificationID, title, body); err != nil {
		s.logger.Error().Err(err).Int("notification_id", notificationID).Str("label", label).Msg("Failed to render reminder")
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", label, err))
		return
	}

	report.Fired++
}

// reminderMessage builds day-specific wording for a reminder.
func reminderMessage(label string, amount decimal.Decimal, daysUntil int) (title, body string) {
	switch daysUntil {
	case 0:
		title = label + " is due today"
	case 1:
		title = label + " is due tomorrow"
	default:
		title = fmt.Sprintf("%s is due in %d days", label, daysUntil)
	}
	body = fmt.Sprintf("Amount: %s", amount.StringFixed(2))
	return title, body
}
