package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Measdoulas/CASHRULER-sub000/internal/domain"
	"github.com/Measdoulas/CASHRULER-sub000/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func setupReminderTest() (*ReminderService, *testutil.MockTemplateRepository, *testutil.MockEntryRepository, *testutil.MockNotificationRenderer) {
	templateRepo := testutil.NewMockTemplateRepository()
	entryRepo := testutil.NewMockEntryRepository()
	renderer := testutil.NewMockNotificationRenderer()
	service := NewReminderService(templateRepo, entryRepo, renderer, zerolog.Nop())
	return service, templateRepo, entryRepo, renderer
}

// staticEntryRepo returns a fixed entry set regardless of the query range, so
// tests can exercise the service's own window check.
type staticEntryRepo struct {
	entries []*domain.Entry
}

func (r *staticEntryRepo) Create(e *domain.Entry) (*domain.Entry, error) { return e, nil }
func (r *staticEntryRepo) FindDueBetween(from, to time.Time) ([]*domain.Entry, error) {
	return r.entries, nil
}

func unpaidEntry(id int64, occursOn time.Time) *domain.Entry {
	return &domain.Entry{
		ID:       id,
		Label:    fmt.Sprintf("Bill %d", id),
		Kind:     domain.TemplateExpense,
		Amount:   decimal.NewFromInt(60),
		OccursOn: occursOn,
		Source:   domain.EntrySourceRecurring,
	}
}

func TestEvaluate_WindowBoundaries(t *testing.T) {
	templateRepo := testutil.NewMockTemplateRepository()
	renderer := testutil.NewMockNotificationRenderer()
	entryRepo := &staticEntryRepo{entries: []*domain.Entry{
		unpaidEntry(1, day(2026, time.March, 9)),  // -1: overdue, generator's problem
		unpaidEntry(2, day(2026, time.March, 10)), // 0
		unpaidEntry(3, day(2026, time.March, 11)), // 1
		unpaidEntry(4, day(2026, time.March, 12)), // 2
		unpaidEntry(5, day(2026, time.March, 13)), // 3
		unpaidEntry(6, day(2026, time.March, 14)), // 4: beyond window
	}}
	service := NewReminderService(templateRepo, entryRepo, renderer, zerolog.Nop())

	report, err := service.Evaluate(context.Background(), testToday)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if report.Fired != 4 {
		t.Errorf("Expected 4 reminders fired, got %d", report.Fired)
	}
	for _, id := range []int64{1, 6} {
		if _, ok := renderer.Rendered[entryNotificationID(id)]; ok {
			t.Errorf("Entry %d is outside the window and must not fire", id)
		}
	}

	wantTitles := map[int64]string{
		2: "Bill 2 is due today",
		3: "Bill 3 is due tomorrow",
		4: "Bill 4 is due in 2 days",
		5: "Bill 5 is due in 3 days",
	}
	for id, want := range wantTitles {
		got, ok := renderer.Rendered[entryNotificationID(id)]
		if !ok {
			t.Errorf("Expected reminder for entry %d", id)
			continue
		}
		if got.Title != want {
			t.Errorf("Entry %d title = %q, want %q", id, got.Title, want)
		}
	}
}

func TestEvaluate_RepeatedRunsUpdateNotFanOut(t *testing.T) {
	service, _, entryRepo, renderer := setupReminderTest()

	tplID := int64(4)
	e := unpaidEntry(0, day(2026, time.March, 11))
	e.TemplateID = &tplID
	if _, err := entryRepo.Create(e); err != nil {
		t.Fatalf("Seeding entry failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := service.Evaluate(context.Background(), testToday); err != nil {
			t.Fatalf("Evaluate %d failed: %v", i, err)
		}
	}

	// Two render calls, one stable identifier: the platform updates the
	// notification in place.
	if len(renderer.Order) != 2 {
		t.Errorf("Expected 2 render calls, got %d", len(renderer.Order))
	}
	if len(renderer.Rendered) != 1 {
		t.Errorf("Expected 1 distinct notification, got %d", len(renderer.Rendered))
	}
}

func TestEvaluate_TemplateOccurrencesGetDisjointIDs(t *testing.T) {
	service, templateRepo, entryRepo, renderer := setupReminderTest()

	// Entry ID 1 and template ID 1 must not share a notification identifier.
	if _, err := entryRepo.Create(unpaidEntry(0, day(2026, time.March, 11))); err != nil {
		t.Fatalf("Seeding entry failed: %v", err)
	}
	templateRepo.AddTemplate(recurringTemplate(1, 80, 30, day(2026, time.March, 12)))

	report, err := service.Evaluate(context.Background(), testToday)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if report.Fired != 2 {
		t.Fatalf("Expected 2 reminders, got %d", report.Fired)
	}
	if len(renderer.Rendered) != 2 {
		t.Errorf("Expected 2 distinct notification IDs, got %d", len(renderer.Rendered))
	}

	// The notifier never touches schedule state.
	if !templateRepo.Templates[1].NextDue.Equal(day(2026, time.March, 12)) {
		t.Errorf("Notifier mutated next due to %v", templateRepo.Templates[1].NextDue)
	}
	if len(templateRepo.Updated) != 0 {
		t.Error("Notifier must not update templates")
	}
}

func TestEvaluate_LargeEntryIDStaysDisjointFromTemplates(t *testing.T) {
	templateRepo := testutil.NewMockTemplateRepository()
	renderer := testutil.NewMockNotificationRenderer()
	entryRepo := &staticEntryRepo{entries: []*domain.Entry{
		unpaidEntry(1<<20+7, day(2026, time.March, 11)),
	}}
	service := NewReminderService(templateRepo, entryRepo, renderer, zerolog.Nop())

	templateRepo.AddTemplate(recurringTemplate(7, 80, 30, day(2026, time.March, 12)))

	report, err := service.Evaluate(context.Background(), testToday)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if report.Fired != 2 {
		t.Fatalf("Expected 2 reminders, got %d", report.Fired)
	}
	if len(renderer.Rendered) != 2 {
		t.Errorf("Entry and template reminders merged into %d notification(s)", len(renderer.Rendered))
	}
}

func TestRun_RenderFailureReportsRetry(t *testing.T) {
	service, _, entryRepo, renderer := setupReminderTest()

	if _, err := entryRepo.Create(unpaidEntry(0, day(2026, time.March, 10))); err != nil {
		t.Fatalf("Seeding entry failed: %v", err)
	}
	if _, err := entryRepo.Create(unpaidEntry(0, day(2026, time.March, 11))); err != nil {
		t.Fatalf("Seeding entry failed: %v", err)
	}

	calls := 0
	renderer.RenderFn = func(notificationID int, title, body string) error {
		calls++
		if calls == 1 {
			return errors.New("notification service unavailable")
		}
		return nil
	}

	_, err := service.Run(context.Background(), testToday)
	if err == nil {
		t.Fatal("Expected error when a render fails")
	}
	if calls != 2 {
		t.Errorf("Expected remaining reminders to still be attempted, got %d calls", calls)
	}
}
