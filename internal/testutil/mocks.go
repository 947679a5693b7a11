package testutil

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Measdoulas/CASHRULER-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

// CallLog records the order of store calls across mocks, so tests can assert
// the generator's per-template ordering guarantees.
type CallLog struct {
	mu    sync.Mutex
	calls []string
}

// Record appends a call description to the log
func (l *CallLog) Record(call string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

// Calls returns a snapshot of recorded calls
func (l *CallLog) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// MockTemplateRepository is a mock implementation of domain.TemplateRepository
type MockTemplateRepository struct {
	Templates map[int64]*domain.RecurringTemplate
	Updated   []int64
	Log       *CallLog
	FindDueFn func(asOf time.Time) ([]*domain.RecurringTemplate, error)
	UpdateFn  func(t *domain.RecurringTemplate) (*domain.RecurringTemplate, error)
}

// NewMockTemplateRepository creates a new MockTemplateRepository
func NewMockTemplateRepository() *MockTemplateRepository {
	return &MockTemplateRepository{
		Templates: make(map[int64]*domain.RecurringTemplate),
	}
}

// AddTemplate adds a template to the mock repository (helper for tests)
func (m *MockTemplateRepository) AddTemplate(t *domain.RecurringTemplate) {
	m.Templates[t.ID] = t
}

// FindDue returns enabled templates with a next-due date on or before asOf
func (m *MockTemplateRepository) FindDue(asOf time.Time) ([]*domain.RecurringTemplate, error) {
	if m.FindDueFn != nil {
		return m.FindDueFn(asOf)
	}
	var due []*domain.RecurringTemplate
	for _, t := range m.Templates {
		if !t.Recurring || t.DeletedAt != nil || t.NextDue == nil {
			continue
		}
		if !t.NextDue.After(asOf) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due, nil
}

// FindUpcoming returns enabled templates with a next-due date within [from, to]
func (m *MockTemplateRepository) FindUpcoming(from, to time.Time) ([]*domain.RecurringTemplate, error) {
	var upcoming []*domain.RecurringTemplate
	for _, t := range m.Templates {
		if !t.Recurring || t.DeletedAt != nil || t.NextDue == nil {
			continue
		}
		if !t.NextDue.Before(from) && !t.NextDue.After(to) {
			upcoming = append(upcoming, t)
		}
	}
	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].ID < upcoming[j].ID })
	return upcoming, nil
}

// GetByID retrieves a template by ID
func (m *MockTemplateRepository) GetByID(id int64) (*domain.RecurringTemplate, error) {
	if t, ok := m.Templates[id]; ok {
		return t, nil
	}
	return nil, domain.ErrTemplateNotFound
}

// Update updates a template
func (m *MockTemplateRepository) Update(t *domain.RecurringTemplate) (*domain.RecurringTemplate, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(t)
	}
	if _, ok := m.Templates[t.ID]; !ok {
		return nil, domain.ErrTemplateNotFound
	}
	m.Log.Record(fmt.Sprintf("template.update %d", t.ID))
	m.Templates[t.ID] = t
	m.Updated = append(m.Updated, t.ID)
	return t, nil
}

// MockEntryRepository is a mock implementation of domain.EntryRepository.
// It emulates the store's unique (template, occurrence date) constraint.
type MockEntryRepository struct {
	Entries  []*domain.Entry
	NextID   int64
	Log      *CallLog
	CreateFn func(e *domain.Entry) (*domain.Entry, error)
	byKey    map[string]bool
}

// NewMockEntryRepository creates a new MockEntryRepository
func NewMockEntryRepository() *MockEntryRepository {
	return &MockEntryRepository{
		NextID: 1,
		byKey:  make(map[string]bool),
	}
}

func entryKey(templateID int64, occursOn time.Time) string {
	return fmt.Sprintf("%d|%s", templateID, occursOn.Format("2006-01-02"))
}

// Create persists an entry, rejecting duplicates per (template, date)
func (m *MockEntryRepository) Create(e *domain.Entry) (*domain.Entry, error) {
	if m.CreateFn != nil {
		return m.CreateFn(e)
	}
	if e.TemplateID != nil {
		key := entryKey(*e.TemplateID, e.OccursOn)
		if m.byKey[key] {
			return nil, domain.ErrDuplicateEntry
		}
		m.byKey[key] = true
	}
	e.ID = m.NextID
	m.NextID++
	e.CreatedAt = time.Now()
	m.Entries = append(m.Entries, e)
	m.Log.Record(fmt.Sprintf("entry.create %d %s", derefID(e.TemplateID), e.OccursOn.Format("2006-01-02")))
	return e, nil
}

// FindDueBetween returns unpaid entries occurring within [from, to]
func (m *MockEntryRepository) FindDueBetween(from, to time.Time) ([]*domain.Entry, error) {
	var due []*domain.Entry
	for _, e := range m.Entries {
		if e.IsPaid {
			continue
		}
		if !e.OccursOn.Before(from) && !e.OccursOn.After(to) {
			due = append(due, e)
		}
	}
	return due, nil
}

// EntriesForTemplate returns created entries for a template (helper for tests)
func (m *MockEntryRepository) EntriesForTemplate(templateID int64) []*domain.Entry {
	var out []*domain.Entry
	for _, e := range m.Entries {
		if e.TemplateID != nil && *e.TemplateID == templateID {
			out = append(out, e)
		}
	}
	return out
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

// MockAggregateStore is a mock implementation of domain.AggregateStore
type MockAggregateStore struct {
	Aggregates map[int64]*domain.Aggregate
	Log        *CallLog
	AddFn      func(id int64, amount decimal.Decimal) error
}

// NewMockAggregateStore creates a new MockAggregateStore
func NewMockAggregateStore() *MockAggregateStore {
	return &MockAggregateStore{
		Aggregates: make(map[int64]*domain.Aggregate),
	}
}

// AddAggregate adds an aggregate to the mock store (helper for tests)
func (m *MockAggregateStore) AddAggregate(a *domain.Aggregate) {
	m.Aggregates[a.ID] = a
}

// AddAmount atomically increments an aggregate's accumulated value
func (m *MockAggregateStore) AddAmount(id int64, amount decimal.Decimal) error {
	if m.AddFn != nil {
		return m.AddFn(id, amount)
	}
	a, ok := m.Aggregates[id]
	if !ok {
		return domain.ErrAggregateNotFound
	}
	a.Accumulated = a.Accumulated.Add(amount)
	if a.ClampZero && a.Accumulated.IsNegative() {
		a.Accumulated = decimal.Zero
	}
	a.UpdatedAt = time.Now()
	m.Log.Record(fmt.Sprintf("aggregate.add %d %s", id, amount.String()))
	return nil
}

// GetByID retrieves an aggregate by ID
func (m *MockAggregateStore) GetByID(id int64) (*domain.Aggregate, error) {
	if a, ok := m.Aggregates[id]; ok {
		return a, nil
	}
	return nil, domain.ErrAggregateNotFound
}

// RenderedNotification captures one render call
type RenderedNotification struct {
	Title string
	Body  string
}

// MockNotificationRenderer is a mock implementation of domain.NotificationRenderer
type MockNotificationRenderer struct {
	Rendered map[int]RenderedNotification
	Order    []int
	RenderFn func(notificationID int, title, body string) error
}

// NewMockNotificationRenderer creates a new MockNotificationRenderer
func NewMockNotificationRenderer() *MockNotificationRenderer {
	return &MockNotificationRenderer{
		Rendered: make(map[int]RenderedNotification),
	}
}

// Render records a notification; same ID overwrites rather than duplicates
func (m *MockNotificationRenderer) Render(notificationID int, title, body string) error {
	if m.RenderFn != nil {
		return m.RenderFn(notificationID, title, body)
	}
	m.Rendered[notificationID] = RenderedNotification{Title: title, Body: body}
	m.Order = append(m.Order, notificationID)
	return nil
}

// JobReport captures one reported run result
type JobReport struct {
	Job    string
	Result domain.JobResult
}

// MockJobReporter is a mock implementation of domain.JobReporter
type MockJobReporter struct {
	mu      sync.Mutex
	Reports []JobReport
}

// Report records a run result
func (m *MockJobReporter) Report(job string, result domain.JobResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reports = append(m.Reports, JobReport{Job: job, Result: result})
}

// Last returns the most recent report, if any
func (m *MockJobReporter) Last() (JobReport, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Reports) == 0 {
		return JobReport{}, false
	}
	return m.Reports[len(m.Reports)-1], true
}
