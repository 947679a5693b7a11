package domain

// NotificationRenderer is the external notification-rendering collaborator.
// Implementations own presentation and delivery; the engine only decides
// whether a notification should exist. Repeated renders with the same
// notification ID update the existing notification rather than duplicating it.
type NotificationRenderer interface {
	Render(notificationID int, title, body string) error
}

// JobResult classifies the outcome of one scheduled job run.
type JobResult string

const (
	// JobSuccess means every template was processed without error.
	JobSuccess JobResult = "success"
	// JobRetry means a recoverable error occurred and the same due window
	// must be reprocessed on the next run.
	JobRetry JobResult = "retry"
	// JobFailure means the run can never succeed and must not be retried.
	JobFailure JobResult = "failure"
)

// JobReporter receives the result classification of each run. The external
// job-scheduling collaborator implements this and owns rescheduling and
// backoff timing.
type JobReporter interface {
	Report(job string, result JobResult)
}
