package domain

import "errors"

// Domain errors
var (
	ErrTemplateNotFound  = errors.New("recurring template not found")
	ErrAggregateNotFound = errors.New("aggregate not found")
	ErrInvalidInterval   = errors.New("recurrence interval must be positive")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrDuplicateEntry    = errors.New("entry already exists for this occurrence date")
	ErrMalformedTemplate = errors.New("template data is malformed")
)

// Validation constants
const (
	MaxLabelLength = 255
)
