package trips

import "errors"

var (
	// ErrEmptyDateSet is returned when a series is created without any
	// occurrence dates.
	ErrEmptyDateSet = errors.New("date set must not be empty")

	// ErrNonSharedFieldInBulkEdit is returned when a bulk edit attempts
	// to change a per-occurrence field (date, capacity or status).
	ErrNonSharedFieldInBulkEdit = errors.New("non-shared field in bulk edit")

	// ErrSeriesNotFound is returned when no occurrences carry the series id.
	ErrSeriesNotFound = errors.New("series not found")

	// ErrOccurrenceNotFound is returned when an occurrence id is unknown.
	ErrOccurrenceNotFound = errors.New("occurrence not found")

	// ErrNoFieldsToUpdate is returned when an edit request carries no changes.
	ErrNoFieldsToUpdate = errors.New("no fields to update")
)
