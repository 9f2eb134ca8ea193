package analytics

import "errors"

var (
	// ErrInvalidTimeRange is returned when start_date is after end_date
	ErrInvalidTimeRange = errors.New("invalid time range: start date after end date")

	// ErrInvalidPeriod is returned when the period is not recognized
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInvalidMetric is returned when a request names no valid metric
	ErrInvalidMetric = errors.New("invalid metric")

	// ErrInvalidFilter is returned when insight filter parameters are invalid
	ErrInvalidFilter = errors.New("invalid filter parameters")

	// ErrInsightNotFound is returned when an insight is not found in the log
	ErrInsightNotFound = errors.New("insight not found")

	// ErrSourceUnavailable is returned by event sources when the backing
	// store cannot be reached; callers degrade to an empty series
	ErrSourceUnavailable = errors.New("event source unavailable")
)
