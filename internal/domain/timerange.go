package domain

import "time"

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Span returns the length of the range.
func (r TimeRange) Span() time.Duration {
	return r.End.Sub(r.Start)
}

// IsValid reports whether the range contains at least one instant.
func (r TimeRange) IsValid() bool {
	return r.Start.Before(r.End)
}
