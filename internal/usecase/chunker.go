package usecase

import (
	"iter"
	"time"

	"github.com/vitos/bybit_trade_journal/internal/domain"
)

// Per-call window limits imposed by the exchange's history endpoints.
const (
	SpanWeek  = 7 * 24 * time.Hour
	SpanMonth = 30 * 24 * time.Hour
)

// Chunks splits a half-open range into consecutive sub-ranges of at most
// maxSpan. The chunks are contiguous, non-overlapping and together cover the
// input exactly; the last chunk ends at r.End even when shorter than maxSpan.
// A degenerate range (or non-positive maxSpan) yields nothing. The sequence
// is lazy and can be iterated more than once.
func Chunks(r domain.TimeRange, maxSpan time.Duration) iter.Seq[domain.TimeRange] {
	return func(yield func(domain.TimeRange) bool) {
		if maxSpan <= 0 || !r.IsValid() {
			return
		}
		for cur := r.Start; cur.Before(r.End); {
			end := cur.Add(maxSpan)
			if end.After(r.End) {
				end = r.End
			}
			if !yield(domain.TimeRange{Start: cur, End: end}) {
				return
			}
			cur = end
		}
	}
}
