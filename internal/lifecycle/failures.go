package lifecycle

import "github.com/ignite/profilebot/internal/domain"

// Decision is the FailureTracker's verdict for a failed item.
type Decision int

const (
	// Retry means the item was evicted from the seen index and will be
	// admitted again on the next poll.
	Retry Decision = iota
	// Abandon is terminal: the item stays marked and is never retried.
	Abandon
)

func (d Decision) String() string {
	if d == Abandon {
		return "abandon"
	}
	return "retry"
}

// FailureTracker counts failures per item and decides between bounded retry
// and permanent abandonment.
type FailureTracker struct {
	threshold int
	counts    map[string]int
}

// NewFailureTracker returns a tracker that abandons an item on its
// threshold-th failure. Thresholds below 1 are treated as 1.
func NewFailureTracker(threshold int) *FailureTracker {
	if threshold < 1 {
		threshold = 1
	}
	return &FailureTracker{threshold: threshold, counts: make(map[string]int)}
}

// RecordFailure increments the failure count of id. Below the threshold the
// id is evicted from seen under bucket and Retry is returned; otherwise the
// mark stays in place and Abandon is returned.
func (f *FailureTracker) RecordFailure(seen *SeenIndex, id string, bucket domain.HourBucket) Decision {
	f.counts[id]++
	if f.counts[id] < f.threshold {
		seen.Evict(id, bucket)
		return Retry
	}
	return Abandon
}

// Count returns how many times id has failed.
func (f *FailureTracker) Count(id string) int { return f.counts[id] }

// Threshold returns the configured give-up threshold.
func (f *FailureTracker) Threshold() int { return f.threshold }
