package lifecycle

import "github.com/ignite/profilebot/internal/domain"

// SeenIndex records which items have been evaluated, partitioned by the
// hour-of-day they were created in. Entries are never pruned by time; ids
// from different days that share an hour accumulate in the same bucket.
type SeenIndex struct {
	buckets map[domain.HourBucket]map[string]struct{}
}

// NewSeenIndex returns an empty index.
func NewSeenIndex() *SeenIndex {
	return &SeenIndex{buckets: make(map[domain.HourBucket]map[string]struct{})}
}

// Mark records id under bucket.
func (s *SeenIndex) Mark(id string, bucket domain.HourBucket) {
	set, ok := s.buckets[bucket]
	if !ok {
		set = make(map[string]struct{})
		s.buckets[bucket] = set
	}
	set[id] = struct{}{}
}

// Contains reports whether id is marked under bucket.
func (s *SeenIndex) Contains(id string, bucket domain.HourBucket) bool {
	_, ok := s.buckets[bucket][id]
	return ok
}

// Evict removes id from bucket so the item is admitted again. Evicting an
// absent id is a no-op.
func (s *SeenIndex) Evict(id string, bucket domain.HourBucket) {
	set, ok := s.buckets[bucket]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(s.buckets, bucket)
	}
}

// Len returns the number of marked ids across all buckets.
func (s *SeenIndex) Len() int {
	n := 0
	for _, set := range s.buckets {
		n += len(set)
	}
	return n
}
