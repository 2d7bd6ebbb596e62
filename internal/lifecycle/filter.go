package lifecycle

import (
	"strings"
	"time"

	"github.com/ignite/profilebot/internal/domain"
)

// Verdict explains an IngestFilter decision.
type Verdict int

const (
	// Admitted items matched a search term and should get a reply.
	Admitted Verdict = iota
	// RejectedOwn items were written by the bot itself.
	RejectedOwn
	// RejectedDeleted items have no author.
	RejectedDeleted
	// RejectedSeen items are already in the seen index.
	RejectedSeen
	// RejectedStale items are older than the configured timeframe.
	RejectedStale
	// NoMatch items were marked as seen but contain no search term.
	NoMatch
)

var verdictNames = map[Verdict]string{
	Admitted:        "admitted",
	RejectedOwn:     "own_post",
	RejectedDeleted: "deleted_author",
	RejectedSeen:    "already_seen",
	RejectedStale:   "too_old",
	NoMatch:         "no_match",
}

// String returns the metric label for v.
func (v Verdict) String() string { return verdictNames[v] }

// IngestFilter decides whether an incoming item is worth a reply attempt.
type IngestFilter struct {
	identity string
	terms    []string
	maxAge   time.Duration
	now      func() time.Time
}

// NewIngestFilter builds a filter for the bot account identity.
func NewIngestFilter(identity string, terms []string, maxAge time.Duration, now func() time.Time) *IngestFilter {
	if now == nil {
		now = time.Now
	}
	return &IngestFilter{identity: identity, terms: terms, maxAge: maxAge, now: now}
}

// Evaluate runs the filter against st. Own, deleted, seen and stale items are
// rejected without touching st. Anything else is marked as seen before the
// search terms are tested, so an item is evaluated once even if the process
// dies mid-reply.
func (f *IngestFilter) Evaluate(st *State, item domain.ContentItem) Verdict {
	author := item.AuthorName()
	if author == "" {
		return RejectedDeleted
	}
	if author == f.identity || st.OwnPosts.Tracks(item.ItemID()) {
		return RejectedOwn
	}

	bucket := domain.BucketOf(item.Created())
	if st.Seen.Contains(item.ItemID(), bucket) {
		return RejectedSeen
	}
	if f.now().Sub(item.Created()) > f.maxAge {
		return RejectedStale
	}

	st.Seen.Mark(item.ItemID(), bucket)
	if f.matches(item.Text()) {
		return Admitted
	}
	return NoMatch
}

// Admit reports whether Evaluate admits the item.
func (f *IngestFilter) Admit(st *State, item domain.ContentItem) bool {
	return f.Evaluate(st, item) == Admitted
}

func (f *IngestFilter) matches(text string) bool {
	for _, term := range f.terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
