package lifecycle

import "github.com/ignite/profilebot/internal/domain"

// ReplyLedger remembers which profiles already received a reply in each
// discussion. It grows for the life of the process.
type ReplyLedger struct {
	discussions map[string]map[domain.ProfileKey]struct{}
}

// NewReplyLedger returns an empty ledger.
func NewReplyLedger() *ReplyLedger {
	return &ReplyLedger{discussions: make(map[string]map[domain.ProfileKey]struct{})}
}

// HasReplied reports whether key was already answered in discussionID.
func (l *ReplyLedger) HasReplied(discussionID string, key domain.ProfileKey) bool {
	_, ok := l.discussions[discussionID][key]
	return ok
}

// Record marks key as answered in discussionID. It returns false when the
// pair was already present, leaving the ledger unchanged.
func (l *ReplyLedger) Record(discussionID string, key domain.ProfileKey) bool {
	keys, ok := l.discussions[discussionID]
	if !ok {
		keys = make(map[domain.ProfileKey]struct{})
		l.discussions[discussionID] = keys
	}
	if _, dup := keys[key]; dup {
		return false
	}
	keys[key] = struct{}{}
	return true
}

// Len returns the number of (discussion, profile) pairs recorded.
func (l *ReplyLedger) Len() int {
	n := 0
	for _, keys := range l.discussions {
		n += len(keys)
	}
	return n
}
