package lifecycle

import "time"

// Policy carries the knobs that shape the lifecycle structures.
type Policy struct {
	FailsAllowed      int
	SelfPostRetention time.Duration
	OwnHistoryLimit   int
}

// State owns every lifecycle structure. It is created once per process and
// survives reconnects; only a restart resets it.
type State struct {
	Seen     *SeenIndex
	Ledger   *ReplyLedger
	Failures *FailureTracker
	OwnPosts *SelfPostMonitor
}

// NewState builds empty lifecycle structures for p.
func NewState(p Policy, now func() time.Time) *State {
	return &State{
		Seen:     NewSeenIndex(),
		Ledger:   NewReplyLedger(),
		Failures: NewFailureTracker(p.FailsAllowed),
		OwnPosts: NewSelfPostMonitor(p.SelfPostRetention, p.OwnHistoryLimit, now),
	}
}
