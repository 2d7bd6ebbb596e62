package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ignite/profilebot/internal/domain"
)

// OwnHistory lists the bot's own replies, newest first.
type OwnHistory interface {
	FetchOwnReplies(ctx context.Context, limit int) ([]*domain.Comment, error)
}

// Moderator reads and retracts the bot's own replies.
type Moderator interface {
	// FetchScore returns domain.ErrNotFound when the reply or its discussion
	// can no longer be resolved.
	FetchScore(ctx context.Context, rec domain.OwnPostRecord) (int, error)
	DeleteReply(ctx context.Context, replyID string) error
}

// SweepResult summarizes one pass over the tracked replies.
type SweepResult struct {
	Checked  int
	Expired  int
	Vanished int
	Deleted  []string
}

// SelfPostMonitor tracks the bot's own replies for a bounded retention
// window so they can be removed when downvoted.
type SelfPostMonitor struct {
	retention   time.Duration
	historySize int
	now         func() time.Time
	records     map[string]domain.OwnPostRecord
}

// NewSelfPostMonitor returns a monitor that watches replies for retention and
// reads at most historySize replies during bootstrap.
func NewSelfPostMonitor(retention time.Duration, historySize int, now func() time.Time) *SelfPostMonitor {
	if now == nil {
		now = time.Now
	}
	if historySize <= 0 {
		historySize = 200
	}
	return &SelfPostMonitor{
		retention:   retention,
		historySize: historySize,
		now:         now,
		records:     make(map[string]domain.OwnPostRecord),
	}
}

// Bootstrap rebuilds state from the bot's own recent replies. Each reply's
// parent id is marked in seen under the hour of the reply itself, on the
// assumption that the bot answered within the same hour-of-day as the parent
// was created. Replies older than the retention window end the scan.
func (m *SelfPostMonitor) Bootstrap(ctx context.Context, history OwnHistory, seen *SeenIndex) (int, error) {
	replies, err := history.FetchOwnReplies(ctx, m.historySize)
	if err != nil {
		return 0, fmt.Errorf("bootstrap own replies: %w", err)
	}

	cutoff := m.now().Add(-m.retention)
	n := 0
	for _, reply := range replies {
		if reply.CreatedUTC.Before(cutoff) {
			break
		}
		seen.Mark(reply.ParentItemID(), domain.BucketOf(reply.CreatedUTC))
		m.Track(domain.OwnPostRecord{
			ReplyID:      reply.ID,
			DiscussionID: reply.DiscussionID(),
			PostedAt:     reply.CreatedUTC,
		})
		n++
	}
	return n, nil
}

// Track starts watching a freshly posted reply.
func (m *SelfPostMonitor) Track(rec domain.OwnPostRecord) {
	m.records[rec.ReplyID] = rec
}

// Tracks reports whether replyID is one of the watched replies.
func (m *SelfPostMonitor) Tracks(replyID string) bool {
	_, ok := m.records[replyID]
	return ok
}

// Record returns the tracked record for replyID.
func (m *SelfPostMonitor) Record(replyID string) (domain.OwnPostRecord, bool) {
	rec, ok := m.records[replyID]
	return rec, ok
}

// Len returns the number of tracked replies.
func (m *SelfPostMonitor) Len() int { return len(m.records) }

// Sweep drops records past retention, deletes replies with a negative score,
// and drops records whose reply can no longer be found. Other errors abort
// the sweep and leave the remaining records untouched for the next pass.
func (m *SelfPostMonitor) Sweep(ctx context.Context, mod Moderator) (SweepResult, error) {
	var res SweepResult
	now := m.now()

	for _, rec := range m.ordered() {
		if rec.Age(now) > m.retention {
			delete(m.records, rec.ReplyID)
			res.Expired++
			continue
		}

		res.Checked++
		score, err := mod.FetchScore(ctx, rec)
		if errors.Is(err, domain.ErrNotFound) {
			delete(m.records, rec.ReplyID)
			res.Vanished++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("score of %s: %w", rec.ReplyID, err)
		}
		if score >= 0 {
			continue
		}

		if err := mod.DeleteReply(ctx, rec.ReplyID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				delete(m.records, rec.ReplyID)
				res.Vanished++
				continue
			}
			return res, fmt.Errorf("delete %s: %w", rec.ReplyID, err)
		}
		delete(m.records, rec.ReplyID)
		res.Deleted = append(res.Deleted, rec.ReplyID)
	}
	return res, nil
}

// ordered returns records oldest first so sweeps are deterministic.
func (m *SelfPostMonitor) ordered() []domain.OwnPostRecord {
	out := make([]domain.OwnPostRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PostedAt.Equal(out[j].PostedAt) {
			return out[i].ReplyID < out[j].ReplyID
		}
		return out[i].PostedAt.Before(out[j].PostedAt)
	})
	return out
}
