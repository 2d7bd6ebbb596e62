package reddit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/profilebot/internal/domain"
	"github.com/ignite/profilebot/internal/pkg/logger"
)

// Source yields new items from the monitored subreddit.
type Source interface {
	Connect(ctx context.Context) error
	FetchNewSubmissions(ctx context.Context, limit int) ([]domain.ContentItem, error)
	FetchNewComments(ctx context.Context, limit int) ([]domain.ContentItem, error)
}

// DryRun reads from a real Source but only logs the replies it would post.
// Synthetic replies keep a zero score, so they age out of self-moderation.
type DryRun struct {
	Source
	log *logger.Logger
	now func() time.Time
}

// NewDryRun wraps src.
func NewDryRun(src Source) *DryRun {
	return &DryRun{Source: src, log: logger.With("component", "dryrun"), now: time.Now}
}

// PostReply logs text and returns a record with a generated id.
func (d *DryRun) PostReply(_ context.Context, parent domain.ContentItem, text string) (domain.OwnPostRecord, error) {
	id := "dryrun-" + uuid.NewString()
	d.log.Info("would reply",
		"parent", domain.Fullname(parent),
		"discussion", parent.DiscussionID(),
		"reply_id", id,
		"chars", len(text))
	d.log.Debug("reply body", "reply_id", id, "text", text)
	return domain.OwnPostRecord{ReplyID: id, DiscussionID: parent.DiscussionID(), PostedAt: d.now().UTC()}, nil
}

// FetchScore reports a neutral score for synthetic replies.
func (d *DryRun) FetchScore(context.Context, domain.OwnPostRecord) (int, error) { return 0, nil }

// DeleteReply is never needed for synthetic replies.
func (d *DryRun) DeleteReply(_ context.Context, replyID string) error {
	d.log.Info("would delete", "reply_id", replyID)
	return nil
}

// FetchOwnReplies returns nothing: a dry run has no history to rebuild.
func (d *DryRun) FetchOwnReplies(context.Context, int) ([]*domain.Comment, error) { return nil, nil }
