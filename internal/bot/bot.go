// Package bot runs the poll, reply and self-moderation loop.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/profilebot/internal/domain"
	"github.com/ignite/profilebot/internal/lifecycle"
	"github.com/ignite/profilebot/internal/monitoring"
	"github.com/ignite/profilebot/internal/pkg/distlock"
	"github.com/ignite/profilebot/internal/pkg/logger"
)

// Transport is the discussion platform.
type Transport interface {
	Connect(ctx context.Context) error
	FetchNewSubmissions(ctx context.Context, limit int) ([]domain.ContentItem, error)
	FetchNewComments(ctx context.Context, limit int) ([]domain.ContentItem, error)
	PostReply(ctx context.Context, parent domain.ContentItem, text string) (domain.OwnPostRecord, error)
	FetchScore(ctx context.Context, rec domain.OwnPostRecord) (int, error)
	DeleteReply(ctx context.Context, replyID string) error
	FetchOwnReplies(ctx context.Context, limit int) ([]*domain.Comment, error)
}

// Composer finds the profile in item text and renders the reply for it.
type Composer interface {
	Key(text string) (domain.ProfileKey, error)
	Compose(ctx context.Context, key domain.ProfileKey) (string, error)
}

// Lease is renewed at the start of every step, including reconnect attempts.
// Only distlock.ErrLost stops the bot; other renew errors take the fault path.
type Lease interface {
	Renew(ctx context.Context) error
}

// Config holds the loop settings.
type Config struct {
	Identity        string
	Terms           []string
	MaxAge          time.Duration
	SubmissionLimit int
	CommentLimit    int
	PollInterval    time.Duration
	FaultRetry      time.Duration
	Policy          lifecycle.Policy
}

// Bot owns the lifecycle state and drives it from a single goroutine.
type Bot struct {
	cfg       Config
	transport Transport
	composer  Composer
	metrics   *monitoring.Metrics
	lease     Lease

	state  *lifecycle.State
	filter *lifecycle.IngestFilter

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	log   *logger.Logger
}

// Option customizes a Bot.
type Option func(*Bot)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Bot) { b.now = now }
}

// WithSleep replaces the wait between cycles.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(b *Bot) { b.sleep = fn }
}

// WithLease guards the loop with an instance lease.
func WithLease(l Lease) Option {
	return func(b *Bot) { b.lease = l }
}

// New builds a bot with empty lifecycle state.
func New(cfg Config, t Transport, c Composer, m *monitoring.Metrics, opts ...Option) *Bot {
	b := &Bot{
		cfg:       cfg,
		transport: t,
		composer:  c,
		metrics:   m,
		now:       time.Now,
		sleep:     sleepCtx,
		log:       logger.With("component", "bot"),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.metrics == nil {
		b.metrics = monitoring.NewMetrics("profilebot")
	}
	b.state = lifecycle.NewState(cfg.Policy, b.now)
	b.filter = lifecycle.NewIngestFilter(cfg.Identity, cfg.Terms, cfg.MaxAge, b.now)
	return b
}

// State exposes the lifecycle structures for inspection.
func (b *Bot) State() *lifecycle.State { return b.state }

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run connects, bootstraps once and then cycles until ctx is done. A failed
// connect, bootstrap or cycle is logged, followed by the fault sleep and a
// fresh connect. Lifecycle state is kept across faults. Run returns nil on
// cancellation and an error only when another instance has taken the lease.
func (b *Bot) Run(ctx context.Context) error {
	connected, bootstrapped := false, false
	b.log.Info("starting", "identity", b.cfg.Identity, "terms", b.cfg.Terms)

	for ctx.Err() == nil {
		if err := b.step(ctx, &connected, &bootstrapped); err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, errLeaseLost) {
				return err
			}
			b.log.Error("cycle failed, reconnecting", "error", err, "retry_in", b.cfg.FaultRetry.String())
			connected = false
			if b.sleep(ctx, b.cfg.FaultRetry) != nil {
				break
			}
			continue
		}
		if b.sleep(ctx, b.cfg.PollInterval) != nil {
			break
		}
	}

	b.log.Info("stopped", "seen", b.state.Seen.Len(), "tracked_own_posts", b.state.OwnPosts.Len())
	return nil
}

var errLeaseLost = errors.New("bot: instance lease lost")

func (b *Bot) step(ctx context.Context, connected, bootstrapped *bool) error {
	if b.lease != nil {
		if err := b.lease.Renew(ctx); err != nil {
			if errors.Is(err, distlock.ErrLost) {
				return fmt.Errorf("%w: %w", errLeaseLost, err)
			}
			return fmt.Errorf("renew lease: %w", err)
		}
	}
	if !*connected {
		if err := b.transport.Connect(ctx); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		*connected = true
	}
	if !*bootstrapped {
		n, err := b.state.OwnPosts.Bootstrap(ctx, b.transport, b.state.Seen)
		if err != nil {
			return err
		}
		*bootstrapped = true
		b.metrics.SetTracked(b.state.OwnPosts.Len())
		b.log.Info("bootstrapped from own history", "replies", n)
	}
	start := b.now()
	err := b.Cycle(ctx)
	b.metrics.CycleDone(b.now().Sub(start), err)
	return err
}

// Cycle runs one pass: submissions, then comments, then the self-post sweep.
// Only transport faults are returned.
func (b *Bot) Cycle(ctx context.Context) error {
	log := b.log.With("cycle", uuid.NewString())

	subs, err := b.transport.FetchNewSubmissions(ctx, b.cfg.SubmissionLimit)
	if err != nil {
		return fmt.Errorf("fetch submissions: %w", err)
	}
	if err := b.processAll(ctx, log, subs); err != nil {
		return err
	}

	comments, err := b.transport.FetchNewComments(ctx, b.cfg.CommentLimit)
	if err != nil {
		return fmt.Errorf("fetch comments: %w", err)
	}
	if err := b.processAll(ctx, log, comments); err != nil {
		return err
	}

	res, err := b.state.OwnPosts.Sweep(ctx, b.transport)
	b.metrics.Swept(len(res.Deleted), res.Expired, res.Vanished)
	b.metrics.SetTracked(b.state.OwnPosts.Len())
	for _, id := range res.Deleted {
		log.Info("deleted downvoted reply", "reply", id)
	}
	if err != nil {
		return fmt.Errorf("sweep own replies: %w", err)
	}
	log.Debug("cycle done", "submissions", len(subs), "comments", len(comments),
		"checked", res.Checked, "tracked", b.state.OwnPosts.Len())
	return nil
}

func (b *Bot) processAll(ctx context.Context, log *logger.Logger, items []domain.ContentItem) error {
	for _, item := range items {
		if err := b.process(ctx, log, item); err != nil {
			return err
		}
	}
	return nil
}

// process takes one item through filter, duplicate check, compose and post.
// Composition problems go to the failure tracker. A failed post is a
// transport fault: the item is re-opened for the next cycle without using
// its failure budget, and the error is returned.
func (b *Bot) process(ctx context.Context, log *logger.Logger, item domain.ContentItem) error {
	verdict := b.filter.Evaluate(b.state, item)
	b.metrics.ItemFiltered(verdict.String(), verdict == lifecycle.Admitted)
	if verdict != lifecycle.Admitted {
		return nil
	}

	log = log.With("item", domain.Fullname(item), "discussion", item.DiscussionID())
	bucket := domain.BucketOf(item.Created())

	key, err := b.composer.Key(item.Text())
	if err != nil {
		b.fail(log, item, bucket, err)
		return nil
	}
	log = log.With("profile", key.String())

	if b.state.Ledger.HasReplied(item.DiscussionID(), key) {
		b.metrics.Duplicate()
		log.Info("profile already posted in discussion")
		return nil
	}

	body, err := b.composer.Compose(ctx, key)
	if err != nil {
		b.fail(log, item, bucket, err)
		return nil
	}

	rec, err := b.transport.PostReply(ctx, item, body)
	if err != nil {
		b.state.Seen.Evict(item.ItemID(), bucket)
		return fmt.Errorf("post reply to %s: %w", domain.Fullname(item), err)
	}

	b.state.Ledger.Record(item.DiscussionID(), key)
	b.state.OwnPosts.Track(rec)
	b.metrics.ReplyPosted()
	log.Info("posted profile", "reply", rec.ReplyID)
	return nil
}

func (b *Bot) fail(log *logger.Logger, item domain.ContentItem, bucket domain.HourBucket, cause error) {
	d := b.state.Failures.RecordFailure(b.state.Seen, item.ItemID(), bucket)
	b.metrics.Failure(d.String())
	if d == lifecycle.Abandon {
		log.Warn("giving up on item", "error", cause, "failures", b.state.Failures.Count(item.ItemID()))
		return
	}
	log.Info("reply failed, will retry", "error", cause, "failures", b.state.Failures.Count(item.ItemID()))
}
