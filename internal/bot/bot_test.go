package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/profilebot/internal/compose"
	"github.com/ignite/profilebot/internal/domain"
	"github.com/ignite/profilebot/internal/lifecycle"
	"github.com/ignite/profilebot/internal/monitoring"
	"github.com/ignite/profilebot/internal/pkg/distlock"
)

var testNow = time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC)

const (
	botName = "d3profilebot"
	link    = "http://us.battle.net/d3/en/profile/Kripp-1234/hero/42"
)

type postedReply struct {
	parent string
	text   string
}

type fakeTransport struct {
	submissions []domain.ContentItem
	comments    []domain.ContentItem
	own         []*domain.Comment
	scores      map[string]int
	vanished    map[string]bool

	connects   int
	ownFetches int
	posted     []postedReply
	deleted    []string

	connectErrs []error // consumed one per Connect call
	fetchErrs   []error // consumed one per FetchNewSubmissions call
	postErr     error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{scores: map[string]int{}, vanished: map[string]bool{}}
}

func (f *fakeTransport) Connect(context.Context) error {
	f.connects++
	if len(f.connectErrs) > 0 {
		err := f.connectErrs[0]
		f.connectErrs = f.connectErrs[1:]
		return err
	}
	return nil
}

func (f *fakeTransport) FetchNewSubmissions(context.Context, int) ([]domain.ContentItem, error) {
	if len(f.fetchErrs) > 0 {
		err := f.fetchErrs[0]
		f.fetchErrs = f.fetchErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.submissions, nil
}

func (f *fakeTransport) FetchNewComments(context.Context, int) ([]domain.ContentItem, error) {
	return f.comments, nil
}

func (f *fakeTransport) PostReply(_ context.Context, parent domain.ContentItem, text string) (domain.OwnPostRecord, error) {
	if f.postErr != nil {
		return domain.OwnPostRecord{}, f.postErr
	}
	f.posted = append(f.posted, postedReply{parent: parent.ItemID(), text: text})
	return domain.OwnPostRecord{
		ReplyID:      fmt.Sprintf("r%d", len(f.posted)),
		DiscussionID: parent.DiscussionID(),
		PostedAt:     testNow,
	}, nil
}

func (f *fakeTransport) FetchScore(_ context.Context, rec domain.OwnPostRecord) (int, error) {
	if f.vanished[rec.ReplyID] {
		return 0, domain.ErrNotFound
	}
	return f.scores[rec.ReplyID], nil
}

func (f *fakeTransport) DeleteReply(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeTransport) FetchOwnReplies(context.Context, int) ([]*domain.Comment, error) {
	f.ownFetches++
	return f.own, nil
}

// fakeComposer extracts keys for real and renders a stub body.
type fakeComposer struct {
	ex       *compose.Extractor
	err      error
	composed int
}

func newFakeComposer(t *testing.T) *fakeComposer {
	ex, err := compose.NewExtractor([]string{"us", "eu"})
	require.NoError(t, err)
	return &fakeComposer{ex: ex}
}

func (c *fakeComposer) Key(text string) (domain.ProfileKey, error) { return c.ex.Extract(text) }

func (c *fakeComposer) Compose(_ context.Context, key domain.ProfileKey) (string, error) {
	c.composed++
	if c.err != nil {
		return "", c.err
	}
	return "profile " + key.String(), nil
}

func testConfig() Config {
	return Config{
		Identity:        botName,
		Terms:           []string{"battle.net/d3/en/profile"},
		MaxAge:          time.Hour,
		SubmissionLimit: 50,
		CommentLimit:    200,
		PollInterval:    10 * time.Second,
		FaultRetry:      30 * time.Second,
		Policy: lifecycle.Policy{
			FailsAllowed:      3,
			SelfPostRetention: 48 * time.Hour,
			OwnHistoryLimit:   200,
		},
	}
}

func newTestBot(t *testing.T, tr *fakeTransport, c *fakeComposer, opts ...Option) *Bot {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return New(testConfig(), tr, c, monitoring.NewMetrics("profilebot"), opts...)
}

func submission(id, author, text string) *domain.Submission {
	return &domain.Submission{ID: id, Author: author, CreatedUTC: testNow.Add(-5 * time.Minute), Title: "t", SelfText: text, IsSelf: true}
}

func comment(id, author, discussion, text string) *domain.Comment {
	return &domain.Comment{
		ID: id, Author: author, CreatedUTC: testNow.Add(-2 * time.Minute),
		Body: text, LinkID: "t3_" + discussion, ParentID: "t3_" + discussion,
	}
}

func TestFirstMatchIsAnswered(t *testing.T) {
	tr := newFakeTransport()
	tr.submissions = []domain.ContentItem{submission("s1", "alice", "my wizard "+link)}
	b := newTestBot(t, tr, newFakeComposer(t))

	require.NoError(t, b.Cycle(context.Background()))

	require.Len(t, tr.posted, 1)
	assert.Equal(t, "s1", tr.posted[0].parent)
	assert.True(t, strings.HasPrefix(tr.posted[0].text, "profile Kripp-1234/42@us"))
	assert.True(t, b.State().Ledger.HasReplied("s1", domain.ProfileKey{Profile: "Kripp-1234", HeroID: "42", Region: "us"}))
	assert.True(t, b.State().OwnPosts.Tracks("r1"))
	assert.Equal(t, int64(1), b.metrics.Snapshot().RepliesPosted)
}

func TestDuplicateProfileInDiscussionIsSuppressed(t *testing.T) {
	tr := newFakeTransport()
	tr.comments = []domain.ContentItem{
		comment("c1", "alice", "abc", "look "+link),
		comment("c2", "bob", "abc", "same guy "+link+"?"),
		comment("c3", "carol", "xyz", link),
	}
	b := newTestBot(t, tr, newFakeComposer(t))

	require.NoError(t, b.Cycle(context.Background()))

	require.Len(t, tr.posted, 2)
	assert.Equal(t, "c1", tr.posted[0].parent)
	assert.Equal(t, "c3", tr.posted[1].parent)
	assert.Equal(t, 0, b.State().Failures.Count("c2"))
	assert.True(t, b.State().Seen.Contains("c2", domain.BucketOf(testNow.Add(-2*time.Minute))))
	assert.Equal(t, int64(1), b.metrics.Snapshot().Duplicates)
}

func TestUnresolvableItemIsRetriedThenAbandoned(t *testing.T) {
	tr := newFakeTransport()
	tr.submissions = []domain.ContentItem{submission("s1", "alice", link)}
	c := newFakeComposer(t)
	c.err = fmt.Errorf("hero lookup: %w", domain.ErrNotFound)
	b := newTestBot(t, tr, c)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Cycle(ctx))
	}

	assert.Equal(t, 3, c.composed)
	assert.Equal(t, 3, b.State().Failures.Count("s1"))
	assert.Empty(t, tr.posted)
	snap := b.metrics.Snapshot()
	assert.Equal(t, int64(2), snap.Retries)
	assert.Equal(t, int64(1), snap.Abandoned)
}

func TestMatchWithoutUsableLinkCountsAsFailure(t *testing.T) {
	tr := newFakeTransport()
	tr.submissions = []domain.ContentItem{submission("s1", "alice", "see battle.net/d3/en/profile somewhere")}
	c := newFakeComposer(t)
	b := newTestBot(t, tr, c)

	require.NoError(t, b.Cycle(context.Background()))
	assert.Equal(t, 1, b.State().Failures.Count("s1"))
	assert.Zero(t, c.composed)
	assert.False(t, b.State().Seen.Contains("s1", domain.BucketOf(testNow.Add(-5*time.Minute))))
}

func TestRepeatedCyclesAreIdempotent(t *testing.T) {
	tr := newFakeTransport()
	tr.submissions = []domain.ContentItem{submission("s1", "alice", link)}
	tr.comments = []domain.ContentItem{comment("c1", "bob", "other", link)}
	b := newTestBot(t, tr, newFakeComposer(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Cycle(ctx))
	}
	assert.Len(t, tr.posted, 2)
}

func TestOwnAndDeletedItemsAreIgnored(t *testing.T) {
	tr := newFakeTransport()
	tr.comments = []domain.ContentItem{
		comment("c1", botName, "abc", link),
		comment("c2", "", "abc", link),
	}
	b := newTestBot(t, tr, newFakeComposer(t))

	require.NoError(t, b.Cycle(context.Background()))
	assert.Empty(t, tr.posted)
	assert.Zero(t, b.State().Seen.Len())
}

func TestDownvotedReplyIsDeleted(t *testing.T) {
	tr := newFakeTransport()
	tr.own = []*domain.Comment{
		{ID: "old1", Author: botName, CreatedUTC: testNow.Add(-time.Hour), LinkID: "t3_abc", ParentID: "t1_c9"},
		{ID: "old2", Author: botName, CreatedUTC: testNow.Add(-2 * time.Hour), LinkID: "t3_def", ParentID: "t3_def"},
		{ID: "gone", Author: botName, CreatedUTC: testNow.Add(-3 * time.Hour), LinkID: "t3_ghi", ParentID: "t3_ghi"},
	}
	tr.scores["old1"] = -2
	tr.scores["old2"] = 5
	tr.vanished["gone"] = true
	b := newTestBot(t, tr, newFakeComposer(t))
	ctx := context.Background()

	n, err := b.State().OwnPosts.Bootstrap(ctx, tr, b.State().Seen)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	require.NoError(t, b.Cycle(ctx))
	assert.Equal(t, []string{"old1"}, tr.deleted)
	assert.False(t, b.State().OwnPosts.Tracks("old1"))
	assert.False(t, b.State().OwnPosts.Tracks("gone"))
	assert.True(t, b.State().OwnPosts.Tracks("old2"))

	snap := b.metrics.Snapshot()
	assert.Equal(t, int64(1), snap.SelfDeleted)
	assert.Equal(t, int64(1), snap.Vanished)
	assert.Equal(t, int64(1), snap.TrackedPosts)
}

func TestBootstrapPreventsReplyingAgain(t *testing.T) {
	tr := newFakeTransport()
	parent := comment("c1", "alice", "abc", link)
	parent.CreatedUTC = testNow.Add(-10 * time.Minute)
	tr.comments = []domain.ContentItem{parent}
	tr.own = []*domain.Comment{
		{ID: "mine", Author: botName, CreatedUTC: testNow.Add(-9 * time.Minute), LinkID: "t3_abc", ParentID: "t1_c1"},
	}
	b := newTestBot(t, tr, newFakeComposer(t))
	ctx := context.Background()

	_, err := b.State().OwnPosts.Bootstrap(ctx, tr, b.State().Seen)
	require.NoError(t, err)
	require.NoError(t, b.Cycle(ctx))
	assert.Empty(t, tr.posted)
}

func TestPostFailureIsRetriedWithoutSpendingFailures(t *testing.T) {
	tr := newFakeTransport()
	tr.submissions = []domain.ContentItem{submission("s1", "alice", link)}
	tr.postErr = errors.New("503 from reddit")
	b := newTestBot(t, tr, newFakeComposer(t))
	ctx := context.Background()

	// More outages than the failure threshold allows.
	for i := 0; i < 4; i++ {
		err := b.Cycle(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "post reply to t3_s1")
	}
	assert.Zero(t, b.State().Failures.Count("s1"))
	assert.False(t, b.State().Seen.Contains("s1", domain.BucketOf(testNow.Add(-5*time.Minute))))

	tr.postErr = nil
	require.NoError(t, b.Cycle(ctx))
	require.Len(t, tr.posted, 1)
	assert.Equal(t, "s1", tr.posted[0].parent)
}

func TestRunReconnectsWithoutRebootstrapping(t *testing.T) {
	tr := newFakeTransport()
	tr.submissions = []domain.ContentItem{submission("s1", "alice", link)}
	tr.fetchErrs = []error{errors.New("connection reset"), nil}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var sleeps []time.Duration
	sleep := func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		if len(sleeps) == 3 {
			cancel()
		}
		return ctx.Err()
	}
	b := newTestBot(t, tr, newFakeComposer(t), WithSleep(sleep))

	require.NoError(t, b.Run(ctx))

	assert.Equal(t, []time.Duration{30 * time.Second, 10 * time.Second, 10 * time.Second}, sleeps)
	assert.Equal(t, 2, tr.connects)
	assert.Equal(t, 1, tr.ownFetches)
	assert.Len(t, tr.posted, 1)

	snap := b.metrics.Snapshot()
	assert.Equal(t, int64(1), snap.CycleErrors)
	assert.Equal(t, int64(2), snap.Cycles)
}

// scriptedLease returns errs in order, then nil.
type scriptedLease struct {
	errs   []error
	renews int
}

func (l *scriptedLease) Renew(context.Context) error {
	l.renews++
	if len(l.errs) == 0 {
		return nil
	}
	err := l.errs[0]
	l.errs = l.errs[1:]
	return err
}

func countingSleep(cancel context.CancelFunc, after int, sleeps *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		if len(*sleeps) == after {
			cancel()
		}
		return ctx.Err()
	}
}

func TestRunSurvivesTransientLeaseErrors(t *testing.T) {
	tr := newFakeTransport()
	tr.submissions = []domain.ContentItem{submission("s1", "alice", link)}
	lease := &scriptedLease{errs: []error{
		fmt.Errorf("distlock: renew lease:profilebot:x: %w", errors.New("LOADING transient")),
		errors.New("distlock: reacquire advisory lock: connection refused"),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var sleeps []time.Duration
	b := newTestBot(t, tr, newFakeComposer(t), WithLease(lease), WithSleep(countingSleep(cancel, 4, &sleeps)))

	require.NoError(t, b.Run(ctx))

	assert.Equal(t, []time.Duration{30 * time.Second, 30 * time.Second, 10 * time.Second, 10 * time.Second}, sleeps)
	assert.Equal(t, 4, lease.renews)
	assert.Len(t, tr.posted, 1)
}

func TestRunRenewsLeaseWhileConnectFails(t *testing.T) {
	tr := newFakeTransport()
	tr.connectErrs = []error{errors.New("login refused"), errors.New("login refused"), errors.New("login refused")}
	lease := &scriptedLease{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var sleeps []time.Duration
	b := newTestBot(t, tr, newFakeComposer(t), WithLease(lease), WithSleep(countingSleep(cancel, 4, &sleeps)))

	require.NoError(t, b.Run(ctx))

	assert.Equal(t, 4, tr.connects)
	assert.Equal(t, 4, lease.renews)
	assert.Equal(t, 1, tr.ownFetches)
}

func TestRunStopsWhenLeaseIsLost(t *testing.T) {
	tr := newFakeTransport()
	lease := &scriptedLease{errs: []error{nil, distlock.ErrLost}}
	var sleeps []time.Duration
	b := newTestBot(t, tr, newFakeComposer(t), WithLease(lease),
		WithSleep(func(_ context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			return nil
		}))

	err := b.Run(context.Background())
	assert.ErrorIs(t, err, errLeaseLost)
	assert.ErrorIs(t, err, distlock.ErrLost)
	assert.Equal(t, []time.Duration{10 * time.Second}, sleeps)
}
