package monitoring

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndSnapshot(t *testing.T) {
	m := NewMetrics("profilebot")

	m.ItemFiltered("admitted", true)
	m.ItemFiltered("already_seen", false)
	m.ItemFiltered("admitted", true)
	m.ReplyPosted()
	m.Duplicate()
	m.Failure("retry")
	m.Failure("abandon")
	m.Swept(1, 2, 0)
	m.SetTracked(4)
	m.CycleDone(time.Second, nil)
	m.CycleDone(time.Second, errors.New("boom"))

	text := scrape(t, m)
	assert.Contains(t, text, `profilebot_items_total{verdict="admitted"} 2`)
	assert.Contains(t, text, `profilebot_failures_total{decision="abandon"} 1`)
	assert.Contains(t, text, `profilebot_own_posts_removed_total{reason="expired"} 2`)
	assert.Contains(t, text, "profilebot_own_posts_tracked 4")

	s := m.Snapshot()
	assert.Equal(t, int64(3), s.ItemsScanned)
	assert.Equal(t, int64(2), s.ItemsAdmitted)
	assert.Equal(t, int64(1), s.RepliesPosted)
	assert.Equal(t, int64(1), s.Duplicates)
	assert.Equal(t, int64(1), s.Retries)
	assert.Equal(t, int64(1), s.Abandoned)
	assert.Equal(t, int64(1), s.SelfDeleted)
	assert.Equal(t, int64(1), s.Cycles)
	assert.Equal(t, int64(1), s.CycleErrors)
	assert.False(t, s.LastCycleEnded.IsZero())
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics("profilebot")
	m.ReplyPosted()
	assert.Contains(t, scrape(t, m), "profilebot_replies_posted_total 1")
}

func TestSeparateInstancesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics("profilebot")
		NewMetrics("profilebot")
	})
}
