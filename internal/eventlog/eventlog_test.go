package eventlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tradefin-network/riskengine/internal/config"
	"github.com/tradefin-network/riskengine/internal/types"
)

var testKey = types.ParticipantKey{Pool: 1, Owner: "lp-alpha"}

// clock is a controllable time source for the log under test.
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLog() (*Log, *clock) {
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New(config.DefaultRiskParameters, c.now), c
}

func TestAppend_SeverityBounds(t *testing.T) {
	l, _ := newTestLog()

	_, err := l.Append(testKey, 101, true, false)
	require.ErrorIs(t, err, ErrInvalidSeverity)
	require.Empty(t, l.History(testKey), "rejected append must not be stored")

	_, err = l.Append(testKey, 100, true, false)
	require.NoError(t, err)

	_, err = l.Append(testKey, 0, false, true)
	require.NoError(t, err)
	require.Len(t, l.History(testKey), 2)
}

func TestRecent_TimeWindow(t *testing.T) {
	l, c := newTestLog()
	start := c.t

	// One event 31 days old, one 29 days old.
	c.t = start.Add(-31 * 24 * time.Hour)
	_, err := l.Append(testKey, 50, true, false)
	require.NoError(t, err)

	c.t = start.Add(-29 * 24 * time.Hour)
	_, err = l.Append(testKey, 60, true, false)
	require.NoError(t, err)

	c.t = start
	recent := l.Recent(testKey)
	require.Len(t, recent, 1)
	require.Equal(t, 60, recent[0].Severity, "only the 29-day-old event is in window")
}

func TestRecent_AppendRecencyGovernsLimit(t *testing.T) {
	l, c := newTestLog()

	// 15 in-window events; only the 10 most recently appended are considered.
	for i := 0; i < 15; i++ {
		c.t = c.t.Add(time.Minute)
		_, err := l.Append(testKey, i, true, false)
		require.NoError(t, err)
	}

	recent := l.Recent(testKey)
	require.Len(t, recent, 10)
	require.Equal(t, 5, recent[0].Severity, "oldest excess beyond 10 is ignored")
	require.Equal(t, 14, recent[9].Severity)
}

func TestRecent_StopsAtFirstOutOfWindowEntry(t *testing.T) {
	l, c := newTestLog()
	start := c.t

	// Scan order governs: the backward scan stops at the first entry outside
	// the window, even if an older position held an in-window timestamp.
	c.t = start.Add(-40 * 24 * time.Hour)
	for i := 0; i < 3; i++ {
		_, err := l.Append(testKey, 10+i, true, false)
		require.NoError(t, err)
	}
	c.t = start
	_, err := l.Append(testKey, 99, true, false)
	require.NoError(t, err)

	recent := l.Recent(testKey)
	require.Len(t, recent, 1)
	require.Equal(t, 99, recent[0].Severity)
}

func TestRecent_EmptyHistory(t *testing.T) {
	l, _ := newTestLog()
	require.Empty(t, l.Recent(testKey))
}

func TestPrune_DropsOnlyExpiredEntries(t *testing.T) {
	l, c := newTestLog()
	start := c.t

	c.t = start.Add(-45 * 24 * time.Hour)
	_, err := l.Append(testKey, 10, true, false)
	require.NoError(t, err)
	c.t = start.Add(-10 * 24 * time.Hour)
	_, err = l.Append(testKey, 20, true, false)
	require.NoError(t, err)
	c.t = start

	before := l.Recent(testKey)
	pruned := l.Prune(testKey)
	require.Equal(t, 1, pruned)
	require.Len(t, l.History(testKey), 1)

	// Pruning dead entries never changes what scoring sees.
	require.Equal(t, before, l.Recent(testKey))
	require.Zero(t, l.Prune(testKey))
}

func TestRestore_PreservesAppendOrder(t *testing.T) {
	l, c := newTestLog()
	seed := map[types.ParticipantKey][]types.RiskEvent{
		testKey: {
			{Timestamp: c.t.Add(-2 * time.Hour), Severity: 30, IsLatePayment: true},
			{Timestamp: c.t.Add(-1 * time.Hour), Severity: 40, IsCreditDowngrade: true},
		},
	}
	l.Restore(seed)

	recent := l.Recent(testKey)
	require.Len(t, recent, 2)
	require.Equal(t, 30, recent[0].Severity)
	require.Equal(t, 40, recent[1].Severity)
}
