package gateway

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func openTestJournal(t *testing.T, retention int) *Journal {
	t.Helper()
	journal, err := OpenJournal("", retention, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })
	return journal
}

func TestJournal_AppendAndRecent(t *testing.T) {
	journal := openTestJournal(t, 0)
	base := time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC)

	require.NoError(t, journal.Append(
		Event{Timestamp: base, Type: EventScoringPass, Commits: 2, XPGained: 40, TotalXP: 40},
		Event{Timestamp: base.Add(time.Nanosecond), Type: EventAchievementUnlock, Achievements: []string{"first_commit"}},
	))
	require.NoError(t, journal.Append(Event{Timestamp: base.Add(24 * time.Hour), Type: EventLevelUp, Level: 1, TotalXP: 120}))

	events, err := journal.Recent(0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, EventLevelUp, events[0].Type)
	assert.Equal(t, EventAchievementUnlock, events[1].Type)
	assert.Equal(t, []string{"first_commit"}, events[1].Achievements)
	assert.Equal(t, EventScoringPass, events[2].Type)
	for _, e := range events {
		assert.NotEqual(t, uuid.Nil, e.ID)
	}

	limited, err := journal.Recent(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, EventLevelUp, limited[0].Type)
}

func TestJournal_Retention(t *testing.T) {
	journal := openTestJournal(t, 3)
	base := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		require.NoError(t, journal.Append(Event{Timestamp: base.AddDate(0, 0, i), Type: EventScoringPass, Commits: i}))
	}

	events, err := journal.Recent(0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []int{4, 3, 2}, []int{events[0].Commits, events[1].Commits, events[2].Commits})
}
