package journal_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packrat/internal/faults"
	"packrat/internal/journal"
	"packrat/internal/testsupport"
)

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.StartRun(ctx, "run-1", started))
	require.NoError(t, store.StartRun(ctx, "run-2", started.Add(time.Hour)))

	counts := journal.Counts{Collections: 2, Items: 5, Downloaded: 3, Skipped: 1, Failed: 1}
	require.NoError(t, store.FinishRun(ctx, "run-1", started.Add(time.Minute), counts, nil))
	require.NoError(t, store.FinishRun(ctx, "run-2", started.Add(2*time.Hour), journal.Counts{}, errors.New("session expired")))

	runs, err := store.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, journal.RunFailed, runs[0].Status)
	assert.Equal(t, "session expired", runs[0].Error)

	assert.Equal(t, "run-1", runs[1].ID)
	assert.Equal(t, journal.RunCompleted, runs[1].Status)
	assert.Equal(t, counts, runs[1].Counts)
	assert.True(t, runs[1].StartedAt.Equal(started))
	require.NotNil(t, runs[1].FinishedAt)
	assert.True(t, runs[1].FinishedAt.Equal(started.Add(time.Minute)))
}

func TestRecentFailuresExcludesSuccesses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()
	require.NoError(t, store.StartRun(ctx, "run-1", time.Now()))

	for _, o := range []journal.Outcome{
		{RunID: "run-1", Collection: "animals", Slug: "fox", Outcome: faults.OutcomeDownloaded, Identifier: "abc123"},
		{RunID: "run-1", Collection: "animals", Slug: "owl", Outcome: faults.OutcomeSkipped},
		{RunID: "run-1", Collection: "animals", Slug: "hare", Outcome: faults.OutcomeNoMatch, Detail: "no design identifier observed"},
		{RunID: "run-1", Collection: "animals", Slug: "lynx", Outcome: faults.OutcomeTimedOut},
	} {
		require.NoError(t, store.RecordOutcome(ctx, o))
	}

	failures, err := store.RecentFailures(ctx, 10)
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, "lynx", failures[0].Slug)
	assert.Equal(t, "hare", failures[1].Slug)
	assert.Equal(t, "no design identifier observed", failures[1].Detail)
	assert.False(t, failures[1].RecordedAt.IsZero())
}

func TestReopenKeepsData(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := journal.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, first.StartRun(context.Background(), "run-1", time.Now()))
	require.NoError(t, first.Close())

	second := testsupport.MustOpenJournal(t, cfg)
	runs, err := second.RecentRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, journal.RunRunning, runs[0].Status)
	assert.Nil(t, runs[0].FinishedAt)
}
