package storage

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-analyzer/pkg/models"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func newTestStore(t *testing.T) *BadgerResultStore {
	t.Helper()
	store, err := NewBadgerResultStore(t.TempDir(), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRun(seed string, status models.RunStatus) *models.CrawlRunResult {
	return &models.CrawlRunResult{
		Seed:   seed,
		Status: status,
		Pages: []models.PageResult{
			{URL: seed, Success: true, Title: "Home", FetchedAt: time.Now()},
		},
		Successes:  1,
		StartedAt:  time.Now().Add(-time.Second),
		FinishedAt: time.Now(),
	}
}

func TestSaveAndGetRun(t *testing.T) {
	store := newTestStore(t)

	saved := sampleRun("https://example.com", models.RunStatusCompleted)
	id, err := store.SaveRun(saved)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := store.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, saved.Seed, got.Seed)
	assert.Equal(t, saved.Status, got.Status)
	require.Len(t, got.Pages, 1)
	assert.Equal(t, "Home", got.Pages[0].Title)
}

func TestGetRun_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRun("no-such-id")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSaveRun_GeneratesDistinctIDs(t *testing.T) {
	store := newTestStore(t)

	id1, err := store.SaveRun(sampleRun("https://example.com", models.RunStatusCompleted))
	require.NoError(t, err)
	id2, err := store.SaveRun(sampleRun("https://example.com", models.RunStatusCompleted))
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
}

func TestListRuns(t *testing.T) {
	store := newTestStore(t)

	_, err := store.SaveRun(sampleRun("https://a.example", models.RunStatusCompleted))
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = store.SaveRun(sampleRun("https://b.example", models.RunStatusFailed))
	require.NoError(t, err)

	records, err := store.ListRuns()
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first
	assert.Equal(t, "https://b.example", records[0].Seed)
	assert.Equal(t, models.RunStatusFailed, records[0].Status)
	assert.Equal(t, "https://a.example", records[1].Seed)
	assert.Equal(t, 1, records[0].Pages)
}

func TestListRuns_Empty(t *testing.T) {
	store := newTestStore(t)

	records, err := store.ListRuns()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewBadgerResultStore(dir, testLogger())
	require.NoError(t, err)
	id, err := store.SaveRun(sampleRun("https://example.com", models.RunStatusCompleted))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewBadgerResultStore(dir, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	got, err := reopened.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got.Seed)
}
