package history

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lastned/lastned/internal/engine/types"
)

func setupDB(t *testing.T) {
	t.Helper()
	Configure(filepath.Join(t.TempDir(), "history.db"))
	t.Cleanup(func() {
		CloseDB()
		Configure("")
	})
}

func TestGetDB_NotConfigured(t *testing.T) {
	CloseDB()
	Configure("")
	_, err := GetDB()
	assert.Error(t, err)
}

func TestAddAndGetEntry(t *testing.T) {
	setupDB(t)

	entry := types.DownloadEntry{
		ID:          "a1",
		URL:         "https://tv.nrk.no/serie/skam/sesong/1/episode/1",
		Title:       "Skam - S01E01",
		DestPath:    "/out/Skam - S01E01 - 720p.mkv",
		Status:      string(types.StatusCompleted),
		Resolution:  "720",
		CompletedAt: 1700000000,
		TimeTaken:   4200,
	}
	require.NoError(t, AddEntry(entry))

	got, err := GetEntry("a1")
	require.NoError(t, err)
	assert.Equal(t, entry, *got)

	_, err = GetEntry("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddEntry_Replaces(t *testing.T) {
	setupDB(t)

	require.NoError(t, AddEntry(types.DownloadEntry{ID: "x", URL: "u", Status: string(types.StatusFailed), Reason: "output file missing"}))
	require.NoError(t, AddEntry(types.DownloadEntry{ID: "x", URL: "u", Status: string(types.StatusCompleted)}))

	all, err := ListEntries(0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, string(types.StatusCompleted), all[0].Status)
	assert.Empty(t, all[0].Reason)
}

func TestListEntries_NewestFirstWithLimit(t *testing.T) {
	setupDB(t)

	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, AddEntry(types.DownloadEntry{ID: id, URL: id, Status: "completed", CompletedAt: int64(100 + i)}))
	}

	all, err := ListEntries(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "new", all[0].ID)
	assert.Equal(t, "old", all[2].ID)

	two, err := ListEntries(2)
	require.NoError(t, err)
	require.Len(t, two, 2)
	assert.Equal(t, "mid", two[1].ID)
}

func TestListEntries_EmptyIsNotNil(t *testing.T) {
	setupDB(t)

	all, err := ListEntries(10)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestRemoveEntryAndCompleted(t *testing.T) {
	setupDB(t)

	require.NoError(t, AddEntry(types.DownloadEntry{ID: "c1", URL: "u", Status: "completed"}))
	require.NoError(t, AddEntry(types.DownloadEntry{ID: "c2", URL: "u", Status: "completed"}))
	require.NoError(t, AddEntry(types.DownloadEntry{ID: "f1", URL: "u", Status: "failed"}))
	require.NoError(t, AddEntry(types.DownloadEntry{ID: "x1", URL: "u", Status: "cancelled"}))

	require.NoError(t, RemoveEntry("x1"))
	assert.ErrorIs(t, RemoveEntry("x1"), ErrNotFound)

	n, err := RemoveCompleted()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := ListEntries(0)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "f1", left[0].ID)
}

func TestConfigure_SwitchesDatabase(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() {
		CloseDB()
		Configure("")
	})

	Configure(filepath.Join(dir, "a.db"))
	require.NoError(t, AddEntry(types.DownloadEntry{ID: "only-in-a", URL: "u", Status: "completed"}))

	Configure(filepath.Join(dir, "b.db"))
	all, err := ListEntries(0)
	require.NoError(t, err)
	assert.Empty(t, all)
}
