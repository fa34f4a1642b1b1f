package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	j, err := Open(path)
	require.NoError(t, err)

	lower, upper := -1.5, 8.5
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	stored, err := j.Append(
		Entry{Dataset: "a.csv", Column: "x", Method: "iqr", Action: "compress", Lower: &lower, Upper: &upper, Handled: 1, Affected: 1, At: base},
		Entry{Dataset: "b.csv", Column: "y", Method: "z", Action: "remove", Handled: 2, Affected: 2, At: base.Add(time.Minute)},
	)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.NotEmpty(t, stored[0].ID)
	assert.NotEqual(t, stored[0].ID, stored[1].ID)

	all, err := j.List("", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "y", all[0].Column, "newest first")
	assert.Equal(t, 8.5, *all[1].Upper)

	onlyA, err := j.List("a.csv", 0)
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
	assert.Equal(t, "x", onlyA[0].Column)

	limited, err := j.List("", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, j.Close())

	// entries survive reopening
	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()
	again, err := j.List("", 0)
	require.NoError(t, err)
	assert.Len(t, again, 2)
}

func TestAppendFillsTimestamp(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	stored, err := j.Append(Entry{Dataset: "d", Column: "c"})
	require.NoError(t, err)
	assert.False(t, stored[0].At.IsZero())
}

func TestClosedJournal(t *testing.T) {
	var j *Journal
	_, err := j.List("", 0)
	assert.Error(t, err)
	assert.NoError(t, j.Close())
}
