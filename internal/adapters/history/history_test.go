package history_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.trai.ch/zr/internal/adapters/history"
	"go.trai.ch/zr/internal/core/domain"
)

func TestLog_AppendAndLoadLast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	log, err := history.New(path)
	require.NoError(t, err)

	now := time.Unix(1000, 0)
	for i := range 3 {
		require.NoError(t, log.Append(domain.HistoryRecord{
			Timestamp:  now.Add(time.Duration(i) * time.Second),
			TaskName:   "build",
			Success:    i != 1,
			DurationMS: int64(100 * (i + 1)),
			TaskCount:  5,
			RetryCount: i,
		}))
	}

	records, err := log.LoadLast(0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.False(t, records[1].Success)
	require.Equal(t, 2, records[2].RetryCount)
}

func TestLog_LoadLast_RespectsLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	log, err := history.New(path)
	require.NoError(t, err)

	for i := range 5 {
		require.NoError(t, log.Append(domain.HistoryRecord{
			Timestamp: time.Unix(int64(i), 0),
			TaskName:  "task",
			Success:   true,
		}))
	}

	records, err := log.LoadLast(2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, int64(3), records[0].Timestamp.Unix())
	require.Equal(t, int64(4), records[1].Timestamp.Unix())
}

func TestLog_LoadLast_MissingFileIsEmptyNotError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent-history")
	log, err := history.New(path)
	require.NoError(t, err)

	records, err := log.LoadLast(10)
	require.NoError(t, err)
	require.Nil(t, records)
}

func TestLog_TabSeparatedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	log, err := history.New(path)
	require.NoError(t, err)

	require.NoError(t, log.Append(domain.HistoryRecord{
		Timestamp:  time.Unix(42, 0),
		TaskName:   "lint",
		Success:    true,
		DurationMS: 250,
		TaskCount:  1,
		RetryCount: 0,
	}))

	records, err := log.LoadLast(1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "lint", records[0].TaskName)
	require.Equal(t, int64(250), records[0].DurationMS)
}
