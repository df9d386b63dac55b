package domain

import "time"

// HistoryRecord is one persisted line in the run history log. It is
// intentionally flat and small so it can round-trip through a tab-separated
// text file without a schema migration story.
type HistoryRecord struct {
	Timestamp  time.Time
	TaskName   string
	Success    bool
	DurationMS int64
	TaskCount  int
	RetryCount int
}
