// Package history implements the append-only run history log.
package history

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.trai.ch/zr/internal/core/domain"
	"go.trai.ch/zr/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	minFields = 4
	filePerm  = 0o644
	dirPerm   = 0o750
)

var _ ports.HistoryLog = (*Log)(nil)

// Log implements ports.HistoryLog as a tab-separated append-only file:
//
//	<unix-seconds>\t<task_name>\t<ok|fail>\t<duration_ms>\t<task_count>\t<retry_count>
//
// The trailing retry_count column is optional on read for backward
// compatibility; a missing value defaults to 0.
type Log struct {
	path string
}

// New creates a Log backed by the file at path, creating its parent
// directory if necessary.
func New(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, zerr.Wrap(err, "failed to create history directory")
	}
	return &Log{path: path}, nil
}

// DefaultPath returns $HOME/.zr/history, falling back to ./.zr_history if
// HOME cannot be resolved.
func DefaultPath() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".zr", "history")
	}
	return ".zr_history"
}

// Append writes one record to the end of the log.
func (l *Log) Append(record domain.HistoryRecord) error {
	//nolint:gosec // Path is operator-configured, not user input.
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return zerr.Wrap(err, "failed to open history log")
	}
	defer f.Close() //nolint:errcheck

	status := "fail"
	if record.Success {
		status = "ok"
	}
	line := fmt.Sprintf("%d\t%s\t%s\t%d\t%d\t%d\n",
		record.Timestamp.Unix(), record.TaskName, status,
		record.DurationMS, record.TaskCount, record.RetryCount)

	if _, err := f.WriteString(line); err != nil {
		return zerr.Wrap(err, "failed to append history record")
	}
	return nil
}

// LoadLast returns up to limit records from the tail of the log, oldest
// first. A nonexistent log file is treated as empty, not an error.
func (l *Log) LoadLast(limit int) ([]domain.HistoryRecord, error) {
	//nolint:gosec // Path is operator-configured, not user input.
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.Wrap(err, "failed to open history log")
	}
	defer f.Close() //nolint:errcheck

	var all []domain.HistoryRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := parseLine(line)
		if err != nil {
			continue // Tolerate malformed/legacy lines rather than failing the whole read.
		}
		all = append(all, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, zerr.Wrap(err, "failed to read history log")
	}

	if limit <= 0 || limit >= len(all) {
		return all, nil
	}
	return all[len(all)-limit:], nil
}

func parseLine(line string) (domain.HistoryRecord, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < minFields {
		return domain.HistoryRecord{}, zerr.New("malformed history line")
	}

	ts, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return domain.HistoryRecord{}, zerr.Wrap(err, "invalid timestamp")
	}
	duration, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return domain.HistoryRecord{}, zerr.Wrap(err, "invalid duration")
	}

	rec := domain.HistoryRecord{
		Timestamp:  time.Unix(ts, 0),
		TaskName:   fields[1],
		Success:    fields[2] == "ok",
		DurationMS: duration,
	}

	if len(fields) > minFields {
		if n, err := strconv.Atoi(fields[4]); err == nil {
			rec.TaskCount = n
		}
	}
	if len(fields) > minFields+1 {
		if n, err := strconv.Atoi(fields[5]); err == nil {
			rec.RetryCount = n
		}
	}
	return rec, nil
}
