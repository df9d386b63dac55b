package ports

import "go.trai.ch/zr/internal/core/domain"

// HistoryLog defines the interface for the append-only run history.
//
//go:generate go run go.uber.org/mock/mockgen -source=history.go -destination=mocks/mock_history.go -package=mocks
type HistoryLog interface {
	// Append writes one record to the end of the log.
	Append(record domain.HistoryRecord) error

	// LoadLast returns up to limit records from the tail of the log, oldest
	// first. A nonexistent log file is treated as empty, not an error.
	LoadLast(limit int) ([]domain.HistoryRecord, error)
}
