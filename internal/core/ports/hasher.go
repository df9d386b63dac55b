package ports

import "go.trai.ch/zr/internal/core/domain"

// Hasher defines the interface for computing the content-addressed
// fingerprint of a task.
//
//go:generate go run go.uber.org/mock/mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// ComputeInputHash computes the task's fingerprint from its command,
	// tools, environment and the already-resolved list of input file paths.
	ComputeInputHash(task *domain.Task, env map[string]string, resolvedInputs []string) (string, error)

	// ComputeFileHash computes the content hash of a single file.
	ComputeFileHash(path string) (uint64, error)
}
