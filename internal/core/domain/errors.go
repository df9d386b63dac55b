package domain

import "go.trai.ch/zerr"

var (
	// ErrTaskAlreadyExists is returned when attempting to add a task with a name that already exists.
	ErrTaskAlreadyExists = zerr.New("task already exists")

	// ErrMissingDependency is returned when a task references a dependency that doesn't exist in the graph.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrCycleDetected is returned when a cycle is detected in the task dependency graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrTaskNotFound is returned when a requested task is not found in the graph.
	ErrTaskNotFound = zerr.New("task not found")

	// ErrNoTargetsSpecified is returned when a run is requested with zero target names.
	ErrNoTargetsSpecified = zerr.New("no targets specified")

	// ErrRunFailed is returned when at least one task in a run finished with outcome failed.
	ErrRunFailed = zerr.New("run failed")

	// ErrConfigNotFound is returned when no configuration file could be located.
	ErrConfigNotFound = zerr.New("configuration not found")

	// ErrInvalidTaskName is returned when a task name fails identifier validation.
	ErrInvalidTaskName = zerr.New("invalid task name")

	// ErrReservedTaskName is returned when a task uses a reserved name (e.g., "all").
	ErrReservedTaskName = zerr.New("task name 'all' is reserved")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrFileOpenFailed wraps a failure to open a file for hashing.
	ErrFileOpenFailed = zerr.New("failed to open file")

	// ErrFileHashFailed wraps a failure while streaming a file's content into the hasher.
	ErrFileHashFailed = zerr.New("failed to hash file")

	// ErrPathStatFailed wraps a failure to stat an input path.
	ErrPathStatFailed = zerr.New("failed to stat path")

	// ErrWriteHashFailed wraps a failure writing an intermediate hash value.
	ErrWriteHashFailed = zerr.New("failed to write hash")

	// ErrInputNotFound is returned when a glob pattern resolves to zero files.
	ErrInputNotFound = zerr.New("input not found")

	// ErrOutputPathOutsideRoot is returned when a task output escapes its working directory.
	ErrOutputPathOutsideRoot = zerr.New("output path outside task root")

	// ErrCacheBackendNotImplemented is returned by reserved-but-unimplemented remote cache backends.
	ErrCacheBackendNotImplemented = zerr.New("cache backend not implemented")

	// ErrConditionParse is returned when a condition expression fails to parse.
	ErrConditionParse = zerr.New("failed to parse condition")

	// ErrSpawnFailed is returned when the OS could not start a task's process at all.
	ErrSpawnFailed = zerr.New("failed to spawn task process")
)
