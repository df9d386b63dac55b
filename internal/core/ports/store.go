package ports

import "context"

// CacheStore defines the interface for the local hit/miss cache keyed by a
// task's fingerprint (see Hasher). A hit means "the last run of this exact
// fingerprint succeeded"; it carries no payload.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type CacheStore interface {
	// HasHit reports whether a marker exists for the given fingerprint.
	HasHit(key string) (bool, error)

	// RecordHit creates (or refreshes) the marker for the given fingerprint.
	RecordHit(key string) error

	// Invalidate removes the marker for the given fingerprint, if any.
	Invalidate(key string) error

	// ClearAll removes every marker and returns the number removed.
	ClearAll() (int, error)
}

// RemoteCache defines the interface for an optional, pluggable remote
// cache backend (HTTP, S3, ...). A miss is reported by found=false, not an
// error; only transport/auth failures are errors, and per the cache
// contract a Push failure is never fatal to the run that produced it.
type RemoteCache interface {
	// Pull fetches the cached payload for a fingerprint, if present remotely.
	Pull(ctx context.Context, key string) (data []byte, found bool, err error)

	// Push uploads the payload for a fingerprint.
	Push(ctx context.Context, key string, data []byte) error
}
