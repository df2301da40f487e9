package scanner

import (
	"context"
	"time"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Sleeper pauses a worker; it returns early with an error when ctx finishes.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Limiter throttles the aggregate request rate across workers.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Hasher fingerprints fetched page bodies.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// ResultSink receives every finished ScanResult. Implementations decide
// which outcomes they care about.
type ResultSink interface {
	Consume(ctx context.Context, result ScanResult) error
}
