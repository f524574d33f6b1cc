package cache

import "fmt"

// ErrorCode classifies cache failures.
type ErrorCode string

const (
	// ErrCacheRead covers unreadable, corrupt or incompatible cached payloads.
	ErrCacheRead ErrorCode = "CACHE_READ"
	// ErrCacheWrite covers failed writes to the backing store.
	ErrCacheWrite ErrorCode = "CACHE_WRITE"
)

// CacheError is a structured error for cache-layer failures. The cache recovers
// from both codes locally; CacheError values are logged, never returned from
// Load or Refresh.
type CacheError struct {
	Code  ErrorCode
	Op    string
	Key   string
	Cause error
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s %s: %v", e.Code, e.Op, e.Key, e.Cause)
	}
	return fmt.Sprintf("[%s] %s %s", e.Code, e.Op, e.Key)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}

func readError(op, key string, cause error) *CacheError {
	return &CacheError{Code: ErrCacheRead, Op: op, Key: key, Cause: cause}
}

func writeError(op, key string, cause error) *CacheError {
	return &CacheError{Code: ErrCacheWrite, Op: op, Key: key, Cause: cause}
}
