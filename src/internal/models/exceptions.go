package models

import (
	"errors"
	"fmt"
)

var (
	ErrRedisConnection = errors.New("redis connection error")
	ErrRedisGet        = errors.New("redis get error")
	ErrRedisSet        = errors.New("redis set error")
	ErrRedisDelete     = errors.New("redis delete error")
)

var (
	ErrDatabaseConnection = errors.New("database connection error")
	ErrDatabaseQuery      = errors.New("database query error")
	ErrDatabaseInsert     = errors.New("database insert error")
	ErrDatabaseUpdate     = errors.New("database update error")
	ErrDatabaseDelete     = errors.New("database delete error")
	ErrDatabaseTxn        = errors.New("database transaction error")
)

var (
	ErrSessionNotFound         = errors.New("session not found")
	ErrSessionAlreadyClosed    = errors.New("session already closed")
	ErrDuplicateOpenSession    = errors.New("open session already exists for post and worker")
	ErrSessionAlreadyCancelled = errors.New("session already cancelled")
	ErrCancellationNotFound    = errors.New("cancellation not found")
	ErrEmptyReason             = errors.New("cancellation reason must not be empty")
)

var (
	ErrWorkerNotFound      = errors.New("worker not found")
	ErrWorkerInactive      = errors.New("worker is not active")
	ErrBadgeNotFound       = errors.New("no worker matches badge")
	ErrPostNotFound        = errors.New("post not found")
	ErrNoPostResolvable    = errors.New("no post resolvable for worker")
	ErrNoProductConfigured = errors.New("post has no product configured")
	ErrProductNotFound     = errors.New("product not found")
	ErrOperationNotFound   = errors.New("operation not found")
	ErrPartNotFound        = errors.New("part not found")
	ErrInvalidParams       = errors.New("invalid parameters")
)

// DuplicateOpenError carries the id of the session that already holds the
// (post, worker) slot, so callers can point the operator at it.
type DuplicateOpenError struct {
	ExistingID string
}

func (e *DuplicateOpenError) Error() string {
	return fmt.Sprintf("open session already exists for post and worker (session %s)", e.ExistingID)
}

func (e *DuplicateOpenError) Unwrap() error {
	return ErrDuplicateOpenSession
}
