package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrEmptyJoin reports that the inner join matched no rows. It is a
	// warning: publishing continues with a header-only export.
	ErrEmptyJoin = errors.New("join produced empty result")

	// ErrStoreEmpty reports that the observation or lookup store holds no
	// rows, so no join is attempted.
	ErrStoreEmpty = errors.New("store is empty")
)

// MalformedInputError reports a raw observation or lookup row that is missing
// a required field or holds a value of the wrong type.
type MalformedInputError struct {
	Field  string // dotted JSON path or "line N column"
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	msg := "malformed input"
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// FetchError reports a transport failure, a non-2xx status or an unreadable
// body from the weather API.
type FetchError struct {
	Endpoint   string // URL without query string; the query carries the API key
	StatusCode int    // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// UpstreamUnavailableError reports that the readiness gate never opened
// within the allowed wait.
type UpstreamUnavailableError struct {
	Endpoint string
	Waited   time.Duration
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("upstream %s not ready after %s", e.Endpoint, e.Waited)
}

// StoreWriteError reports a schema mismatch or a connection failure while
// writing to the relational store.
type StoreWriteError struct {
	Table string
	Op    string
	Err   error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store write %s (%s): %v", e.Table, e.Op, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// PublishError reports failed writes of the joined export. The latest and
// snapshot writes are independent, so either field may be nil.
type PublishError struct {
	LatestPath  string
	SnapshotKey string
	LatestErr   error
	SnapshotErr error
}

func (e *PublishError) Error() string {
	var parts []string
	if e.LatestErr != nil {
		parts = append(parts, fmt.Sprintf("latest %s: %v", e.LatestPath, e.LatestErr))
	}
	if e.SnapshotErr != nil {
		parts = append(parts, fmt.Sprintf("snapshot %s: %v", e.SnapshotKey, e.SnapshotErr))
	}
	return "publish: " + strings.Join(parts, "; ")
}

func (e *PublishError) Unwrap() []error {
	var errs []error
	if e.LatestErr != nil {
		errs = append(errs, e.LatestErr)
	}
	if e.SnapshotErr != nil {
		errs = append(errs, e.SnapshotErr)
	}
	return errs
}
