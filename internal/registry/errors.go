package registry

import (
	"fmt"
	"strings"
)

// BackingStoreError means the registry store failed or returned no usable
// result set. Reads are idempotent so it is always safe to retry.
type BackingStoreError struct {
	Op      string
	Message string
	Err     error
}

func (e *BackingStoreError) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("registry %s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("registry %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("registry %s: %s", e.Op, e.Message)
	}
}

func (e *BackingStoreError) Unwrap() error { return e.Err }

// Retriable reports that a later attempt may succeed.
func (e *BackingStoreError) Retriable() bool { return true }

// LookupPartialFailure is the outcome of every id that was sent in a bulk
// lookup group whose call failed. Ids in other groups are unaffected.
type LookupPartialFailure struct {
	IDs []string
	Err error
}

func (e *LookupPartialFailure) Error() string {
	return fmt.Sprintf("certificate lookup failed for ids [%s]: %v", strings.Join(e.IDs, ","), e.Err)
}

func (e *LookupPartialFailure) Unwrap() error { return e.Err }

// Retriable reports that a later attempt may succeed.
func (e *LookupPartialFailure) Retriable() bool { return true }
