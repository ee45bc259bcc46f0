// Package ngerr defines the structured error kinds shared across the
// reconciliation and execution engine, per the error-handling design in
// spec.md §7.
package ngerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error.
type Kind string

// Error kinds, mirroring spec.md §7.
const (
	InvalidInput       Kind = "invalid_input"
	InvalidEvent       Kind = "invalid_event"
	InvalidRefspec     Kind = "invalid_refspec"
	NotFound           Kind = "not_found"
	Timeout            Kind = "timeout"
	NetworkRecoverable Kind = "network_recoverable"
	NotSupported       Kind = "not_supported"
	Rejected           Kind = "rejected"
	Conflict           Kind = "conflict"
	Internal           Kind = "internal"
)

// Error is the structured error type every component in this module returns.
type Error struct {
	Kind    Kind
	Op      string
	Ref     string
	Remote  string
	RepoDir string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		fmt.Fprintf(&b, " during %s", e.Op)
	}
	if e.Ref != "" {
		fmt.Fprintf(&b, " (ref=%s)", e.Ref)
	}
	if e.Remote != "" {
		fmt.Fprintf(&b, " (remote=%s)", e.Remote)
	}
	if e.RepoDir != "" {
		fmt.Fprintf(&b, " (repoDir=%s)", e.RepoDir)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap exposes the wrapped cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind.
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Cause: cause}
}

// WithRef sets Ref and returns the receiver for chaining.
func (e *Error) WithRef(ref string) *Error { e.Ref = ref; return e }

// WithRemote sets Remote and returns the receiver for chaining.
func (e *Error) WithRemote(remote string) *Error { e.Remote = remote; return e }

// WithRepoDir sets RepoDir and returns the receiver for chaining.
func (e *Error) WithRepoDir(dir string) *Error { e.RepoDir = dir; return e }

// Is reports whether err (or any error it wraps) is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// networkRecoverableSubstrings are the message fragments §4.E says identify
// CORS/network-class failures that should be treated as recoverable.
var networkRecoverableSubstrings = []string{
	"CORS",
	"NetworkError",
	"Failed to fetch",
	"Access-Control",
	"NoRefspecError",
	"refspec",
}

// LooksNetworkRecoverable reports whether err's message matches one of the
// substrings spec.md §4.E treats as a recoverable CORS/network-class error.
func LooksNetworkRecoverable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, s := range networkRecoverableSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
