// Package safepush implements the Safe-Push Gate (spec.md §4.K): an
// ordered preflight that aborts without touching the network on the first
// failing check. Grounded on the checklist-then-act shape of the teacher's
// command validation in pkg/cmd (CommonOpts flag validation runs fully
// before any API call is made).
package safepush

import (
	"context"
	"time"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/objstore"
)

// Reason names the specific preflight check that failed.
type Reason string

const (
	ReasonNotCloned            Reason = "not_cloned"
	ReasonUncommittedChanges   Reason = "uncommitted_changes"
	ReasonShallowClone         Reason = "shallow_clone"
	ReasonRemoteAhead          Reason = "remote_ahead"
	ReasonForceRequiresConfirm Reason = "force_push_requires_confirmation"
)

// Result is the gate's verdict.
type Result struct {
	OK                   bool
	Reason               Reason
	Message              string
	RequiresConfirmation bool
}

func fail(reason Reason, message string) Result {
	return Result{OK: false, Reason: reason, Message: message}
}

// RemoteState is what NeedsUpdate needs to decide needsUpdate, kept as
// a plain struct so callers can source it from the durable repo cache
// without this package depending on it.
type RemoteState struct {
	CacheIsNil      bool
	CacheAge        time.Duration
	CacheHeadCommit string
	RemoteHeadOID   string
	RemoteHeadFound bool
	Provider        string
	AllURLsCORSFailed bool
}

// NeedsUpdate implements spec.md §4.K's needsUpdate predicate.
func NeedsUpdate(s RemoteState) bool {
	if s.AllURLsCORSFailed {
		return false
	}
	if s.CacheIsNil && s.RemoteHeadFound {
		return true
	}
	if s.CacheAge > time.Hour {
		return true
	}
	if s.RemoteHeadFound && s.RemoteHeadOID != s.CacheHeadCommit {
		return true
	}
	return false
}

// Options configures which optional checks run and their inputs.
type Options struct {
	CheckUncommitted bool
	CheckShallow     bool
	CheckUpToDate    bool
	RemoteState      RemoteState
	AllowForce       bool
	ConfirmDestructive bool
}

// Gate runs the ordered preflight in spec.md §4.K's table, stopping at the
// first failure.
func Gate(ctx context.Context, store objstore.Store, repoDir string, opts Options) Result {
	if !store.Exists(ctx, repoDir) {
		return fail(ReasonNotCloned, "Repository not cloned locally")
	}

	if opts.CheckUncommitted {
		rows, err := store.StatusMatrix(ctx, repoDir)
		if err == nil {
			for _, row := range rows {
				if row.Dirty() {
					return fail(ReasonUncommittedChanges, "working tree has uncommitted changes")
				}
			}
		}
	}

	if opts.CheckShallow {
		shallow, err := store.IsShallow(ctx, repoDir)
		if err == nil && shallow {
			return fail(ReasonShallowClone, "local clone is shallow")
		}
	}

	if opts.CheckUpToDate && opts.RemoteState.Provider != "native-relay" {
		if NeedsUpdate(opts.RemoteState) {
			return fail(ReasonRemoteAhead, "remote has commits not present locally")
		}
	}

	if opts.AllowForce && !opts.ConfirmDestructive {
		return Result{OK: false, Reason: ReasonForceRequiresConfirm, RequiresConfirmation: true,
			Message: "force push requires explicit confirmation"}
	}

	return Result{OK: true}
}
