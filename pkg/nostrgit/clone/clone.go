// Package clone implements the progressive Clone Ladder state machine
// (spec.md §4.G): none -> refs -> shallow -> full, monotone, with concurrent
// requests for the same repo+branch deduplicated onto a single in-flight
// operation. Grounded on the teacher's use of singleflight-shaped dedup
// (golang.org/x/sync) as an already-required dependency family.
package clone

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/fallback"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/ngerr"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/objstore"
)

// State is a position on the clone ladder.
type State int

const (
	StateNone State = iota
	StateRefs
	StateShallow
	StateFull
)

func (s State) String() string {
	switch s {
	case StateRefs:
		return "refs"
	case StateShallow:
		return "shallow"
	case StateFull:
		return "full"
	default:
		return "none"
	}
}

// defaultBranchCandidates are the common default-branch names tried, in
// order, when no reconciled HEAD is available.
var defaultBranchCandidates = []string{"main", "master", "develop", "dev"}

// Rescuer recovers a local branch ref after a shallow clone that produced
// none; implemented by package rescue to avoid an import cycle (clone is
// the lower-level primitive the rescuer itself depends on).
type Rescuer interface {
	Rescue(ctx context.Context, repoDir string, alternateURLs []string) (branch, oid string, err error)
}

// Ladder drives a single repo's clone state forward, never backward, and
// deduplicates concurrent ensureFullClone calls for the same repo+branch.
type Ladder struct {
	Store   objstore.Store
	Rescuer Rescuer

	mu     sync.Mutex
	states map[string]State
	fresh  map[string]time.Time

	group singleflight.Group
}

// New returns a Ladder over store. rescuer may be nil; when set it is
// invoked after every shallow clone (EnsureShallowClone) that produces no
// local branches.
func New(store objstore.Store, rescuer Rescuer) *Ladder {
	return &Ladder{
		Store:   store,
		Rescuer: rescuer,
		states:  map[string]State{},
		fresh:   map[string]time.Time{},
	}
}

func (l *Ladder) state(repoDir string) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.states[repoDir]
}

func (l *Ladder) setState(repoDir string, s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s > l.states[repoDir] || s == StateNone {
		l.states[repoDir] = s
	}
}

// Reset moves repoDir back to StateNone, as a delete-repo operation would.
func (l *Ladder) Reset(repoDir string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states[repoDir] = StateNone
	delete(l.fresh, repoDir)
}

// InitializeRepo moves repoDir from none to refs: lists server refs without
// cloning.
func (l *Ladder) InitializeRepo(ctx context.Context, repoDir, url string) ([]objstore.Ref, error) {
	refs, err := l.Store.ListServerRefs(ctx, url)
	if err != nil {
		return nil, ngerr.New(ngerr.NetworkRecoverable, "clone.InitializeRepo", err).WithRepoDir(repoDir)
	}
	l.setState(repoDir, StateRefs)
	return refs, nil
}

// EnsureShallowClone moves repoDir from refs to shallow: clones with a
// small depth, runs the reference rescuer if no local branches resulted,
// and always sets the fetch refspec per spec.md §4.G.
func (l *Ladder) EnsureShallowClone(ctx context.Context, repoDir, url string, depth int, alternateURLs []string) error {
	if l.state(repoDir) >= StateShallow {
		return nil
	}

	if depth <= 0 {
		depth = 1
	}
	if fallback.IsNostrMirrorHost(url) && depth < 10 {
		depth = 10
	}

	err := l.Store.Clone(ctx, repoDir, objstore.CloneOptions{
		URL: url, Depth: depth, SingleBranch: true, Timeout: fallback.DefaultCloneTimeout,
	})
	if err != nil {
		return err
	}

	if err := l.Store.SetConfig(ctx, repoDir, "remote.origin.fetch", "+refs/heads/*:refs/remotes/origin/*"); err != nil {
		return ngerr.New(ngerr.Internal, "clone.EnsureShallowClone", err).WithRepoDir(repoDir)
	}

	branches, err := l.Store.ListBranches(ctx, repoDir, "")
	if err != nil {
		return ngerr.New(ngerr.Internal, "clone.EnsureShallowClone", err).WithRepoDir(repoDir)
	}
	if len(branches) == 0 && l.Rescuer != nil {
		if _, _, err := l.Rescuer.Rescue(ctx, repoDir, alternateURLs); err != nil {
			return err
		}
	}

	l.setState(repoDir, StateShallow)
	return nil
}

// EnsureFullClone moves repoDir to full, deduplicating concurrent calls for
// the same repoDir+branch key onto a single in-flight fetch.
func (l *Ladder) EnsureFullClone(ctx context.Context, repoDir, url, branch string) error {
	if l.state(repoDir) >= StateFull {
		return nil
	}

	key := repoDir + "|" + branch
	_, err, _ := l.group.Do(key, func() (any, error) {
		if l.state(repoDir) >= StateFull {
			return nil, nil
		}

		opts := objstore.CloneOptions{URL: url, Depth: 0, Ref: branch, Timeout: fallback.DefaultCloneTimeout}
		if l.Store.Exists(ctx, repoDir) {
			if _, err := l.Store.Fetch(ctx, repoDir, opts); err != nil {
				return nil, err
			}
		} else if err := l.Store.Clone(ctx, repoDir, opts); err != nil {
			return nil, err
		}

		l.setState(repoDir, StateFull)
		return nil, nil
	})
	return err
}

// SmartInitializeRepo implements spec.md §4.G's smartInitializeRepo policy:
// serve from a cache that is fresher than freshness if not forced, else
// sync-in-place if the local dir exists, else fully initialize.
func (l *Ladder) SmartInitializeRepo(ctx context.Context, repoDir, url string, freshness time.Duration, force bool) (State, error) {
	l.mu.Lock()
	last, hasFresh := l.fresh[repoDir]
	l.mu.Unlock()

	if !force && hasFresh && time.Since(last) < freshness {
		return l.state(repoDir), nil
	}

	if l.Store.Exists(ctx, repoDir) {
		if _, err := l.Store.Fetch(ctx, repoDir, objstore.CloneOptions{URL: url, Timeout: fallback.DefaultFetchTimeout}); err != nil {
			return l.state(repoDir), err
		}
	} else if _, err := l.InitializeRepo(ctx, repoDir, url); err != nil {
		return StateNone, err
	}

	l.mu.Lock()
	l.fresh[repoDir] = time.Now()
	l.mu.Unlock()
	return l.state(repoDir), nil
}

// DefaultBranch picks the branch to use per spec.md §4.H's final rule:
// reconciledHead if non-empty, else the first matching common default,
// else the first listed branch.
func DefaultBranch(reconciledHead string, branches []objstore.Ref) string {
	if reconciledHead != "" {
		return strings.TrimPrefix(reconciledHead, "ref: refs/heads/")
	}
	names := make(map[string]bool, len(branches))
	for _, b := range branches {
		names[strings.TrimPrefix(b.Name, "refs/heads/")] = true
	}
	for _, c := range defaultBranchCandidates {
		if names[c] {
			return c
		}
	}
	if len(branches) > 0 {
		return strings.TrimPrefix(branches[0].Name, "refs/heads/")
	}
	return ""
}
