// Package objstore defines the Git object-store surface spec.md §1
// treats as an external collaborator ("assumed to expose... essentially
// an isomorphic-git-shaped surface") and provides a concrete
// implementation over github.com/go-git/go-git/v5, since a runnable Go
// repo needs one concrete adapter to drive the clone ladder, reference
// rescuer, merge analyzer, patch applier and safe-push gate against.
package objstore

import (
	"context"
	"time"
)

// StatusRow mirrors isomorphic-git's statusMatrix row: a path plus its
// HEAD/workdir/stage states (0 = absent, 1 = present/unmodified, 2 = modified).
type StatusRow struct {
	Path    string
	Head    int
	Workdir int
	Stage   int
}

// Dirty reports whether this row represents an uncommitted change.
func (r StatusRow) Dirty() bool {
	return r.Head != r.Workdir || r.Workdir != r.Stage
}

// CloneOptions configures Clone/Fetch depth and branch selection.
type CloneOptions struct {
	URL          string
	Depth        int // 0 means full history
	SingleBranch bool
	Ref          string // branch/ref to check out; "" means default
	Timeout      time.Duration
}

// FetchResult reports what a Fetch call observed.
type FetchResult struct {
	FetchHead string // OID FETCH_HEAD points at, if resolvable
}

// Commit is a minimal log entry.
type Commit struct {
	OID       string
	Author    string
	Email     string
	Message   string
	Parents   []string
	Timestamp time.Time
}

// Ref is a named ref pointing at a commit OID.
type Ref struct {
	Name   string
	Commit string
}

// Store is the object-store capability every higher-level component
// (clone ladder, reference rescuer, merge analyzer, patch applier, safe-
// push gate) is built against.
type Store interface {
	// Clone performs an initial clone of opts.URL into the repo's working
	// directory.
	Clone(ctx context.Context, repoDir string, opts CloneOptions) error
	// Fetch fetches opts.Ref (or all refs if "") from opts.URL.
	Fetch(ctx context.Context, repoDir string, opts CloneOptions) (FetchResult, error)
	// Push pushes localRef to remoteRef on the named remote. force allows a
	// non-fast-forward update.
	Push(ctx context.Context, repoDir, remote, localRef, remoteRef string, force bool) error
	// ListServerRefs lists refs advertised by url without cloning.
	ListServerRefs(ctx context.Context, url string) ([]Ref, error)
	// ResolveRef resolves ref to a commit OID. depth is a hint for shallow
	// resolution (e.g. HEAD at depth=1); 0 means no hint.
	ResolveRef(ctx context.Context, repoDir, ref string, depth int) (string, error)
	// WriteRef writes ref to point at target (an OID, or "ref: <other>" for
	// a symbolic ref). force overwrites an existing ref.
	WriteRef(ctx context.Context, repoDir, ref, target string, symbolic, force bool) error
	// ReadBlob reads a blob's content at the given path and commit OID.
	ReadBlob(ctx context.Context, repoDir, commitOID, path string) ([]byte, error)
	// ReadCommit reads a single commit's metadata.
	ReadCommit(ctx context.Context, repoDir, oid string) (Commit, error)
	// Log walks commit history starting at ref, up to depth commits (0 = unbounded).
	Log(ctx context.Context, repoDir, ref string, depth int) ([]Commit, error)
	// FindMergeBase returns the merge base of two commits.
	FindMergeBase(ctx context.Context, repoDir, a, b string) (string, error)
	// ListBranches lists local or remote-tracking branches. remote selects
	// the remote namespace ("" for local branches, e.g. "origin").
	ListBranches(ctx context.Context, repoDir, remote string) ([]Ref, error)
	// ListRemotes lists configured remotes and their URLs.
	ListRemotes(ctx context.Context, repoDir string) (map[string]string, error)
	// Checkout checks out ref into the working tree.
	Checkout(ctx context.Context, repoDir, ref string) error
	// StatusMatrix reports the working tree's status vs. HEAD and the index.
	StatusMatrix(ctx context.Context, repoDir string) ([]StatusRow, error)
	// SetConfig sets a config key (e.g. "remote.origin.fetch") to value.
	SetConfig(ctx context.Context, repoDir, key, value string) error
	// AddRemote adds a remote named name with the given URL.
	AddRemote(ctx context.Context, repoDir, name, url string) error
	// IsShallow reports whether repoDir's clone is shallow.
	IsShallow(ctx context.Context, repoDir string) (bool, error)
	// Exists reports whether repoDir already holds a git directory.
	Exists(ctx context.Context, repoDir string) bool
	// WriteFile writes content to path within the working tree (used by the
	// patch applier to materialize file operations).
	WriteFile(ctx context.Context, repoDir, path string, content []byte) error
	// RemoveFile removes path from the working tree.
	RemoveFile(ctx context.Context, repoDir, path string) error
	// Commit commits the current working tree changes with the given
	// author/email/message, returning the new commit OID.
	Commit(ctx context.Context, repoDir, author, email, message string) (string, error)
}
