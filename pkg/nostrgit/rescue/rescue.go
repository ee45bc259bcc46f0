// Package rescue implements the Reference Rescuer (spec.md §4.H): after a
// clone that produced no local branches, work through an ordered fallback
// ladder until one step yields a commit OID, then write refs/heads/<name>
// and a symbolic HEAD pointing at it. Grounded in shape on the branch/HEAD
// resolution helpers in
// other_examples/eb885df0_thorstenhirsch-gitbatch__internal-git-repository.go.go.
package rescue

import (
	"context"
	"regexp"
	"strings"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/ngerr"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/objstore"
)

var fullOIDPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// candidateBranches are tried, in order, for the fetch-retry step.
var candidateBranches = []string{"main", "master"}

// Rescuer recovers a local branch for a repo whose clone produced none.
type Rescuer struct {
	Store objstore.Store
}

// New returns a Rescuer over store.
func New(store objstore.Store) *Rescuer {
	return &Rescuer{Store: store}
}

// Rescue runs the five-step fallback ladder against repoDir, trying each of
// alternateURLs in the retry-fetch step (origin's own URL is not retried
// there). It returns the recovered branch name and commit OID.
func (r *Rescuer) Rescue(ctx context.Context, repoDir string, alternateURLs []string) (branch, oid string, err error) {
	if branch, oid, ok := r.fromOriginBranches(ctx, repoDir); ok {
		return r.finish(ctx, repoDir, branch, oid)
	}

	if oid, ok := r.fromShallowHead(ctx, repoDir); ok {
		return r.finish(ctx, repoDir, "main", oid)
	}

	if oid, ok := r.fromFetchHead(ctx, repoDir); ok {
		return r.finish(ctx, repoDir, "main", oid)
	}

	if oid, ok := r.fromFirstLogEntry(ctx, repoDir); ok {
		return r.finish(ctx, repoDir, "main", oid)
	}

	if branch, oid, ok := r.fromRetryFetch(ctx, repoDir, alternateURLs); ok {
		return r.finish(ctx, repoDir, branch, oid)
	}

	return "", "", ngerr.New(ngerr.NotFound, "rescue.Rescue", errNoRecoverableRef).WithRepoDir(repoDir)
}

var errNoRecoverableRef = rescueErr("no recoverable ref found by any fallback step")

type rescueErr string

func (e rescueErr) Error() string { return string(e) }

// step 1: first entry from listBranches(remote=origin) -> resolveRef(refs/remotes/origin/<b>)
func (r *Rescuer) fromOriginBranches(ctx context.Context, repoDir string) (branch, oid string, ok bool) {
	branches, err := r.Store.ListBranches(ctx, repoDir, "origin")
	if err != nil || len(branches) == 0 {
		return "", "", false
	}
	name := strings.TrimPrefix(branches[0].Name, "refs/remotes/origin/")
	return name, branches[0].Commit, true
}

// step 2: resolveRef(HEAD, depth=1) if it returns a 40-hex OID.
func (r *Rescuer) fromShallowHead(ctx context.Context, repoDir string) (oid string, ok bool) {
	h, err := r.Store.ResolveRef(ctx, repoDir, "HEAD", 1)
	if err != nil || !fullOIDPattern.MatchString(h) {
		return "", false
	}
	return h, true
}

// step 3: resolveRef(FETCH_HEAD).
func (r *Rescuer) fromFetchHead(ctx context.Context, repoDir string) (oid string, ok bool) {
	h, err := r.Store.ResolveRef(ctx, repoDir, "FETCH_HEAD", 0)
	if err != nil || h == "" {
		return "", false
	}
	return h, true
}

// step 4: log(depth=1)[0].oid.
func (r *Rescuer) fromFirstLogEntry(ctx context.Context, repoDir string) (oid string, ok bool) {
	commits, err := r.Store.Log(ctx, repoDir, "HEAD", 1)
	if err != nil || len(commits) == 0 {
		return "", false
	}
	return commits[0].OID, true
}

// step 5: retry fetch(url, ref=candidate, depth, singleBranch=true) for
// each of candidateBranches {main, master} x each alternate clone URL. No
// separately detected default branch is tried.
func (r *Rescuer) fromRetryFetch(ctx context.Context, repoDir string, alternateURLs []string) (branch, oid string, ok bool) {
	for _, url := range alternateURLs {
		for _, b := range candidateBranches {
			res, err := r.Store.Fetch(ctx, repoDir, objstore.CloneOptions{
				URL: url, Ref: "refs/heads/" + b, SingleBranch: true, Depth: 10,
			})
			if err != nil || res.FetchHead == "" {
				continue
			}
			return b, res.FetchHead, true
		}
	}
	return "", "", false
}

func (r *Rescuer) finish(ctx context.Context, repoDir, branch, oid string) (string, string, error) {
	if err := r.Store.WriteRef(ctx, repoDir, "refs/heads/"+branch, oid, false, true); err != nil {
		return "", "", ngerr.New(ngerr.Internal, "rescue.finish", err).WithRef(branch).WithRepoDir(repoDir)
	}
	if err := r.Store.WriteRef(ctx, repoDir, "HEAD", "refs/heads/"+branch, true, true); err != nil {
		return "", "", ngerr.New(ngerr.Internal, "rescue.finish", err).WithRef("HEAD").WithRepoDir(repoDir)
	}
	return branch, oid, nil
}
