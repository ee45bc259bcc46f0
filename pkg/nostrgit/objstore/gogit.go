package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/ngerr"
)

// GoGit is the Store implementation backed by go-git, opening (and caching)
// one *git.Repository per repoDir.
type GoGit struct {
	repos map[string]*git.Repository
}

// NewGoGit returns an empty GoGit store.
func NewGoGit() *GoGit {
	return &GoGit{repos: map[string]*git.Repository{}}
}

func (g *GoGit) open(repoDir string) (*git.Repository, error) {
	if r, ok := g.repos[repoDir]; ok {
		return r, nil
	}
	r, err := git.PlainOpen(repoDir)
	if err != nil {
		return nil, err
	}
	g.repos[repoDir] = r
	return r, nil
}

func (g *GoGit) Exists(ctx context.Context, repoDir string) bool {
	_, err := g.open(repoDir)
	return err == nil
}

func (g *GoGit) Clone(ctx context.Context, repoDir string, opts CloneOptions) error {
	cloneOpts := &git.CloneOptions{
		URL:          opts.URL,
		Depth:        opts.Depth,
		SingleBranch: opts.SingleBranch,
	}
	if opts.Ref != "" {
		cloneOpts.ReferenceName = plumbing.ReferenceName(opts.Ref)
	}

	cctx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	r, err := git.PlainCloneContext(cctx, repoDir, false, cloneOpts)
	if err != nil {
		return ngerr.New(ngerr.NetworkRecoverable, "objstore.Clone", err).WithRepoDir(repoDir)
	}
	g.repos[repoDir] = r
	return nil
}

func (g *GoGit) Fetch(ctx context.Context, repoDir string, opts CloneOptions) (FetchResult, error) {
	r, err := g.open(repoDir)
	if err != nil {
		return FetchResult{}, ngerr.New(ngerr.NotFound, "objstore.Fetch", err).WithRepoDir(repoDir)
	}

	fetchOpts := &git.FetchOptions{Depth: opts.Depth}
	if opts.Ref != "" {
		fetchOpts.RefSpecs = []config.RefSpec{
			config.RefSpec(fmt.Sprintf("+%s:%s", opts.Ref, opts.Ref)),
		}
	}

	err = r.FetchContext(ctx, fetchOpts)
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return FetchResult{}, ngerr.New(ngerr.NetworkRecoverable, "objstore.Fetch", err).WithRepoDir(repoDir)
	}

	headRef := plumbing.NewRemoteReferenceName("origin", "HEAD")
	if opts.Ref != "" {
		headRef = plumbing.ReferenceName(opts.Ref)
	}
	head, err := r.Reference(headRef, true)
	if err != nil {
		return FetchResult{}, nil
	}
	return FetchResult{FetchHead: head.Hash().String()}, nil
}

func (g *GoGit) Push(ctx context.Context, repoDir, remote, localRef, remoteRef string, force bool) error {
	r, err := g.open(repoDir)
	if err != nil {
		return ngerr.New(ngerr.NotFound, "objstore.Push", err).WithRepoDir(repoDir)
	}

	spec := fmt.Sprintf("%s:%s", localRef, remoteRef)
	if force {
		spec = "+" + spec
	}

	err = r.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{config.RefSpec(spec)},
	})
	if err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			return nil
		}
		if errors.Is(err, git.ErrNonFastForwardUpdate) {
			return ngerr.New(ngerr.Rejected, "objstore.Push", err).WithRef(remoteRef).WithRemote(remote).WithRepoDir(repoDir)
		}
		return ngerr.New(ngerr.NetworkRecoverable, "objstore.Push", err).WithRef(remoteRef).WithRemote(remote).WithRepoDir(repoDir)
	}
	return nil
}

func (g *GoGit) ListServerRefs(ctx context.Context, url string) ([]Ref, error) {
	remote := git.NewRemote(nil, &config.RemoteConfig{Name: "origin", URLs: []string{url}})
	refs, err := remote.ListContext(ctx, &git.ListOptions{})
	if err != nil {
		return nil, ngerr.New(ngerr.NetworkRecoverable, "objstore.ListServerRefs", err)
	}

	out := make([]Ref, 0, len(refs))
	for _, r := range refs {
		if r.Type() != plumbing.HashReference {
			continue
		}
		out = append(out, Ref{Name: string(r.Name()), Commit: r.Hash().String()})
	}
	return out, nil
}

func (g *GoGit) ResolveRef(ctx context.Context, repoDir, ref string, depth int) (string, error) {
	r, err := g.open(repoDir)
	if err != nil {
		return "", ngerr.New(ngerr.NotFound, "objstore.ResolveRef", err).WithRepoDir(repoDir)
	}

	h, err := r.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return "", ngerr.New(ngerr.NotFound, "objstore.ResolveRef", err).WithRef(ref).WithRepoDir(repoDir)
	}
	return h.String(), nil
}

func (g *GoGit) WriteRef(ctx context.Context, repoDir, ref, target string, symbolic, force bool) error {
	r, err := g.open(repoDir)
	if err != nil {
		return ngerr.New(ngerr.NotFound, "objstore.WriteRef", err).WithRepoDir(repoDir)
	}

	var newRef *plumbing.Reference
	if symbolic {
		newRef = plumbing.NewSymbolicReference(plumbing.ReferenceName(ref), plumbing.ReferenceName(target))
	} else {
		newRef = plumbing.NewHashReference(plumbing.ReferenceName(ref), plumbing.NewHash(target))
	}

	if !force {
		if _, err := r.Reference(plumbing.ReferenceName(ref), false); err == nil {
			return ngerr.New(ngerr.Rejected, "objstore.WriteRef", fmt.Errorf("ref %s already exists", ref)).WithRef(ref).WithRepoDir(repoDir)
		}
	}

	if err := r.Storer.SetReference(newRef); err != nil {
		return ngerr.New(ngerr.Internal, "objstore.WriteRef", err).WithRef(ref).WithRepoDir(repoDir)
	}
	return nil
}

func (g *GoGit) ReadBlob(ctx context.Context, repoDir, commitOID, path string) ([]byte, error) {
	r, err := g.open(repoDir)
	if err != nil {
		return nil, ngerr.New(ngerr.NotFound, "objstore.ReadBlob", err).WithRepoDir(repoDir)
	}

	c, err := r.CommitObject(plumbing.NewHash(commitOID))
	if err != nil {
		return nil, ngerr.New(ngerr.NotFound, "objstore.ReadBlob", err).WithRepoDir(repoDir)
	}

	f, err := c.File(path)
	if err != nil {
		return nil, ngerr.New(ngerr.NotFound, "objstore.ReadBlob", err).WithRepoDir(repoDir)
	}

	rd, err := f.Reader()
	if err != nil {
		return nil, ngerr.New(ngerr.Internal, "objstore.ReadBlob", err).WithRepoDir(repoDir)
	}
	defer rd.Close()
	return io.ReadAll(rd)
}

func (g *GoGit) ReadCommit(ctx context.Context, repoDir, oid string) (Commit, error) {
	r, err := g.open(repoDir)
	if err != nil {
		return Commit{}, ngerr.New(ngerr.NotFound, "objstore.ReadCommit", err).WithRepoDir(repoDir)
	}

	c, err := r.CommitObject(plumbing.NewHash(oid))
	if err != nil {
		return Commit{}, ngerr.New(ngerr.NotFound, "objstore.ReadCommit", err).WithRepoDir(repoDir)
	}
	return commitFromObject(c), nil
}

func commitFromObject(c *object.Commit) Commit {
	parents := make([]string, 0, c.NumParents())
	for _, p := range c.ParentHashes {
		parents = append(parents, p.String())
	}
	return Commit{
		OID:       c.Hash.String(),
		Author:    c.Author.Name,
		Email:     c.Author.Email,
		Message:   c.Message,
		Parents:   parents,
		Timestamp: c.Author.When,
	}
}

func (g *GoGit) Log(ctx context.Context, repoDir, ref string, depth int) ([]Commit, error) {
	r, err := g.open(repoDir)
	if err != nil {
		return nil, ngerr.New(ngerr.NotFound, "objstore.Log", err).WithRepoDir(repoDir)
	}

	h, err := r.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, ngerr.New(ngerr.NotFound, "objstore.Log", err).WithRef(ref).WithRepoDir(repoDir)
	}

	iter, err := r.Log(&git.LogOptions{From: *h})
	if err != nil {
		return nil, ngerr.New(ngerr.Internal, "objstore.Log", err).WithRepoDir(repoDir)
	}
	defer iter.Close()

	var out []Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if depth > 0 && len(out) >= depth {
			return storerErrStop
		}
		out = append(out, commitFromObject(c))
		return nil
	})
	if err != nil && !errors.Is(err, storerErrStop) {
		return nil, ngerr.New(ngerr.Internal, "objstore.Log", err).WithRepoDir(repoDir)
	}
	return out, nil
}

var storerErrStop = errors.New("objstore: stop iteration")

func (g *GoGit) FindMergeBase(ctx context.Context, repoDir, a, b string) (string, error) {
	r, err := g.open(repoDir)
	if err != nil {
		return "", ngerr.New(ngerr.NotFound, "objstore.FindMergeBase", err).WithRepoDir(repoDir)
	}

	ca, err := r.CommitObject(plumbing.NewHash(a))
	if err != nil {
		return "", ngerr.New(ngerr.NotFound, "objstore.FindMergeBase", err).WithRepoDir(repoDir)
	}
	cb, err := r.CommitObject(plumbing.NewHash(b))
	if err != nil {
		return "", ngerr.New(ngerr.NotFound, "objstore.FindMergeBase", err).WithRepoDir(repoDir)
	}

	bases, err := ca.MergeBase(cb)
	if err != nil {
		return "", ngerr.New(ngerr.Internal, "objstore.FindMergeBase", err).WithRepoDir(repoDir)
	}
	if len(bases) == 0 {
		return "", ngerr.New(ngerr.NotFound, "objstore.FindMergeBase", errors.New("no common ancestor")).WithRepoDir(repoDir)
	}
	return bases[0].Hash.String(), nil
}

func (g *GoGit) ListBranches(ctx context.Context, repoDir, remote string) ([]Ref, error) {
	r, err := g.open(repoDir)
	if err != nil {
		return nil, ngerr.New(ngerr.NotFound, "objstore.ListBranches", err).WithRepoDir(repoDir)
	}

	var prefix string
	var iter interface {
		ForEach(func(*plumbing.Reference) error) error
	}
	if remote == "" {
		prefix = "refs/heads/"
		bi, err := r.Branches()
		if err != nil {
			return nil, ngerr.New(ngerr.Internal, "objstore.ListBranches", err).WithRepoDir(repoDir)
		}
		iter = bi
	} else {
		prefix = "refs/remotes/" + remote + "/"
		ri, err := r.References()
		if err != nil {
			return nil, ngerr.New(ngerr.Internal, "objstore.ListBranches", err).WithRepoDir(repoDir)
		}
		iter = ri
	}

	var out []Ref
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().String()
		if len(name) < len(prefix) || name[:len(prefix)] != prefix {
			return nil
		}
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		out = append(out, Ref{Name: name, Commit: ref.Hash().String()})
		return nil
	})
	if err != nil {
		return nil, ngerr.New(ngerr.Internal, "objstore.ListBranches", err).WithRepoDir(repoDir)
	}
	return out, nil
}

func (g *GoGit) ListRemotes(ctx context.Context, repoDir string) (map[string]string, error) {
	r, err := g.open(repoDir)
	if err != nil {
		return nil, ngerr.New(ngerr.NotFound, "objstore.ListRemotes", err).WithRepoDir(repoDir)
	}

	remotes, err := r.Remotes()
	if err != nil {
		return nil, ngerr.New(ngerr.Internal, "objstore.ListRemotes", err).WithRepoDir(repoDir)
	}

	out := map[string]string{}
	for _, rm := range remotes {
		cfg := rm.Config()
		if len(cfg.URLs) > 0 {
			out[cfg.Name] = cfg.URLs[0]
		}
	}
	return out, nil
}

func (g *GoGit) Checkout(ctx context.Context, repoDir, ref string) error {
	r, err := g.open(repoDir)
	if err != nil {
		return ngerr.New(ngerr.NotFound, "objstore.Checkout", err).WithRepoDir(repoDir)
	}

	w, err := r.Worktree()
	if err != nil {
		return ngerr.New(ngerr.Internal, "objstore.Checkout", err).WithRepoDir(repoDir)
	}

	h, err := r.ResolveRevision(plumbing.Revision(ref))
	if err == nil {
		err = w.Checkout(&git.CheckoutOptions{Hash: *h})
	} else {
		err = w.Checkout(&git.CheckoutOptions{Branch: plumbing.ReferenceName(ref)})
	}
	if err != nil {
		return ngerr.New(ngerr.NotFound, "objstore.Checkout", err).WithRef(ref).WithRepoDir(repoDir)
	}
	return nil
}

func (g *GoGit) StatusMatrix(ctx context.Context, repoDir string) ([]StatusRow, error) {
	r, err := g.open(repoDir)
	if err != nil {
		return nil, ngerr.New(ngerr.NotFound, "objstore.StatusMatrix", err).WithRepoDir(repoDir)
	}

	w, err := r.Worktree()
	if err != nil {
		return nil, ngerr.New(ngerr.Internal, "objstore.StatusMatrix", err).WithRepoDir(repoDir)
	}

	st, err := w.Status()
	if err != nil {
		return nil, ngerr.New(ngerr.Internal, "objstore.StatusMatrix", err).WithRepoDir(repoDir)
	}

	out := make([]StatusRow, 0, len(st))
	for path, fs := range st {
		row := StatusRow{Path: path, Head: 1, Workdir: 1, Stage: 1}
		if fs.Staging == git.Untracked || fs.Worktree == git.Untracked {
			row.Head = 0
		}
		if fs.Worktree != git.Unmodified {
			row.Workdir = 2
		}
		if fs.Staging != git.Unmodified {
			row.Stage = 2
		}
		out = append(out, row)
	}
	return out, nil
}

func (g *GoGit) SetConfig(ctx context.Context, repoDir, key, value string) error {
	r, err := g.open(repoDir)
	if err != nil {
		return ngerr.New(ngerr.NotFound, "objstore.SetConfig", err).WithRepoDir(repoDir)
	}

	cfg, err := r.Config()
	if err != nil {
		return ngerr.New(ngerr.Internal, "objstore.SetConfig", err).WithRepoDir(repoDir)
	}
	section, rest, ok := strings.Cut(key, ".")
	if !ok {
		return ngerr.New(ngerr.InvalidInput, "objstore.SetConfig", fmt.Errorf("config key %q has no section", key)).WithRepoDir(repoDir)
	}
	subsection, option := "", rest
	if i := strings.LastIndex(rest, "."); i >= 0 {
		subsection, option = rest[:i], rest[i+1:]
	}
	if rc, found := cfg.Remotes[subsection]; found && section == "remote" && option == "fetch" {
		rc.Fetch = []config.RefSpec{config.RefSpec(value)}
	} else {
		cfg.Raw.SetOption(section, subsection, option, value)
	}
	return r.SetConfig(cfg)
}

func (g *GoGit) AddRemote(ctx context.Context, repoDir, name, url string) error {
	r, err := g.open(repoDir)
	if err != nil {
		return ngerr.New(ngerr.NotFound, "objstore.AddRemote", err).WithRepoDir(repoDir)
	}

	_, err = r.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}})
	if err != nil && !errors.Is(err, git.ErrRemoteExists) {
		return ngerr.New(ngerr.Internal, "objstore.AddRemote", err).WithRemote(name).WithRepoDir(repoDir)
	}
	return nil
}

func (g *GoGit) IsShallow(ctx context.Context, repoDir string) (bool, error) {
	r, err := g.open(repoDir)
	if err != nil {
		return false, ngerr.New(ngerr.NotFound, "objstore.IsShallow", err).WithRepoDir(repoDir)
	}

	shallow, err := r.Storer.Shallow()
	if err != nil {
		return false, ngerr.New(ngerr.Internal, "objstore.IsShallow", err).WithRepoDir(repoDir)
	}
	return len(shallow) > 0, nil
}

func (g *GoGit) WriteFile(ctx context.Context, repoDir, path string, content []byte) error {
	r, err := g.open(repoDir)
	if err != nil {
		return ngerr.New(ngerr.NotFound, "objstore.WriteFile", err).WithRepoDir(repoDir)
	}

	w, err := r.Worktree()
	if err != nil {
		return ngerr.New(ngerr.Internal, "objstore.WriteFile", err).WithRepoDir(repoDir)
	}

	f, err := w.Filesystem.Create(path)
	if err != nil {
		return ngerr.New(ngerr.Internal, "objstore.WriteFile", err).WithRepoDir(repoDir)
	}
	defer f.Close()

	if _, err := f.Write(content); err != nil {
		return ngerr.New(ngerr.Internal, "objstore.WriteFile", err).WithRepoDir(repoDir)
	}
	_, err = w.Add(path)
	return err
}

func (g *GoGit) RemoveFile(ctx context.Context, repoDir, path string) error {
	r, err := g.open(repoDir)
	if err != nil {
		return ngerr.New(ngerr.NotFound, "objstore.RemoveFile", err).WithRepoDir(repoDir)
	}

	w, err := r.Worktree()
	if err != nil {
		return ngerr.New(ngerr.Internal, "objstore.RemoveFile", err).WithRepoDir(repoDir)
	}

	_, err = w.Remove(path)
	return err
}

func (g *GoGit) Commit(ctx context.Context, repoDir, author, email, message string) (string, error) {
	r, err := g.open(repoDir)
	if err != nil {
		return "", ngerr.New(ngerr.NotFound, "objstore.Commit", err).WithRepoDir(repoDir)
	}

	w, err := r.Worktree()
	if err != nil {
		return "", ngerr.New(ngerr.Internal, "objstore.Commit", err).WithRepoDir(repoDir)
	}

	h, err := w.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: author, Email: email, When: time.Now()},
	})
	if err != nil {
		return "", ngerr.New(ngerr.Internal, "objstore.Commit", err).WithRepoDir(repoDir)
	}
	return h.String(), nil
}
