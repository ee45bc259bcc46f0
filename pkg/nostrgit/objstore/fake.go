package objstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/ngerr"
)

// Fake is an in-memory Store used by higher-level component tests that need
// deterministic, dependency-free repository state rather than a real
// on-disk git repository.
type Fake struct {
	Repos map[string]*fakeRepo
}

type fakeRepo struct {
	refs      map[string]string // ref name -> OID, or "ref: <other>" for symbolic
	commits   map[string]Commit
	files     map[string][]byte
	remotes   map[string]string
	shallow   bool
	dirty     map[string]bool
}

// NewFake returns an empty Fake store.
func NewFake() *Fake {
	return &Fake{Repos: map[string]*fakeRepo{}}
}

func (f *Fake) repo(repoDir string) (*fakeRepo, error) {
	r, ok := f.Repos[repoDir]
	if !ok {
		return nil, ngerr.New(ngerr.NotFound, "objstore.Fake", fmt.Errorf("no repo at %s", repoDir)).WithRepoDir(repoDir)
	}
	return r, nil
}

// Seed registers a repo with the given initial refs and commits, for use by
// tests setting up fixtures directly rather than via Clone.
func (f *Fake) Seed(repoDir string, refs map[string]string, commits map[string]Commit) {
	f.Repos[repoDir] = &fakeRepo{
		refs:    refs,
		commits: commits,
		files:   map[string][]byte{},
		remotes: map[string]string{},
		dirty:   map[string]bool{},
	}
}

func (f *Fake) Exists(ctx context.Context, repoDir string) bool {
	_, ok := f.Repos[repoDir]
	return ok
}

func (f *Fake) Clone(ctx context.Context, repoDir string, opts CloneOptions) error {
	f.Repos[repoDir] = &fakeRepo{
		refs:    map[string]string{},
		commits: map[string]Commit{},
		files:   map[string][]byte{},
		remotes: map[string]string{"origin": opts.URL},
		shallow: opts.Depth > 0,
		dirty:   map[string]bool{},
	}
	return nil
}

func (f *Fake) Fetch(ctx context.Context, repoDir string, opts CloneOptions) (FetchResult, error) {
	if _, err := f.repo(repoDir); err != nil {
		return FetchResult{}, err
	}
	return FetchResult{}, nil
}

func (f *Fake) Push(ctx context.Context, repoDir, remote, localRef, remoteRef string, force bool) error {
	r, err := f.repo(repoDir)
	if err != nil {
		return err
	}
	r.refs[remoteRef] = r.refs[localRef]
	return nil
}

func (f *Fake) ListServerRefs(ctx context.Context, url string) ([]Ref, error) {
	for _, r := range f.Repos {
		if r.remotes["origin"] == url {
			return refsSorted(r.refs), nil
		}
	}
	return nil, nil
}

func (f *Fake) ResolveRef(ctx context.Context, repoDir, ref string, depth int) (string, error) {
	r, err := f.repo(repoDir)
	if err != nil {
		return "", err
	}
	oid, ok := r.refs[ref]
	if !ok {
		return "", ngerr.New(ngerr.NotFound, "objstore.Fake.ResolveRef", fmt.Errorf("ref %s not found", ref)).WithRef(ref).WithRepoDir(repoDir)
	}
	return oid, nil
}

func (f *Fake) WriteRef(ctx context.Context, repoDir, ref, target string, symbolic, force bool) error {
	r, err := f.repo(repoDir)
	if err != nil {
		return err
	}
	if !force {
		if _, exists := r.refs[ref]; exists {
			return ngerr.New(ngerr.Rejected, "objstore.Fake.WriteRef", fmt.Errorf("ref %s exists", ref)).WithRef(ref).WithRepoDir(repoDir)
		}
	}
	if symbolic {
		r.refs[ref] = "ref: " + target
	} else {
		r.refs[ref] = target
	}
	return nil
}

func (f *Fake) ReadBlob(ctx context.Context, repoDir, commitOID, path string) ([]byte, error) {
	r, err := f.repo(repoDir)
	if err != nil {
		return nil, err
	}
	content, ok := r.files[commitOID+":"+path]
	if !ok {
		return nil, ngerr.New(ngerr.NotFound, "objstore.Fake.ReadBlob", fmt.Errorf("%s@%s not found", path, commitOID)).WithRepoDir(repoDir)
	}
	return content, nil
}

// PutBlob registers file content at a given commit OID, for test fixtures.
func (f *Fake) PutBlob(repoDir, commitOID, path string, content []byte) {
	r := f.Repos[repoDir]
	r.files[commitOID+":"+path] = content
}

func (f *Fake) ReadCommit(ctx context.Context, repoDir, oid string) (Commit, error) {
	r, err := f.repo(repoDir)
	if err != nil {
		return Commit{}, err
	}
	c, ok := r.commits[oid]
	if !ok {
		return Commit{}, ngerr.New(ngerr.NotFound, "objstore.Fake.ReadCommit", fmt.Errorf("commit %s not found", oid)).WithRepoDir(repoDir)
	}
	return c, nil
}

func (f *Fake) Log(ctx context.Context, repoDir, ref string, depth int) ([]Commit, error) {
	r, err := f.repo(repoDir)
	if err != nil {
		return nil, err
	}
	oid, ok := r.refs[ref]
	if !ok {
		return nil, ngerr.New(ngerr.NotFound, "objstore.Fake.Log", fmt.Errorf("ref %s not found", ref)).WithRef(ref).WithRepoDir(repoDir)
	}

	var out []Commit
	for oid != "" {
		if depth > 0 && len(out) >= depth {
			break
		}
		c, ok := r.commits[oid]
		if !ok {
			break
		}
		out = append(out, c)
		if len(c.Parents) == 0 {
			break
		}
		oid = c.Parents[0]
	}
	return out, nil
}

func (f *Fake) FindMergeBase(ctx context.Context, repoDir, a, b string) (string, error) {
	r, err := f.repo(repoDir)
	if err != nil {
		return "", err
	}

	ancestorsOf := func(oid string) map[string]bool {
		set := map[string]bool{}
		for oid != "" {
			set[oid] = true
			c, ok := r.commits[oid]
			if !ok || len(c.Parents) == 0 {
				break
			}
			oid = c.Parents[0]
		}
		return set
	}

	aset := ancestorsOf(a)
	oid := b
	for oid != "" {
		if aset[oid] {
			return oid, nil
		}
		c, ok := r.commits[oid]
		if !ok || len(c.Parents) == 0 {
			break
		}
		oid = c.Parents[0]
	}
	return "", ngerr.New(ngerr.NotFound, "objstore.Fake.FindMergeBase", fmt.Errorf("no common ancestor")).WithRepoDir(repoDir)
}

func (f *Fake) ListBranches(ctx context.Context, repoDir, remote string) ([]Ref, error) {
	r, err := f.repo(repoDir)
	if err != nil {
		return nil, err
	}

	prefix := "refs/heads/"
	if remote != "" {
		prefix = "refs/remotes/" + remote + "/"
	}

	var out []Ref
	for name, oid := range r.refs {
		if len(name) < len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		out = append(out, Ref{Name: name, Commit: oid})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *Fake) ListRemotes(ctx context.Context, repoDir string) (map[string]string, error) {
	r, err := f.repo(repoDir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(r.remotes))
	for k, v := range r.remotes {
		out[k] = v
	}
	return out, nil
}

func (f *Fake) Checkout(ctx context.Context, repoDir, ref string) error {
	_, err := f.repo(repoDir)
	return err
}

func (f *Fake) StatusMatrix(ctx context.Context, repoDir string) ([]StatusRow, error) {
	r, err := f.repo(repoDir)
	if err != nil {
		return nil, err
	}
	var out []StatusRow
	for path, isDirty := range r.dirty {
		row := StatusRow{Path: path, Head: 1, Workdir: 1, Stage: 1}
		if isDirty {
			row.Workdir = 2
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (f *Fake) SetConfig(ctx context.Context, repoDir, key, value string) error {
	_, err := f.repo(repoDir)
	return err
}

func (f *Fake) AddRemote(ctx context.Context, repoDir, name, url string) error {
	r, err := f.repo(repoDir)
	if err != nil {
		return err
	}
	r.remotes[name] = url
	return nil
}

func (f *Fake) IsShallow(ctx context.Context, repoDir string) (bool, error) {
	r, err := f.repo(repoDir)
	if err != nil {
		return false, err
	}
	return r.shallow, nil
}

// SetShallow marks repoDir as shallow or full, for test fixtures.
func (f *Fake) SetShallow(repoDir string, shallow bool) {
	if r, ok := f.Repos[repoDir]; ok {
		r.shallow = shallow
	}
}

func (f *Fake) WriteFile(ctx context.Context, repoDir, path string, content []byte) error {
	r, err := f.repo(repoDir)
	if err != nil {
		return err
	}
	r.dirty[path] = true
	r.files["WORKDIR:"+path] = content
	return nil
}

func (f *Fake) RemoveFile(ctx context.Context, repoDir, path string) error {
	r, err := f.repo(repoDir)
	if err != nil {
		return err
	}
	r.dirty[path] = true
	delete(r.files, "WORKDIR:"+path)
	return nil
}

func (f *Fake) Commit(ctx context.Context, repoDir, author, email, message string) (string, error) {
	r, err := f.repo(repoDir)
	if err != nil {
		return "", err
	}

	parent := r.refs["HEAD"]
	oid := fmt.Sprintf("fake-%d", len(r.commits)+1)
	var parents []string
	if parent != "" {
		parents = []string{parent}
	}
	r.commits[oid] = Commit{OID: oid, Author: author, Email: email, Message: message, Parents: parents}
	r.refs["HEAD"] = oid
	r.dirty = map[string]bool{}
	return oid, nil
}

func refsSorted(refs map[string]string) []Ref {
	out := make([]Ref, 0, len(refs))
	for name, oid := range refs {
		out = append(out, Ref{Name: name, Commit: oid})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
