package clone

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/objstore"
)

type noopRescuer struct{ called bool }

func (r *noopRescuer) Rescue(ctx context.Context, repoDir string, alternateURLs []string) (string, string, error) {
	r.called = true
	return "main", "abc", nil
}

func TestLadderMonotoneTransitions(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewFake()
	l := New(store, nil)

	_, err := l.InitializeRepo(ctx, "/repo", "https://example.com/x.git")
	require.NoError(t, err)
	assert.Equal(t, StateRefs, l.state("/repo"))

	require.NoError(t, l.EnsureShallowClone(ctx, "/repo", "https://example.com/x.git", 1, nil))
	assert.Equal(t, StateShallow, l.state("/repo"))

	require.NoError(t, l.EnsureFullClone(ctx, "/repo", "https://example.com/x.git", "main"))
	assert.Equal(t, StateFull, l.state("/repo"))

	// a later shallow-clone call must not move state backwards.
	require.NoError(t, l.EnsureShallowClone(ctx, "/repo", "https://example.com/x.git", 1, nil))
	assert.Equal(t, StateFull, l.state("/repo"))
}

func TestLadderInvokesRescuerWhenNoBranchesResult(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewFake()
	rescuer := &noopRescuer{}
	l := New(store, rescuer)

	require.NoError(t, l.EnsureShallowClone(ctx, "/repo", "https://example.com/x.git", 1, nil))
	assert.True(t, rescuer.called)
}

type depthRecordingStore struct {
	*objstore.Fake
	cloneDepth int
}

func (s *depthRecordingStore) Clone(ctx context.Context, repoDir string, opts objstore.CloneOptions) error {
	s.cloneDepth = opts.Depth
	return s.Fake.Clone(ctx, repoDir, opts)
}

func TestLadderSetsMirrorDepthForNostrHosts(t *testing.T) {
	ctx := context.Background()
	store := &depthRecordingStore{Fake: objstore.NewFake()}
	l := New(store, nil)

	require.NoError(t, l.EnsureShallowClone(ctx, "/repo", "https://relay.ngit.dev/x.git", 1, nil))
	shallow, err := store.IsShallow(ctx, "/repo")
	require.NoError(t, err)
	assert.True(t, shallow)
	assert.Equal(t, 10, store.cloneDepth)
}

func TestDefaultBranchPrefersReconciledHead(t *testing.T) {
	branches := []objstore.Ref{{Name: "refs/heads/develop"}, {Name: "refs/heads/main"}}
	assert.Equal(t, "main", DefaultBranch("ref: refs/heads/main", branches))
	assert.Equal(t, "main", DefaultBranch("", branches))
	assert.Equal(t, "develop", DefaultBranch("", []objstore.Ref{{Name: "refs/heads/develop"}}))
}

func TestSmartInitializeRepoServesFreshCache(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewFake()
	l := New(store, nil)

	_, err := l.SmartInitializeRepo(ctx, "/repo", "https://example.com/x.git", time.Hour, false)
	require.NoError(t, err)

	state, err := l.SmartInitializeRepo(ctx, "/repo", "https://example.com/x.git", time.Hour, false)
	require.NoError(t, err)
	assert.Equal(t, StateRefs, state)
}
