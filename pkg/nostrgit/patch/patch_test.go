package patch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/domain"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/ngerr"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/objstore"
)

const simpleDiff = `--- a/greeting.txt
+++ b/greeting.txt
@@ -1,1 +1,1 @@
-hi
+hello
`

func TestValidateRejectsRename(t *testing.T) {
	diff := "diff --git a/old.txt b/new.txt\nrename from old.txt\nrename to new.txt\n"
	err := Validate(diff)
	assert.True(t, ngerr.Is(err, ngerr.NotSupported))
}

func TestValidateAcceptsPlainModify(t *testing.T) {
	assert.NoError(t, Validate(simpleDiff))
}

func TestApplyCommitsAndPushes(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewFake()
	store.Seed("/repo", map[string]string{"refs/heads/main": "base1"}, map[string]objstore.Commit{
		"base1": {OID: "base1"},
	})

	a := New(store)
	p := domain.Patch{ID: "abcdef1234", Content: simpleDiff, Committer: domain.User{Username: "bob"}}

	res, err := a.Apply(ctx, "/repo", "https://example.com/x.git", "main", p)
	require.NoError(t, err)
	assert.NotEmpty(t, res.CommitOID)
	assert.Contains(t, res.PushedRemotes, "origin")
	assert.False(t, res.UsedTopicPush)
}

// protectedBranchStore rejects a push to refs/heads/main as the server
// would for a protected branch, to exercise the topic-branch fallback.
type protectedBranchStore struct {
	*objstore.Fake
}

func (s *protectedBranchStore) Push(ctx context.Context, repoDir, remote, localRef, remoteRef string, force bool) error {
	if remoteRef == "refs/heads/main" {
		return ngerr.New(ngerr.Rejected, "test", assertErr("protected branch"))
	}
	return s.Fake.Push(ctx, repoDir, remote, localRef, remoteRef, force)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

// S7 — protected-branch topic-fallback push, spec.md §4.J step 5.
func TestApplyFallsBackToTopicBranchOnProtectedRef(t *testing.T) {
	ctx := context.Background()
	fake := objstore.NewFake()
	fake.Seed("/repo", map[string]string{"refs/heads/main": "base1"}, map[string]objstore.Commit{
		"base1": {OID: "base1"},
	})
	store := &protectedBranchStore{Fake: fake}

	a := New(store)
	p := domain.Patch{ID: "abcdef1234", Content: simpleDiff, Committer: domain.User{Username: "bob"}}

	res, err := a.Apply(ctx, "/repo", "https://example.com/x.git", "main", p)
	require.NoError(t, err)
	assert.True(t, res.UsedTopicPush)
	assert.Equal(t, "refs/heads/grasp/patch-abcdef12", res.TopicBranch)
	assert.Contains(t, res.PushedRemotes, "origin:grasp/patch-abcdef12")
}

func TestApplyRejectsNoOpDiff(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewFake()
	store.Seed("/repo", map[string]string{"refs/heads/main": "base1"}, nil)

	a := New(store)
	p := domain.Patch{ID: "id1", Content: "", Committer: domain.User{Username: "bob"}}

	_, err := a.Apply(ctx, "/repo", "https://example.com/x.git", "main", p)
	assert.Error(t, err)
}
