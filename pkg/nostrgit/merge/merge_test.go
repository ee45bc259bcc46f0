package merge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/domain"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/objstore"
)

const sampleDiff = `--- a/file.txt
+++ b/file.txt
@@ -1,2 +1,2 @@
-hello
+hello world
 unchanged
`

func seedRepo(t *testing.T) *objstore.Fake {
	t.Helper()
	store := objstore.NewFake()
	store.Seed("/repo", map[string]string{
		"refs/heads/main": "target1",
	}, map[string]objstore.Commit{
		"target1": {OID: "target1", Author: "alice", Message: "initial"},
		"patch1":  {OID: "patch1", Author: "bob", Message: "add feature", Parents: []string{"target1"}},
	})
	store.PutBlob("/repo", "target1", "file.txt", []byte("hello\nunchanged\n"))
	return store
}

func TestAnalyzeFastForwardClean(t *testing.T) {
	ctx := context.Background()
	store := seedRepo(t)
	a := New(store)

	patch := domain.Patch{Commit: "patch1", Content: sampleDiff, Committer: domain.User{Username: "bob"}}
	res, err := a.Analyze(ctx, "/repo", "https://example.com/x.git", "main", patch)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisClean, res.Analysis)
	assert.True(t, res.FastForward)
	assert.True(t, res.CanMerge)
}

func TestAnalyzeUpToDateWhenCommitAlreadyInTargetLog(t *testing.T) {
	ctx := context.Background()
	store := seedRepo(t)
	a := New(store)

	patch := domain.Patch{Commit: "target1", Content: sampleDiff, Committer: domain.User{Username: "alice"}}
	res, err := a.Analyze(ctx, "/repo", "https://example.com/x.git", "main", patch)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisUpToDate, res.Analysis)
	assert.False(t, res.CanMerge)
}

func TestAnalyzeErrorsWhenTargetBranchMissing(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewFake()
	store.Seed("/repo", map[string]string{}, nil)
	a := New(store)

	patch := domain.Patch{Commit: "patch1", Content: sampleDiff}
	res, err := a.Analyze(ctx, "/repo", "https://example.com/x.git", "main", patch)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisError, res.Analysis)
}
