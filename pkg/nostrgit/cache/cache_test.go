package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepoState struct {
	HeadCommit string `json:"head_commit"`
}

func TestRepoCachePutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(filepath.Join(dir, "repo.db"))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.PutRepoState("repo-1", fakeRepoState{HeadCommit: "abc"}))

	var got fakeRepoState
	ok, err := c.GetRepoState("repo-1", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", got.HeadCommit)
}

func TestRepoCacheMissReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(filepath.Join(dir, "repo.db"))
	require.NoError(t, err)
	defer c.Close()

	var got fakeRepoState
	ok, err := c.GetRepoState("nonexistent", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepoCacheMergeAndCommitsKeyFamilies(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(filepath.Join(dir, "repo.db"))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.PutMergeAnalysis("r1", "p1", "main", map[string]string{"status": "clean"}))
	require.NoError(t, c.PutCommits("r1", "main", []string{"c1", "c2"}))

	var merge map[string]string
	ok, err := c.GetMergeAnalysis("r1", "p1", "main", &merge)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "clean", merge["status"])

	var commits []string
	ok, err = c.GetCommits("r1", "main", &commits)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"c1", "c2"}, commits)
}

func TestRepoCacheKeyFamilyShapes(t *testing.T) {
	assert.Equal(t, "repo/r1", RepoKey("r1"))
	assert.Equal(t, "merge/r1/p1/main", MergeKey("r1", "p1", "main"))
	assert.Equal(t, "commits/r1/main", CommitsKey("r1", "main"))
}
