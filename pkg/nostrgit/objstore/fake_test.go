package objstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeCloneAndResolveRef(t *testing.T) {
	ctx := context.Background()
	f := NewFake()

	require.NoError(t, f.Clone(ctx, "/repo", CloneOptions{URL: "https://example.com/x.git", Depth: 1}))
	assert.True(t, f.Exists(ctx, "/repo"))

	shallow, err := f.IsShallow(ctx, "/repo")
	require.NoError(t, err)
	assert.True(t, shallow)

	require.NoError(t, f.WriteRef(ctx, "/repo", "refs/heads/main", "abc123", false, false))
	oid, err := f.ResolveRef(ctx, "/repo", "refs/heads/main", 0)
	require.NoError(t, err)
	assert.Equal(t, "abc123", oid)
}

func TestFakeFindMergeBase(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	f.Seed("/repo", map[string]string{"refs/heads/main": "c3", "refs/heads/feature": "c4"}, map[string]Commit{
		"c1": {OID: "c1"},
		"c2": {OID: "c2", Parents: []string{"c1"}},
		"c3": {OID: "c3", Parents: []string{"c2"}},
		"c4": {OID: "c4", Parents: []string{"c2"}},
	})

	base, err := f.FindMergeBase(ctx, "/repo", "c3", "c4")
	require.NoError(t, err)
	assert.Equal(t, "c2", base)
}

func TestFakeLogWalksParentChain(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	f.Seed("/repo", map[string]string{"refs/heads/main": "c3"}, map[string]Commit{
		"c1": {OID: "c1"},
		"c2": {OID: "c2", Parents: []string{"c1"}},
		"c3": {OID: "c3", Parents: []string{"c2"}},
	})

	commits, err := f.Log(ctx, "/repo", "refs/heads/main", 0)
	require.NoError(t, err)
	require.Len(t, commits, 3)
	assert.Equal(t, "c3", commits[0].OID)
	assert.Equal(t, "c1", commits[2].OID)
}

func TestFakeWriteRefRejectsExistingWithoutForce(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	f.Seed("/repo", map[string]string{"refs/heads/main": "aaa"}, nil)

	err := f.WriteRef(ctx, "/repo", "refs/heads/main", "bbb", false, false)
	assert.Error(t, err)

	require.NoError(t, f.WriteRef(ctx, "/repo", "refs/heads/main", "bbb", false, true))
	oid, err := f.ResolveRef(ctx, "/repo", "refs/heads/main", 0)
	require.NoError(t, err)
	assert.Equal(t, "bbb", oid)
}
