package rescue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/objstore"
)

func TestRescuePrefersOriginTrackingBranch(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewFake()
	store.Seed("/repo", map[string]string{"refs/remotes/origin/main": "abc123"}, nil)

	r := New(store)
	branch, oid, err := r.Rescue(ctx, "/repo", nil)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
	assert.Equal(t, "abc123", oid)

	got, err := store.ResolveRef(ctx, "/repo", "refs/heads/main", 0)
	require.NoError(t, err)
	assert.Equal(t, "abc123", got)

	head, err := store.ResolveRef(ctx, "/repo", "HEAD", 0)
	require.NoError(t, err)
	assert.Equal(t, "ref: refs/heads/main", head)
}

func TestRescueFallsBackToFetchHead(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewFake()
	store.Seed("/repo", map[string]string{"FETCH_HEAD": "deadbeef"}, nil)

	r := New(store)
	branch, oid, err := r.Rescue(ctx, "/repo", nil)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
	assert.Equal(t, "deadbeef", oid)
}

func TestRescueFailsWhenNoStepYieldsAnOID(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewFake()
	store.Seed("/repo", map[string]string{}, nil)

	r := New(store)
	_, _, err := r.Rescue(ctx, "/repo", nil)
	assert.Error(t, err)
}
