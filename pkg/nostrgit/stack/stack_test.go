package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/domain"
)

func TestIndexPutAndGet(t *testing.T) {
	idx := NewIndex()
	idx.Put(Descriptor{RepoAddr: "addr1", StackID: "s1", Members: []string{"p1", "p2"}})

	got, ok := idx.Get("addr1", "s1")
	require.True(t, ok)
	assert.Equal(t, []string{"p1", "p2"}, got.Members)

	_, ok = idx.Get("addr1", "missing")
	assert.False(t, ok)
}

func TestLatestUnsupersededPicksTipOfChain(t *testing.T) {
	patches := []domain.Patch{
		{ID: "p1"},
		{ID: "p2", Supersedes: "p1"},
		{ID: "p3", Supersedes: "p2"},
	}

	latest, err := LatestUnsuperseded(patches)
	require.NoError(t, err)
	assert.Equal(t, []string{"p3"}, latest)
}

func TestLatestUnsupersededHandlesMultipleLineages(t *testing.T) {
	patches := []domain.Patch{
		{ID: "a1"},
		{ID: "a2", Supersedes: "a1"},
		{ID: "b1"},
	}

	latest, err := LatestUnsuperseded(patches)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a2", "b1"}, latest)
}

func TestLatestUnsupersededDetectsCycle(t *testing.T) {
	patches := []domain.Patch{
		{ID: "p1", Supersedes: "p2"},
		{ID: "p2", Supersedes: "p1"},
	}

	_, err := LatestUnsuperseded(patches)
	assert.Error(t, err)
}
