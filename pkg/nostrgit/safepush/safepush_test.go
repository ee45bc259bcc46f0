package safepush

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/objstore"
)

func TestGateFailsWhenNotCloned(t *testing.T) {
	store := objstore.NewFake()
	res := Gate(context.Background(), store, "/repo", Options{})
	assert.False(t, res.OK)
	assert.Equal(t, ReasonNotCloned, res.Reason)
}

func TestGateFailsOnUncommittedChanges(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewFake()
	store.Seed("/repo", map[string]string{"refs/heads/main": "abc"}, nil)
	require.NoError(t, store.WriteFile(ctx, "/repo", "a.txt", []byte("x")))

	res := Gate(ctx, store, "/repo", Options{CheckUncommitted: true})
	assert.False(t, res.OK)
	assert.Equal(t, ReasonUncommittedChanges, res.Reason)
}

func TestGateFailsOnShallowClone(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewFake()
	store.Seed("/repo", map[string]string{"refs/heads/main": "abc"}, nil)
	store.SetShallow("/repo", true)

	res := Gate(ctx, store, "/repo", Options{CheckShallow: true})
	assert.False(t, res.OK)
	assert.Equal(t, ReasonShallowClone, res.Reason)
}

// allowForce without confirmDestructive stops at the confirmation gate
// instead of passing.
func TestGateRequiresConfirmationForForcePush(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewFake()
	store.Seed("/repo", map[string]string{"refs/heads/main": "abc"}, nil)

	res := Gate(ctx, store, "/repo", Options{AllowForce: true, ConfirmDestructive: false})
	assert.False(t, res.OK)
	assert.True(t, res.RequiresConfirmation)
	assert.Equal(t, ReasonForceRequiresConfirm, res.Reason)
}

func TestGatePassesWhenNoOptionalChecksFail(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewFake()
	store.Seed("/repo", map[string]string{"refs/heads/main": "abc"}, nil)

	res := Gate(ctx, store, "/repo", Options{AllowForce: true, ConfirmDestructive: true})
	assert.True(t, res.OK)
}

func TestNeedsUpdateRules(t *testing.T) {
	assert.True(t, NeedsUpdate(RemoteState{CacheIsNil: true, RemoteHeadFound: true}))
	assert.True(t, NeedsUpdate(RemoteState{CacheAge: 2 * time.Hour}))
	assert.True(t, NeedsUpdate(RemoteState{RemoteHeadFound: true, RemoteHeadOID: "a", CacheHeadCommit: "b"}))
	assert.False(t, NeedsUpdate(RemoteState{AllURLsCORSFailed: true, RemoteHeadFound: true, RemoteHeadOID: "a", CacheHeadCommit: "b"}))
}

