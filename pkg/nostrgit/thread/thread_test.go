package thread

import (
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/event"
)

func TestAssembleSeparatesCommentsAndStatuses(t *testing.T) {
	root := event.Wrap(nostr.Event{ID: "root1", PubKey: "alice", Kind: 1621, Tags: nostr.Tags{{"d", "repo1"}}})

	comment := event.Wrap(nostr.Event{ID: "c1", PubKey: "bob", Kind: 1, CreatedAt: 10, Tags: nostr.Tags{{"e", "root1"}}})
	statusOpen := event.Wrap(nostr.Event{ID: "s1", PubKey: "bob", Kind: 1630, CreatedAt: 20, Tags: nostr.Tags{{"e", "root1"}}})
	statusClosed := event.Wrap(nostr.Event{ID: "s2", PubKey: "alice", Kind: 1632, CreatedAt: 15, Tags: nostr.Tags{{"e", "root1"}}})
	unrelated := event.Wrap(nostr.Event{ID: "u1", PubKey: "eve", Kind: 1, Tags: nostr.Tags{{"e", "other-root"}}})

	asm := Assemble(root, []event.Event{comment, statusOpen, statusClosed, unrelated}, nil)

	require.Len(t, asm.Comments, 1)
	assert.Equal(t, "c1", asm.Comments[0].ID)
	require.Len(t, asm.Statuses, 2)
	require.NotNil(t, asm.Final)
}

func TestFinalStatusPrefersMaintainerThenSeverity(t *testing.T) {
	root := event.Wrap(nostr.Event{ID: "root1", PubKey: "alice", Kind: 1621})
	maintainers := map[string]bool{"carol": true}

	open := event.Wrap(nostr.Event{ID: "s1", PubKey: "bob", Kind: 1630, CreatedAt: 30, Tags: nostr.Tags{{"e", "root1"}}})
	maintainerApplied := event.Wrap(nostr.Event{ID: "s2", PubKey: "carol", Kind: 1631, CreatedAt: 10, Tags: nostr.Tags{{"e", "root1"}}})

	asm := Assemble(root, []event.Event{open, maintainerApplied}, maintainers)
	require.NotNil(t, asm.Final)
	assert.Equal(t, "s2", asm.Final.ID)
}

func TestFinalStatusBreaksTiesByCreatedAtDescending(t *testing.T) {
	root := event.Wrap(nostr.Event{ID: "root1", PubKey: "alice", Kind: 1621})

	older := event.Wrap(nostr.Event{ID: "s1", PubKey: "bob", Kind: 1630, CreatedAt: 10, Tags: nostr.Tags{{"e", "root1"}}})
	newer := event.Wrap(nostr.Event{ID: "s2", PubKey: "bob", Kind: 1630, CreatedAt: 20, Tags: nostr.Tags{{"e", "root1"}}})

	asm := Assemble(root, []event.Event{older, newer}, nil)
	require.NotNil(t, asm.Final)
	assert.Equal(t, "s2", asm.Final.ID)
}
