package reconcile

import (
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/event"
)

// S1 — Maintainer bounding, verbatim from spec.md §8.
func TestReconcileMaintainerBounding(t *testing.T) {
	e1 := event.Wrap(nostr.Event{ID: "e1", PubKey: "A", CreatedAt: 10, Tags: nostr.Tags{{"refs/heads/main", "aaa"}}})
	e2 := event.Wrap(nostr.Event{ID: "e2", PubKey: "B", CreatedAt: 20, Tags: nostr.Tags{{"refs/heads/main", "bbb"}}})

	refMap := Reconcile([]event.Event{e1, e2}, NewMaintainerSet([]string{"A"}))

	assert.Len(t, refMap, 1)
	got := refMap["refs/heads/main"]
	assert.Equal(t, "aaa", got.Commit)
	assert.Equal(t, "A", got.Pubkey)
	assert.EqualValues(t, 10, got.CreatedAt)
}

func TestReconcileLatestWriterWins(t *testing.T) {
	e1 := event.Wrap(nostr.Event{ID: "e1", PubKey: "A", CreatedAt: 10, Tags: nostr.Tags{{"refs/heads/main", "aaa"}}})
	e2 := event.Wrap(nostr.Event{ID: "e2", PubKey: "A", CreatedAt: 20, Tags: nostr.Tags{{"refs/heads/main", "bbb"}}})

	refMap := Reconcile([]event.Event{e1, e2}, NewMaintainerSet([]string{"A"}))
	assert.Equal(t, "bbb", refMap["refs/heads/main"].Commit)
}

func TestReconcileTiesBreakOnEventIDLexicographically(t *testing.T) {
	e1 := event.Wrap(nostr.Event{ID: "aaaa", PubKey: "A", CreatedAt: 10, Tags: nostr.Tags{{"refs/heads/main", "one"}}})
	e2 := event.Wrap(nostr.Event{ID: "bbbb", PubKey: "A", CreatedAt: 10, Tags: nostr.Tags{{"refs/heads/main", "two"}}})

	refMap := Reconcile([]event.Event{e1, e2}, NewMaintainerSet([]string{"A"}))
	assert.Equal(t, "two", refMap["refs/heads/main"].Commit)
}

func TestReconcileHeadSymbolicRef(t *testing.T) {
	e1 := event.Wrap(nostr.Event{ID: "e1", PubKey: "A", CreatedAt: 10, Tags: nostr.Tags{{"HEAD", "ref: refs/heads/main"}}})

	refMap := Reconcile([]event.Event{e1}, NewMaintainerSet([]string{"A"}))
	assert.Equal(t, "ref: refs/heads/main", refMap["HEAD"].Commit)
}

// S6 (EUC identity) — spec.md §8 invariant 6.
func TestGroupByEUCUnionsAcrossDTags(t *testing.T) {
	a1 := event.RepoAnnouncement{DTag: "repo-a", EUC: "euc1", Clone: []string{"https://a.example/x.git"}, Maintainers: []string{"A"}}
	a2 := event.RepoAnnouncement{DTag: "repo-b", EUC: "euc1", Clone: []string{"https://b.example/x.git"}, Maintainers: []string{"B"}}

	groups := GroupByEUC([]event.RepoAnnouncement{a1, a2})
	assert.Len(t, groups, 1)

	g := groups["euc1"]
	assert.ElementsMatch(t, []string{"https://a.example/x.git", "https://b.example/x.git"}, g.CloneURLs)
	assert.ElementsMatch(t, []string{"A", "B"}, g.Maintainers)
	assert.Len(t, g.Announcements, 2)
}
