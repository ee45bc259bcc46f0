// Package reconcile implements the Repo-State Reconciler (spec.md §4.C):
// merging N repo-state (kind-30618) announcements into one ref map,
// bounded by a maintainer set, with a latest-writer-wins rule per ref.
package reconcile

import (
	"strings"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/event"
)

// RefEntry is one reconciled ref's winning candidate.
type RefEntry struct {
	Commit    string
	EventID   string
	CreatedAt int64
	Pubkey    string
}

// RefMap is the reconciled mapping of ref name to its winning entry.
type RefMap map[string]RefEntry

// MaintainerSet is the set of pubkeys allowed to contribute repo-state.
type MaintainerSet map[string]struct{}

// NewMaintainerSet builds a MaintainerSet from a list of pubkeys.
func NewMaintainerSet(pubkeys []string) MaintainerSet {
	m := make(MaintainerSet, len(pubkeys))
	for _, p := range pubkeys {
		m[p] = struct{}{}
	}
	return m
}

// Contains reports whether pubkey is a maintainer.
func (m MaintainerSet) Contains(pubkey string) bool {
	_, ok := m[pubkey]
	return ok
}

// Reconcile merges a set of kind-30618 events into a RefMap, honoring
// spec.md §4.C / §8's invariants:
//  1. Maintainer bounding — events from non-maintainers are ignored entirely.
//  2. Latest-writer-wins — per ref, the candidate with the strictly
//     greatest created_at wins; ties break on the lexicographically
//     greatest event id.
func Reconcile(events []event.Event, maintainers MaintainerSet) RefMap {
	out := RefMap{}

	for _, e := range events {
		if !maintainers.Contains(e.PubKey) {
			continue
		}

		for _, t := range e.Tags {
			if len(t) < 2 {
				continue
			}
			name := t[0]
			if name != "HEAD" && !strings.HasPrefix(name, "refs/heads/") && !strings.HasPrefix(name, "refs/tags/") {
				continue
			}

			candidate := RefEntry{
				Commit:    t[1],
				EventID:   e.ID,
				CreatedAt: int64(e.CreatedAt),
				Pubkey:    e.PubKey,
			}

			incumbent, ok := out[name]
			if !ok || wins(candidate, incumbent) {
				out[name] = candidate
			}
		}
	}

	return out
}

// wins reports whether candidate should replace incumbent under the
// latest-writer-wins rule (strictly greater created_at, ties broken by the
// lexicographically greater event id).
func wins(candidate, incumbent RefEntry) bool {
	if candidate.CreatedAt != incumbent.CreatedAt {
		return candidate.CreatedAt > incumbent.CreatedAt
	}
	return candidate.EventID > incumbent.EventID
}

// EUCGroup is a set of repo announcements that share an earliest-unique-
// commit identity, per spec.md §4.C's grouping rule.
type EUCGroup struct {
	EUC         string
	CloneURLs   []string
	Maintainers []string
	Announcements []event.RepoAnnouncement
}

// GroupByEUC unions clone URLs and maintainer sets across announcements
// that share the same r:euc value, while keeping per-pubkey identity for
// authorship (the Announcements field retains each original record).
func GroupByEUC(anns []event.RepoAnnouncement) map[string]*EUCGroup {
	groups := map[string]*EUCGroup{}

	for _, a := range anns {
		if a.EUC == "" {
			// no EUC marker: each such announcement is its own singleton group,
			// keyed by its d-tag so it doesn't collide with others.
			key := "d:" + a.DTag
			groups[key] = &EUCGroup{
				EUC:           "",
				CloneURLs:     append([]string{}, a.Clone...),
				Maintainers:   append([]string{}, a.Maintainers...),
				Announcements: []event.RepoAnnouncement{a},
			}
			continue
		}

		g, ok := groups[a.EUC]
		if !ok {
			g = &EUCGroup{EUC: a.EUC}
			groups[a.EUC] = g
		}
		g.CloneURLs = unionDedup(g.CloneURLs, a.Clone)
		g.Maintainers = unionDedup(g.Maintainers, a.Maintainers)
		g.Announcements = append(g.Announcements, a)
	}

	return groups
}

func unionDedup(a, b []string) []string {
	seen := make(map[string]struct{}, len(a))
	out := make([]string, 0, len(a)+len(b))
	for _, v := range a {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	for _, v := range b {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
