// Package thread implements the Thread Assembler (spec.md §4.N): gathers
// the comments and status events belonging to a root (issue or patch),
// dedupes and orders them, and picks the final status by precedence.
package thread

import (
	"sort"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/event"
)

// statusSeverity ranks kinds 1630-1633 per spec.md §4.N: Closed > Applied >
// Open > Draft.
var statusSeverity = map[int]int{
	1632: 4, // Closed
	1631: 3, // Applied
	1630: 2, // Open
	1633: 1, // Draft
}

// AuthorRole classifies a status event's author for precedence ranking.
type AuthorRole int

const (
	RoleOther AuthorRole = iota
	RoleRootAuthor
	RoleMaintainer
)

// Assembled is a root event with its matched comments and statuses.
type Assembled struct {
	Root      event.Event
	Comments  []event.Event
	Statuses  []event.Event
	Final     *event.Event
}

// RoleOf classifies pubkey's relationship to the thread for status
// precedence, given the root author and the repo's maintainer set.
func RoleOf(pubkey, rootAuthor string, maintainers map[string]bool) AuthorRole {
	if maintainers[pubkey] {
		return RoleMaintainer
	}
	if pubkey == rootAuthor {
		return RoleRootAuthor
	}
	return RoleOther
}

// Assemble gathers candidates' matches against root into comments (any
// non-status kind) and statuses (kinds 1630-1633), deduped by id and
// sorted by created_at ascending, then resolves the final status.
func Assemble(root event.Event, candidates []event.Event, maintainers map[string]bool) Assembled {
	refs := event.RootRefs{
		RootID:    root.ID,
		Addresses: []string{event.RepoAddress(root.PubKey, root.GetTagValue("d"))},
		Kind:      root.Kind,
	}

	seen := map[string]bool{}
	var comments, statuses []event.Event

	for _, c := range candidates {
		if seen[c.ID] || !c.References(refs) {
			continue
		}
		seen[c.ID] = true
		if _, isStatus := statusSeverity[c.Kind]; isStatus {
			statuses = append(statuses, c)
		} else {
			comments = append(comments, c)
		}
	}

	sortByCreatedAtAsc(comments)
	sortByCreatedAtAsc(statuses)

	final := finalStatus(statuses, root.PubKey, maintainers)

	return Assembled{Root: root, Comments: comments, Statuses: statuses, Final: final}
}

func sortByCreatedAtAsc(events []event.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt < events[j].CreatedAt
	})
}

// finalStatus implements spec.md §4.N's precedence: author role first
// (maintainer > root author > others), then status severity, then
// created_at descending, then the lexicographically greatest event id.
func finalStatus(statuses []event.Event, rootAuthor string, maintainers map[string]bool) *event.Event {
	if len(statuses) == 0 {
		return nil
	}

	ranked := append([]event.Event{}, statuses...)
	sort.SliceStable(ranked, func(i, j int) bool {
		ri, rj := RoleOf(ranked[i].PubKey, rootAuthor, maintainers), RoleOf(ranked[j].PubKey, rootAuthor, maintainers)
		if ri != rj {
			return ri > rj
		}
		si, sj := statusSeverity[ranked[i].Kind], statusSeverity[ranked[j].Kind]
		if si != sj {
			return si > sj
		}
		if ranked[i].CreatedAt != ranked[j].CreatedAt {
			return ranked[i].CreatedAt > ranked[j].CreatedAt
		}
		return ranked[i].ID > ranked[j].ID
	})

	return &ranked[0]
}
