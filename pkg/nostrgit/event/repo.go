package event

import (
	"strings"

	"github.com/nbd-wtf/go-nostr"
)

// RepoAnnouncement is the parsed form of a kind-30617 event.
type RepoAnnouncement struct {
	DTag        string
	Name        string
	Description string
	Web         []string
	Clone       []string
	Relays      []string
	Maintainers []string
	EUC         string
	Topics      []string
	Raw         Event
}

// ParseRepoAnnouncement decodes a kind-30617 event.
func ParseRepoAnnouncement(e Event) (RepoAnnouncement, error) {
	if err := Validate(e, ValidateOn); err != nil {
		return RepoAnnouncement{}, err
	}

	ra := RepoAnnouncement{
		DTag:        e.GetTagValue("d"),
		Name:        e.GetTagValue("name"),
		Description: e.GetTagValue("description"),
		EUC:         EUC(e),
		Raw:         e,
	}

	if t := e.GetTag("web"); len(t) > 1 {
		ra.Web = append([]string{}, t[1:]...)
	}
	if t := e.GetTag("clone"); len(t) > 1 {
		ra.Clone = append([]string{}, t[1:]...)
	}
	if t := e.GetTag("relays"); len(t) > 1 {
		ra.Relays = append([]string{}, t[1:]...)
	}
	if t := e.GetTag("maintainers"); len(t) > 1 {
		ra.Maintainers = append([]string{}, t[1:]...)
	}
	for _, t := range e.GetTags("t") {
		if len(t) > 1 {
			ra.Topics = append(ra.Topics, t[1])
		}
	}

	// the owner pubkey is implicitly part of the maintainer set (spec.md §4.C).
	if !containsStr(ra.Maintainers, e.PubKey) {
		ra.Maintainers = append([]string{e.PubKey}, ra.Maintainers...)
	}

	return ra, nil
}

// CreateRepoAnnouncement builds an unsigned kind-30617 event from a
// RepoAnnouncement. Round-trips with ParseRepoAnnouncement on all tagged
// fields (spec.md §8).
func CreateRepoAnnouncement(ra RepoAnnouncement) nostr.Event {
	e := nostr.Event{Kind: int(KindRepoAnnouncement)}
	e.Tags = append(e.Tags, nostr.Tag{"d", ra.DTag})
	if ra.Name != "" {
		e.Tags = append(e.Tags, nostr.Tag{"name", ra.Name})
	}
	if ra.Description != "" {
		e.Tags = append(e.Tags, nostr.Tag{"description", ra.Description})
	}
	if len(ra.Web) > 0 {
		e.Tags = append(e.Tags, append(nostr.Tag{"web"}, ra.Web...))
	}
	if len(ra.Clone) > 0 {
		e.Tags = append(e.Tags, append(nostr.Tag{"clone"}, ra.Clone...))
	}
	if len(ra.Relays) > 0 {
		e.Tags = append(e.Tags, append(nostr.Tag{"relays"}, ra.Relays...))
	}
	if len(ra.Maintainers) > 0 {
		e.Tags = append(e.Tags, append(nostr.Tag{"maintainers"}, ra.Maintainers...))
	}
	if ra.EUC != "" {
		e.Tags = append(e.Tags, nostr.Tag{"r", ra.EUC, "euc"})
	}
	for _, topic := range ra.Topics {
		e.Tags = append(e.Tags, nostr.Tag{"t", topic})
	}
	return e
}

// RepoStateEntry is a single ref entry within a kind-30618 event.
type RepoStateEntry struct {
	Ref      string
	Commit   string
	Ancestry []string
}

// RepoState is the parsed form of a kind-30618 event.
type RepoState struct {
	DTag    string
	Refs    []RepoStateEntry
	HeadRef string // resolved target of HEAD, e.g. "refs/heads/main"
	Raw     Event
}

// ParseRepoState decodes a kind-30618 event.
func ParseRepoState(e Event) (RepoState, error) {
	if err := Validate(e, ValidateOn); err != nil {
		return RepoState{}, err
	}

	rs := RepoState{DTag: e.GetTagValue("d"), Raw: e}
	for _, t := range e.Tags {
		if len(t) < 2 {
			continue
		}
		name := t[0]
		if name == "HEAD" {
			rs.HeadRef = strings.TrimPrefix(t[1], "ref: ")
			continue
		}
		if strings.HasPrefix(name, "refs/heads/") || strings.HasPrefix(name, "refs/tags/") {
			entry := RepoStateEntry{Ref: name, Commit: t[1]}
			if len(t) > 2 {
				entry.Ancestry = append([]string{}, t[2:]...)
			}
			rs.Refs = append(rs.Refs, entry)
		}
	}
	return rs, nil
}

// CreateRepoState builds an unsigned kind-30618 event.
func CreateRepoState(rs RepoState) nostr.Event {
	e := nostr.Event{Kind: int(KindRepoState)}
	e.Tags = append(e.Tags, nostr.Tag{"d", rs.DTag})
	for _, entry := range rs.Refs {
		tag := append(nostr.Tag{entry.Ref, entry.Commit}, entry.Ancestry...)
		e.Tags = append(e.Tags, tag)
	}
	if rs.HeadRef != "" {
		e.Tags = append(e.Tags, nostr.Tag{"HEAD", "ref: " + rs.HeadRef})
	}
	return e
}

func containsStr(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
