// Package event implements the Event Codec (spec.md §4.A): typed
// parsing, building and validation of the signed events this module
// consumes and produces, over github.com/nbd-wtf/go-nostr's Event/Tag
// wire types.
package event

import (
	"fmt"

	"github.com/nbd-wtf/go-nostr"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/ngerr"
)

// Kind enumerates the nostr event kinds this module understands (spec.md §3).
type Kind int

const (
	KindRepoAnnouncement Kind = 30617
	KindRepoState        Kind = 30618
	KindPatch            Kind = 1617
	KindPROpen           Kind = 1618
	KindPRUpdate         Kind = 1619
	KindIssue            Kind = 1621
	KindStatusOpen       Kind = 1630
	KindStatusApplied    Kind = 1631
	KindStatusClosed     Kind = 1632
	KindStatusDraft      Kind = 1633
	KindStack            Kind = 30410
	KindMergeMetadata    Kind = 30411
	KindConflictMetadata Kind = 30412
	KindComment          Kind = 1111
	KindMirrorList       Kind = 10317
	KindLabel            Kind = 1985
)

// addressableKinds require a "d" identity tag.
var addressableKinds = map[Kind]bool{
	KindRepoAnnouncement: true,
	KindRepoState:        true,
}

// aTaggedKinds require an "a" (repo-address) identity tag.
var aTaggedKinds = map[Kind]bool{
	KindPatch:            true,
	KindPROpen:           true,
	KindPRUpdate:         true,
	KindIssue:            true,
	KindStatusOpen:       true,
	KindStatusApplied:    true,
	KindStatusClosed:     true,
	KindStatusDraft:      true,
	KindStack:            true,
	KindMergeMetadata:    true,
	KindConflictMetadata: true,
}

// ValidateMode controls whether Validate enforces the tag schema.
type ValidateMode int

const (
	// ValidateOff skips schema checks (production fast path).
	ValidateOff ValidateMode = iota
	// ValidateOn always enforces the schema (dev path).
	ValidateOn
)

// Event wraps a nostr.Event with the typed tag accessors spec.md §4.A
// requires, preserving tag order and tuple shape.
type Event struct {
	nostr.Event
}

// Wrap adapts a raw nostr.Event into an Event.
func Wrap(e nostr.Event) Event { return Event{Event: e} }

// GetTag returns the first tag named name, or nil if absent. Preserves the
// full tuple (including the tag name at index 0).
func (e Event) GetTag(name string) nostr.Tag {
	for _, t := range e.Tags {
		if len(t) > 0 && t[0] == name {
			return t
		}
	}
	return nil
}

// GetTags returns every tag named name, in original order.
func (e Event) GetTags(name string) []nostr.Tag {
	var out []nostr.Tag
	for _, t := range e.Tags {
		if len(t) > 0 && t[0] == name {
			out = append(out, t)
		}
	}
	return out
}

// GetTagValue returns the first value (index 1) of the first tag named
// name, or "" if absent or empty.
func (e Event) GetTagValue(name string) string {
	t := e.GetTag(name)
	if len(t) < 2 {
		return ""
	}
	return t[1]
}

// Set removes all prior tags named tag[0] before appending tag, per spec.md
// §8's tag set-helper round-trip law.
func Set(e *nostr.Event, tag nostr.Tag) {
	if len(tag) == 0 {
		return
	}
	filtered := e.Tags[:0:0]
	for _, t := range e.Tags {
		if len(t) > 0 && t[0] == tag[0] {
			continue
		}
		filtered = append(filtered, t)
	}
	e.Tags = append(filtered, tag)
}

// Validate enforces the mandatory-identity-tag rule of spec.md §4.A. It is a
// no-op under ValidateOff so production paths can skip schema checks; dev
// paths should always call it with ValidateOn.
func Validate(e Event, mode ValidateMode) error {
	if mode == ValidateOff {
		return nil
	}

	k := Kind(e.Kind)
	switch {
	case addressableKinds[k]:
		if e.GetTagValue("d") == "" {
			return ngerr.New(ngerr.InvalidEvent, "validate", fmt.Errorf("kind %d missing mandatory d tag", e.Kind))
		}
	case aTaggedKinds[k]:
		if e.GetTagValue("a") == "" {
			return ngerr.New(ngerr.InvalidEvent, "validate", fmt.Errorf("kind %d missing mandatory a tag", e.Kind))
		}
	case k == KindComment:
		if e.GetTag("E") == nil && e.GetTag("e") == nil && e.GetTag("A") == nil && e.GetTag("a") == nil {
			return ngerr.New(ngerr.InvalidEvent, "validate", fmt.Errorf("comment missing root/parent reference"))
		}
	}

	return nil
}

// PatchStatus derives a patch's status from its "t" topic tags, per spec.md
// §4.A: applied/closed/draft, else open.
func PatchStatus(e Event) string {
	for _, t := range e.GetTags("t") {
		if len(t) < 2 {
			continue
		}
		switch t[1] {
		case "applied", "closed", "draft":
			return t[1]
		}
	}
	return "open"
}

// EUC extracts the repository's earliest-unique-commit from an "r" tag
// marked "euc", per spec.md §3/§4.A. Returns "" if absent.
func EUC(e Event) string {
	for _, t := range e.GetTags("r") {
		if len(t) >= 3 && t[2] == "euc" {
			return t[1]
		}
	}
	return ""
}

// RepoAddress builds the canonical "30617:<pubkey>:<d>" address for a repo
// announcement event.
func RepoAddress(pubkey, dTag string) string {
	return fmt.Sprintf("%d:%s:%s", KindRepoAnnouncement, pubkey, dTag)
}
