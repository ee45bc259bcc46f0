// Package label implements the Label Resolver (spec.md §4.M): the
// deduplicated, insertion-order union of a root event's self-labels
// (`L`/`l` tags), its `t` topic tags, and any external kind-1985 label
// event's `L`/`l` tags applied to the root via `e`/`a`.
package label

import (
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/event"
)

// Label is one resolved label, with the namespace it was applied under
// ("" for a bare topic tag).
type Label struct {
	Namespace string
	Value     string
	Source    string // pubkey of the event that applied it; "" for the root's own self-labels
}

func (l Label) key() string { return l.Namespace + "\x00" + l.Value }

// Resolve computes the deduplicated union of root's self-labels/topics and
// externalLabels' applied labels, per spec.md §4.M. externalLabels must
// already be the set the caller trusts (this package does not filter by
// pubkey).
func Resolve(root event.Event, externalLabels []event.Event) []Label {
	seen := map[string]bool{}
	var out []Label

	add := func(l Label) {
		k := l.key()
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, l)
	}

	for _, t := range root.GetTags("L") {
		if len(t) >= 2 {
			add(Label{Namespace: t[1], Value: selfLabelValue(root, t[1])})
		}
	}
	for _, t := range root.GetTags("l") {
		if len(t) >= 2 {
			ns := ""
			if len(t) >= 3 {
				ns = t[2]
			}
			add(Label{Namespace: ns, Value: t[1]})
		}
	}
	for _, t := range root.GetTags("t") {
		if len(t) >= 2 {
			add(Label{Value: t[1]})
		}
	}

	for _, ext := range externalLabels {
		if !appliesToRoot(ext, root) {
			continue
		}
		for _, t := range ext.GetTags("L") {
			if len(t) >= 2 {
				add(Label{Namespace: t[1], Value: selfLabelValue(ext, t[1]), Source: ext.PubKey})
			}
		}
		for _, t := range ext.GetTags("l") {
			if len(t) < 2 {
				continue
			}
			ns := ""
			if len(t) >= 3 {
				ns = t[2]
			}
			add(Label{Namespace: ns, Value: t[1], Source: ext.PubKey})
		}
	}

	return out
}

// selfLabelValue reads the l-tag value paired with an L namespace tag, per
// NIP-32's L/l pairing (an L tag declares a namespace; its values appear in
// sibling l tags carrying that namespace as a third element).
func selfLabelValue(root event.Event, namespace string) string {
	for _, t := range root.GetTags("l") {
		if len(t) >= 3 && t[2] == namespace {
			return t[1]
		}
	}
	return ""
}

// appliesToRoot reports whether ext's e/a pointers reference root.
func appliesToRoot(ext, root event.Event) bool {
	for _, t := range ext.GetTags("e") {
		if len(t) >= 2 && t[1] == root.ID {
			return true
		}
	}
	rootAddr := event.RepoAddress(root.PubKey, root.GetTagValue("d"))
	for _, t := range ext.GetTags("a") {
		if len(t) >= 2 && t[1] == rootAddr {
			return true
		}
	}
	return false
}
