package label

import (
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/event"
)

func TestResolveUnionsSelfLabelsTopicsAndExternal(t *testing.T) {
	root := event.Wrap(nostr.Event{
		ID:     "root1",
		PubKey: "owner",
		Tags: nostr.Tags{
			{"d", "repo1"},
			{"L", "priority"},
			{"l", "high", "priority"},
			{"t", "bug"},
		},
	})

	ext := event.Wrap(nostr.Event{
		ID:     "ext1",
		PubKey: "bob",
		Tags: nostr.Tags{
			{"e", "root1"},
			{"l", "approved", "review"},
		},
	})

	labels := Resolve(root, []event.Event{ext})

	assert.Len(t, labels, 3)
	assert.Equal(t, "priority", labels[0].Namespace)
	assert.Equal(t, "high", labels[0].Value)
	assert.Equal(t, "bug", labels[1].Value)
	assert.Equal(t, "approved", labels[2].Value)
	assert.Equal(t, "bob", labels[2].Source)
}

func TestResolveDedupesRepeatedLabels(t *testing.T) {
	root := event.Wrap(nostr.Event{ID: "root1", PubKey: "owner", Tags: nostr.Tags{{"t", "bug"}}})
	ext := event.Wrap(nostr.Event{ID: "ext1", PubKey: "bob", Tags: nostr.Tags{{"e", "root1"}, {"l", "bug", ""}}})

	labels := Resolve(root, []event.Event{ext})
	assert.Len(t, labels, 1)
}

func TestResolveIgnoresExternalEventsNotReferencingRoot(t *testing.T) {
	root := event.Wrap(nostr.Event{ID: "root1", PubKey: "owner"})
	ext := event.Wrap(nostr.Event{ID: "ext1", PubKey: "bob", Tags: nostr.Tags{{"e", "other-root"}, {"l", "bug", ""}}})

	labels := Resolve(root, []event.Event{ext})
	assert.Empty(t, labels)
}
