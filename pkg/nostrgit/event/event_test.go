package event

import (
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepoAnnouncementRoundTrip(t *testing.T) {
	ra := RepoAnnouncement{
		DTag:        "my-repo",
		Name:        "My Repo",
		Description: "a test repo",
		Clone:       []string{"https://example.com/my-repo.git"},
		Relays:      []string{"wss://relay.example.com"},
		Maintainers: []string{"pubkey-a", "pubkey-b"},
		EUC:         "deadbeef",
		Topics:      []string{"git"},
	}

	raw := CreateRepoAnnouncement(ra)
	raw.PubKey = "pubkey-a" // owner, already present in Maintainers

	got, err := ParseRepoAnnouncement(Wrap(raw))
	require.NoError(t, err)

	assert.Equal(t, ra.DTag, got.DTag)
	assert.Equal(t, ra.Name, got.Name)
	assert.Equal(t, ra.Description, got.Description)
	assert.Equal(t, ra.Clone, got.Clone)
	assert.Equal(t, ra.Relays, got.Relays)
	assert.Equal(t, ra.Maintainers, got.Maintainers)
	assert.Equal(t, ra.EUC, got.EUC)
	assert.Equal(t, ra.Topics, got.Topics)
}

func TestRepoAnnouncementOwnerImplicitMaintainer(t *testing.T) {
	ra := RepoAnnouncement{DTag: "d", Maintainers: []string{"other"}}
	raw := CreateRepoAnnouncement(ra)
	raw.PubKey = "owner"

	got, err := ParseRepoAnnouncement(Wrap(raw))
	require.NoError(t, err)
	assert.Equal(t, []string{"owner", "other"}, got.Maintainers)
}

func TestPatchContentRoundTrip(t *testing.T) {
	pf := PatchFields{
		RepoAddr: "30617:abc:repo",
		Content:  "diff --git a/x b/x\n...",
		Commit:   "c1",
	}
	raw := CreatePatch(pf)
	got, err := ParsePatch(Wrap(raw))
	require.NoError(t, err)
	assert.Equal(t, pf.Content, got.Content)
	assert.Equal(t, "open", got.Status)
}

func TestPatchStatusFromTopicTags(t *testing.T) {
	pf := PatchFields{RepoAddr: "a", Status: "closed"}
	raw := CreatePatch(pf)
	got, err := ParsePatch(Wrap(raw))
	require.NoError(t, err)
	assert.Equal(t, "closed", got.Status)
}

func TestSetRemovesPriorTagsOfSameName(t *testing.T) {
	e := &nostr.Event{Tags: nostr.Tags{{"t", "open"}, {"a", "x"}}}
	Set(e, nostr.Tag{"t", "closed"})
	require.Len(t, e.Tags, 2)
	assert.Equal(t, nostr.Tag{"a", "x"}, e.Tags[0])
	assert.Equal(t, nostr.Tag{"t", "closed"}, e.Tags[1])
}

func TestValidateRejectsMissingIdentityTag(t *testing.T) {
	e := Wrap(nostr.Event{Kind: int(KindRepoAnnouncement)})
	err := Validate(e, ValidateOn)
	require.Error(t, err)

	// off mode skips validation
	require.NoError(t, Validate(e, ValidateOff))
}

func TestEUCMarker(t *testing.T) {
	e := Wrap(nostr.Event{Tags: nostr.Tags{{"r", "deadbeef", "euc"}, {"r", "other"}}})
	assert.Equal(t, "deadbeef", EUC(e))
}
