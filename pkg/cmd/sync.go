package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/clone"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/event"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/fallback"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/reconcile"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/rescue"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/transport"
)

// Sync fetches a repo's announcement and repo-state events from the
// configured relays, reconciles them into a ref map bounded by the
// maintainer set, and drives the clone ladder against the result.
type Sync struct {
	CommonOpts
	RepoAddr  string        `long:"repo" description:"repo address, <maintainer-pubkey>:<d-tag>" required:"true"`
	Dir       string        `long:"dir" description:"local working directory" required:"true"`
	Force     bool          `long:"force" description:"bypass the freshness window and re-sync now"`
	Freshness time.Duration `long:"freshness" default:"5m" description:"how long a prior sync is considered fresh"`
}

func splitRepoAddr(addr string) (pubkey, dTag string) {
	pubkey, dTag, _ = strings.Cut(addr, ":")
	return pubkey, dTag
}

// Execute runs the command.
func (c Sync) Execute([]string) error {
	ctx := context.Background()

	_, dTag := splitRepoAddr(c.RepoAddr)

	anns, err := c.Relays.FetchEvents(ctx, []transport.Filter{{Kinds: []int{30617}, Tags: map[string][]string{"d": {dTag}}}})
	if err != nil {
		return fmt.Errorf("fetch repo announcements: %w", err)
	}
	if len(anns) == 0 {
		return fmt.Errorf("no repo announcement found for %s", c.RepoAddr)
	}
	ra, err := event.ParseRepoAnnouncement(event.Wrap(anns[0]))
	if err != nil {
		return fmt.Errorf("parse repo announcement: %w", err)
	}

	stateEvents, err := c.Relays.FetchEvents(ctx, []transport.Filter{{Kinds: []int{30618}, Tags: map[string][]string{"d": {dTag}}}})
	if err != nil {
		return fmt.Errorf("fetch repo state: %w", err)
	}

	wrapped := make([]event.Event, len(stateEvents))
	for i, e := range stateEvents {
		wrapped[i] = event.Wrap(e)
	}
	refMap := reconcile.Reconcile(wrapped, c.Maintainers)

	if len(ra.Clone) == 0 {
		return fmt.Errorf("repo announcement for %s carries no clone URLs", c.RepoAddr)
	}
	primary, alternates := ra.Clone[0], ra.Clone[1:]

	rescuer := rescue.New(c.Store)
	ladder := clone.New(c.Store, rescuer)

	if _, err := ladder.SmartInitializeRepo(ctx, c.Dir, primary, c.Freshness, c.Force); err != nil && !fallback.IsRecoverable(err) {
		return fmt.Errorf("initialize repo: %w", err)
	}

	if err := ladder.EnsureShallowClone(ctx, c.Dir, primary, 0, alternates); err != nil {
		return fmt.Errorf("ensure shallow clone: %w", err)
	}

	branches, err := c.Store.ListBranches(ctx, c.Dir, "")
	if err != nil {
		return fmt.Errorf("list branches: %w", err)
	}
	branch := clone.DefaultBranch(refMap["HEAD"].Commit, branches)

	if err := ladder.EnsureFullClone(ctx, c.Dir, primary, branch); err != nil {
		return fmt.Errorf("ensure full clone: %w", err)
	}

	if c.Cache != nil {
		if err := c.Cache.PutRepoState(c.RepoAddr, refMap); err != nil {
			return fmt.Errorf("cache repo state: %w", err)
		}
		if commits, err := c.Store.Log(ctx, c.Dir, branch, 50); err == nil {
			_ = c.Cache.PutCommits(c.RepoAddr, branch, commits)
		}
	}

	fmt.Println(syncSummary(c.RepoAddr, branch, clone.StateFull, len(refMap)))
	return nil
}

func syncSummary(repoAddr, branch string, state clone.State, refCount int) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF87")).Render("synced")
	return fmt.Sprintf("%s %s @ %s (clone state: %s, %d reconciled refs)", title, repoAddr, branch, state, refCount)
}
