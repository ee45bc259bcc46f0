package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/reconcile"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/safepush"
)

// Push runs the safe-push preflight gate against a local clone and, if it
// passes, pushes LocalRef to RemoteRef on Remote.
type Push struct {
	CommonOpts
	Dir          string `long:"dir" description:"local working directory" required:"true"`
	RepoAddr     string `long:"repo" description:"repo address, used to source cached remote-ahead state"`
	Remote       string `long:"remote" default:"origin"`
	LocalRef     string `long:"local-ref" required:"true"`
	RemoteRef    string `long:"remote-ref" description:"defaults to local-ref"`
	Force        bool   `long:"force" description:"allow a non-fast-forward update"`
	ConfirmForce bool   `long:"confirm-force" description:"explicit confirmation required alongside --force"`
	Provider     string `long:"provider" default:"" description:"vendor provider name; \"native-relay\" skips the remote-ahead check"`
}

// Execute runs the command.
func (c Push) Execute([]string) error {
	ctx := context.Background()

	remoteRef := c.RemoteRef
	if remoteRef == "" {
		remoteRef = c.LocalRef
	}

	var remoteState safepush.RemoteState
	remoteState.Provider = c.Provider
	if c.Cache != nil && c.RepoAddr != "" {
		var refMap reconcile.RefMap
		if found, err := c.Cache.GetRepoState(c.RepoAddr, &refMap); err == nil && found {
			if entry, ok := refMap[c.LocalRef]; ok {
				remoteState.RemoteHeadFound = true
				remoteState.RemoteHeadOID = entry.Commit
			}
		} else {
			remoteState.CacheIsNil = true
		}
	} else {
		remoteState.CacheIsNil = true
	}

	gate := safepush.Gate(ctx, c.Store, c.Dir, safepush.Options{
		CheckUncommitted:   true,
		CheckShallow:       true,
		CheckUpToDate:      c.RepoAddr != "",
		RemoteState:        remoteState,
		AllowForce:         c.Force,
		ConfirmDestructive: c.ConfirmForce,
	})
	if !gate.OK {
		return fmt.Errorf("safe-push gate failed (%s): %s", gate.Reason, gate.Message)
	}

	if err := c.Store.Push(ctx, c.Dir, c.Remote, c.LocalRef, remoteRef, c.Force); err != nil {
		return fmt.Errorf("push: %w", err)
	}

	fmt.Println(pushSummary(c.Remote, c.LocalRef, remoteRef))
	return nil
}

func pushSummary(remote, localRef, remoteRef string) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF87")).Render("pushed")
	return fmt.Sprintf("%s %s -> %s/%s", title, localRef, remote, remoteRef)
}
