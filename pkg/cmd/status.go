package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/misc"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/objstore"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/reconcile"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/service"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/vendor"
)

// Status prints a repo's cached ref map and commit log, adapted from the
// teacher's interactive list command into a plain text summary. With
// ListPRs set it additionally lists open pull requests from the configured
// vendor backend, the way the teacher's List command did.
type Status struct {
	CommonOpts
	RepoAddr   string      `long:"repo" description:"repo address, <maintainer-pubkey>:<d-tag>" required:"true"`
	Branch     string      `long:"branch" description:"branch to print the cached commit log for"`
	ListPRs    bool        `long:"list-prs" description:"also list open pull requests from the configured vendor backend"`
	VendorRepo string      `long:"vendor-repo" description:"owner/name of the vendor-hosted mirror, required with --list-prs"`
	Labels     FilterGroup `group:"labels" namespace:"labels" env-namespace:"LABELS"`
	Authors    FilterGroup `group:"authors" namespace:"authors" env-namespace:"AUTHORS"`
}

// Execute runs the command.
func (c Status) Execute([]string) error {
	ctx := context.Background()

	if c.Cache == nil {
		return fmt.Errorf("no cache configured")
	}

	var refMap reconcile.RefMap
	found, err := c.Cache.GetRepoState(c.RepoAddr, &refMap)
	if err != nil {
		return fmt.Errorf("load cached repo state: %w", err)
	}

	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00AFFF")).Render(c.RepoAddr)
	fmt.Println(header)

	if !found {
		fmt.Println("  no cached sync result; run sync first")
	} else {
		fmt.Printf("  %d reconciled refs\n", len(refMap))
		for name, entry := range refMap {
			fmt.Printf("    %s -> %s (by %s)\n", name, entry.Commit, entry.Pubkey)
		}
	}

	if c.Branch != "" {
		var commits []objstore.Commit
		if found, err := c.Cache.GetCommits(c.RepoAddr, c.Branch, &commits); err == nil && found {
			fmt.Printf("  %d cached commits on %s\n", len(commits), c.Branch)
			for _, commit := range misc.FirstN(commits, 10) {
				fmt.Printf("    %s %s\n", commit.OID[:min(8, len(commit.OID))], commit.Message)
			}
		}
	}

	if c.ListPRs {
		if err := c.printPullRequests(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (c Status) printPullRequests(ctx context.Context) error {
	if c.PrepareService == nil {
		return fmt.Errorf("--list-prs requires a vendor backend to be configured")
	}

	owner, name, ok := strings.Cut(c.VendorRepo, "/")
	if !ok {
		return fmt.Errorf("--vendor-repo must be in owner/name form, got %q", c.VendorRepo)
	}

	svc, err := c.PrepareService(ctx)
	if err != nil {
		return fmt.Errorf("init vendor service: %w", err)
	}

	prs, err := svc.ListPullRequests(ctx, service.ListPRsRequest{
		Repo: vendor.RepoSpec{Owner: owner, Name: name},
		ListPRsOpts: vendor.ListPRsOpts{
			Labels: misc.Filter[string]{Include: c.Labels.Include, Exclude: c.Labels.Exclude},
		},
		Authors: misc.Filter[string]{Include: c.Authors.Include, Exclude: c.Authors.Exclude},
	})
	if err != nil {
		return fmt.Errorf("list pull requests: %w", err)
	}

	fmt.Printf("  %d open pull requests (%s):\n", len(prs), c.VendorRepo)
	for _, pr := range prs {
		fmt.Printf("    #%d %s (%s)\n", pr.Number, pr.Title, pr.Author.Username)
	}
	return nil
}
