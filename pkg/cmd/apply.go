package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/domain"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/merge"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/patch"
)

// Apply analyzes a patch against a local clone's target branch and, unless
// DryRun is set, applies and pushes it on a clean result.
type Apply struct {
	CommonOpts
	Dir          string `long:"dir" description:"local working directory" required:"true"`
	Origin       string `long:"origin" default:"origin" description:"remote name to push to"`
	TargetBranch string `long:"target-branch" required:"true"`
	PatchFile    string `long:"patch-file" description:"path to a unified diff file" required:"true"`
	PatchID      string `long:"patch-id" description:"patch event id"`
	Author       string `long:"author" description:"patch author"`
	DryRun       bool   `long:"dry-run" description:"only run merge analysis, do not apply or push"`
}

// Execute runs the command.
func (c Apply) Execute([]string) error {
	ctx := context.Background()

	content, err := os.ReadFile(c.PatchFile)
	if err != nil {
		return fmt.Errorf("read patch file: %w", err)
	}

	p := domain.Patch{
		ID:        c.PatchID,
		Content:   string(content),
		Committer: domain.User{Username: c.Author},
		State:     domain.StateOpen,
	}

	analyzer := merge.New(c.Store)
	result, err := analyzer.Analyze(ctx, c.Dir, c.Origin, c.TargetBranch, p)
	if err != nil {
		return fmt.Errorf("analyze patch: %w", err)
	}

	fmt.Println(applySummary(result))

	if c.DryRun {
		return nil
	}
	if !result.CanMerge {
		return fmt.Errorf("patch does not apply cleanly (%s), aborting", result.Analysis)
	}

	applier := patch.New(c.Store)
	applied, err := applier.Apply(ctx, c.Dir, c.Origin, c.TargetBranch, p)
	if err != nil {
		return fmt.Errorf("apply patch: %w", err)
	}

	fmt.Printf("  applied as %s, pushed to %v\n", applied.CommitOID, applied.PushedRemotes)
	if applied.UsedTopicPush {
		fmt.Printf("  target branch rejected the push, used topic branch %s instead\n", applied.TopicBranch)
	}
	return nil
}

func applySummary(r domain.MergeAnalysisResult) string {
	style := lipgloss.NewStyle().Bold(true)
	if r.CanMerge {
		style = style.Foreground(lipgloss.Color("#00FF87"))
	} else {
		style = style.Foreground(lipgloss.Color("#FF5F5F"))
	}
	return fmt.Sprintf("%s analysis=%s conflicts=%d up_to_date=%v",
		style.Render(fmt.Sprintf("can_merge=%v", r.CanMerge)), r.Analysis, len(r.ConflictFiles), r.UpToDate)
}
