// Package cmd wires the sync/status/apply/push subcommands over the
// reconciliation and execution engine, in the teacher's go-flags/CommonOpts
// idiom (pkg/cmd/cmd.go).
package cmd

import (
	"context"

	"github.com/samber/lo"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/cache"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/objstore"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/reconcile"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/service"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/transport"
)

// CommonOpts contains the infrastructure every subcommand drives: the
// object store, durable repo cache, relay transport and maintainer policy,
// plus the vendor-backed service used by subcommands that list PRs/issues.
type CommonOpts struct {
	PrepareService func(ctx context.Context) (*service.Service, error)
	Store          objstore.Store
	Cache          *cache.RepoCache
	Relays         transport.EventIO
	Maintainers    reconcile.MaintainerSet
	Version        string
}

// Set copies opts into the receiver, the way every subcommand receives its
// bootstrapped CommonOpts from main.
func (c *CommonOpts) Set(opts CommonOpts) {
	c.PrepareService = opts.PrepareService
	c.Store = opts.Store
	c.Cache = opts.Cache
	c.Relays = opts.Relays
	c.Maintainers = opts.Maintainers
	c.Version = opts.Version
}

// FilterGroup is a group of include/exclude filters
type FilterGroup struct {
	Include []string `long:"include" description:"list only entries that include the given value"`
	Exclude []string `long:"exclude" description:"list only entries that exclude the given value"`
}

// Empty returns true if the filter group is empty.
func (g FilterGroup) Empty() bool {
	return len(g.Include) == 0 && len(g.Exclude) == 0
}

// NillableBool is a bool that can be nil
type NillableBool string

// Value returns the value of the bool.
func (b NillableBool) Value() *bool {
	switch b {
	case "true":
		return lo.ToPtr(true)
	case "false":
		return lo.ToPtr(false)
	default:
		return nil
	}
}

// Not returns the opposite value of the nillable bool, except for nil, which is nil.
func Not(b NillableBool) NillableBool {
	switch b {
	case "true":
		return "false"
	case "false":
		return "true"
	default:
		return ""
	}
}
