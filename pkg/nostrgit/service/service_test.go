package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/domain"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/misc"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/vendor"
)

// fakeVendor implements vendor.Interface via embedding (nil, panics if
// called) plus the overrides each test needs.
type fakeVendor struct {
	vendor.Interface

	me  domain.User
	repo domain.Repo
	prs []domain.PullRequest
}

func (f *fakeVendor) GetCurrentUser(context.Context) (domain.User, error) { return f.me, nil }
func (f *fakeVendor) GetRepo(context.Context, vendor.RepoSpec) (domain.Repo, error) {
	return f.repo, nil
}
func (f *fakeVendor) ListPullRequests(context.Context, vendor.RepoSpec, vendor.ListPRsOpts) ([]domain.PullRequest, error) {
	return f.prs, nil
}

func TestListPullRequestsFiltersApprovedByMe(t *testing.T) {
	pr1 := domain.PullRequest{URL: "pr1"}
	pr1.Approvals.By = []domain.User{{Username: "alice"}}

	fv := &fakeVendor{
		me:   domain.User{Username: "alice"},
		repo: domain.Repo{FullPath: "org/repo"},
		prs:  []domain.PullRequest{pr1, {URL: "pr2"}},
	}

	svc, err := NewService(context.Background(), fv)
	require.NoError(t, err)

	approved := true
	prs, err := svc.ListPullRequests(context.Background(), ListPRsRequest{
		Repo:         vendor.RepoSpec{Owner: "org", Name: "repo"},
		ApprovedByMe: &approved,
		ListPRsOpts:  vendor.ListPRsOpts{Pagination: misc.Pagination{Page: 1, PerPage: 10}},
	})
	require.NoError(t, err)
	require.Len(t, prs, 1)
	assert.Equal(t, "pr1", prs[0].URL)
	assert.Equal(t, "org/repo", prs[0].Repo.FullPath)
}

func TestListPullRequestsFiltersByAuthor(t *testing.T) {
	fv := &fakeVendor{
		me:   domain.User{Username: "alice"},
		repo: domain.Repo{FullPath: "org/repo"},
		prs: []domain.PullRequest{
			{URL: "pr1", Author: domain.User{Username: "bob"}},
			{URL: "pr2", Author: domain.User{Username: "carol"}},
		},
	}

	svc, err := NewService(context.Background(), fv)
	require.NoError(t, err)

	prs, err := svc.ListPullRequests(context.Background(), ListPRsRequest{
		Repo:        vendor.RepoSpec{Owner: "org", Name: "repo"},
		Authors:     misc.Filter[string]{Include: []string{"bob"}},
		ListPRsOpts: vendor.ListPRsOpts{Pagination: misc.Pagination{Page: 1, PerPage: 10}},
	})
	require.NoError(t, err)
	require.Len(t, prs, 1)
	assert.Equal(t, "pr1", prs[0].URL)
}
