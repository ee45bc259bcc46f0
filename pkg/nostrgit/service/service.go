// Package service wraps a vendor.Interface with the filtering behavior
// every adapter needs in common (approval/thread/author/path filters,
// pagination draining). Consumers should go through Service and never call
// a vendor.Interface directly, mirroring the teacher's pkg/service design.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/domain"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/misc"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/vendor"
)

// Service wraps a vendor adapter with common filtering.
type Service struct {
	v  vendor.Interface
	me domain.User
}

// NewService builds a Service over v, fetching the current user up front
// the way the teacher's NewService does.
func NewService(ctx context.Context, v vendor.Interface) (*Service, error) {
	me, err := v.GetCurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	return &Service{v: v, me: me}, nil
}

// ListPRsRequest is a request to list pull requests, generalizing the
// teacher's ListPRsRequest with a repo target and the same
// post-fetch filter set.
type ListPRsRequest struct {
	Repo vendor.RepoSpec
	vendor.ListPRsOpts

	WithoutMyUnresolvedThreads bool
	ApprovedByMe               *bool
	SatisfiesApprovalRules     *bool
	Authors                    misc.Filter[string]
	RepoPaths                  misc.Filter[string]
}

// ListPullRequests calls the underlying vendor to list pull requests and
// filters them by the provided criteria.
func (s *Service) ListPullRequests(ctx context.Context, req ListPRsRequest) ([]domain.PullRequest, error) {
	log.Printf("[DEBUG] list pull requests with criteria %+v", req)

	prs, err := s.listPRs(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("list pull requests: %w", err)
	}

	log.Printf("[DEBUG] listed %d pull requests", len(prs))

	if repo, err := s.v.GetRepo(ctx, req.Repo); err == nil {
		for i := range prs {
			prs[i].Repo = repo
		}
	}

	filter := func(name string, fn func(domain.PullRequest) bool) {
		_, span := otel.GetTracerProvider().Tracer("service").
			Start(ctx, fmt.Sprintf("filter PRs by %s", name))
		defer span.End()

		var filteredURLs []string
		prs = lo.Filter(prs, func(pr domain.PullRequest, _ int) bool {
			if !fn(pr) {
				filteredURLs = append(filteredURLs, pr.URL)
				return false
			}
			return true
		})

		b, err := json.Marshal(prs)
		if err != nil {
			b = []byte(fmt.Sprintf("failed to marshal: %v", err))
		}
		span.SetAttributes(attribute.String("result", string(b)))
		span.SetAttributes(attribute.StringSlice("filtered_urls", filteredURLs))
	}

	if req.ApprovedByMe != nil {
		filter("approved by me", func(pr domain.PullRequest) bool {
			return lo.ContainsBy(pr.Approvals.By, func(u domain.User) bool {
				return u.Username == s.me.Username
			}) == *req.ApprovedByMe
		})
	}

	if req.WithoutMyUnresolvedThreads {
		filter("without my unresolved threads", func(pr domain.PullRequest) bool {
			return !lo.ContainsBy(pr.Threads, func(thread domain.Comment) bool {
				myUnresolvedThread := thread.Author.Username == s.me.Username && !thread.Resolved
				lastCommentMine := thread.Last().Author.Username == s.me.Username
				return myUnresolvedThread && lastCommentMine
			})
		})
	}

	if req.SatisfiesApprovalRules != nil {
		filter("satisfies approval rules", func(pr domain.PullRequest) bool {
			approvalRequiredFromMe := lo.ContainsBy(pr.Approvals.RequestedFrom, func(u domain.User) bool {
				return u.Username == s.me.Username
			})
			approvedByMe := lo.ContainsBy(pr.Approvals.By, func(u domain.User) bool {
				return u.Username == s.me.Username
			})
			return (approvalRequiredFromMe && !approvedByMe) ||
				pr.Approvals.SatisfiesRules == *req.SatisfiesApprovalRules
		})
	}

	if len(req.Authors.Include) > 0 {
		filter("authors include", func(pr domain.PullRequest) bool {
			return lo.Contains(req.Authors.Include, pr.Author.Username)
		})
	}
	if len(req.Authors.Exclude) > 0 {
		filter("authors exclude", func(pr domain.PullRequest) bool {
			return !lo.Contains(req.Authors.Exclude, pr.Author.Username)
		})
	}
	if len(req.RepoPaths.Include) > 0 {
		filter("repo paths include", func(pr domain.PullRequest) bool {
			return lo.Contains(req.RepoPaths.Include, pr.Repo.FullPath)
		})
	}
	if len(req.RepoPaths.Exclude) > 0 {
		filter("repo paths exclude", func(pr domain.PullRequest) bool {
			return !lo.Contains(req.RepoPaths.Exclude, pr.Repo.FullPath)
		})
	}

	return prs, nil
}

func (s *Service) listPRs(ctx context.Context, req ListPRsRequest) ([]domain.PullRequest, error) {
	ctx, span := otel.GetTracerProvider().Tracer("service").Start(ctx, "list PRs from vendor")
	defer span.End()

	listFn := func(ctx context.Context, opts vendor.ListPRsOpts) ([]domain.PullRequest, error) {
		return s.v.ListPullRequests(ctx, req.Repo, opts)
	}
	if req.Pagination.Empty() {
		listFn = func(ctx context.Context, opts vendor.ListPRsOpts) ([]domain.PullRequest, error) {
			opts.Pagination.PerPage = 100
			return misc.ListAll(1, func(page int) ([]domain.PullRequest, error) {
				opts.Pagination.Page = page
				return s.v.ListPullRequests(ctx, req.Repo, opts)
			})
		}
	}

	prs, err := listFn(ctx, req.ListPRsOpts)

	b, marshalErr := json.Marshal(prs)
	if marshalErr != nil {
		b = []byte(fmt.Sprintf("failed to marshal: %v", marshalErr))
	}
	attrs := []attribute.KeyValue{attribute.String("result", string(b))}
	if err != nil {
		attrs = append(attrs, attribute.String("err", err.Error()))
	}
	span.SetAttributes(attrs...)
	return prs, err
}

// ListIssuesRequest is a request to list issues, the Issue-shaped analog
// of ListPRsRequest.
type ListIssuesRequest struct {
	Repo vendor.RepoSpec
	vendor.ListIssuesOpts

	Authors   misc.Filter[string]
	RepoPaths misc.Filter[string]
}

// ListIssues calls the underlying vendor to list issues and filters them
// by author/repo-path, the same way ListPullRequests filters PRs.
func (s *Service) ListIssues(ctx context.Context, req ListIssuesRequest) ([]domain.Issue, error) {
	log.Printf("[DEBUG] list issues with criteria %+v", req)

	listFn := func(ctx context.Context, opts vendor.ListIssuesOpts) ([]domain.Issue, error) {
		return s.v.ListIssues(ctx, req.Repo, opts)
	}
	if req.Pagination.Empty() {
		listFn = func(ctx context.Context, opts vendor.ListIssuesOpts) ([]domain.Issue, error) {
			opts.Pagination.PerPage = 100
			return misc.ListAll(1, func(page int) ([]domain.Issue, error) {
				opts.Pagination.Page = page
				return s.v.ListIssues(ctx, req.Repo, opts)
			})
		}
	}

	issues, err := listFn(ctx, req.ListIssuesOpts)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	log.Printf("[DEBUG] listed %d issues", len(issues))

	if repo, err := s.v.GetRepo(ctx, req.Repo); err == nil {
		for i := range issues {
			issues[i].Repo = repo
		}
	}

	if len(req.Authors.Include) > 0 {
		issues = lo.Filter(issues, func(i domain.Issue, _ int) bool {
			return lo.Contains(req.Authors.Include, i.Author.Username)
		})
	}
	if len(req.Authors.Exclude) > 0 {
		issues = lo.Filter(issues, func(i domain.Issue, _ int) bool {
			return !lo.Contains(req.Authors.Exclude, i.Author.Username)
		})
	}
	if len(req.RepoPaths.Include) > 0 {
		issues = lo.Filter(issues, func(i domain.Issue, _ int) bool {
			return lo.Contains(req.RepoPaths.Include, i.Repo.FullPath)
		})
	}
	if len(req.RepoPaths.Exclude) > 0 {
		issues = lo.Filter(issues, func(i domain.Issue, _ int) bool {
			return !lo.Contains(req.RepoPaths.Exclude, i.Repo.FullPath)
		})
	}

	return issues, nil
}
