// Package github implements the check poller against the GitHub API.
package github

import (
	"context"
	"fmt"
	"strings"

	gh "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/mendloop/mendloop/internal/checks"
)

// Conclusions that count as passing for a completed check run. Neutral and
// skipped runs do not block a merge, so they do not block remediation
// either.
var passingConclusions = map[string]bool{
	"success": true,
	"neutral": true,
	"skipped": true,
}

// Client polls pull request check runs for a single repository.
type Client struct {
	gh    *gh.Client
	owner string
	repo  string
	retry RetryConfig
}

// NewClient creates a Client authenticated with the given token. repo is
// "owner/name".
func NewClient(ctx context.Context, token, repo string) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("GitHub token not set")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return NewClientWithGitHub(gh.NewClient(oauth2.NewClient(ctx, ts)), repo)
}

// NewClientWithGitHub wraps an existing go-github client. Used by tests to
// point at a local server.
func NewClientWithGitHub(client *gh.Client, repo string) (*Client, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}
	return &Client{gh: client, owner: owner, repo: name, retry: DefaultRetryConfig()}, nil
}

// SetRetryConfig overrides the transient-error retry tuning.
func (c *Client) SetRetryConfig(cfg RetryConfig) {
	c.retry = cfg
}

// Poll implements the controller's Poller contract.
func (c *Client) Poll(ctx context.Context, pr int) (*checks.CheckSnapshot, error) {
	return c.PRChecks(ctx, pr)
}

// PRChecks takes a point-in-time snapshot of the check runs on a pull
// request's head commit. Transient API errors (rate limits, 5xx) are
// absorbed by the retry wrapper; anything surviving it is returned as a
// poll failure for the caller to handle.
func (c *Client) PRChecks(ctx context.Context, pr int) (*checks.CheckSnapshot, error) {
	var pull *gh.PullRequest
	_, err := c.do(ctx, func() (*gh.Response, error) {
		var resp *gh.Response
		var err error
		pull, resp, err = c.gh.PullRequests.Get(ctx, c.owner, c.repo, pr)
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("poll PR %d: get pull request: %w", pr, err)
	}

	sha := pull.GetHead().GetSHA()
	if sha == "" {
		return nil, fmt.Errorf("poll PR %d: pull request has no head SHA", pr)
	}

	runs, err := c.listCheckRuns(ctx, sha)
	if err != nil {
		return nil, fmt.Errorf("poll PR %d: %w", pr, err)
	}

	return snapshotFromRuns(runs), nil
}

// listCheckRuns pages through all check runs for a commit.
func (c *Client) listCheckRuns(ctx context.Context, sha string) ([]*gh.CheckRun, error) {
	opts := &gh.ListCheckRunsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var all []*gh.CheckRun
	for {
		var result *gh.ListCheckRunsResults
		resp, err := c.do(ctx, func() (*gh.Response, error) {
			var resp *gh.Response
			var err error
			result, resp, err = c.gh.Checks.ListCheckRunsForRef(ctx, c.owner, c.repo, sha, opts)
			return resp, err
		})
		if err != nil {
			return nil, fmt.Errorf("list check runs for %s: %w", sha, err)
		}

		all = append(all, result.CheckRuns...)
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// snapshotFromRuns folds raw check runs into a snapshot. Runs still queued
// or in progress are pending; completed runs pass or fail by conclusion.
func snapshotFromRuns(runs []*gh.CheckRun) *checks.CheckSnapshot {
	snap := &checks.CheckSnapshot{}
	for _, run := range runs {
		name := run.GetName()
		if run.GetStatus() != "completed" {
			snap.Pending = append(snap.Pending, name)
			continue
		}
		conclusion := run.GetConclusion()
		if passingConclusions[conclusion] {
			snap.Passed = append(snap.Passed, name)
			continue
		}
		snap.Failed = append(snap.Failed, checks.RawFailure{
			Name:   name,
			Detail: failureDetail(run, conclusion),
		})
	}
	snap.AllPassed = len(snap.Failed) == 0 && len(snap.Pending) == 0
	return snap
}

// failureDetail extracts the most useful short description from a failed
// check run.
func failureDetail(run *gh.CheckRun, conclusion string) string {
	if out := run.GetOutput(); out != nil {
		if title := out.GetTitle(); title != "" {
			return title
		}
		if summary := out.GetSummary(); summary != "" {
			return summary
		}
	}
	return conclusion
}

// splitRepo parses "owner/name".
func splitRepo(repo string) (string, string, error) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo %q: must be owner/name", repo)
	}
	return parts[0], parts[1], nil
}
