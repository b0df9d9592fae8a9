// Package github implements the RemoteReviewClient port using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"
	gocache "github.com/patrickmn/go-cache"

	"github.com/ericfisherdev/reviewflow/internal/domain/model"
	"github.com/ericfisherdev/reviewflow/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RemoteReviewClient = (*Client)(nil)

// lookupTTL bounds how long repository listings and PR head SHAs are reused
// between thread posts.
const lookupTTL = 5 * time.Minute

// Client implements the driven.RemoteReviewClient port against the GitHub
// REST API. Repository listings and PR head SHAs are cached with a short TTL
// so a batched posting run does not repeat identical lookups.
type Client struct {
	gh      *gh.Client
	lookups *gocache.Cache
}

// NewClient creates a GitHub review client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{
		gh:      client,
		lookups: gocache.New(lookupTTL, 2*lookupTTL),
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{
		gh:      client,
		lookups: gocache.New(lookupTTL, 2*lookupTTL),
	}, nil
}

// ListRepositories returns the repositories of the organization named by the
// trailing segment of organizationURL. It handles pagination automatically
// and maps go-github types to domain model types.
func (c *Client) ListRepositories(ctx context.Context, organizationURL string) ([]model.Repository, error) {
	owner, err := ownerFromURL(organizationURL)
	if err != nil {
		return nil, err
	}

	cacheKey := "repos:" + owner
	if cached, ok := c.lookups.Get(cacheKey); ok {
		return cached.([]model.Repository), nil
	}

	opts := &gh.RepositoryListByOrgOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var all []model.Repository

	for {
		repos, resp, err := c.gh.Repositories.ListByOrg(ctx, owner, opts)
		if err != nil {
			return nil, fmt.Errorf("listing repositories for %s (page %d): %w", owner, opts.Page, err)
		}

		logRateLimit(resp, owner+"/repos", opts.Page, len(repos))

		for _, r := range repos {
			all = append(all, model.Repository{
				ID:   r.GetName(),
				Name: r.GetName(),
				URL:  r.GetHTMLURL(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	c.lookups.SetDefault(cacheKey, all)

	return all, nil
}

// CreateThread creates a new review comment thread anchored at the thread's
// file and line on the pull request. The PR head SHA is fetched (and cached)
// first so the comment attaches to the current commit. Failures carry the
// remote status code as *driven.PostError for retry classification.
func (c *Client) CreateThread(ctx context.Context, organizationURL, repoID string, prNumber int, thread model.CommentThread) (*model.PostedThreadInfo, error) {
	owner, err := ownerFromURL(organizationURL)
	if err != nil {
		return nil, err
	}

	commitID, err := c.headSHA(ctx, owner, repoID, prNumber)
	if err != nil {
		return nil, err
	}

	comment := &gh.PullRequestComment{
		Body:     gh.Ptr(thread.Body),
		Path:     gh.Ptr(thread.FilePath),
		Line:     gh.Ptr(thread.Line),
		Side:     gh.Ptr("RIGHT"),
		CommitID: gh.Ptr(commitID),
	}

	created, resp, err := c.gh.PullRequests.CreateComment(ctx, owner, repoID, prNumber, comment)
	if err != nil {
		return nil, &driven.PostError{StatusCode: statusCode(resp), Err: err}
	}

	logRateLimit(resp, fmt.Sprintf("%s/%s#%d/create-thread", owner, repoID, prNumber), 0, 1)

	return &model.PostedThreadInfo{
		ThreadID:      created.GetID(),
		FileName:      thread.FilePath,
		LineNumber:    thread.Line,
		RemoteURL:     created.GetHTMLURL(),
		CommentsCount: thread.CommentCount,
	}, nil
}

// headSHA returns the PR's current head commit, cached per (repo, PR).
func (c *Client) headSHA(ctx context.Context, owner, repo string, prNumber int) (string, error) {
	cacheKey := fmt.Sprintf("head:%s/%s#%d", owner, repo, prNumber)
	if cached, ok := c.lookups.Get(cacheKey); ok {
		return cached.(string), nil
	}

	pr, resp, err := c.gh.PullRequests.Get(ctx, owner, repo, prNumber)
	if err != nil {
		return "", &driven.PostError{StatusCode: statusCode(resp), Err: fmt.Errorf("fetching PR head SHA: %w", err)}
	}

	sha := pr.GetHead().GetSHA()
	c.lookups.SetDefault(cacheKey, sha)

	return sha, nil
}

// statusCode extracts the HTTP status from a go-github response, 0 when the
// request never reached the remote.
func statusCode(resp *gh.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

// ownerFromURL extracts the organization login from an organization URL such
// as "https://github.com/acme". A bare login is also accepted.
func ownerFromURL(organizationURL string) (string, error) {
	trimmed := strings.TrimRight(organizationURL, "/")
	if trimmed == "" {
		return "", fmt.Errorf("organization URL is empty")
	}

	if !strings.Contains(trimmed, "/") {
		return trimmed, nil
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid organization URL %q: %w", organizationURL, err)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	owner := segments[len(segments)-1]
	if owner == "" {
		return "", fmt.Errorf("organization URL %q has no organization segment", organizationURL)
	}

	return owner, nil
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}
