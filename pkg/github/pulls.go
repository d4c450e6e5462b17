package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/codegauge/impactboard/pkg/types"
)

// PageOptions bounds the size of one page and its embedded lists. The caps
// keep pages lightweight; anything beyond them is deliberately not fetched.
type PageOptions struct {
	PageSize   int
	MaxFiles   int
	MaxReviews int
	MaxLabels  int
}

// mergedPullsQuery walks merged pull requests ordered by last update,
// newest first. The sort key is UPDATED_AT, not merge time: callers must
// filter each record against the merge window themselves.
const mergedPullsQuery = `
query($owner: String!, $name: String!, $cursor: String, $pageSize: Int!, $maxFiles: Int!, $maxReviews: Int!, $maxLabels: Int!) {
	repository(owner: $owner, name: $name) {
		pullRequests(first: $pageSize, after: $cursor, states: MERGED, orderBy: {field: UPDATED_AT, direction: DESC}) {
			pageInfo {
				hasNextPage
				endCursor
			}
			nodes {
				number
				title
				url
				createdAt
				mergedAt
				updatedAt
				author {
					login
				}
				changedFiles
				additions
				deletions
				labels(first: $maxLabels) {
					nodes {
						name
					}
				}
				files(first: $maxFiles) {
					nodes {
						path
					}
				}
				comments {
					totalCount
				}
				reviews(first: $maxReviews) {
					nodes {
						author {
							login
						}
						state
						submittedAt
					}
				}
			}
		}
	}
}`

// MergedPullRequestPage fetches one page of merged pull requests. An empty
// cursor requests the first page. Pages are cached briefly so a restarted
// run can re-walk already-seen cursors without spending API budget.
func (c *Client) MergedPullRequestPage(ctx context.Context, owner, repo, cursor string, opts PageOptions) (*types.ActivityPage, error) {
	cacheKey := fmt.Sprintf("pr-page:%s/%s:%q:%d", owner, repo, cursor, opts.PageSize)
	if cached, found := c.pageCache.Get(cacheKey); found {
		if page, ok := cached.(*types.ActivityPage); ok {
			slog.DebugContext(ctx, "Page cache hit", "owner", owner, "repo", repo, "cursor", cursor)
			return page, nil
		}
	}

	variables := map[string]any{
		"owner":      owner,
		"name":       repo,
		"pageSize":   opts.PageSize,
		"maxFiles":   opts.MaxFiles,
		"maxReviews": opts.MaxReviews,
		"maxLabels":  opts.MaxLabels,
	}
	if cursor != "" {
		variables["cursor"] = cursor
	}

	result, err := c.MakeGraphQLRequest(ctx, mergedPullsQuery, variables)
	if err != nil {
		return nil, fmt.Errorf("fetching merged pull request page: %w", err)
	}

	page, err := parsePullPage(result)
	if err != nil {
		return nil, err
	}

	c.pageCache.Set(cacheKey, page)
	return page, nil
}

// parsePullPage extracts an ActivityPage from a GraphQL response payload.
// Missing optional fields on a node stay at their zero values; a response
// without the pull request connection itself is malformed.
func parsePullPage(result map[string]any) (*types.ActivityPage, error) {
	data, ok := mapValue(result, "data")
	if !ok {
		return nil, errors.New("graphql response has no data object")
	}
	repository, ok := mapValue(data, "repository")
	if !ok {
		return nil, errors.New("graphql response has no repository object (repo missing or inaccessible)")
	}
	pullBlock, ok := mapValue(repository, "pullRequests")
	if !ok {
		return nil, errors.New("graphql response has no pullRequests connection")
	}

	page := &types.ActivityPage{}

	if pageInfo, ok := mapValue(pullBlock, "pageInfo"); ok {
		page.HasNextPage, _ = pageInfo["hasNextPage"].(bool)
		page.EndCursor, _ = stringValue(pageInfo, "endCursor")
	}

	nodes, ok := sliceNodes(pullBlock)
	if !ok {
		return page, nil
	}

	page.Nodes = make([]types.PullNode, 0, len(nodes))
	for _, raw := range nodes {
		node, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		page.Nodes = append(page.Nodes, parsePullNode(node))
	}

	return page, nil
}

// parsePullNode converts one raw pull request node into its wire shape.
func parsePullNode(node map[string]any) types.PullNode {
	pull := types.PullNode{}

	pull.Number, _ = intValue(node, "number")
	pull.Title, _ = stringValue(node, "title")
	pull.URL, _ = stringValue(node, "url")
	pull.Author, _ = authorLogin(node, "author")
	pull.CreatedAt, _ = timeValue(node, "createdAt")
	pull.MergedAt, _ = timeValue(node, "mergedAt")
	pull.UpdatedAt, _ = timeValue(node, "updatedAt")
	pull.ChangedFiles, _ = intValue(node, "changedFiles")
	pull.Additions, _ = intValue(node, "additions")
	pull.Deletions, _ = intValue(node, "deletions")

	if comments, ok := mapValue(node, "comments"); ok {
		pull.CommentCount, _ = intValue(comments, "totalCount")
	}

	if labels, ok := mapValue(node, "labels"); ok {
		if labelNodes, ok := sliceNodes(labels); ok {
			for _, raw := range labelNodes {
				if label, ok := raw.(map[string]any); ok {
					if name, ok := stringValue(label, "name"); ok {
						pull.Labels = append(pull.Labels, name)
					}
				}
			}
		}
	}

	if files, ok := mapValue(node, "files"); ok {
		if fileNodes, ok := sliceNodes(files); ok {
			for _, raw := range fileNodes {
				if file, ok := raw.(map[string]any); ok {
					if path, ok := stringValue(file, "path"); ok {
						pull.Files = append(pull.Files, path)
					}
				}
			}
		}
	}

	if reviews, ok := mapValue(node, "reviews"); ok {
		if reviewNodes, ok := sliceNodes(reviews); ok {
			for _, raw := range reviewNodes {
				review, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				rn := types.ReviewNode{}
				rn.Author, _ = authorLogin(review, "author")
				rn.State, _ = stringValue(review, "state")
				rn.SubmittedAt, _ = timeValue(review, "submittedAt")
				pull.Reviews = append(pull.Reviews, rn)
			}
		}
	}

	return pull
}
