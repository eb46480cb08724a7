// Package publisher opens review pull requests for generated nuggets and
// reports whether they were merged.
package publisher

import (
	"context"

	"github.com/nugget-pipeline/internal/models"
)

// Publisher is the version-control side of the pipeline
type Publisher interface {
	// OpenPullRequest commits doc on a fresh branch and opens a pull request.
	// dateHint (YYYY-MM-DD) names the branch.
	OpenPullRequest(ctx context.Context, doc *models.GeneratedDocument, dateHint string) (*models.PullRequestRef, error)
	// CheckMergeStatus reports whether the pull request has been merged
	CheckMergeStatus(ctx context.Context, prNumber int) (bool, error)
}
