package publisher

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/nugget-pipeline/internal/apperrors"
	"github.com/nugget-pipeline/internal/models"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	defaultAPIURL = "https://api.github.com"
	apiVersion    = "2022-11-28"
	userAgent     = "nugget-pipeline"
)

// Settings configures the GitHub publisher
type Settings struct {
	Token        string
	Repo         string // owner/name
	BaseBranch   string
	BranchPrefix string
	ContentDir   string
	APIURL       string
	HTTPClient   *http.Client
}

// GitHubPublisher talks to the GitHub REST API
type GitHubPublisher struct {
	settings Settings
	owner    string
	http     *http.Client
	log      zerolog.Logger
}

// NewGitHubPublisher validates settings and returns a publisher
func NewGitHubPublisher(s Settings, log zerolog.Logger) (*GitHubPublisher, error) {
	if s.Token == "" {
		return nil, errors.New("github token missing; set GITHUB_TOKEN")
	}
	owner, _, ok := strings.Cut(s.Repo, "/")
	if !ok || owner == "" {
		return nil, fmt.Errorf("github repo must be owner/name, got %q", s.Repo)
	}
	if s.APIURL == "" {
		s.APIURL = defaultAPIURL
	}
	s.APIURL = strings.TrimRight(s.APIURL, "/")
	if s.BaseBranch == "" {
		s.BaseBranch = "main"
	}
	if s.HTTPClient == nil {
		s.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &GitHubPublisher{
		settings: s,
		owner:    owner,
		http:     s.HTTPClient,
		log:      log.With().Str("component", "publisher").Str("repo", s.Repo).Logger(),
	}, nil
}

// BranchName returns the branch a document is committed on
func (p *GitHubPublisher) BranchName(slug, dateHint string) string {
	return p.settings.BranchPrefix + slug + "-" + dateHint
}

// ContentPath returns the repository path of a document
func (p *GitHubPublisher) ContentPath(slug string) string {
	return path.Join(p.settings.ContentDir, slug+".mdx")
}

// OpenPullRequest creates the branch, commits the file and opens the pull
// request. Each step tolerates leftovers of an earlier attempt on the same
// day: an existing branch is reused, an existing file is updated and an
// existing open pull request is returned.
func (p *GitHubPublisher) OpenPullRequest(ctx context.Context, doc *models.GeneratedDocument, dateHint string) (*models.PullRequestRef, error) {
	branch := p.BranchName(doc.Slug, dateHint)
	filePath := p.ContentPath(doc.Slug)

	baseRef, err := p.do(ctx, "read base ref", http.MethodGet,
		p.repoURL("git/ref/heads/"+p.settings.BaseBranch), nil)
	if err != nil {
		return nil, err
	}
	baseSHA := gjson.GetBytes(baseRef, "object.sha").String()
	if baseSHA == "" {
		return nil, apperrors.Publication("read base ref", 0, errors.New("response carried no object.sha"))
	}

	_, err = p.do(ctx, "create branch", http.MethodPost, p.repoURL("git/refs"), map[string]string{
		"ref": "refs/heads/" + branch,
		"sha": baseSHA,
	})
	if statusOf(err) == http.StatusUnprocessableEntity {
		p.log.Info().Str("branch", branch).Msg("Branch already exists, reusing it")
	} else if err != nil {
		return nil, err
	}

	existingSHA, err := p.fileSHA(ctx, filePath, branch)
	if err != nil {
		return nil, err
	}

	put := map[string]string{
		"message": fmt.Sprintf("Add nugget: %s", doc.Frontmatter.Title),
		"content": base64.StdEncoding.EncodeToString([]byte(doc.Content)),
		"branch":  branch,
	}
	if existingSHA != "" {
		put["sha"] = existingSHA
	}
	if _, err := p.do(ctx, "commit file", http.MethodPut, p.repoURL("contents/"+filePath), put); err != nil {
		return nil, err
	}

	pr, err := p.do(ctx, "create pull request", http.MethodPost, p.repoURL("pulls"), map[string]interface{}{
		"title": fmt.Sprintf("Nugget: %s", doc.Frontmatter.Title),
		"head":  branch,
		"base":  p.settings.BaseBranch,
		"body":  pullRequestBody(doc, dateHint),
	})
	if statusOf(err) == http.StatusUnprocessableEntity {
		return p.findOpenPullRequest(ctx, branch)
	}
	if err != nil {
		return nil, err
	}

	ref := &models.PullRequestRef{
		PRURL:      gjson.GetBytes(pr, "html_url").String(),
		PRNumber:   int(gjson.GetBytes(pr, "number").Int()),
		BranchName: branch,
	}
	if ref.PRNumber == 0 {
		return nil, apperrors.Publication("create pull request", 0, errors.New("response carried no number"))
	}

	p.log.Info().
		Str("slug", doc.Slug).
		Str("branch", branch).
		Int("pr_number", ref.PRNumber).
		Msg("Pull request opened")

	return ref, nil
}

// CheckMergeStatus reads the merged flag of a pull request
func (p *GitHubPublisher) CheckMergeStatus(ctx context.Context, prNumber int) (bool, error) {
	body, err := p.do(ctx, "read pull request", http.MethodGet, p.repoURL(fmt.Sprintf("pulls/%d", prNumber)), nil)
	if err != nil {
		return false, err
	}
	merged := gjson.GetBytes(body, "merged")
	if !merged.Exists() {
		return false, apperrors.Publication("read pull request", 0, fmt.Errorf("pull request %d: no merged field", prNumber))
	}
	return merged.Bool(), nil
}

func (p *GitHubPublisher) fileSHA(ctx context.Context, filePath, branch string) (string, error) {
	u := p.repoURL("contents/"+filePath) + "?ref=" + url.QueryEscape(branch)
	body, err := p.do(ctx, "read file", http.MethodGet, u, nil)
	if statusOf(err) == http.StatusNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "sha").String(), nil
}

func (p *GitHubPublisher) findOpenPullRequest(ctx context.Context, branch string) (*models.PullRequestRef, error) {
	q := url.Values{}
	q.Set("head", p.owner+":"+branch)
	q.Set("state", "open")

	body, err := p.do(ctx, "find pull request", http.MethodGet, p.repoURL("pulls")+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	first := gjson.GetBytes(body, "0")
	if !first.Exists() {
		return nil, apperrors.Publication("create pull request", http.StatusUnprocessableEntity,
			fmt.Errorf("pull request for %s rejected and none is open", branch))
	}

	p.log.Info().Str("branch", branch).Int64("pr_number", first.Get("number").Int()).Msg("Reusing open pull request")
	return &models.PullRequestRef{
		PRURL:      first.Get("html_url").String(),
		PRNumber:   int(first.Get("number").Int()),
		BranchName: branch,
	}, nil
}

func (p *GitHubPublisher) repoURL(suffix string) string {
	return fmt.Sprintf("%s/repos/%s/%s", p.settings.APIURL, p.settings.Repo, suffix)
}

// do sends one API request and returns the body of a 2xx response. Any other
// outcome is a publication UpstreamError carrying the status code.
func (p *GitHubPublisher) do(ctx context.Context, op, method, u string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, apperrors.Publication(op, 0, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, apperrors.Publication(op, 0, err)
	}
	req.Header.Set("Authorization", "Bearer "+p.settings.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, apperrors.Publication(op, 0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Publication(op, resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(data, "message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, apperrors.Publication(op, resp.StatusCode, errors.New(msg))
	}
	return data, nil
}

func statusOf(err error) int {
	var up *apperrors.UpstreamError
	if errors.As(err, &up) {
		return up.StatusCode
	}
	return 0
}

func pullRequestBody(doc *models.GeneratedDocument, dateHint string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", doc.Frontmatter.Title)
	fmt.Fprintf(&b, "> %s\n\n", doc.Frontmatter.Summary)
	fmt.Fprintf(&b, "- **Slug:** `%s`\n", doc.Slug)
	fmt.Fprintf(&b, "- **Scheduled:** %s\n", dateHint)
	fmt.Fprintf(&b, "- **Read time:** %s\n", doc.Frontmatter.ReadTime)
	fmt.Fprintf(&b, "- **Tags:** %s\n\n", strings.Join(doc.Frontmatter.Tags, ", "))
	b.WriteString("Generated draft. Review the content, set `reviewed: true` and `published: true`, then merge.\n")
	return b.String()
}

var _ Publisher = (*GitHubPublisher)(nil)
