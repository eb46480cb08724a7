package models

// Frontmatter is the metadata block rendered at the top of a generated nugget
type Frontmatter struct {
	Title         string   `json:"title" yaml:"title"`
	Summary       string   `json:"summary" yaml:"summary"`
	Date          string   `json:"date" yaml:"date"`
	ReadTime      string   `json:"readTime" yaml:"readTime"`
	Tags          []string `json:"tags" yaml:"tags"`
	Published     bool     `json:"published" yaml:"published"`
	GeneratedFrom string   `json:"generatedFrom,omitempty" yaml:"generatedFrom,omitempty"`
	Reviewed      bool     `json:"reviewed" yaml:"reviewed"`
}

// GeneratedDocument is the article produced from one idea.
// It is never stored on its own; it travels inside the pull request.
type GeneratedDocument struct {
	Slug        string      `json:"slug"`
	Frontmatter Frontmatter `json:"frontmatter"`
	Body        string      `json:"body"`
	Content     string      `json:"content"` // frontmatter + body, as committed
}

// PullRequestRef identifies the pull request opened for a document
type PullRequestRef struct {
	PRURL      string `json:"prUrl"`
	PRNumber   int    `json:"prNumber"`
	BranchName string `json:"branchName"`
}
