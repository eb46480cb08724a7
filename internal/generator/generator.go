// Package generator turns a queued idea into a nugget document by prompting a
// chat model and deriving the frontmatter from its markdown output.
package generator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nugget-pipeline/internal/apperrors"
	"github.com/nugget-pipeline/internal/models"
	"github.com/nugget-pipeline/internal/slug"
	"github.com/rs/zerolog"
)

// DateLayout is the frontmatter date format
const DateLayout = "2006-01-02"

// Generator produces a document for an idea
type Generator interface {
	Generate(ctx context.Context, idea *models.Idea) (*models.GeneratedDocument, error)
}

type nuggetGenerator struct {
	llm LLMClient
	now func() time.Time
	log zerolog.Logger
}

// New creates a Generator backed by llm. A nil clock uses time.Now.
func New(llm LLMClient, clock func() time.Time, log zerolog.Logger) Generator {
	if clock == nil {
		clock = time.Now
	}
	return &nuggetGenerator{
		llm: llm,
		now: clock,
		log: log.With().Str("component", "generator").Logger(),
	}
}

// Generate prompts the model and assembles the document. Any model failure
// or an empty answer is reported as a generation UpstreamError.
func (g *nuggetGenerator) Generate(ctx context.Context, idea *models.Idea) (*models.GeneratedDocument, error) {
	start := time.Now()

	content, err := g.llm.Complete(ctx, BuildPrompt(idea))
	if err != nil {
		if apperrors.IsUpstream(err) {
			return nil, err
		}
		return nil, apperrors.Generation("chat completion", 0, err)
	}

	body := strings.TrimSpace(content)
	if body == "" {
		return nil, apperrors.Generation("chat completion", 0, errors.New("no content generated"))
	}

	s := idea.Slug
	if s == "" {
		s = slug.Make(idea.Title)
	}

	fm := models.Frontmatter{
		Title:         idea.Title,
		Summary:       Summarize(body),
		Date:          g.now().UTC().Format(DateLayout),
		ReadTime:      ReadTime(WordCount(body)),
		Tags:          append([]string(nil), idea.Tags...),
		Published:     false,
		GeneratedFrom: s,
		Reviewed:      false,
	}

	mdx, err := RenderMDX(fm, body)
	if err != nil {
		return nil, apperrors.Generation("render", 0, err)
	}

	g.log.Info().
		Str("slug", s).
		Int("words", WordCount(body)).
		Dur("duration", time.Since(start)).
		Msg("Nugget generated")

	return &models.GeneratedDocument{
		Slug:        s,
		Frontmatter: fm,
		Body:        body,
		Content:     mdx,
	}, nil
}
