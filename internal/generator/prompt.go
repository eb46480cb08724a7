package generator

import (
	"strings"

	"github.com/nugget-pipeline/internal/models"
	"github.com/nugget-pipeline/internal/validation"
)

// SystemPrompt fixes the voice, length and structure of every nugget
var SystemPrompt = `You are an expert technical writer specializing in backend and AI engineering.
Generate concise, high-signal technical insights ("nuggets") for an experienced engineering audience.

**Requirements**
- 150–300 words total.
- **Voice:** Direct, confident, peer-to-peer (senior IC to senior IC).
- **Structure:**
  1. *Context*: one-sentence setup.
  2. *Insight*: 3–5 short paragraphs or bullets, each with a clear engineering takeaway.
  3. *Optional:* code example (≤20 LOC, illustrative only).
  4. *Apply It*: 1–2 actionable bullets.
- Avoid fluff, buzzwords, vendor promotion, or speculative metrics.
- Base all insights on practical, real-world engineering experience.
- Use tags only from this list:
  [` + strings.Join(validation.AllowedTags, ", ") + `].
- Output only the **Markdown body** (no YAML frontmatter or metadata).
- Be precise, concrete, and high-signal.
`

// BuildUserPrompt renders the per-idea request. Output depends only on the idea.
func BuildUserPrompt(idea *models.Idea) string {
	var b strings.Builder

	b.WriteString("Write a technical nugget about: ")
	b.WriteString(idea.Topic)
	b.WriteString("\n\n")
	b.WriteString("Title: ")
	b.WriteString(idea.Title)
	b.WriteString("\n")
	b.WriteString("Tags: ")
	b.WriteString(strings.Join(idea.Tags, ", "))
	b.WriteString("\n")

	if idea.Context != "" {
		b.WriteString("\nContext: ")
		b.WriteString(idea.Context)
		b.WriteString("\n")
	}
	if idea.TargetAudience != "" {
		b.WriteString("Target audience: ")
		b.WriteString(idea.TargetAudience)
		b.WriteString("\n")
	}
	if idea.CodeExample {
		b.WriteString("\nInclude a concise code example (≤20 lines).")
	}

	return b.String()
}

// BuildPrompt pairs the system instruction with the idea's user prompt
func BuildPrompt(idea *models.Idea) Prompt {
	return Prompt{System: SystemPrompt, User: BuildUserPrompt(idea)}
}
