package generator

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/nugget-pipeline/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

const (
	summaryMinLength = 50
	summaryMaxLength = 160
	wordsPerMinute   = 200
)

var sentenceEnd = regexp.MustCompile(`[.!?]`)

var markdown = goldmark.New()

// Summarize picks the first prose line longer than 50 characters and returns
// its first sentence, capped at 160 characters. Headings and code blocks are
// never candidates. Without such a line it falls back to the first 160
// characters of the content.
func Summarize(content string) string {
	src := []byte(strings.TrimSpace(content))
	doc := markdown.Parser().Parse(text.NewReader(src))

	var summary string
	found := false
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || found {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindHeading, ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock:
			return ast.WalkSkipChildren, nil
		case ast.KindParagraph, ast.KindTextBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				line := strings.TrimSpace(string(seg.Value(src)))
				if utf8.RuneCountInString(line) > summaryMinLength {
					summary = firstSentence(line)
					found = true
					return ast.WalkStop, nil
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	if found {
		return summary
	}
	return strings.TrimSpace(truncateRunes(string(src), summaryMaxLength)) + "..."
}

func firstSentence(line string) string {
	sentence := line
	if loc := sentenceEnd.FindStringIndex(line); loc != nil {
		sentence = line[:loc[0]]
	}
	if utf8.RuneCountInString(sentence) > summaryMaxLength {
		return truncateRunes(sentence, summaryMaxLength) + "..."
	}
	return sentence
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// WordCount counts whitespace-separated words
func WordCount(content string) int {
	return len(strings.Fields(content))
}

// ReadTime formats the reading time at 200 words per minute, at least one minute
func ReadTime(words int) string {
	minutes := int(math.Ceil(float64(words) / wordsPerMinute))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min", minutes)
}

// RenderMDX renders YAML frontmatter followed by the trimmed body
func RenderMDX(fm models.Frontmatter, body string) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return "", fmt.Errorf("encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(buf.Bytes())
	b.WriteString("---\n\n")
	b.WriteString(strings.TrimSpace(body))
	b.WriteString("\n")
	return b.String(), nil
}
