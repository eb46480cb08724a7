package validation

import "strings"

// AllowedTags is the editorial tag whitelist. Matching is case-insensitive.
var AllowedTags = []string{
	"microservices",
	"reliability",
	"api-design",
	"scaling",
	"infra",
	"ai-engineering",
	"llm",
	"rag",
	"vector-search",
	"evaluation",
	"prompt-engineering",
	"devops",
	"databases",
	"caching",
	"observability",
	"testing",
	"Backend",
	"Payments",
	"API Design",
	"Distributed Systems",
	"Redis",
	"AI",
	"LLM",
	"RAG",
}

var allowedTagSet = func() map[string]bool {
	set := make(map[string]bool, len(AllowedTags))
	for _, tag := range AllowedTags {
		set[strings.ToLower(tag)] = true
	}
	return set
}()

// IsAllowedTag reports whether tag is in the whitelist
func IsAllowedTag(tag string) bool {
	return allowedTagSet[strings.ToLower(tag)]
}
