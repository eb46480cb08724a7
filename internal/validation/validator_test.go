package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/nugget-pipeline/internal/apperrors"
	"github.com/nugget-pipeline/internal/models"
)

func validSeed() *models.IdeaSeed {
	return &models.IdeaSeed{
		Title: "Cache Invalidation Patterns",
		Topic: "Strategies for keeping caches consistent with their source of truth",
		Tags:  []string{"caching", "Distributed Systems"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(s *models.IdeaSeed)
		wantCode apperrors.ValidationCode
	}{
		{
			name:   "valid seed",
			mutate: func(s *models.IdeaSeed) {},
		},
		{
			name:   "valid seed with optional fields",
			mutate: func(s *models.IdeaSeed) { s.Context = "ctx"; s.TargetAudience = "backend engineers"; s.CodeExample = true; s.Risk = models.RiskHigh },
		},
		{
			name:   "tags are case-insensitive",
			mutate: func(s *models.IdeaSeed) { s.Tags = []string{"REDIS", "api design", "Llm"} },
		},
		{
			name:     "missing title",
			mutate:   func(s *models.IdeaSeed) { s.Title = "" },
			wantCode: apperrors.CodeMissingField,
		},
		{
			name:     "missing topic",
			mutate:   func(s *models.IdeaSeed) { s.Topic = "" },
			wantCode: apperrors.CodeMissingField,
		},
		{
			name:     "empty tags",
			mutate:   func(s *models.IdeaSeed) { s.Tags = []string{} },
			wantCode: apperrors.CodeMissingField,
		},
		{
			name:   "79 character title",
			mutate: func(s *models.IdeaSeed) { s.Title = strings.Repeat("a", 79) },
		},
		{
			name:     "80 character title",
			mutate:   func(s *models.IdeaSeed) { s.Title = strings.Repeat("a", 80) },
			wantCode: apperrors.CodeTitleTooLong,
		},
		{
			name:   "79 accented characters",
			mutate: func(s *models.IdeaSeed) { s.Title = strings.Repeat("é", 79) },
		},
		{
			name:     "40 emoji count as 80 code units",
			mutate:   func(s *models.IdeaSeed) { s.Title = strings.Repeat("🚀", 40) },
			wantCode: apperrors.CodeTitleTooLong,
		},
		{
			name:   "39 emoji and a letter",
			mutate: func(s *models.IdeaSeed) { s.Title = strings.Repeat("🚀", 39) + "a" },
		},
		{
			name:     "unknown tag",
			mutate:   func(s *models.IdeaSeed) { s.Tags = []string{"caching", "kubernetes"} },
			wantCode: apperrors.CodeInvalidTag,
		},
		{
			name:     "invalid risk",
			mutate:   func(s *models.IdeaSeed) { s.Risk = "medium" },
			wantCode: apperrors.CodeInvalidRisk,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed := validSeed()
			tt.mutate(seed)

			err := Validate(seed)
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}

			var ve *apperrors.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if ve.Code != tt.wantCode {
				t.Errorf("Expected code %s, got %s", tt.wantCode, ve.Code)
			}
		})
	}
}

func TestValidate_NoMutation(t *testing.T) {
	seed := validSeed()
	seed.Tags = []string{"CACHING"}

	if err := Validate(seed); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if seed.Tags[0] != "CACHING" {
		t.Errorf("Expected tags to be left untouched, got %v", seed.Tags)
	}
	if seed.Risk != "" {
		t.Errorf("Expected risk to stay unset, got %q", seed.Risk)
	}
}

func TestDecodeSeed(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCode  apperrors.ValidationCode
		wantField string
	}{
		{
			name: "valid body",
			body: `{"title":"Idempotent Consumers","topic":"Exactly-once illusions","tags":["reliability"],"codeExample":true,"risk":"low"}`,
		},
		{
			name: "null optionals are ignored",
			body: `{"title":"Idempotent Consumers","topic":"t","tags":["reliability"],"context":null,"codeExample":null}`,
		},
		{
			name:      "not an object",
			body:      `["title"]`,
			wantCode:  apperrors.CodeMissingField,
			wantField: "idea",
		},
		{
			name:      "null body",
			body:      `null`,
			wantCode:  apperrors.CodeMissingField,
			wantField: "idea",
		},
		{
			name:      "non-string title",
			body:      `{"title":42,"topic":"t","tags":["rag"]}`,
			wantCode:  apperrors.CodeMissingField,
			wantField: "title",
		},
		{
			name:      "missing topic",
			body:      `{"title":"x","tags":["rag"]}`,
			wantCode:  apperrors.CodeMissingField,
			wantField: "topic",
		},
		{
			name:      "tags not a list",
			body:      `{"title":"x","topic":"t","tags":"rag"}`,
			wantCode:  apperrors.CodeMissingField,
			wantField: "tags",
		},
		{
			name:      "non-string tag",
			body:      `{"title":"x","topic":"t","tags":["rag",7]}`,
			wantCode:  apperrors.CodeInvalidTag,
			wantField: "tags",
		},
		{
			name:      "wrongly typed context",
			body:      `{"title":"x","topic":"t","tags":["rag"],"context":["a"]}`,
			wantCode:  apperrors.CodeMissingField,
			wantField: "context",
		},
		{
			name:      "wrongly typed codeExample",
			body:      `{"title":"x","topic":"t","tags":["rag"],"codeExample":"yes"}`,
			wantCode:  apperrors.CodeMissingField,
			wantField: "codeExample",
		},
		{
			name:      "numeric risk",
			body:      `{"title":"x","topic":"t","tags":["rag"],"risk":1}`,
			wantCode:  apperrors.CodeInvalidRisk,
			wantField: "risk",
		},
		{
			name:      "empty risk",
			body:      `{"title":"x","topic":"t","tags":["rag"],"risk":""}`,
			wantCode:  apperrors.CodeInvalidRisk,
			wantField: "risk",
		},
		{
			name:      "title too long",
			body:      `{"title":"` + strings.Repeat("b", 90) + `","topic":"t","tags":["rag"]}`,
			wantCode:  apperrors.CodeTitleTooLong,
			wantField: "title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed, err := DecodeSeed([]byte(tt.body))
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				if seed == nil || seed.Title == "" {
					t.Errorf("Expected decoded seed, got %+v", seed)
				}
				return
			}

			if seed != nil {
				t.Errorf("Expected nil seed on error, got %+v", seed)
			}
			var ve *apperrors.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if ve.Code != tt.wantCode {
				t.Errorf("Expected code %s, got %s", tt.wantCode, ve.Code)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Expected field %s, got %s", tt.wantField, ve.Field)
			}
		})
	}
}

func TestDecodeSeed_Fields(t *testing.T) {
	body := `{"title":"RAG Chunking","topic":"Chunk sizes","tags":["rag","LLM"],"context":"c","targetAudience":"ml engineers","codeExample":true,"risk":"high"}`

	seed, err := DecodeSeed([]byte(body))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if seed.Context != "c" || seed.TargetAudience != "ml engineers" {
		t.Errorf("Expected optional strings to be decoded, got %+v", seed)
	}
	if !seed.CodeExample {
		t.Error("Expected codeExample to be true")
	}
	if seed.Risk != models.RiskHigh {
		t.Errorf("Expected risk high, got %s", seed.Risk)
	}
	if len(seed.Tags) != 2 || seed.Tags[1] != "LLM" {
		t.Errorf("Expected tags to keep their case, got %v", seed.Tags)
	}
}

func TestIsAllowedTag(t *testing.T) {
	for _, tag := range AllowedTags {
		if !IsAllowedTag(tag) || !IsAllowedTag(strings.ToUpper(tag)) {
			t.Errorf("Expected %q to be allowed", tag)
		}
	}
	if IsAllowedTag("golang") {
		t.Error("Expected golang to be rejected")
	}
}
