package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/nugget-pipeline/internal/apperrors"
	"github.com/nugget-pipeline/internal/models"
)

// MaxTitleLength is the exclusive upper bound on title length, counted in
// UTF-16 code units so that characters outside the BMP count twice
const MaxTitleLength = 80

// Validate checks a decoded seed and returns the first failure as a
// *apperrors.ValidationError, or nil.
func Validate(seed *models.IdeaSeed) error {
	if seed == nil {
		return apperrors.NewValidationError(apperrors.CodeMissingField, "idea", "idea is required", nil)
	}
	if seed.Title == "" {
		return missing("title")
	}
	if seed.Topic == "" {
		return missing("topic")
	}
	if len(seed.Tags) == 0 {
		return apperrors.NewValidationError(apperrors.CodeMissingField, "tags", `Missing or invalid "tags" array`, nil)
	}

	if n := titleLength(seed.Title); n >= MaxTitleLength {
		return apperrors.NewValidationError(apperrors.CodeTitleTooLong, "title",
			fmt.Sprintf("title must be shorter than %d characters, got %d", MaxTitleLength, n), seed.Title)
	}

	for _, tag := range seed.Tags {
		if !IsAllowedTag(tag) {
			return invalidTag(tag)
		}
	}

	if seed.Risk != "" && !models.ValidRisks[seed.Risk] {
		return apperrors.NewValidationError(apperrors.CodeInvalidRisk, "risk",
			"invalid risk, must be one of: low, high", string(seed.Risk))
	}

	return nil
}

// DecodeSeed parses a raw JSON idea, checking field types before decoding so
// that a non-string title or a non-string tag is reported instead of
// silently coerced. The decoded seed is then passed through Validate.
func DecodeSeed(raw []byte) (*models.IdeaSeed, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, apperrors.NewValidationError(apperrors.CodeMissingField, "idea", "idea must be a JSON object", nil)
	}

	seed := &models.IdeaSeed{}

	var ok bool
	if seed.Title, ok = stringField(fields, "title"); !ok {
		return nil, missing("title")
	}
	if seed.Topic, ok = stringField(fields, "topic"); !ok {
		return nil, missing("topic")
	}

	rawTags, present := fields["tags"]
	var elems []json.RawMessage
	if !present || json.Unmarshal(rawTags, &elems) != nil || len(elems) == 0 {
		return nil, apperrors.NewValidationError(apperrors.CodeMissingField, "tags", `Missing or invalid "tags" array`, nil)
	}
	for _, elem := range elems {
		var tag string
		if err := json.Unmarshal(elem, &tag); err != nil {
			return nil, invalidTag(string(elem))
		}
		seed.Tags = append(seed.Tags, tag)
	}

	for _, name := range []string{"context", "targetAudience", "risk"} {
		v, present := fields[name]
		if !present || isNull(v) {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			if name == "risk" {
				return nil, apperrors.NewValidationError(apperrors.CodeInvalidRisk, "risk",
					"invalid risk, must be one of: low, high", string(v))
			}
			return nil, invalidField(name)
		}
		switch name {
		case "context":
			seed.Context = s
		case "targetAudience":
			seed.TargetAudience = s
		case "risk":
			if s == "" {
				return nil, apperrors.NewValidationError(apperrors.CodeInvalidRisk, "risk",
					"invalid risk, must be one of: low, high", s)
			}
			seed.Risk = models.Risk(s)
		}
	}

	if v, present := fields["codeExample"]; present && !isNull(v) {
		if err := json.Unmarshal(v, &seed.CodeExample); err != nil {
			return nil, invalidField("codeExample")
		}
	}

	if err := Validate(seed); err != nil {
		return nil, err
	}
	return seed, nil
}

func titleLength(title string) int {
	return len(utf16.Encode([]rune(title)))
}

// stringField returns the named field when it is a non-empty JSON string
func stringField(fields map[string]json.RawMessage, name string) (string, bool) {
	v, present := fields[name]
	if !present {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func missing(field string) *apperrors.ValidationError {
	return apperrors.NewValidationError(apperrors.CodeMissingField, field,
		fmt.Sprintf("Missing or invalid %q field", field), nil)
}

func invalidField(field string) *apperrors.ValidationError {
	return apperrors.NewValidationError(apperrors.CodeMissingField, field,
		fmt.Sprintf("invalid field %q", field), nil)
}

func invalidTag(tag string) *apperrors.ValidationError {
	return apperrors.NewValidationError(apperrors.CodeInvalidTag, "tags",
		fmt.Sprintf("invalid tag %q, allowed tags: %s", tag, strings.Join(AllowedTags, ", ")), tag)
}
