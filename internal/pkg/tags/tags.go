// Package tags parses and normalises the tag lists attached to posts and
// user interests.
package tags

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/go-api-community/internal/domain"
)

const (
	MaxTags   = 20
	MaxLength = 50
)

// Parse decodes a tags field sent as a string holding a JSON array,
// e.g. `["go","rust"]`. The result is normalised.
func Parse(raw string) ([]string, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("invalid JSON format for tags: %w", domain.ErrBadRequest)
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("tags must be a valid JSON array: %w", domain.ErrBadRequest)
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("tags must contain only strings: %w", domain.ErrBadRequest)
		}
		out = append(out, s)
	}
	return Normalize(out)
}

// FromRaw accepts either a JSON array or a JSON string that itself holds a
// JSON array. Empty input yields an empty list.
func FromRaw(raw []byte) ([]string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []string{}, nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
			return nil, fmt.Errorf("invalid JSON format for tags: %w", domain.ErrBadRequest)
		}
		if strings.TrimSpace(s) == "" {
			return []string{}, nil
		}
		return Parse(s)
	}
	return Parse(trimmed)
}

// Normalize lowercases and trims each tag, dropping blanks and duplicates
// while keeping first-seen order.
func Normalize(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if len(t) > MaxLength {
			return nil, fmt.Errorf("tag %q exceeds %d characters: %w", t, MaxLength, domain.ErrBadRequest)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) > MaxTags {
		return nil, fmt.Errorf("at most %d tags allowed: %w", MaxTags, domain.ErrBadRequest)
	}
	return out, nil
}
