package articulation

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when no decodable JSON value of the wanted shape is present.
var ErrNoJSON = errors.New("no JSON value found")

// Parse methods reported by the extractors, in the order they are attempted.
const (
	ParseDirect    = "json"
	ParseMarkdown  = "json_markdown"
	ParseExtracted = "json_extracted"
)

var codeFencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

// ExtractJSONObject decodes the first JSON object found in raw into v.
// Accepts bare JSON, markdown-fenced JSON, or an object embedded in prose.
func ExtractJSONObject(raw string, v interface{}) (string, error) {
	return extract(raw, v, '{', findJSONCandidates)
}

// ExtractJSONArray decodes the first JSON array found in raw into v.
func ExtractJSONArray(raw string, v interface{}) (string, error) {
	return extract(raw, v, '[', findJSONArrayCandidates)
}

func extract(raw string, v interface{}, open byte, scan func(string) []string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty response", ErrNoJSON)
	}

	// 1. Direct JSON
	var firstErr error
	if s[0] == open {
		if err := json.Unmarshal([]byte(s), v); err == nil {
			return ParseDirect, nil
		} else {
			firstErr = err
		}
	}

	// 2. Markdown-wrapped JSON
	for _, m := range codeFencePattern.FindAllStringSubmatch(s, -1) {
		body := strings.TrimSpace(m[1])
		if body == "" || body[0] != open {
			continue
		}
		if err := json.Unmarshal([]byte(body), v); err == nil {
			return ParseMarkdown, nil
		}
	}

	// 3. JSON embedded in mixed content
	for _, cand := range scan(s) {
		if err := json.Unmarshal([]byte(cand), v); err == nil {
			return ParseExtracted, nil
		} else if firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		return "", fmt.Errorf("%w: %v", ErrNoJSON, firstErr)
	}
	return "", fmt.Errorf("%w in %q", ErrNoJSON, preview(s, 80))
}

// preview returns at most n runes of s for error messages.
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
