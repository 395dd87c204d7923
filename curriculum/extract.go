package curriculum

import (
	"strings"

	"github.com/emberloop/ember/domain"
)

// extractJSON pulls the JSON object out of a model response that may wrap it
// in prose or fenced code blocks. It returns the substring between the first
// '{' and the last '}' after fence stripping.
func extractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = stripFences(s)

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", domain.NewError(domain.KindValidation, "response contains no JSON object")
	}
	return s[start : end+1], nil
}

// stripFences removes markdown code fences, keeping only the fenced body
// when one is present.
func stripFences(s string) string {
	open := strings.Index(s, "```")
	if open < 0 {
		return s
	}
	body := s[open+3:]
	// Drop an optional language tag on the fence line.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		first := strings.TrimSpace(body[:nl])
		if first == "" || isLanguageTag(first) {
			body = body[nl+1:]
		}
	}
	if closing := strings.Index(body, "```"); closing >= 0 {
		body = body[:closing]
	}
	return strings.TrimSpace(body)
}

func isLanguageTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return len(s) <= 16
}
