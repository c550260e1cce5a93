package ai

import (
	"encoding/json"
	"errors"
	"strings"
)

// ExtractJSON pulls the single JSON object out of a model reply. The service
// is asked for pure JSON but routinely wraps it in code fences or
// commentary; anything around the outermost object is discarded. When no
// valid object can be found the caller gets an explicit error, never a
// coerced value.
func ExtractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	if start < 0 {
		return "", errors.New("no JSON object in output")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				candidate := s[start : i+1]
				if !json.Valid([]byte(candidate)) {
					return "", errors.New("extracted object is not valid JSON")
				}
				return candidate, nil
			}
		}
	}
	return "", errors.New("unterminated JSON object in output")
}
