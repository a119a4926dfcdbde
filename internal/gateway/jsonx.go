package gateway

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSON pulls the JSON payload out of a reasoning-service reply that
// may be wrapped in prose or a fenced code block. It tries, in order:
// a direct parse, fenced-block extraction, then brace matching. The second
// return value is false when no parseable payload was found.
func ExtractJSON(text string) ([]byte, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}

	if json.Valid([]byte(trimmed)) {
		return []byte(trimmed), true
	}

	for _, match := range fencedBlockRe.FindAllStringSubmatch(trimmed, -1) {
		candidate := strings.TrimSpace(match[1])
		if json.Valid([]byte(candidate)) {
			return []byte(candidate), true
		}
	}

	if candidate, ok := matchBraces(trimmed); ok {
		return candidate, true
	}

	return nil, false
}

// matchBraces scans for the first balanced {...} or [...] span, skipping
// string literals and escapes.
func matchBraces(text string) ([]byte, bool) {
	start := -1
	var open, closing rune
	for i, r := range text {
		if r == '{' || r == '[' {
			start = i
			open = r
			if r == '{' {
				closing = '}'
			} else {
				closing = ']'
			}
			break
		}
	}
	if start < 0 {
		return nil, false
	}

	depth := 0
	inString := false
	escaped := false
	for i, r := range text[start:] {
		if escaped {
			escaped = false
			continue
		}
		switch {
		case r == '\\' && inString:
			escaped = true
		case r == '"':
			inString = !inString
		case inString:
		case r == open:
			depth++
		case r == closing:
			depth--
			if depth == 0 {
				candidate := text[start : start+i+1]
				if json.Valid([]byte(candidate)) {
					return []byte(candidate), true
				}
				return nil, false
			}
		}
	}
	return nil, false
}
