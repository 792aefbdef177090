package inference

import (
	"regexp"
	"strings"
)

var (
	codeFencePattern    = regexp.MustCompile("\\s*```(?:json)?\\s*")
	trailingObjectComma = regexp.MustCompile(`,\s*}`)
	trailingArrayComma  = regexp.MustCompile(`,\s*]`)
)

// RepairJSON extracts the first JSON object embedded in a model response and fixes the
// formatting problems models commonly produce. The result is not guaranteed to be valid JSON.
func RepairJSON(content string) string {
	content = strings.TrimSpace(codeFencePattern.ReplaceAllString(content, ""))
	content = extractObject(content)
	content = trailingObjectComma.ReplaceAllString(content, "}")
	content = trailingArrayComma.ReplaceAllString(content, "]")
	return content
}

// extractObject returns the first balanced object in content. An object that is cut off
// before its closing braces is closed.
func extractObject(content string) string {
	firstBrace := -1
	braceCount := 0
	inString := false
	escapeNext := false

	for i, ch := range content {
		if escapeNext {
			escapeNext = false
			continue
		}
		if ch == '\\' && inString {
			escapeNext = true
			continue
		}
		if ch == '"' {
			if firstBrace != -1 {
				inString = !inString
			}
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case '{':
			if firstBrace == -1 {
				firstBrace = i
			}
			braceCount++
		case '}':
			if firstBrace == -1 {
				continue
			}
			braceCount--
			if braceCount == 0 {
				return content[firstBrace : i+1]
			}
		}
	}

	if firstBrace == -1 {
		return content
	}
	truncated := strings.TrimSpace(content[firstBrace:])
	if inString {
		truncated += `"`
	}
	return truncated + strings.Repeat("\n}", braceCount)
}
