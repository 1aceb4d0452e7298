package scanning

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// pythonBooleans matches bare True/False literals some models emit
var pythonBooleans = regexp.MustCompile(`\b(True|False)\b`)

// extractJSONObject pulls the JSON object out of a model's text answer
func extractJSONObject(text string) ([]byte, error) {
	// Remove markdown code blocks if present
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	candidate := text[startIdx : endIdx+1]
	if json.Valid([]byte(candidate)) {
		return []byte(candidate), nil
	}

	// Retry with Python-style booleans lowered
	fixed := pythonBooleans.ReplaceAllStringFunc(candidate, strings.ToLower)
	if !json.Valid([]byte(fixed)) {
		return nil, fmt.Errorf("response is not valid JSON")
	}
	return []byte(fixed), nil
}
