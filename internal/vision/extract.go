package vision

import (
	"encoding/json"
	"regexp"
	"strings"
)

// arrayPattern matches the first bracketed array in the text, greedily and
// across newlines, so chatty model output around the JSON does not matter.
var arrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// ExtractDetections recovers a detection list from arbitrary model output.
// It never fails: each strategy is tried in order and the first that parses
// wins, falling back to a single sentinel detection describing the failure.
//
//  1. Parse the whole text as JSON.
//  2. Strip markdown code fences and parse again.
//  3. Parse the first bracketed array found anywhere in the text.
func ExtractDetections(raw string) []Detection {
	if d, ok := tryParse(raw); ok {
		return d
	}

	stripped := strings.TrimSpace(raw)
	stripped = strings.TrimPrefix(stripped, "```json")
	stripped = strings.TrimPrefix(stripped, "```")
	stripped = strings.TrimSuffix(stripped, "```")
	stripped = strings.TrimSpace(stripped)
	if d, ok := tryParse(stripped); ok {
		return d
	}

	if match := arrayPattern.FindString(raw); match != "" {
		if d, ok := tryParse(match); ok {
			return d
		}
	}

	return []Detection{{Label: "Error parsing objects", Confidence: 0}}
}

func tryParse(s string) ([]Detection, bool) {
	var detections []Detection
	if err := json.Unmarshal([]byte(s), &detections); err != nil || detections == nil {
		return nil, false
	}
	return detections, true
}
