package provider

import (
	"encoding/json"
	"fmt"
	"regexp"
)

var (
	fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*([\\[{].*?[\\]}])\\s*```")
	bareJSON   = regexp.MustCompile(`(?s)(\{.*\})`)
)

// ExtractJSON extracts a JSON object from a response that might wrap it in
// markdown code fences or surrounding prose
func ExtractJSON(text string) string {
	if matches := fencedJSON.FindStringSubmatch(text); len(matches) > 1 {
		return matches[1]
	}
	if matches := bareJSON.FindStringSubmatch(text); len(matches) > 1 {
		return matches[1]
	}
	return text
}

// ParseOrderingResponse parses a model's text response into an
// OrderingResponse. Parsing is strict: unparseable output is an error, never
// a partial result.
func ParseOrderingResponse(responseText string) (*OrderingResponse, error) {
	jsonStr := ExtractJSON(responseText)

	var resp OrderingResponse
	if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse ordering JSON: %w", err)
	}

	if len(resp.Entries) == 0 {
		return nil, fmt.Errorf("ordering response contains no entries")
	}

	return &resp, nil
}
