package coach

import (
	"encoding/json"
	"strings"
)

// Extract parses the text between the first '{' and the last '}' of raw.
// It reports false when either brace is missing, when they are out of order,
// or when the slice is not valid JSON. Braces inside string values elsewhere
// in raw can shift the slice; that case is not detected.
func Extract(raw string) (any, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, false
	}
	var candidate any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &candidate); err != nil {
		return nil, false
	}
	return candidate, true
}
