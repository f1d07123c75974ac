package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedOutput marks a generation whose text could not be used: no JSON
// object, invalid JSON, or JSON that fails schema validation downstream.
// Callers match it with errors.Is to decide whether to re-run the generation.
var ErrMalformedOutput = errors.New("malformed model output")

// ExtractJSONObject pulls the first {...} block out of model output, tolerating
// code fences and prose around it.
func ExtractJSONObject(text string) (json.RawMessage, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object found: %w", ErrMalformedOutput)
	}
	slice := text[start : end+1]
	if !json.Valid([]byte(slice)) {
		return nil, fmt.Errorf("extracted block is not valid JSON: %w", ErrMalformedOutput)
	}
	return json.RawMessage(slice), nil
}
