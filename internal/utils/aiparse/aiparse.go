package aiparse

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON means no JSON object could be located in the model output.
var ErrNoJSON = errors.New("no JSON object found in model output")

// CleanJSONBlock strips markdown code fences the model tends to wrap its
// JSON in.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	return strings.TrimSpace(text)
}

// ExtractObject locates the outermost JSON object in free-form model output
// and unmarshals it into dst. Text before and after the object is ignored.
func ExtractObject(text string, dst interface{}) error {
	text = CleanJSONBlock(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ErrNoJSON
	}

	return json.Unmarshal([]byte(text[start:end+1]), dst)
}

// ClampScore forces a model-supplied score into [0, 100].
func ClampScore(score float64) int32 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int32(score)
}
