package ai

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/deusflow/curator/internal/article"
)

// ParseClassification extracts the outermost JSON object from raw and
// validates its category and confidence.
func ParseClassification(raw string) (Classification, error) {
	if strings.TrimSpace(raw) == "" {
		return Classification{}, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return Classification{}, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &obj); err != nil {
		return Classification{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	name, ok := obj["category"].(string)
	if !ok {
		return Classification{}, fmt.Errorf("%w: category must be a string", ErrMalformedResponse)
	}
	cat := article.ParseCategory(name)
	if !cat.Official() {
		return Classification{}, fmt.Errorf("%w: invalid category %q", ErrMalformedResponse, strings.TrimSpace(name))
	}

	var conf float64
	switch v := obj["confidence"].(type) {
	case float64:
		conf = v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return Classification{}, fmt.Errorf("%w: invalid confidence %q", ErrMalformedResponse, v)
		}
		conf = f
	default:
		return Classification{}, fmt.Errorf("%w: invalid confidence %v", ErrMalformedResponse, obj["confidence"])
	}
	if conf < 0 || conf > 1 {
		return Classification{}, fmt.Errorf("%w: confidence out of range: %v", ErrMalformedResponse, conf)
	}

	return Classification{Category: cat, Confidence: conf}, nil
}
