// Package analysis owns the analysis job lifecycle: review selection,
// provider dispatch, response mapping, and progress accounting.
package analysis

import (
	"encoding/json"
	"strings"
)

// Mapped holds the canonical fields extracted from a provider response.
// Nil token pointers and an empty AnalysedReview mean the mapper could not
// extract them; the raw output is always retained.
type Mapped struct {
	AnalysedReview string
	InputTokens    *int64
	OutputTokens   *int64
	TotalTokens    *int64
	AnalysisOutput string
}

// MapResponse maps one raw provider response to canonical fields.
// The raw payload may be a structured completion, a JSON-encoded string, or a
// loosely quoted literal with an embedded object. Mapping never fails: at
// worst the canonical string is the input itself and the rest stays empty.
func MapResponse(providerName, raw string) Mapped {
	switch strings.ToLower(providerName) {
	case "openai", "mock":
		return mapChatCompletion(raw)
	default:
		// No mapper for this provider; keep the raw output only.
		return Mapped{AnalysisOutput: raw}
	}
}

// mapChatCompletion handles chat-completion shaped payloads, including batch
// output lines that nest the completion under response.body.
func mapChatCompletion(raw string) Mapped {
	parsed := parseLoose(raw)
	if parsed == nil {
		return Mapped{AnalysisOutput: raw}
	}

	mapped := Mapped{AnalysisOutput: canonicalize(parsed, raw)}

	if usage, ok := findKey(parsed, "usage").(map[string]interface{}); ok {
		mapped.InputTokens = intValue(usage["prompt_tokens"])
		mapped.OutputTokens = intValue(usage["completion_tokens"])
		if mapped.OutputTokens == nil {
			mapped.OutputTokens = intValue(usage["output_tokens"])
		}
		mapped.TotalTokens = intValue(usage["total_tokens"])
	}

	if choices, ok := findKey(parsed, "choices").([]interface{}); ok && len(choices) > 0 {
		if first, ok := choices[0].(map[string]interface{}); ok {
			if msg, ok := first["message"].(map[string]interface{}); ok {
				if content, ok := msg["content"].(string); ok {
					mapped.AnalysedReview = content
				} else if text, ok := msg["text"].(string); ok {
					mapped.AnalysedReview = text
				}
			}
			if mapped.AnalysedReview == "" {
				if text, ok := first["text"].(string); ok {
					mapped.AnalysedReview = text
				} else if content, ok := first["content"].(string); ok {
					mapped.AnalysedReview = content
				}
			}
		}
	}

	return mapped
}

// parseLoose tries a strict JSON parse, then scans for the first brace that
// opens a decodable object, ignoring any text after it. Returns nil when
// nothing structured can be recovered.
func parseLoose(raw string) interface{} {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(s), &parsed); err == nil {
		// A JSON-encoded string may itself wrap an object
		if inner, ok := parsed.(string); ok {
			if nested := parseLoose(inner); nested != nil {
				return nested
			}
			return parsed
		}
		return parsed
	}

	for start := strings.IndexByte(s, '{'); start != -1; start = indexByteFrom(s, '{', start+1) {
		// A decoder stops at the end of the value, so trailing prose
		// after the embedded object does not reject it.
		dec := json.NewDecoder(strings.NewReader(s[start:]))
		var candidate interface{}
		if err := dec.Decode(&candidate); err == nil {
			return candidate
		}
	}
	return nil
}

func indexByteFrom(s string, b byte, from int) int {
	if from >= len(s) {
		return -1
	}
	idx := strings.IndexByte(s[from:], b)
	if idx == -1 {
		return -1
	}
	return from + idx
}

// canonicalize renders the parsed value back to a stable string: strings pass
// through, everything else is serialized.
func canonicalize(parsed interface{}, raw string) string {
	if s, ok := parsed.(string); ok {
		return s
	}
	data, err := json.Marshal(parsed)
	if err != nil {
		return raw
	}
	return string(data)
}

// findKey searches nested maps and lists for the first occurrence of key.
func findKey(obj interface{}, key string) interface{} {
	switch v := obj.(type) {
	case map[string]interface{}:
		if val, ok := v[key]; ok {
			return val
		}
		for _, nested := range v {
			if res := findKey(nested, key); res != nil {
				return res
			}
		}
	case []interface{}:
		for _, item := range v {
			if res := findKey(item, key); res != nil {
				return res
			}
		}
	}
	return nil
}

// intValue converts a decoded JSON number to *int64, nil when absent or
// not numeric.
func intValue(v interface{}) *int64 {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	n := int64(f)
	return &n
}
