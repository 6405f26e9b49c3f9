// Package llmx extracts structured payloads from free-form model output.
// Models are asked for pure JSON but routinely wrap it in prose or markdown
// fences; the scanner here pulls out the first balanced object and nothing
// else. No repair is attempted beyond extraction.
package llmx

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrNoJSON = errors.New("no parseable JSON object in response")

// ExtractJSON returns the first balanced top-level {...} in text, validated
// by encoding/json. Braces inside string literals are ignored.
func ExtractJSON(text string) (json.RawMessage, error) {
	text = stripFences(text)

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, ErrNoJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := text[start : i+1]
				if !json.Valid([]byte(candidate)) {
					return nil, ErrNoJSON
				}
				return json.RawMessage(candidate), nil
			}
		}
	}
	return nil, ErrNoJSON
}

// ExtractInto decodes the first balanced object into v.
func ExtractInto(text string, v interface{}) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// RequireKeys reports the required top-level keys missing from raw. A nil
// result means the payload satisfies the shape contract.
func RequireKeys(raw json.RawMessage, required []string) []string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return required
	}
	var missing []string
	for _, key := range required {
		if _, ok := obj[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
