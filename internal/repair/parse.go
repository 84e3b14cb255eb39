package repair

import (
	"encoding/json"
	"strings"

	"github.com/ledgerlens/bill-extractor/internal/schema"
)

// noObjectViolation is reported when the model response carries no decodable
// JSON at all. Its wording is repeated verbatim in the corrective prompt.
func noObjectViolation() schema.Violation {
	return schema.Violation{
		Field:    "response",
		Expected: "a single JSON object",
		Actual:   "no JSON object found in response",
	}
}

// ParseObject decodes raw model text as a single JSON object. Models that wrap
// the payload in prose or markdown code fences are tolerated by extracting the
// first balanced top-level object found in the text.
func ParseObject(text string) (map[string]any, *schema.Violation) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	obj, ok := firstBalancedObject(text)
	if !ok {
		v := noObjectViolation()
		return nil, &v
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(obj), &m); err != nil {
		v := schema.Violation{
			Field:    "response",
			Expected: "valid JSON",
			Actual:   "undecodable object: " + err.Error(),
		}
		return nil, &v
	}
	return m, nil
}

// firstBalancedObject scans for the first '{' and returns the substring up to
// its matching '}', respecting string literals and escapes.
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
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
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
