package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON recovers a JSON value from non-strict LLM output. It tries,
// in order: a direct parse of the whole text, the first ```json fenced
// block, and the first balanced {...} span. Chat end-of-turn markers are
// stripped first.
func ExtractJSON(text string) (any, error) {
	text = strings.ReplaceAll(text, "<|im_end|>", "")

	if v, err := parseJSON(text); err == nil {
		return v, nil
	}
	if v, err := extractFenced(text); err == nil {
		return v, nil
	}
	if v, err := extractBalanced(text); err == nil {
		return v, nil
	}
	return nil, fmt.Errorf("no JSON value found in output")
}

func parseJSON(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(text)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// extractFenced parses the body of the first ```json fenced block.
func extractFenced(text string) (any, error) {
	const open = "```json"
	start := strings.Index(text, open)
	if start < 0 {
		return nil, fmt.Errorf("no fenced block")
	}
	body := text[start+len(open):]
	end := strings.Index(body, "```")
	if end < 0 {
		return nil, fmt.Errorf("unterminated fenced block")
	}
	return parseJSON(body[:end])
}

// extractBalanced parses the first balanced top-level {...} span, tracking
// string literals so braces inside strings do not count.
func extractBalanced(text string) (any, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, fmt.Errorf("no object found")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return parseJSON(text[start : i+1])
			}
		}
	}
	return nil, fmt.Errorf("unbalanced object")
}

// walkPath descends into v following a dot-separated key path. Maps only;
// a missing key or non-object intermediate is an error.
func walkPath(v any, path string) (any, error) {
	if path == "" {
		return v, nil
	}
	for _, key := range strings.Split(path, ".") {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("json path %q: %T is not an object", path, v)
		}
		v, ok = obj[key]
		if !ok {
			return nil, fmt.Errorf("json path %q: key %q not found", path, key)
		}
	}
	return v, nil
}
