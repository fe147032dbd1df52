package judge

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("```(?:json)?\\s*(\\{[\\s\\S]*?\\})\\s*```")

// ExtractObject finds the first JSON object in a free-form reply. It tries the
// whole text, then a fenced code block, then every balanced {...} candidate in
// order of its opening brace.
func ExtractObject(text string) (JSONValue, bool) {
	if value, ok := parseObject(strings.TrimSpace(text)); ok {
		return value, true
	}
	if match := fencedJSON.FindStringSubmatch(text); match != nil {
		if value, ok := parseObject(match[1]); ok {
			return value, true
		}
	}
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end := matchingBrace(text, start); end > start {
			if value, ok := parseObject(text[start : end+1]); ok {
				return value, true
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return JSONValue{}, false
}

func parseObject(text string) (JSONValue, bool) {
	if !strings.HasPrefix(text, "{") {
		return JSONValue{}, false
	}
	var value JSONValue
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return JSONValue{}, false
	}
	return value, value.Kind == JSONObject
}

// matchingBrace returns the index of the brace closing the one at start, or -1.
// Braces inside JSON string literals are ignored.
func matchingBrace(text string, start int) int {
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
				return i
			}
		}
	}
	return -1
}
