// Package response turns untrusted model output into validated records.
// Nothing in this package returns a parse error to its callers: malformed
// output degrades to an empty or partial result that keeps the raw text.
package response

import (
	"encoding/json"
	"strings"
)

// Container is the JSON container shape a structured prompt expects.
type Container int

const (
	Array Container = iota
	Object
)

func (c Container) brackets() (byte, byte) {
	if c == Object {
		return '{', '}'
	}
	return '[', ']'
}

// Slice locates the outermost bracket pair of the given container in raw
// and returns the enclosed substring, brackets included. Models often wrap
// JSON in prose or markdown fences, so the first opening bracket is matched
// against its balancing close (ignoring brackets inside JSON strings). When
// no balanced close exists the slice runs to the last closing bracket.
func Slice(raw string, c Container) (string, bool) {
	open, closing := c.brackets()

	start := strings.IndexByte(raw, open)
	if start < 0 {
		return "", false
	}

	if end := matchBracket(raw, start, open, closing); end > start {
		return raw[start : end+1], true
	}

	end := strings.LastIndexByte(raw, closing)
	if end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// matchBracket returns the index of the bracket closing raw[start], or -1.
func matchBracket(raw string, start int, open, closing byte) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		ch := raw[i]
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
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// decode slices raw for the container and strictly unmarshals it into v.
func decode(raw string, c Container, v any) bool {
	sliced, ok := Slice(raw, c)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(sliced), v) == nil
}

// rawItems finds a list of JSON items in raw. A bare array wins; otherwise
// an object carrying one of the given list keys is accepted.
func rawItems(raw string, keys ...string) ([]json.RawMessage, bool) {
	var items []json.RawMessage
	if decode(raw, Array, &items) {
		return items, true
	}

	var obj map[string]json.RawMessage
	if !decode(raw, Object, &obj) {
		return nil, false
	}
	for _, key := range keys {
		list, ok := obj[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(list, &items); err == nil {
			return items, true
		}
	}
	return nil, false
}
