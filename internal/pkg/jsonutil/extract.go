// Package jsonutil digs the JSON document out of model prose: fenced code
// blocks, leading chatter and trailing commentary are all tolerated.
package jsonutil

import "strings"

const fence = "```"

// ExtractJSON returns the first balanced JSON object or array found in raw,
// looking inside a code fence first. The boolean is false when raw carries
// no JSON at all.
func ExtractJSON(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if block, ok := fencedBlock(raw); ok {
		if doc, ok := firstDocument(block); ok {
			return doc, true
		}
		// A fence with no brackets is still the model's answer.
		return block, true
	}
	return firstDocument(raw)
}

// fencedBlock returns the body of the first ``` fence, with a language tag
// on the opening line stripped.
func fencedBlock(raw string) (string, bool) {
	open := strings.Index(raw, fence)
	if open == -1 {
		return "", false
	}
	body := raw[open+len(fence):]
	closeIdx := strings.Index(body, fence)
	if closeIdx == -1 {
		return "", false
	}
	body = strings.TrimLeft(body[:closeIdx], "\r\n")
	if nl := strings.Index(body, "\n"); nl != -1 {
		tag := strings.TrimSpace(body[:nl])
		if tag != "" && !strings.ContainsAny(tag, "[{") {
			body = body[nl+1:]
		}
	}
	body = strings.TrimSpace(body)
	return body, body != ""
}

// firstDocument scans for the earliest balanced object or array.
func firstDocument(raw string) (string, bool) {
	objAt := strings.IndexByte(raw, '{')
	arrAt := strings.IndexByte(raw, '[')
	if objAt == -1 && arrAt == -1 {
		return "", false
	}
	if arrAt != -1 && (objAt == -1 || arrAt < objAt) {
		if doc, ok := balanced(raw[arrAt:], '[', ']'); ok {
			return doc, true
		}
		if objAt == -1 {
			return "", false
		}
		return balanced(raw[objAt:], '{', '}')
	}
	if doc, ok := balanced(raw[objAt:], '{', '}'); ok {
		return doc, true
	}
	if arrAt == -1 {
		return "", false
	}
	return balanced(raw[arrAt:], '[', ']')
}

// balanced walks raw, which starts at an opening bracket, counting depth
// while skipping string literals and escape sequences.
func balanced(raw string, open, close byte) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
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
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return strings.TrimSpace(raw[:i+1]), true
			}
		}
	}
	return "", false
}
