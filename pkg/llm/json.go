package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// thinkTagPattern matches a <think>...</think> preamble emitted by
// reasoning models.
var thinkTagPattern = regexp.MustCompile(`(?s)^[\s]*<think>.*?</think>[\s]*`)

// ExtractJSON extracts JSON content from an LLM response that may contain
// <think> tags, markdown code blocks, or other formatting.
func ExtractJSON(response string) (string, error) {
	// Strip <think>...</think> tags from the start of the response
	cleaned := thinkTagPattern.ReplaceAllString(response, "")

	// Find the first occurrence of { or [ to determine JSON type
	objStart := strings.IndexByte(cleaned, '{')
	arrStart := strings.IndexByte(cleaned, '[')

	// Try whichever comes first (or the one that exists)
	if objStart >= 0 && (arrStart < 0 || objStart < arrStart) {
		if jsonStr, ok := extractBalancedJSON(cleaned, '{', '}'); ok {
			if json.Valid([]byte(jsonStr)) {
				return jsonStr, nil
			}
		}
	}

	if arrStart >= 0 {
		if jsonStr, ok := extractBalancedJSON(cleaned, '[', ']'); ok {
			if json.Valid([]byte(jsonStr)) {
				return jsonStr, nil
			}
		}
	}

	// Last resort: check if the entire cleaned response is valid JSON
	trimmed := strings.TrimSpace(cleaned)
	if json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	return "", fmt.Errorf("no valid JSON found in response")
}

// extractBalancedJSON finds the first balanced JSON structure starting with openChar.
// It handles nested structures by counting bracket depth.
func extractBalancedJSON(s string, openChar, closeChar byte) (string, bool) {
	// Find the first occurrence of the opening bracket
	start := strings.IndexByte(s, openChar)
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}

		if c == '\\' && inString {
			escaped = true
			continue
		}

		if c == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		if c == openChar {
			depth++
		} else if c == closeChar {
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

// ParseJSONResponse extracts JSON from a response and unmarshals it into the target.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T

	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("unmarshal JSON: %w", err)
	}

	return result, nil
}

// CodeBlock is one fenced block of a response. Lang is the info string
// after the opening fence, lower-cased.
type CodeBlock struct {
	Lang string
	Body string
}

// ExtractCodeBlocks returns the ``` fenced blocks of a response in order,
// ignoring any <think> preamble. An opening fence without a closing one is
// not a block.
func ExtractCodeBlocks(response string) []CodeBlock {
	cleaned := thinkTagPattern.ReplaceAllString(response, "")

	var blocks []CodeBlock
	for {
		open := strings.Index(cleaned, "```")
		if open < 0 {
			break
		}
		rest := cleaned[open+3:]
		end := strings.Index(rest, "```")
		if end < 0 {
			break
		}
		segment := rest[:end]
		cleaned = rest[end+3:]

		var block CodeBlock
		if nl := strings.IndexByte(segment, '\n'); nl >= 0 {
			block.Lang = strings.ToLower(strings.TrimSpace(segment[:nl]))
			block.Body = strings.TrimSpace(segment[nl+1:])
		} else {
			block.Body = strings.TrimSpace(segment)
		}
		blocks = append(blocks, block)
	}
	return blocks
}

// LastCodeBlock returns the final fenced block. An empty final block is
// reported as no block; earlier blocks are never used in its place.
func LastCodeBlock(response string) (CodeBlock, bool) {
	blocks := ExtractCodeBlocks(response)
	if len(blocks) == 0 {
		return CodeBlock{}, false
	}
	last := blocks[len(blocks)-1]
	if last.Body == "" {
		return CodeBlock{}, false
	}
	return last, true
}
