// Package jsonutil reads loosely typed JSON produced by generation
// providers.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlexibleStringValue converts a json.RawMessage to a string, handling cases where
// providers return numbers or booleans instead of strings. Numbers keep their
// written form, so 2.0 stays "2.0". Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err == nil {
		switch val := v.(type) {
		case json.Number:
			return val.String()
		case bool:
			return fmt.Sprintf("%t", val)
		}
	}

	// Objects and arrays are returned as written.
	return string(raw)
}

// FlexibleStrings applies FlexibleStringValue to each element and drops
// empty results.
func FlexibleStrings(raws []json.RawMessage) []string {
	out := make([]string, 0, len(raws))
	for _, raw := range raws {
		if s := FlexibleStringValue(raw); s != "" {
			out = append(out, s)
		}
	}
	return out
}
