package tool

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// callPattern matches embedded tool calls of the form
//
//	[[name(arg1=val1,arg2=val2)]]
//
// The grammar is intentionally narrow: an identifier name and a flat key=value
// argument list without nesting or escaping. Do not widen it without
// re-specifying quoting rules.
var callPattern = regexp.MustCompile(`\[\[([a-zA-Z_][a-zA-Z0-9_]*)\(([^()]*)\)\]\]`)

// ProcessResponse resolves every embedded tool call found in raw backend
// output, left-to-right, replacing each matched span with either the
// serialized tool result, an "Error executing tool" message carrying the
// failure's user-facing text, or a "not found" message listing the registered
// tool names. Failures never abort processing: the remaining matches are still
// resolved independently.
func (r *Registry) ProcessResponse(raw, sessionID string) string {
	return callPattern.ReplaceAllStringFunc(raw, func(match string) string {
		groups := callPattern.FindStringSubmatch(match)
		name, argList := groups[1], groups[2]

		if !r.Has(name) {
			r.logger.Warn("tool.process.unknown", "tool", name, "session_id", sessionID)
			return fmt.Sprintf("[Tool %q not found. Available tools: %s]", name, strings.Join(r.Names(), ", "))
		}

		params := parseArguments(argList)
		result := r.Execute(name, params)
		if !result.Success {
			return fmt.Sprintf("Error executing tool %s: %s", name, result.Error)
		}
		return serializeResult(result.Data)
	})
}

// parseArguments splits a flat key=value list, coercing each value:
// true/false to bool, numeric strings to float64, quoted or bare strings
// otherwise (surrounding quotes stripped).
func parseArguments(argList string) map[string]any {
	params := make(map[string]any)
	for _, pair := range strings.Split(argList, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		params[strings.TrimSpace(key)] = coerceValue(strings.TrimSpace(value))
	}
	return params
}

func coerceValue(value string) any {
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'') {
			return value[1 : len(value)-1]
		}
	}
	switch value {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return n
	}
	return value
}

// serializeResult renders a tool result for textual substitution: scalars
// as-is, structured values as compact JSON.
func serializeResult(data any) string {
	switch v := data.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool, int, int32, int64, float32, float64:
		return fmt.Sprintf("%v", v)
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(encoded)
}
