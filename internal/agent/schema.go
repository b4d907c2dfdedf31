package agent

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
)

// ValidateArguments checks args against the tool's input schema and returns
// a copy with schema defaults filled in for missing optional properties.
//
// Required properties, JSON types, enums and numeric bounds are enforced.
// Properties the schema does not declare are passed through untouched.
func ValidateArguments(tool mcp.Tool, args map[string]any) (map[string]any, error) {
	out := maps.Clone(args)
	if out == nil {
		out = make(map[string]any)
	}

	schema := tool.InputSchema
	for _, name := range schema.Required {
		if v, ok := out[name]; !ok || v == nil {
			return nil, &ToolArgumentError{Tool: tool.Name, Argument: name, Reason: "is required"}
		}
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop, ok := schema.Properties[name].(map[string]any)
		if !ok {
			continue
		}
		value, present := out[name]
		if !present || value == nil {
			if def, ok := prop["default"]; ok {
				out[name] = def
			}
			continue
		}
		if err := validateProperty(prop, value); err != nil {
			return nil, &ToolArgumentError{Tool: tool.Name, Argument: name, Reason: err.Error()}
		}
	}

	return out, nil
}

func validateProperty(prop map[string]any, value any) error {
	if expected, ok := prop["type"].(string); ok {
		if err := validateType(value, expected); err != nil {
			return err
		}
	}

	if enum := enumValues(prop["enum"]); len(enum) > 0 {
		s, ok := value.(string)
		if !ok || !slices.Contains(enum, s) {
			return fmt.Errorf("must be one of %v", enum)
		}
	}

	if n, ok := toFloat(value); ok {
		if minimum, ok := toFloat(prop["minimum"]); ok && n < minimum {
			return fmt.Errorf("must be >= %v", minimum)
		}
		if maximum, ok := toFloat(prop["maximum"]); ok && n > maximum {
			return fmt.Errorf("must be <= %v", maximum)
		}
	}

	return nil
}

func validateType(value any, expected string) error {
	switch expected {
	case "string":
		if _, ok := value.(string); ok {
			return nil
		}
	case "number":
		if _, ok := toFloat(value); ok {
			return nil
		}
	case "integer":
		if n, ok := toFloat(value); ok && math.Trunc(n) == n {
			return nil
		}
	case "boolean":
		if _, ok := value.(bool); ok {
			return nil
		}
	case "object":
		if _, ok := value.(map[string]any); ok {
			return nil
		}
	case "array":
		if _, ok := value.([]any); ok {
			return nil
		}
		if _, ok := value.([]string); ok {
			return nil
		}
	default:
		return nil
	}
	return fmt.Errorf("expected %s but got %s", expected, jsonTypeName(value))
}

func enumValues(v any) []string {
	switch e := v.(type) {
	case []string:
		return e
	case []any:
		out := make([]string, 0, len(e))
		for _, item := range e {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case nil:
		return "null"
	}
	if _, ok := toFloat(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
