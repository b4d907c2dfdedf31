package agent

import "math"

// StringArg returns args[key] if it is a string, otherwise "".
func StringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// IntArg returns args[key] as an int, or def if it is missing or not a
// whole number.
func IntArg(args map[string]any, key string, def int) int {
	n, ok := toFloat(args[key])
	if !ok || math.Trunc(n) != n {
		return def
	}
	return int(n)
}

// BoolArg returns args[key] if it is a bool, otherwise def.
func BoolArg(args map[string]any, key string, def bool) bool {
	if b, ok := args[key].(bool); ok {
		return b
	}
	return def
}
