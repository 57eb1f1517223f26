package tools

import (
	"encoding/json"
	"math"
	"strings"
)

// Args are the decoded arguments of a tool call.
type Args map[string]any

// ParseArgs decodes a JSON argument object. Empty input is an empty object.
func ParseArgs(tool, raw string) (Args, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Args{}, nil
	}
	var args Args
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, invalid(tool, "", "arguments are not a JSON object: %v", err)
	}
	if args == nil {
		args = Args{}
	}
	return args, nil
}

// Number returns a numeric argument, or def when absent.
func (a Args) Number(tool, name string, def float64) (float64, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, invalid(tool, name, "must be a finite number")
		}
		return n, nil
	case int:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, invalid(tool, name, "must be a number")
		}
		return f, nil
	default:
		return 0, invalid(tool, name, "must be a number, got %T", v)
	}
}

// Range returns a numeric argument within [lo, hi].
func (a Args) Range(tool, name string, def, lo, hi float64) (float64, error) {
	n, err := a.Number(tool, name, def)
	if err != nil {
		return 0, err
	}
	if n < lo || n > hi {
		return 0, invalid(tool, name, "must be between %g and %g, got %g", lo, hi, n)
	}
	return n, nil
}

// String returns a trimmed string argument, or "" when absent.
func (a Args) String(tool, name string) (string, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", invalid(tool, name, "must be a string, got %T", v)
	}
	return strings.TrimSpace(s), nil
}

// Required returns a non-empty string argument.
func (a Args) Required(tool, name string) (string, error) {
	s, err := a.String(tool, name)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", invalid(tool, name, "is required")
	}
	return s, nil
}

// OneOf returns a string argument that must be one of allowed.
func (a Args) OneOf(tool, name string, allowed []string) (string, error) {
	s, err := a.Required(tool, name)
	if err != nil {
		return "", err
	}
	s = strings.ToLower(s)
	for _, v := range allowed {
		if v == s {
			return s, nil
		}
	}
	return "", invalid(tool, name, "must be one of %s, got %q", strings.Join(allowed, ", "), s)
}

// Object returns a nested object argument, or an empty one when absent.
func (a Args) Object(tool, name string) (Args, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return Args{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, invalid(tool, name, "must be an object, got %T", v)
	}
	return Args(m), nil
}
