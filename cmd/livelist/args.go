package main

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/livelist"
)

// parseValue reads a command-line value as a YAML scalar, so numbers and
// booleans keep their type. Anything YAML rejects stays a string.
func parseValue(s string) any {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil || v == nil {
		return s
	}
	return v
}

// parseAssignments turns key=value arguments into fields.
func parseAssignments(args []string) (livelist.Fields, error) {
	fields := make(livelist.Fields, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("argument %q: want key=value", arg)
		}
		fields[key] = parseValue(value)
	}
	return fields, nil
}

// increment adds by to a numeric field value, keeping integers integral.
// A missing value counts as zero.
func increment(current any, by float64) (any, error) {
	integral := by == math.Trunc(by)
	switch v := current.(type) {
	case nil:
		if integral {
			return int(by), nil
		}
		return by, nil
	case int:
		if integral {
			return v + int(by), nil
		}
		return float64(v) + by, nil
	case int64:
		if integral {
			return v + int64(by), nil
		}
		return float64(v) + by, nil
	case uint64:
		if integral && by >= 0 {
			return v + uint64(by), nil
		}
		return float64(v) + by, nil
	case float64:
		return v + by, nil
	case json.Number:
		if i, err := v.Int64(); err == nil && integral {
			return json.Number(fmt.Sprintf("%d", i+int64(by))), nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", v)
		}
		return json.Number(fmt.Sprintf("%v", f+by)), nil
	default:
		return nil, fmt.Errorf("%v (%T) is not a number", current, current)
	}
}
