package strategies

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Params is a strategy's configuration block as decoded from YAML or JSON.
type Params map[string]any

// check rejects keys the strategy does not understand.
func (p Params) check(allowed ...string) error {
	var unknown []string
	for k := range p {
		found := false
		for _, a := range allowed {
			if k == a {
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown parameter(s) %s", strings.Join(unknown, ", "))
	}
	return nil
}

// Int returns p[key] as an int, or def when absent.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%s: %v is not an integer", key, v)
	}
	return int(f), nil
}

// Float returns p[key] as a float64, or def when absent.
func (p Params) Float(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("unsupported value %v (%T)", v, v)
	}
}

func positive(name string, v int) error {
	if v <= 0 {
		return fmt.Errorf("%s must be > 0, got %d", name, v)
	}
	return nil
}
