package registry

import (
	"strconv"

	"github.com/wudi/preflight/compliance"
)

// allowed rejects keys outside the given set.
func (a Args) allowed(rule string, keys ...string) error {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	for k := range a {
		if !set[k] {
			return compliance.Configf(rule, "unexpected argument %q", k)
		}
	}
	return nil
}

// Strings returns a list of strings. A single string is a list of one.
func (a Args) Strings(rule, key string) ([]string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []string:
		return append([]string(nil), t...), nil
	case []any:
		out := make([]string, 0, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, compliance.Configf(rule, "%s[%d] must be a string, got %T", key, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, compliance.Configf(rule, "%s must be a list of strings, got %T", key, v)
}

// Float returns a number. Numeric strings are accepted so that versions
// can be written as "1.4".
func (a Args) Float(rule, key string) (float64, bool, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch t := v.(type) {
	case int:
		return float64(t), true, nil
	case int64:
		return float64(t), true, nil
	case uint64:
		return float64(t), true, nil
	case float64:
		return t, true, nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false, &compliance.ConfigError{Rule: rule, Msg: key, Err: err}
		}
		return f, true, nil
	}
	return 0, false, compliance.Configf(rule, "%s must be a number, got %T", key, v)
}

// Int returns an integer argument.
func (a Args) Int(rule, key string) (int, bool, error) {
	f, ok, err := a.Float(rule, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	if f != float64(int(f)) {
		return 0, false, compliance.Configf(rule, "%s must be an integer, got %v", key, f)
	}
	return int(f), true, nil
}

// Ints returns a list of integers.
func (a Args) Ints(rule, key string) ([]int, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		if ints, ok := v.([]int); ok {
			return append([]int(nil), ints...), nil
		}
		return nil, compliance.Configf(rule, "%s must be a list of integers, got %T", key, v)
	}
	out := make([]int, 0, len(list))
	for i, item := range list {
		n, ok, err := Args{"v": item}.Int(rule, "v")
		if err != nil || !ok {
			return nil, compliance.Configf(rule, "%s[%d] must be an integer", key, i)
		}
		out = append(out, n)
	}
	return out, nil
}

// StringMap returns a mapping of string to string.
func (a Args) StringMap(rule, key string) (map[string]string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out, nil
	case map[string]any:
		out := make(map[string]string, len(t))
		for k, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, compliance.Configf(rule, "%s.%s must be a string, got %T", key, k, item)
			}
			out[k] = s
		}
		return out, nil
	}
	return nil, compliance.Configf(rule, "%s must be a mapping, got %T", key, v)
}

// String returns a string argument.
func (a Args) String(rule, key string) (string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", compliance.Configf(rule, "%s must be a string, got %T", key, v)
	}
	return s, nil
}

// specs decodes a list of {rule, args} entries.
func specs(rule, key string, v any) ([]Spec, error) {
	if list, ok := v.([]Spec); ok {
		return list, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, compliance.Configf(rule, "%s must be a list of rules, got %T", key, v)
	}
	out := make([]Spec, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, compliance.Configf(rule, "%s[%d] must be a mapping, got %T", key, i, item)
		}
		name, _ := m["rule"].(string)
		if name == "" {
			return nil, compliance.Configf(rule, "%s[%d] has no rule name", key, i)
		}
		var args Args
		switch a := m["args"].(type) {
		case nil:
		case map[string]any:
			args = Args(a)
		case Args:
			args = a
		default:
			return nil, compliance.Configf(rule, "%s[%d].args must be a mapping, got %T", key, i, a)
		}
		out = append(out, Spec{Rule: name, Args: args})
	}
	return out, nil
}

