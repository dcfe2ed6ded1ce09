package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// toMap round-trips the config through JSON so paths use the JSON field names.
func toMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// GetByPath retrieves a config value by dot-notation path (e.g. "gateway.baseUrl").
// Numeric segments index into lists ("agents.0.id").
func GetByPath(cfg *Config, path string) (any, error) {
	m, err := toMap(cfg)
	if err != nil {
		return nil, err
	}

	var current any = m
	for _, key := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]any:
			val, ok := v[key]
			if !ok {
				return nil, fmt.Errorf("key not found: %s", path)
			}
			current = val
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, fmt.Errorf("invalid array index: %s", key)
			}
			current = v[idx]
		default:
			return nil, fmt.Errorf("cannot traverse into %T at %s", current, key)
		}
	}
	return current, nil
}

// SetByPath sets a config value by dot-notation path. String values are
// coerced to bool or number when they parse as one.
func SetByPath(cfg *Config, path string, value any) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty path")
	}
	m, err := toMap(cfg)
	if err != nil {
		return err
	}

	parts := strings.Split(path, ".")
	var parent any = m
	for _, key := range parts[:len(parts)-1] {
		switch p := parent.(type) {
		case map[string]any:
			child, ok := p[key]
			if !ok {
				child = make(map[string]any)
				p[key] = child
			}
			parent = child
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(p) {
				return fmt.Errorf("invalid array index: %s", key)
			}
			parent = p[idx]
		default:
			return fmt.Errorf("cannot traverse into %T at %s", parent, key)
		}
	}

	last := parts[len(parts)-1]
	switch p := parent.(type) {
	case map[string]any:
		p[last] = parseValue(value)
	case []any:
		idx, err := strconv.Atoi(last)
		if err != nil || idx < 0 || idx >= len(p) {
			return fmt.Errorf("invalid array index: %s", last)
		}
		p[idx] = parseValue(value)
	default:
		return fmt.Errorf("cannot set %s on %T", last, parent)
	}

	newData, err := json.Marshal(m)
	if err != nil {
		return err
	}
	updated := Defaults()
	if err := json.Unmarshal(newData, updated); err != nil {
		return fmt.Errorf("invalid value for %s: %w", path, err)
	}
	*cfg = *updated
	return nil
}

func parseValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// Sanitize returns a copy of the config with secrets masked.
func Sanitize(cfg *Config) *Config {
	data, err := json.Marshal(cfg)
	if err != nil {
		return cfg
	}
	var out Config
	if err := json.Unmarshal(data, &out); err != nil {
		return cfg
	}

	if out.Gateway.Token != "" {
		out.Gateway.Token = maskString(out.Gateway.Token)
	}
	if out.Storage.RedisURL != "" {
		out.Storage.RedisURL = maskURLPassword(out.Storage.RedisURL)
	}
	return &out
}

// maskString shows first 4 and last 4 chars, masks the rest.
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

func maskURLPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// ListPaths returns every leaf config path with its current value.
func ListPaths(cfg *Config) map[string]any {
	m, err := toMap(cfg)
	if err != nil {
		return nil
	}
	result := make(map[string]any)
	flatten("", m, result)
	return result
}

// SortedPaths returns the keys of ListPaths in order.
func SortedPaths(paths map[string]any) []string {
	keys := make([]string, 0, len(paths))
	for k := range paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func flatten(prefix string, v any, result map[string]any) {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			flatten(join(prefix, k), child, result)
		}
	case []any:
		if len(val) == 0 {
			result[prefix] = val
			return
		}
		for i, child := range val {
			flatten(join(prefix, strconv.Itoa(i)), child, result)
		}
	default:
		result[prefix] = val
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
