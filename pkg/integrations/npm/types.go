package npm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Dependency is one declared dependency of a package version.
type Dependency struct {
	Name string `json:"name"`
	Spec string `json:"spec"`
}

// Dependencies is an ordered dependency list. It decodes from the registry
// object shape, the legacy "name@spec" list shape and its own canonical
// list-of-objects shape.
type Dependencies []Dependency

// UnmarshalJSON implements json.Unmarshaler.
func (d *Dependencies) UnmarshalJSON(data []byte) error {
	pairs, err := decodePairs(data, splitDependency)
	if err != nil {
		return fmt.Errorf("dependencies: %w", err)
	}
	out := make(Dependencies, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, Dependency{Name: p[0], Spec: p[1]})
	}
	*d = out
	return nil
}

// Engine is one declared runtime constraint, e.g. {node, ">=18"}.
type Engine struct {
	Name       string `json:"name"`
	Constraint string `json:"constraint"`
}

// Engines is an ordered list of runtime constraints.
type Engines []Engine

// UnmarshalJSON implements json.Unmarshaler.
func (e *Engines) UnmarshalJSON(data []byte) error {
	pairs, err := decodePairs(data, splitEngine)
	if err != nil {
		return fmt.Errorf("engines: %w", err)
	}
	out := make(Engines, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, Engine{Name: p[0], Constraint: p[1]})
	}
	*e = out
	return nil
}

// Get returns the constraint declared for the named engine.
func (e Engines) Get(name string) (string, bool) {
	for _, eng := range e {
		if eng.Name == name {
			return eng.Constraint, true
		}
	}
	return "", false
}

// decodePairs reads an object, a list of strings, or a list of two-field
// objects into ordered (key, value) pairs. null yields no pairs.
func decodePairs(data []byte, split func(string) (string, string)) ([][2]string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	switch data[0] {
	case '{':
		return decodeOrderedObject(data)
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		pairs := make([][2]string, 0, len(items))
		for _, item := range items {
			p, err := decodeListItem(item, split)
			if err != nil {
				return nil, err
			}
			if p[0] != "" {
				pairs = append(pairs, p)
			}
		}
		return pairs, nil
	default:
		return nil, fmt.Errorf("unsupported shape %.20s", data)
	}
}

func decodeListItem(item json.RawMessage, split func(string) (string, string)) ([2]string, error) {
	var s string
	if err := json.Unmarshal(item, &s); err == nil {
		k, v := split(strings.TrimSpace(s))
		return [2]string{k, v}, nil
	}
	var obj map[string]string
	if err := json.Unmarshal(item, &obj); err != nil {
		return [2]string{}, fmt.Errorf("unsupported list item %.20s", item)
	}
	name := obj["name"]
	value := obj["spec"]
	if value == "" {
		value = obj["constraint"]
	}
	return [2]string{name, value}, nil
}

// decodeOrderedObject walks a JSON object with a token decoder so the
// declaration order survives. Non-string values are rejected.
func decodeOrderedObject(data []byte) ([][2]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var pairs [][2]string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("value of %q is not a string", key)
		}
		pairs = append(pairs, [2]string{key, value})
	}
	return pairs, nil
}

// splitDependency splits "name@spec"; a scoped name keeps its leading "@".
func splitDependency(s string) (string, string) {
	if i := strings.LastIndex(s, "@"); i > 0 {
		return s[:i], s[i+1:]
	}
	return s, "*"
}

// splitEngine splits "node >= 0.8" into ("node", ">= 0.8").
func splitEngine(s string) (string, string) {
	i := strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '-' || r == '_')
	})
	if i < 0 {
		return s, "*"
	}
	return s[:i], strings.TrimSpace(s[i:])
}

// normalizeLicense folds the historic license shapes into one string.
func normalizeLicense(license, licenses json.RawMessage) (string, error) {
	if s, err := licenseValue(license); err != nil || s != "" {
		return s, err
	}
	if len(bytes.TrimSpace(licenses)) == 0 || bytes.Equal(bytes.TrimSpace(licenses), []byte("null")) {
		return "", nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(licenses, &list); err != nil {
		// A single object or string under the plural key.
		return licenseValue(licenses)
	}
	var names []string
	for _, item := range list {
		s, err := licenseValue(item)
		if err != nil {
			return "", err
		}
		if s != "" {
			names = append(names, s)
		}
	}
	if len(names) > 1 {
		return "(" + strings.Join(names, " OR ") + ")", nil
	}
	return strings.Join(names, ""), nil
}

func licenseValue(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var obj struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("license: unsupported shape %.20s", raw)
	}
	if obj.Type != "" {
		return strings.TrimSpace(obj.Type), nil
	}
	return strings.TrimSpace(obj.Name), nil
}

// deprecationNotice reads the "deprecated" field, which is a message string
// or, in some old documents, a boolean.
func deprecationNotice(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var b bool
	if json.Unmarshal(raw, &b) == nil && b {
		return "deprecated"
	}
	return ""
}

// ScopedName maps a public package name into a private scope: "express"
// becomes "@acme/express" and "@types/node" becomes "@acme/types__node".
// An empty scope leaves name unchanged.
func ScopedName(scope, name string) string {
	if scope == "" {
		return name
	}
	if strings.HasPrefix(name, "@") {
		name = strings.Replace(strings.TrimPrefix(name, "@"), "/", "__", 1)
	}
	return scope + "/" + name
}
