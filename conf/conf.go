// Package conf models the structured configuration overlays handed to
// the external cluster tool: a recursive value tree (null, bool, int,
// float, string, list, string-keyed map) isomorphic to a YAML document.
//
// Trees convert to and from YAML losslessly, except that a float whose
// rendering carries no decimal point (e.g. 3.0) re-decodes as an int.
// Flatten renders a lossy single-line diagnostic form.
package conf

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind discriminates the variants of a Value.
type Kind uint8

// Value kinds, in YAML document order of likelihood.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
)

// Value is one node of a configuration tree. The zero Value is null.
//
// Values are immutable once constructed; sharing a Value between trees
// is safe.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	list []Value
	m    map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating-point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// List returns a list value with the given elements, in order.
func List(items ...Value) Value {
	return Value{kind: KindList, list: items}
}

// Map returns a map value. The map is used as given; callers must not
// mutate it afterwards.
func Map(m map[string]Value) Value {
	return Value{kind: KindMap, m: m}
}

// Kind returns the variant of v.
func (v Value) Kind() Kind { return v.kind }

// Equal reports structural equality of two trees. Lists compare
// element-wise in order; maps compare by key set and per-key value.
func (v Value) Equal(w Value) bool {
	if v.kind != w.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == w.b
	case KindInt:
		return v.i == w.i
	case KindFloat:
		return v.f == w.f
	case KindString:
		return v.s == w.s
	case KindList:
		if len(v.list) != len(w.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(w.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(w.m) {
			return false
		}
		for k, vv := range v.m {
			wv, ok := w.m[k]
			if !ok || !vv.Equal(wv) {
				return false
			}
		}
		return true
	}
	return false
}

// FromYAML parses a YAML document into a tree.
func FromYAML(data []byte) (Value, error) {
	var v Value
	if err := yaml.Unmarshal(data, &v); err != nil {
		return Value{}, fmt.Errorf("parse configuration YAML: %w", err)
	}
	return v, nil
}

// ToYAML renders a tree as a YAML document.
func ToYAML(v Value) ([]byte, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("render configuration YAML: %w", err)
	}
	return data, nil
}

// MarshalYAML implements yaml.Marshaler.
func (v Value) MarshalYAML() (any, error) {
	switch v.kind {
	case KindNull:
		return nil, nil
	case KindBool:
		return v.b, nil
	case KindInt:
		return v.i, nil
	case KindFloat:
		return v.f, nil
	case KindString:
		return v.s, nil
	case KindList:
		return v.list, nil
	case KindMap:
		return v.m, nil
	}
	return nil, fmt.Errorf("unknown configuration value kind %d", v.kind)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			*v = Null()
			return nil
		}
		return v.UnmarshalYAML(node.Content[0])
	case yaml.AliasNode:
		return v.UnmarshalYAML(node.Alias)
	case yaml.ScalarNode:
		return v.unmarshalScalar(node)
	case yaml.SequenceNode:
		var list []Value
		if err := node.Decode(&list); err != nil {
			return err
		}
		*v = List(list...)
		return nil
	case yaml.MappingNode:
		var m map[string]Value
		if err := node.Decode(&m); err != nil {
			return err
		}
		if m == nil {
			m = map[string]Value{}
		}
		*v = Map(m)
		return nil
	}
	return fmt.Errorf("unsupported YAML node kind %d at line %d", node.Kind, node.Line)
}

func (v *Value) unmarshalScalar(node *yaml.Node) error {
	switch node.Tag {
	case "!!null":
		*v = Null()
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*v = Bool(b)
	case "!!int":
		var i int64
		if err := node.Decode(&i); err != nil {
			return err
		}
		*v = Int(i)
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*v = Float(f)
	case "!!str":
		*v = String(node.Value)
	default:
		// Timestamps, binary and other exotic scalars carry their
		// source text.
		*v = String(node.Value)
	}
	return nil
}

// Flatten renders a map-rooted tree on a single line: nested keys
// joined by ".", each leaf as "key:value", entries space-separated,
// keys sorted lexicographically at every level. Lists render their
// elements' debug representations inside brackets, which loses the
// elements' own structure — Flatten is diagnostic output, not a
// round-trip format. A non-map root flattens to the empty string.
func (v Value) Flatten() string {
	var out []string
	if v.kind == KindMap {
		flattenMap(v.m, "", &out)
	}
	return strings.Join(out, " ")
}

func flattenMap(m map[string]Value, prefix string, out *[]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := m[key]
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		switch value.kind {
		case KindMap:
			flattenMap(value.m, full, out)
		case KindList:
			items := make([]string, len(value.list))
			for i, item := range value.list {
				items[i] = item.debugString()
			}
			*out = append(*out, full+":["+strings.Join(items, ", ")+"]")
		default:
			*out = append(*out, full+":"+value.scalarString())
		}
	}
}

// scalarString renders a scalar leaf for Flatten.
func (v Value) scalarString() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	}
	return ""
}

// debugString renders a value the way list elements appear in Flatten
// output: the variant name wrapping the payload.
func (v Value) debugString() string {
	switch v.kind {
	case KindNull:
		return "Null"
	case KindBool:
		return fmt.Sprintf("Bool(%t)", v.b)
	case KindInt:
		return fmt.Sprintf("Int(%d)", v.i)
	case KindFloat:
		return fmt.Sprintf("Float(%s)", strconv.FormatFloat(v.f, 'g', -1, 64))
	case KindString:
		return fmt.Sprintf("String(%q)", v.s)
	case KindList:
		items := make([]string, len(v.list))
		for i, item := range v.list {
			items[i] = item.debugString()
		}
		return "List([" + strings.Join(items, ", ") + "])"
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]string, len(keys))
		for i, k := range keys {
			items[i] = fmt.Sprintf("%q: %s", k, v.m[k].debugString())
		}
		return "Map({" + strings.Join(items, ", ") + "})"
	}
	return ""
}
