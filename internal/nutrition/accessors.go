package nutrition

import (
	"sort"
	"strings"

	"github.com/antonholmquist/jason"
)

// The helpers below are the only way the extractor reads a payload. Each one
// resolves a key path and collapses every failure (missing key, wrong type,
// null) to an absent result.

// valueAt returns the non-null value at the given path.
func valueAt(obj *jason.Object, keys ...string) (*jason.Value, bool) {
	if obj == nil {
		return nil, false
	}
	v, err := obj.GetValue(keys...)
	if err != nil || v == nil || v.Null() == nil {
		return nil, false
	}
	return v, true
}

// objectAt returns the object at the given path.
func objectAt(obj *jason.Object, keys ...string) (*jason.Object, bool) {
	v, ok := valueAt(obj, keys...)
	if !ok {
		return nil, false
	}
	o, err := v.Object()
	if err != nil {
		return nil, false
	}
	return o, true
}

// textAt returns the displayable value at the given path.
func textAt(obj *jason.Object, keys ...string) Text {
	v, ok := valueAt(obj, keys...)
	if !ok {
		return Text{}
	}
	return textOf(v)
}

// textOf renders a scalar as display text. Numbers keep their literal form.
func textOf(v *jason.Value) Text {
	if v == nil {
		return Text{}
	}
	if s, err := v.String(); err == nil {
		return textFrom(s)
	}
	if n, err := v.Number(); err == nil {
		return textFrom(n.String())
	}
	if b, err := v.Boolean(); err == nil {
		if b {
			return textFrom("true")
		}
		return textFrom("false")
	}
	return Text{}
}

func textFrom(s string) Text {
	if strings.TrimSpace(s) == "" {
		return Text{}
	}
	return Text{Value: s, Present: true}
}

// stringsAt returns the displayable elements of the array at the given path.
// A lone scalar is treated as a one-element list.
func stringsAt(obj *jason.Object, keys ...string) []string {
	v, ok := valueAt(obj, keys...)
	if !ok {
		return nil
	}
	arr, err := v.Array()
	if err != nil {
		if t := textOf(v); t.Present {
			return []string{t.Value}
		}
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if t := textOf(item); t.Present {
			out = append(out, t.Value)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// firstObject returns the first object element of the array at the given
// path. An object stored directly at the path is accepted as well.
func firstObject(obj *jason.Object, keys ...string) (*jason.Object, bool) {
	v, ok := valueAt(obj, keys...)
	if !ok {
		return nil, false
	}
	if o, err := v.Object(); err == nil {
		return o, true
	}
	arr, err := v.Array()
	if err != nil || len(arr) == 0 {
		return nil, false
	}
	o, err := arr[0].Object()
	if err != nil {
		return nil, false
	}
	return o, true
}

// boolOf reads a flag value. Strings such as "yes" and "false" are accepted
// because model output is not consistent about booleans.
func boolOf(v *jason.Value) (bool, bool) {
	if b, err := v.Boolean(); err == nil {
		return b, true
	}
	s, err := v.String()
	if err != nil {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y":
		return true, true
	case "false", "no", "n":
		return false, true
	}
	return false, false
}

type entry struct {
	key   string
	value *jason.Value
}

// entriesOf lists the non-null members of obj. Keys named in order come
// first in that order, the rest follow alphabetically.
func entriesOf(obj *jason.Object, order []string) []entry {
	if obj == nil {
		return nil
	}
	rank := make(map[string]int, len(order))
	for i, k := range order {
		rank[k] = i
	}
	out := make([]entry, 0, len(obj.Map()))
	for k, v := range obj.Map() {
		if v == nil || v.Null() == nil {
			continue
		}
		out = append(out, entry{key: k, value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		ri, iok := rank[out[i].key]
		rj, jok := rank[out[j].key]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		}
		return out[i].key < out[j].key
	})
	return out
}
