package redact

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// Mapper is implemented by record-like values that can present themselves as a plain map.
type Mapper interface {
	ToMap() map[string]any
}

// KeySet is a set of map keys.
type KeySet map[string]struct{}

// Keys builds a KeySet.
func Keys(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s KeySet) Has(k string) bool {
	_, ok := s[k]
	return ok
}

// InStructure redacts every string leaf of v. Maps, slices, arrays and sets keep
// their kind, keys in skip are copied through untouched, and Mapper values are
// converted to maps first. Other scalars pass through.
func InStructure(v any, skip KeySet, strict bool) (out any) {
	defer func() {
		if r := recover(); r != nil {
			out = v
		}
	}()
	return walk(v, skip, strict)
}

// DictKeys forces structural redaction of the values under keys, at any depth
// reachable through nested maps. Other values pass through untouched.
func DictKeys(m map[string]any, keys, skip KeySet, strict bool) (out map[string]any) {
	if m == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			out = m
		}
	}()
	out = make(map[string]any, len(m))
	for k, v := range m {
		switch {
		case skip.Has(k):
			out[k] = v
		case keys.Has(k):
			out[k] = walk(v, skip, strict)
		default:
			if nested, ok := v.(map[string]any); ok {
				out[k] = DictKeys(nested, keys, skip, strict)
			} else {
				out[k] = v
			}
		}
	}
	return out
}

func walk(v any, skip KeySet, strict bool) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return Text(t, strict)
	case Mapper:
		if rv := reflect.ValueOf(t); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return v
		}
		return walk(t.ToMap(), skip, strict)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if skip.Has(k) {
				out[k] = val
				continue
			}
			out[k] = walk(val, skip, strict)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = walk(val, skip, strict)
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, s := range t {
			out[i] = Text(s, strict)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			if skip.Has(k) {
				out[k] = s
				continue
			}
			out[k] = Text(s, strict)
		}
		return out
	case map[string]struct{}:
		out := make(map[string]struct{}, len(t))
		for k := range t {
			out[Text(k, strict)] = struct{}{}
		}
		return out
	case json.Number:
		return t
	case json.RawMessage:
		var decoded any
		dec := json.NewDecoder(bytes.NewReader(t))
		dec.UseNumber()
		if err := dec.Decode(&decoded); err != nil {
			return t
		}
		b, err := json.Marshal(walk(decoded, skip, strict))
		if err != nil {
			return t
		}
		return json.RawMessage(b)
	case []byte:
		return t
	}
	return walkValue(reflect.ValueOf(v), skip, strict)
}

func walkValue(rv reflect.Value, skip KeySet, strict bool) any {
	orig := rv.Interface()
	switch rv.Kind() {
	case reflect.String:
		return reflect.ValueOf(Text(rv.String(), strict)).Convert(rv.Type()).Interface()
	case reflect.Pointer:
		if rv.IsNil() {
			return orig
		}
		inner := walk(rv.Elem().Interface(), skip, strict)
		iv := reflect.ValueOf(inner)
		if !iv.IsValid() || !iv.Type().AssignableTo(rv.Type().Elem()) {
			return inner
		}
		p := reflect.New(rv.Type().Elem())
		p.Elem().Set(iv)
		return p.Interface()
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return orig
		}
		return walkSequence(rv, skip, strict)
	case reflect.Map:
		if rv.IsNil() || rv.Type().Key().Kind() != reflect.String {
			return orig
		}
		return walkMap(rv, skip, strict)
	default:
		return orig
	}
}

func walkSequence(rv reflect.Value, skip KeySet, strict bool) any {
	n := rv.Len()
	items := make([]any, n)
	sameType := true
	elemType := rv.Type().Elem()
	for i := 0; i < n; i++ {
		items[i] = walk(rv.Index(i).Interface(), skip, strict)
		if !assignable(items[i], elemType) {
			sameType = false
		}
	}
	if !sameType {
		return items
	}
	var out reflect.Value
	if rv.Kind() == reflect.Array {
		out = reflect.New(rv.Type()).Elem()
	} else {
		out = reflect.MakeSlice(rv.Type(), n, n)
	}
	for i, it := range items {
		setValue(out.Index(i), it, elemType)
	}
	return out.Interface()
}

func walkMap(rv reflect.Value, skip KeySet, strict bool) any {
	elemType := rv.Type().Elem()
	items := make(map[string]any, rv.Len())
	sameType := true
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key().String()
		val := iter.Value().Interface()
		if !skip.Has(k) {
			val = walk(val, skip, strict)
		}
		items[k] = val
		if !assignable(val, elemType) {
			sameType = false
		}
	}
	if !sameType {
		return items
	}
	out := reflect.MakeMapWithSize(rv.Type(), len(items))
	for k, val := range items {
		ev := reflect.New(elemType).Elem()
		setValue(ev, val, elemType)
		out.SetMapIndex(reflect.ValueOf(k).Convert(rv.Type().Key()), ev)
	}
	return out.Interface()
}

func assignable(v any, t reflect.Type) bool {
	if v == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice:
			return true
		}
		return false
	}
	return reflect.TypeOf(v).AssignableTo(t)
}

func setValue(dst reflect.Value, v any, t reflect.Type) {
	if v == nil {
		dst.Set(reflect.Zero(t))
		return
	}
	dst.Set(reflect.ValueOf(v))
}
