package binder

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/hitshell/packages/core/value"
)

// GetMember looks up a named member of v. Maps with string keys are looked up
// by key, structs by exported field name ignoring case. A member that does
// not exist yields value.MissingMember.
func GetMember(v any, name string) any {
	if v == nil {
		return value.MissingMember
	}
	if mp, ok := v.(value.MemberProvider); ok {
		if m, found := mp.Member(name); found {
			return m
		}
		return value.MissingMember
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return value.MissingMember
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return value.MissingMember
		}
		m := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !m.IsValid() {
			return value.MissingMember
		}
		return m.Interface()
	case reflect.Struct:
		f, ok := rv.Type().FieldByNameFunc(func(field string) bool {
			return strings.EqualFold(field, name)
		})
		if !ok || !f.IsExported() {
			return value.MissingMember
		}
		return rv.FieldByIndex(f.Index).Interface()
	}
	return value.MissingMember
}

// GetIndex indexes v by idx. Sequences accept numeric indices; maps accept
// any key convertible to their key type. Any failure of the indexer yields
// nil.
func GetIndex(v any, idx any) (out any) {
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.String:
		i, ok := toIndex(idx)
		if !ok {
			return nil
		}
		if i < 0 {
			i += rv.Len()
		}
		elem := rv.Index(i)
		if rv.Kind() == reflect.String {
			return string(rune(elem.Uint()))
		}
		return elem.Interface()
	case reflect.Map:
		key := reflect.ValueOf(idx).Convert(rv.Type().Key())
		m := rv.MapIndex(key)
		if !m.IsValid() {
			return nil
		}
		return m.Interface()
	}
	return nil
}

func toIndex(idx any) (int, bool) {
	switch i := idx.(type) {
	case int:
		return i, true
	case float64:
		if i != float64(int(i)) {
			return 0, false
		}
		return int(i), true
	case string:
		n, err := strconv.Atoi(i)
		return n, err == nil
	}
	return 0, false
}

// Walk navigates a dotted path such as "data.items[0].name" or
// "data.items.0.name". It stops at the first missing member and returns
// value.MissingMember, or at the first failed index and returns nil.
func Walk(v any, path string) any {
	if path == "" {
		return v
	}
	cur := v
	for _, seg := range splitPath(path) {
		if seg.index {
			cur = GetIndex(cur, seg.name)
			if cur == nil {
				return nil
			}
			continue
		}
		if isSequence(cur) {
			if _, ok := toIndex(seg.name); ok {
				cur = GetIndex(cur, seg.name)
				if cur == nil {
					return nil
				}
				continue
			}
		}
		cur = GetMember(cur, seg.name)
		if cur == value.MissingMember {
			return cur
		}
	}
	return cur
}

type segment struct {
	name  string
	index bool
}

func splitPath(path string) []segment {
	var segs []segment
	for _, part := range strings.Split(path, ".") {
		for part != "" {
			open := strings.IndexByte(part, '[')
			if open < 0 {
				segs = append(segs, segment{name: part})
				break
			}
			if open > 0 {
				segs = append(segs, segment{name: part[:open]})
			}
			end := strings.IndexByte(part[open:], ']')
			if end < 0 {
				segs = append(segs, segment{name: part[open+1:], index: true})
				break
			}
			segs = append(segs, segment{name: part[open+1 : open+end], index: true})
			part = part[open+end+1:]
		}
	}
	return segs
}

func isSequence(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	}
	return false
}
