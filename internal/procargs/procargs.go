// Package procargs builds CLI argument slices for subprocesses from small
// struct-of-flags value objects, the same way the rest of this codebase's
// ancestry builds arguments for its own external CLI wrapper. Its one
// caller in this module is store.Client.Build (the `nix build` flags).
package procargs

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// ToArgs walks s's fields via reflection and emits one or two CLI tokens
// per field tagged `flag:"--name"`. Zero-valued fields are skipped unless
// tagged `flag:"--name,keepZero"`. Slice fields repeat the flag once per
// element; map fields render as a single comma-joined "k=v,k=v" value with
// keys sorted for determinism; bool fields are flag-only (no value).
func ToArgs[T any](s *T) []string {
	if s == nil {
		s = new(T)
	}
	var ret []string
	st := reflect.TypeOf(*s)
	sv := reflect.ValueOf(*s)
	if st.Kind() == reflect.Pointer {
		sv = reflect.Indirect(sv)
		st = sv.Type()
	}
	for i := range st.NumField() {
		field := st.Field(i)
		fv := sv.Field(i)
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			fvi := fv.Interface()
			ret = append(ret, ToArgs(&fvi)...)
			continue
		}
		flagTag, ok := field.Tag.Lookup("flag")
		if !ok {
			continue
		}
		flagParts := strings.Split(flagTag, ",")
		flagName := flagParts[0]
		keepZero := len(flagParts) > 1 && strings.EqualFold(flagParts[1], "keepZero")
		v := reflect.ValueOf(fv.Interface())

		if !keepZero && v.IsZero() {
			continue
		}
		if ret == nil {
			ret = []string{}
		}
		fieldKind := field.Type.Kind()
		switch {
		case fieldKind == reflect.Array || fieldKind == reflect.Slice:
			for j := 0; j < fv.Len(); j++ {
				ret = append(ret, flagName, fmt.Sprintf("%v", fv.Index(j)))
			}
		case fieldKind == reflect.Map:
			m := v.Interface().(map[string]string)
			keys := slices.Sorted(maps.Keys(m))
			mapVals := make([]string, 0, len(keys))
			for _, k := range keys {
				mapVals = append(mapVals, fmt.Sprintf("%v=%v", k, m[k]))
			}
			ret = append(ret, flagName, strings.Join(mapVals, ","))
		case fieldKind == reflect.Bool:
			ret = append(ret, flagName)
		default:
			ret = append(ret, flagName, fmt.Sprintf("%v", fv.Interface()))
		}
	}
	return ret
}
