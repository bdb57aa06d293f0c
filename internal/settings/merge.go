package settings

import "reflect"

// DeepMerge merges src into dst and returns the result; neither argument
// is modified. Values are decoded JSON (map[string]any, []any, scalars).
//
// Objects merge key by key, recursively. Arrays merge index by index: an
// index dst does not have takes src's element, objects and arrays at the
// same index merge, and a scalar src element is appended unless dst
// already contains it. Any other combination yields a copy of src.
func DeepMerge(dst, src any) any {
	switch s := src.(type) {
	case map[string]any:
		d, ok := dst.(map[string]any)
		if !ok {
			return clone(src)
		}
		out := make(map[string]any, len(d)+len(s))
		for k, v := range d {
			out[k] = clone(v)
		}
		for k, v := range s {
			if existing, ok := d[k]; ok && mergeable(v) {
				out[k] = DeepMerge(existing, v)
			} else {
				out[k] = clone(v)
			}
		}
		return out
	case []any:
		d, ok := dst.([]any)
		if !ok {
			return clone(src)
		}
		return mergeArrays(d, s)
	default:
		return clone(src)
	}
}

func mergeArrays(dst, src []any) []any {
	out := make([]any, len(dst), len(dst)+len(src))
	for i, v := range dst {
		out[i] = clone(v)
	}
	for i, e := range src {
		switch {
		case i >= len(out):
			out = append(out, clone(e))
		case mergeable(e):
			var base any
			if i < len(dst) {
				base = dst[i]
			}
			out[i] = DeepMerge(base, e)
		case !contains(dst, e):
			out = append(out, clone(e))
		}
	}
	return out
}

func mergeable(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

func contains(values []any, v any) bool {
	for _, x := range values {
		if reflect.DeepEqual(x, v) {
			return true
		}
	}
	return false
}

// clone deep-copies decoded JSON so merged results never alias inputs.
func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = clone(x)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = clone(x)
		}
		return out
	default:
		return v
	}
}
