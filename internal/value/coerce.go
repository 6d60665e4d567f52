package value

// Coercible is the type set of strict coercion targets: bool, int64,
// string, []Value and map[string]Value.
type Coercible interface {
	bool | int64 | string | []Value | map[string]Value
}

// CoerceBool strictly coerces v to a bool, failing cleanly on any other kind.
func CoerceBool(v Value) (bool, bool) {
	return v.AsBool()
}

// CoerceInteger strictly coerces v to an int64.
func CoerceInteger(v Value) (int64, bool) {
	return v.AsInteger()
}

// CoerceString strictly coerces v to a string.
func CoerceString(v Value) (string, bool) {
	return v.AsString()
}

// CoerceStringSlice strictly coerces v to a homogeneous array of strings.
// Coercion fails cleanly (returns false, nil partial state) on the first
// non-string element or if v is not an array.
func CoerceStringSlice(v Value) ([]string, bool) {
	arr, ok := v.AsArray()
	if !ok {
		return nil, false
	}
	out := make([]string, len(arr))
	for i, elem := range arr {
		s, ok := elem.AsString()
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

// CoerceStringMap strictly coerces v to a homogeneous string-keyed mapping
// of strings. Coercion fails cleanly if v is not a dictionary or any value
// is not a string.
func CoerceStringMap(v Value) (map[string]string, bool) {
	dict, ok := v.AsDictionary()
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(dict))
	for k, elem := range dict {
		s, ok := elem.AsString()
		if !ok {
			return nil, false
		}
		out[k] = s
	}
	return out, true
}
