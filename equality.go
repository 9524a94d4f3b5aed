package incr

import "reflect"

func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}

	return false
}

// sameItem reports whether a and b are the same item as far as change records are concerned.
// Values of uncomparable types are assumed to match.
func sameItem(a, b any) bool {
	if a == nil || b == nil {
		return isNil(a) && isNil(b)
	}

	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if !ta.Comparable() {
		return true
	}

	same, ok := compare(a, b)
	return same || !ok
}

// compare is a == b. ok is false when the dynamic values turn out to be uncomparable,
// as with an interface field holding a slice.
func compare(a, b any) (equal, ok bool) {
	defer func() {
		if recover() != nil {
			equal, ok = false, false
		}
	}()

	return a == b, true
}

// defaultEqual uses an Equal(T) bool method when the item has one, == otherwise.
func defaultEqual[T any](a, b T) bool {
	if eq, ok := any(a).(interface{ Equal(T) bool }); ok && !isNil(any(a)) {
		return eq.Equal(b)
	}

	va, vb := any(a), any(b)
	if va == nil || vb == nil {
		return isNil(va) && isNil(vb)
	}
	if t := reflect.TypeOf(va); t == reflect.TypeOf(vb) && !t.Comparable() {
		return reflect.DeepEqual(va, vb)
	}

	if equal, ok := compare(va, vb); ok {
		return equal
	}
	return reflect.DeepEqual(va, vb)
}
