package vango

import (
	"reflect"
	"unsafe"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

// Deps is a dependency list for UseMemo, UseCallback and UseEffect.
//
// A nil Deps disables caching: the value is recomputed on every render.
// An empty, non-nil Deps (Deps{}) computes once per mount.
// Otherwise the value is recomputed whenever the length or any element
// differs from the previous render, compared with ShallowEqual.
type Deps []any

// NoDeps is the nil dependency list: recompute on every render.
var NoDeps Deps

// Once is the empty dependency list: compute once per mount.
func Once() Deps {
	return Deps{}
}

// ShallowEqual compares two values by identity rather than by content.
//
// Scalars, strings, pointers, channels and comparable structs compare with
// ==. Slices compare equal only when they share the same backing array,
// length and capacity; maps and functions only when they are the same map or
// closure. A freshly built slice or map is therefore always "changed", even
// if its contents match. Values that cannot be compared are never equal.
func ShallowEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Func:
		return funcIdentity(a) == funcIdentity(b)
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len() && va.Cap() == vb.Cap()
	case reflect.Map:
		return va.Pointer() == vb.Pointer()
	}

	if !va.Type().Comparable() {
		return false
	}
	return comparableEqual(a, b)
}

// comparableEqual is a == b, treating a runtime comparison panic (an
// interface field holding a slice, say) as "not equal".
func comparableEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

// funcIdentity returns the closure pointer stored in an interface holding a
// func. Func values are pointer-shaped, so the interface data word is the
// closure itself; two values are the same function value iff it matches.
func funcIdentity(f any) unsafe.Pointer {
	type eface struct {
		typ  unsafe.Pointer
		data unsafe.Pointer
	}
	return (*eface)(unsafe.Pointer(&f)).data
}

// PropsShallowEqual reports whether two props maps have the same keys and
// pairwise ShallowEqual values.
func PropsShallowEqual(prev, next vdom.Props) bool {
	if len(prev) != len(next) {
		return false
	}
	for k, pv := range prev {
		nv, ok := next[k]
		if !ok || !ShallowEqual(pv, nv) {
			return false
		}
	}
	return true
}

// depsEqual reports whether two dependency lists are element-wise identical.
func depsEqual(prev, next Deps) bool {
	if len(prev) != len(next) {
		return false
	}
	for i := range prev {
		if !ShallowEqual(prev[i], next[i]) {
			return false
		}
	}
	return true
}

// copyDeps keeps the caller from mutating a stored dependency list.
func copyDeps(d Deps) Deps {
	if d == nil {
		return nil
	}
	out := make(Deps, len(d))
	copy(out, d)
	return out
}
