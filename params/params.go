// Package params helps model implementations satisfy the engine's
// configuration contract. The engine only ever asks a configuration two
// things structurally: "are you equal to this snapshot" and "copy yourself".
// Equal here gives implementations the first one for free.
package params

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
	"github.com/zclconf/go-cty/cty"
)

// ctyValues compares embedded cty values by raw equality instead of walking
// their internals via reflection, which cmp cannot do on its own.
var ctyValues = cmp.Comparer(func(a, b cty.Value) bool {
	return a.RawEquals(b)
})

// allFields lets cmp descend into unexported fields. Hyperparameter structs
// are plain data; comparing every field is the behavior staleness detection
// needs, and it avoids cmp's panic on unexported state.
var allFields = cmp.Exporter(func(reflect.Type) bool { return true })

// Equal reports deep value equality between two hyperparameter containers.
// Containers of different concrete types are never equal. Every field,
// exported or not, participates in the comparison.
//
// Configuration types implement their own Equal method by delegating here,
// and cmp in turn invokes an Equal method when a type has one. Comparing
// dereferenced value copies breaks that cycle: a pointer-receiver Equal is
// not in the value's method set, so cmp stays on structural comparison.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	for ra.Kind() == reflect.Pointer {
		if ra.IsNil() || rb.IsNil() {
			return ra.IsNil() && rb.IsNil()
		}
		ra, rb = ra.Elem(), rb.Elem()
	}
	return cmp.Equal(ra.Interface(), rb.Interface(), ctyValues, allFields)
}
