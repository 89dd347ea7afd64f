// Package dataset provides helpers for the cty values that flow through a
// learning network: building them from native Go data, converting them back,
// and selecting rows.
//
// A "vector" is a cty list or tuple of numbers; a "table" is a cty tuple of
// object values, one object per row. Both shapes support positional row
// selection, which is the only structural operation the engine itself
// performs on data.
package dataset

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Floats wraps a float64 slice as a cty list of numbers.
func Floats(vals []float64) cty.Value {
	if len(vals) == 0 {
		return cty.ListValEmpty(cty.Number)
	}
	elems := make([]cty.Value, len(vals))
	for i, v := range vals {
		elems[i] = cty.NumberFloatVal(v)
	}
	return cty.ListVal(elems)
}

// AsFloats converts a list or tuple of numbers back into a float64 slice.
func AsFloats(v cty.Value) ([]float64, error) {
	if v.IsNull() {
		return nil, fmt.Errorf("cannot read floats from a null value")
	}
	ty := v.Type()
	if !ty.IsListType() && !ty.IsTupleType() {
		return nil, fmt.Errorf("cannot read floats from %s", ty.FriendlyName())
	}
	out := make([]float64, 0, v.LengthInt())
	it := v.ElementIterator()
	for it.Next() {
		_, elem := it.Element()
		var f float64
		if err := gocty.FromCtyValue(elem, &f); err != nil {
			return nil, fmt.Errorf("element %d is not a number: %w", len(out), err)
		}
		out = append(out, f)
	}
	return out, nil
}

// Records wraps a slice of rows, each mapping column names to values, as a
// cty tuple of objects. A tuple is used rather than a list so rows with
// differing column sets remain representable.
func Records(rows []map[string]float64) cty.Value {
	if len(rows) == 0 {
		return cty.EmptyTupleVal
	}
	elems := make([]cty.Value, len(rows))
	for i, row := range rows {
		attrs := make(map[string]cty.Value, len(row))
		for name, val := range row {
			attrs[name] = cty.NumberFloatVal(val)
		}
		elems[i] = cty.ObjectVal(attrs)
	}
	return cty.TupleVal(elems)
}

// Column extracts a single named column from a Records-shaped table as a
// vector, preserving row order.
func Column(v cty.Value, name string) (cty.Value, error) {
	ty := v.Type()
	if !ty.IsListType() && !ty.IsTupleType() {
		return cty.NilVal, fmt.Errorf("cannot read column %q from %s", name, ty.FriendlyName())
	}
	elems := make([]cty.Value, 0, v.LengthInt())
	it := v.ElementIterator()
	for it.Next() {
		_, row := it.Element()
		rowTy := row.Type()
		if !rowTy.IsObjectType() || !rowTy.HasAttribute(name) {
			return cty.NilVal, fmt.Errorf("row %d has no column %q (columns: %s)", len(elems), name, columnNames(rowTy))
		}
		elems = append(elems, row.GetAttr(name))
	}
	if len(elems) == 0 {
		return cty.EmptyTupleVal, nil
	}
	return cty.TupleVal(elems), nil
}

// Length returns the number of rows in a list or tuple value.
func Length(v cty.Value) (int, error) {
	if v.IsNull() {
		return 0, fmt.Errorf("cannot take the length of a null value")
	}
	ty := v.Type()
	if !ty.IsListType() && !ty.IsTupleType() {
		return 0, fmt.Errorf("cannot take the length of %s", ty.FriendlyName())
	}
	return v.LengthInt(), nil
}

// Rows selects the given row indices, in order, from a list or tuple value.
// A nil selection means all rows and returns the value unchanged. Indices
// may repeat, so Rows also works for resampling.
func Rows(v cty.Value, rows []int) (cty.Value, error) {
	if rows == nil {
		return v, nil
	}
	if v.IsNull() {
		return cty.NilVal, fmt.Errorf("cannot select rows from a null value")
	}
	ty := v.Type()
	if !ty.IsListType() && !ty.IsTupleType() {
		return cty.NilVal, fmt.Errorf("row selection needs a list or tuple, got %s", ty.FriendlyName())
	}
	elems := v.AsValueSlice()
	out := make([]cty.Value, len(rows))
	for i, r := range rows {
		if r < 0 || r >= len(elems) {
			return cty.NilVal, fmt.Errorf("row %d out of range for %d rows", r, len(elems))
		}
		out[i] = elems[r]
	}
	if len(out) == 0 {
		return cty.EmptyTupleVal, nil
	}
	return cty.TupleVal(out), nil
}

// columnNames renders an object type's attribute names for error text.
func columnNames(ty cty.Type) string {
	names := make([]string, 0, len(ty.AttributeTypes()))
	for name := range ty.AttributeTypes() {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("%v", names)
}
