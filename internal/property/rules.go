package property

import (
	"fmt"
	"strings"

	"github.com/born-ml/layergraph/internal/conv"
	"github.com/born-ml/layergraph/internal/tensor"
)

// Int accepts a single integer.
type Int struct {
	Min    int
	HasMin bool
}

// Coerce implements Rule.
func (r Int) Coerce(raw any) (any, error) {
	n, ok := asInt(raw)
	if !ok {
		return nil, fmt.Errorf("expected an integer, got %T", raw)
	}
	return n, nil
}

// Validate implements Rule.
func (r Int) Validate(value any) error {
	n, ok := value.(int)
	if !ok {
		return fmt.Errorf("expected an integer, got %T", value)
	}
	if r.HasMin && n < r.Min {
		return fmt.Errorf("value must be greater or equal to %d", r.Min)
	}
	return nil
}

// Describe implements Rule.
func (r Int) Describe() string {
	if r.HasMin {
		return fmt.Sprintf("integer >= %d", r.Min)
	}
	return "integer"
}

// String accepts a non-empty string.
type String struct{}

// Coerce implements Rule.
func (String) Coerce(raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("expected a string, got %T", raw)
	}
	return s, nil
}

// Validate implements Rule.
func (String) Validate(value any) error {
	if s, _ := value.(string); s == "" {
		return fmt.Errorf("string must not be empty")
	}
	return nil
}

// Describe implements Rule.
func (String) Describe() string { return "non-empty string" }

// IntTuple accepts a list of integers. A bare integer becomes a 1-tuple.
//
// Arity fixes the number of elements (0 means any non-zero length).
// Elements must be >= Min. With AllowUnknown, nil or -1 elements are kept
// as tensor.Unknown.
type IntTuple struct {
	Arity        int
	Min          int
	AllowUnknown bool
}

// Coerce implements Rule.
func (r IntTuple) Coerce(raw any) (any, error) {
	if n, ok := asInt(raw); ok {
		return []int{n}, nil
	}
	return asInts(raw, r.AllowUnknown)
}

// Validate implements Rule.
func (r IntTuple) Validate(value any) error {
	values, ok := value.([]int)
	if !ok {
		return fmt.Errorf("expected a list of integers, got %T", value)
	}
	if len(values) == 0 {
		return fmt.Errorf("list must not be empty")
	}
	if r.Arity > 0 && len(values) != r.Arity {
		return fmt.Errorf("expected %d elements, got %d", r.Arity, len(values))
	}
	for _, v := range values {
		if r.AllowUnknown && v == tensor.Unknown {
			continue
		}
		if v < r.Min {
			return fmt.Errorf("elements must be greater or equal to %d, got %v", r.Min, values)
		}
	}
	return nil
}

// Describe implements Rule.
func (r IntTuple) Describe() string {
	kind := "list of integers"
	if r.Arity > 0 {
		kind = fmt.Sprintf("%d integers", r.Arity)
	}
	desc := fmt.Sprintf("%s >= %d", kind, r.Min)
	if r.AllowUnknown {
		desc += " (-1 or null for unknown)"
	}
	return desc
}

// Stride accepts an integer, a 1-tuple or a 2-tuple and normalizes it to
// conv.Stride. A bare s becomes (s, s) and (s) becomes (s, 1).
type Stride struct{}

// Coerce implements Rule.
func (Stride) Coerce(raw any) (any, error) {
	if s, ok := raw.(conv.Stride); ok {
		return s, nil
	}
	if n, ok := asInt(raw); ok {
		return conv.Stride{Rows: n, Cols: n}, nil
	}

	values, err := asInts(raw, false)
	if err != nil {
		return nil, err
	}
	switch len(values) {
	case 1:
		return conv.Stride{Rows: values[0], Cols: 1}, nil
	case 2:
		return conv.Stride{Rows: values[0], Cols: values[1]}, nil
	}
	return nil, fmt.Errorf("stride can have only one or two elements in the list, got %d", len(values))
}

// Validate implements Rule.
func (Stride) Validate(value any) error {
	s, ok := value.(conv.Stride)
	if !ok {
		return fmt.Errorf("expected a stride, got %T", value)
	}
	if s.Rows <= 0 || s.Cols <= 0 {
		return fmt.Errorf("stride size should contain only values greater than zero, got %v", s)
	}
	return nil
}

// Describe implements Rule.
func (Stride) Describe() string { return "positive integer or list of one or two positive integers" }

// Padding accepts a non-negative integer, a 2-tuple of non-negative
// integers, or the case-insensitive names "valid" and "same".
//
// Integers and tuples normalize to conv.Explicit, names to conv.Valid and
// conv.Same. With NamedOnly only the names are accepted.
type Padding struct {
	NamedOnly bool
}

var paddingNames = []string{"VALID", "SAME"}

// Coerce implements Rule.
func (r Padding) Coerce(raw any) (any, error) {
	switch v := raw.(type) {
	case conv.Symmetric:
		return conv.Explicit{Rows: int(v), Cols: int(v)}, nil
	case conv.Padding:
		return v, nil
	case string:
		switch strings.ToUpper(v) {
		case "VALID":
			return conv.Valid{}, nil
		case "SAME":
			return conv.Same{}, nil
		}
		return nil, fmt.Errorf("`%s` is invalid string value, available: %s", strings.ToUpper(v), strings.Join(paddingNames, ", "))
	}

	if n, ok := asInt(raw); ok {
		if n < 0 {
			return nil, fmt.Errorf("integer border mode value needs to be greater or equal to zero, got %d", n)
		}
		return conv.Explicit{Rows: n, Cols: n}, nil
	}

	values, err := asInts(raw, false)
	if err != nil {
		return nil, fmt.Errorf("expected an integer, a tuple of two integers or one of %s, got %T", strings.Join(paddingNames, ", "), raw)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("border mode property expects a tuple that contains two elements, got %d elements", len(values))
	}
	return conv.Explicit{Rows: values[0], Cols: values[1]}, nil
}

// Validate implements Rule.
func (r Padding) Validate(value any) error {
	switch v := value.(type) {
	case conv.Valid, conv.Same:
		return nil
	case conv.Explicit:
		if r.NamedOnly {
			return fmt.Errorf("only %s are supported, got %v", strings.Join(paddingNames, ", "), v)
		}
		if v.Rows < 0 || v.Cols < 0 {
			return fmt.Errorf("tuple border mode value needs to contain only elements that greater or equal to zero, got %v", v)
		}
		return nil
	}
	return fmt.Errorf("unsupported padding %v (%T)", value, value)
}

// Describe implements Rule.
func (r Padding) Describe() string {
	if r.NamedOnly {
		return "valid or same"
	}
	return "valid, same, non-negative integer or tuple of two non-negative integers"
}

// asInt converts Go integer kinds to int. Floats are rejected.
func asInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	default:
		return 0, false
	}
}

// asInts converts list-like raw values, including the []any produced by
// YAML and JSON decoders, to []int.
func asInts(raw any, allowUnknown bool) ([]int, error) {
	var items []any
	switch v := raw.(type) {
	case []int:
		return append([]int(nil), v...), nil
	case tensor.Shape:
		return append([]int(nil), v...), nil
	case []any:
		items = v
	default:
		return nil, fmt.Errorf("expected a list of integers, got %T", raw)
	}

	values := make([]int, len(items))
	for i, item := range items {
		if item == nil && allowUnknown {
			values[i] = tensor.Unknown
			continue
		}
		n, ok := asInt(item)
		if !ok {
			return nil, fmt.Errorf("element %d must be an integer, got %v (%T)", i, item, item)
		}
		values[i] = n
	}
	return values, nil
}
