// Package property implements typed, self-describing configuration
// properties for layers.
//
// A Descriptor belongs to a layer kind and is shared read-only by every
// instance of that kind. Values are stored per instance in a Set, always in
// their coerced and validated form:
//
//	var convProps = []*property.Descriptor{
//	    {Name: "size", Rule: property.IntTuple{Arity: 3, Min: 1}, Required: true},
//	    {Name: "stride", Rule: property.Stride{}, Default: conv.Stride{Rows: 1, Cols: 1}},
//	}
//
//	props := property.NewSet("conv-1", convProps)
//	err := props.Set("stride", 2) // stored as conv.Stride{Rows: 2, Cols: 2}
package property

import (
	"sort"
	"strings"
)

// Rule is the immutable coercion and validation logic of a property.
type Rule interface {
	// Coerce normalizes a raw value into the property's canonical form.
	Coerce(raw any) (any, error)

	// Validate checks a coerced value. It never depends on shape
	// information, only on the value itself.
	Validate(value any) error

	// Describe returns a short human-readable summary of accepted values.
	Describe() string
}

// Descriptor declares a property of a layer kind.
//
// Descriptors are defined once, at package level, and must not be mutated.
type Descriptor struct {
	Name     string
	Doc      string
	Rule     Rule
	Default  any  // Raw default, coerced like any other assignment
	Required bool // Whether the value must be provided explicitly
	Nullable bool // Whether nil is an accepted value that clears the property
}

// Set holds the per-instance values of a layer's properties.
type Set struct {
	owner  string
	defs   []*Descriptor
	index  map[string]*Descriptor
	values map[string]any
}

// NewSet creates an empty value set for the given descriptors.
// Owner names the instance in error messages.
func NewSet(owner string, defs []*Descriptor) *Set {
	index := make(map[string]*Descriptor, len(defs))
	for _, d := range defs {
		index[d.Name] = d
	}
	return &Set{
		owner:  owner,
		defs:   defs,
		index:  index,
		values: make(map[string]any, len(defs)),
	}
}

// Set coerces, validates and stores a raw value.
//
// Validation runs on every assignment. On failure the previously stored
// value is kept and an *InvalidValueError is returned.
func (s *Set) Set(name string, raw any) error {
	d, ok := s.index[name]
	if !ok {
		return &InvalidValueError{
			Owner:      s.owner,
			Property:   name,
			Value:      raw,
			Constraint: "unknown property, available: " + strings.Join(s.Names(), ", "),
		}
	}

	value, err := s.normalize(d, raw)
	if err != nil {
		return err
	}
	s.values[name] = value
	return nil
}

func (s *Set) normalize(d *Descriptor, raw any) (any, error) {
	if raw == nil {
		if d.Nullable {
			return nil, nil
		}
		return nil, s.invalid(d, raw, "value is required and cannot be nil")
	}

	value, err := d.Rule.Coerce(raw)
	if err != nil {
		return nil, s.invalid(d, raw, err.Error())
	}
	if err := d.Rule.Validate(value); err != nil {
		return nil, s.invalid(d, raw, err.Error())
	}
	return value, nil
}

func (s *Set) invalid(d *Descriptor, raw any, constraint string) error {
	return &InvalidValueError{Owner: s.owner, Property: d.Name, Value: raw, Constraint: constraint}
}

// Apply assigns every entry of raw, then fills defaults and checks that
// all required properties were provided.
func (s *Set) Apply(raw map[string]any) error {
	// Sorted for deterministic error reporting.
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.Set(name, raw[name]); err != nil {
			return err
		}
	}
	return s.Complete()
}

// Complete stores defaults for unset optional properties and reports the
// first unset required property.
func (s *Set) Complete() error {
	for _, d := range s.defs {
		if _, ok := s.values[d.Name]; ok {
			continue
		}
		if d.Required {
			return s.invalid(d, nil, "property is required")
		}
		if d.Default == nil {
			s.values[d.Name] = nil
			continue
		}
		value, err := s.normalize(d, d.Default)
		if err != nil {
			return err
		}
		s.values[d.Name] = value
	}
	return nil
}

// Get returns the stored value, or nil if the property is unset.
func (s *Set) Get(name string) any {
	return s.values[name]
}

// Names returns the declared property names in declaration order.
func (s *Set) Names() []string {
	names := make([]string, len(s.defs))
	for i, d := range s.defs {
		names[i] = d.Name
	}
	return names
}

// Descriptors returns the shared descriptors backing this set.
func (s *Set) Descriptors() []*Descriptor {
	return s.defs
}

// Values returns a copy of the stored values.
func (s *Set) Values() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Restore replaces the stored values with a snapshot taken by Values.
// The snapshot is trusted and not validated again.
func (s *Set) Restore(values map[string]any) {
	s.values = make(map[string]any, len(values))
	for k, v := range values {
		s.values[k] = v
	}
}
