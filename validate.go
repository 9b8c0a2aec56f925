package hexite

import (
	"sort"

	"github.com/pkg/errors"
)

// Validate checks the format and every type reachable from it.
// Overlapping fixed size children are a LayoutConflict unless the
// format (or struct) is declared as a union.
//
// A struct may only contain itself through a slice whose count is
// read from the data. Any other cycle has no finite size and is an
// InvalidConfiguration.
func (self *Format) Validate() error {
	var types []Type
	for _, child := range self.children {
		types = append(types, child.Type)
	}

	err := checkCycles(types)
	if err != nil {
		return errors.Wrap(err, self.name)
	}

	seen := make(map[Type]bool)
	for _, child := range self.children {
		err := validateType(child.Type, seen)
		if err != nil {
			return errors.Wrapf(err, "%v.%v", self.name, child.Name)
		}
	}

	return checkOverlap(self.name, self.children, self.union)
}

const (
	unvisited = iota
	visiting
	visited
)

func checkCycles(types []Type) error {
	seen := make(map[*Struct]bool)
	var structs []*Struct
	for _, t := range types {
		structs = collectStructs(t, seen, structs)
	}

	state := make(map[*Struct]int)
	for _, s := range structs {
		err := findCycle(s, state)
		if err != nil {
			return err
		}
	}
	return nil
}

// Every struct reachable from t.
func collectStructs(t Type, seen map[*Struct]bool, result []*Struct) []*Struct {
	switch t := t.(type) {
	case *Struct:
		if seen[t] {
			return result
		}
		seen[t] = true
		result = append(result, t)
		for _, field := range t.fields {
			result = collectStructs(field.Type, seen, result)
		}

	case *Slice:
		return collectStructs(t.Element, seen, result)
	}
	return result
}

// Depth first search for a struct which contains itself. Slices
// counted from the data are not followed since the data ends that
// recursion.
func findCycle(t Type, state map[*Struct]int) error {
	switch t := t.(type) {
	case *Struct:
		switch state[t] {
		case visiting:
			return errors.Wrapf(InvalidConfigurationError,
				"struct %v contains itself", t.Name)
		case visited:
			return nil
		}

		state[t] = visiting
		for _, field := range t.fields {
			err := findCycle(field.Type, state)
			if err != nil {
				return errors.Wrapf(err, "%v.%v", t.Name, field.Name)
			}
		}
		state[t] = visited

	case *Slice:
		if t.CountExpression != nil {
			return nil
		}
		return findCycle(t.Element, state)
	}

	return nil
}

func validateType(t Type, seen map[Type]bool) error {
	if IsNil(t) {
		return errors.Wrap(InvalidConfigurationError, "missing type")
	}

	if seen[t] {
		return nil
	}
	seen[t] = true

	switch t := t.(type) {
	case *Primitive:
		return t.validate()

	case *Struct:
		if t.Size < 0 || t.Align < 0 {
			return errors.Wrapf(InvalidConfigurationError,
				"struct %v has negative size or alignment", t.Name)
		}

		err := checkOverlap(t.Name, t.fields, t.Union)
		if err != nil {
			return err
		}

		for _, field := range t.fields {
			if field.Offset < 0 {
				return errors.Wrapf(InvalidConfigurationError,
					"%v.%v has negative offset", t.Name, field.Name)
			}

			err := validateType(field.Type, seen)
			if err != nil {
				return errors.Wrapf(err, "%v.%v", t.Name, field.Name)
			}
		}

	case *Slice:
		if t.Count < 0 || t.MaxCount < 0 {
			return errors.Wrapf(InvalidConfigurationError,
				"slice %v has a negative count", t.TypeName())
		}
		return validateType(t.Element, seen)
	}

	return nil
}

func checkOverlap(owner string, fields []*Field, union bool) error {
	if union {
		return nil
	}

	var spans []Span
	for idx, field := range fields {
		if !field.fixed() {
			continue
		}

		size, _ := FixedSize(field.Type)
		if size == 0 {
			continue
		}

		spans = append(spans, Span{
			Name:  field.Name,
			Index: idx,
			Start: field.Offset,
			End:   field.Offset + size,
		})
	}

	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].Start < spans[j].Start
	})

	// The span reaching furthest so far.
	var furthest *Span
	for i := range spans {
		span := &spans[i]
		if furthest != nil && span.Start < furthest.End {
			first, second := *furthest, *span
			if first.Index > second.Index {
				first, second = second, first
			}
			return &LayoutConflict{
				Owner:  owner,
				First:  first,
				Second: second,
			}
		}

		if furthest == nil || span.End > furthest.End {
			furthest = span
		}
	}
	return nil
}
