package hexite

import (
	"encoding/json"
	"strconv"
	"strings"
)

type PathElement struct {
	Name string

	// Repetition index within a slice, -1 when not repeated.
	Index int64
}

// Hierarchy labels a decoded field with its position inside nested
// structs and slices, e.g. root.entries[3].flags. It is never used
// for decoding. Hierarchies are values: Field and Element return
// extended copies and leave the receiver untouched.
type Hierarchy struct {
	path []PathElement
}

func NewHierarchy(root string) Hierarchy {
	return Hierarchy{path: []PathElement{{Name: root, Index: -1}}}
}

func (self Hierarchy) extend(element PathElement) Hierarchy {
	path := make([]PathElement, len(self.path), len(self.path)+1)
	copy(path, self.path)
	return Hierarchy{path: append(path, element)}
}

func (self Hierarchy) Field(name string) Hierarchy {
	return self.extend(PathElement{Name: name, Index: -1})
}

// Element marks the last field as repeated. Repeating an already
// indexed element (a slice of slices) adds an anonymous element.
func (self Hierarchy) Element(index int64) Hierarchy {
	last := len(self.path) - 1
	if last < 0 || self.path[last].Index >= 0 {
		return self.extend(PathElement{Index: index})
	}

	path := make([]PathElement, len(self.path))
	copy(path, self.path)
	path[last].Index = index
	return Hierarchy{path: path}
}

func (self Hierarchy) Elements() []PathElement {
	return append([]PathElement{}, self.path...)
}

func (self Hierarchy) Len() int {
	return len(self.path)
}

func (self Hierarchy) String() string {
	var b strings.Builder
	for i, element := range self.path {
		if element.Name != "" {
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(element.Name)
		}

		if element.Index >= 0 {
			b.WriteByte('[')
			b.WriteString(strconv.FormatInt(element.Index, 10))
			b.WriteByte(']')
		}
	}
	return b.String()
}

func (self Hierarchy) MarshalJSON() ([]byte, error) {
	return json.Marshal(self.String())
}
