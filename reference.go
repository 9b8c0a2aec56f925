package hexite

import (
	"github.com/Velocidex/ordereddict"
)

// A DecodedField describes one field a query touched. Values are
// owned copies so they stay valid after the buffer goes away.
// Structs and slices are reported with a nil Value ahead of their
// members.
type DecodedField struct {
	Path Hierarchy

	// Absolute position in the buffer.
	Offset int64
	Length int64

	Type  Type
	Value interface{}

	// Set when the field could not be fully resolved.
	Err error
}

func (self *DecodedField) Start() int64 {
	return self.Offset
}

func (self *DecodedField) End() int64 {
	return self.Offset + self.Length
}

func (self *DecodedField) Row() *ordereddict.Dict {
	result := ordereddict.NewDict().
		Set("path", self.Path.String()).
		Set("offset", self.Offset).
		Set("length", self.Length)

	if !IsNil(self.Type) {
		result.Set("type", self.Type.TypeName())
	}

	if self.Value != nil {
		result.Set("value", self.Value)

		primitive, ok := self.Type.(*Primitive)
		if ok {
			label, ok := primitive.Label(self.Value)
			if ok {
				result.Set("display", label)
			}
		}
	}

	if self.Err != nil {
		result.Set("error", self.Err.Error())
	}
	return result
}

func (self *DecodedField) MarshalJSON() ([]byte, error) {
	return self.Row().MarshalJSON()
}
