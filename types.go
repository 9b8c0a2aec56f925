// Implements a lazy binary format description system.
package hexite

import (
	"github.com/pkg/errors"
)

// Type is one of *Primitive, *Struct or *Slice. The set is closed:
// sizes are resolved by FixedSize and Size rather than by methods on
// each variant.
type Type interface {
	TypeName() string

	isType()
}

// FixedSize returns the size of a type when it can be known from the
// declaration alone. Every type is either fixed (ok is true) or
// dynamic (ok is false), never both.
func FixedSize(t Type) (int64, bool) {
	return fixedSize(t, nil)
}

// The structs currently being sized, innermost first. A struct which
// is reached again contains itself and has no fixed size.
type sizingStack struct {
	s      *Struct
	parent *sizingStack
}

func (self *sizingStack) contains(s *Struct) bool {
	for item := self; item != nil; item = item.parent {
		if item.s == s {
			return true
		}
	}
	return false
}

func fixedSize(t Type, stack *sizingStack) (int64, bool) {
	switch t := t.(type) {
	case *Primitive:
		return t.Width, true

	case *Struct:
		if stack.contains(t) {
			return 0, false
		}
		return t.fixedSize(&sizingStack{s: t, parent: stack})

	case *Slice:
		return t.fixedSize(stack)
	}

	return 0, false
}

func IsFixed(t Type) bool {
	_, ok := FixedSize(t)
	return ok
}

// Size computes the number of bytes an instance of t occupies at
// ctx.Offset. For fixed types the context is not consulted.
func Size(t Type, ctx SizeContext) (int64, error) {
	if IsNil(t) {
		return 0, errors.Wrap(InvalidConfigurationError, "nil type")
	}

	size, ok := FixedSize(t)
	if ok {
		return size, nil
	}

	switch t := t.(type) {
	case *Struct:
		return t.dynamicSize(ctx)

	case *Slice:
		return t.dynamicSize(ctx)
	}

	return 0, errors.Wrapf(InvalidConfigurationError, "unknown type %T", t)
}
