package hexite

import (
	"math"

	"github.com/pkg/errors"
)

// A named member of a Struct (or a child of a Format).
type Field struct {
	Name string

	// Offset relative to the start of the containing struct.
	Offset int64

	// Alternatively offset may be given as an expression.
	OffsetExpression *Expression

	Type Type
}

func (self *Field) fixed() bool {
	return self.OffsetExpression == nil && IsFixed(self.Type)
}

type Struct struct {
	Name string

	// A declared size overrides the size computed from the fields.
	Size           int64
	SizeExpression *Expression

	// The computed size is rounded up to this alignment.
	Align int64

	// Union structs may have overlapping fields.
	Union bool

	// Maintain the order of the fields.
	fields []*Field
}

func NewStruct(name string, size int64) *Struct {
	return &Struct{
		Name: name,
		Size: size,
	}
}

func (self *Struct) TypeName() string {
	return self.Name
}

func (self *Struct) isType() {}

func (self *Struct) AddField(name string, offset int64, t Type) *Field {
	field := &Field{
		Name:   name,
		Offset: offset,
		Type:   t,
	}
	self.fields = append(self.fields, field)
	return field
}

func (self *Struct) Fields() []*Field {
	return append([]*Field{}, self.fields...)
}

func (self *Struct) fixedSize(stack *sizingStack) (int64, bool) {
	if self.SizeExpression != nil {
		return 0, false
	}

	if self.Size > 0 {
		return self.Size, true
	}

	end := int64(0)
	for _, field := range self.fields {
		if field.OffsetExpression != nil {
			return 0, false
		}

		size, ok := fixedSize(field.Type, stack)
		if !ok {
			return 0, false
		}

		if field.Offset > math.MaxInt64-size {
			return 0, false
		}

		if field.Offset+size > end {
			end = field.Offset + size
		}
	}

	return alignUp(end, self.Align), true
}

func (self *Struct) dynamicSize(ctx SizeContext) (int64, error) {
	ctx, err := ctx.nested()
	if err != nil {
		return 0, errors.Wrapf(err, "struct %v", self.Name)
	}

	key := sizeKey{t: self, offset: ctx.Offset}
	size, pres := ctx.cache.size(key)
	if pres {
		return size, nil
	}

	layout := newLayout(self.fields, ctx)
	if self.SizeExpression != nil {
		this := layout.values()
		size, err := self.SizeExpression.EvalInt64(ctx.WithThis(this))
		if err != nil {
			return 0, layout.explain(err)
		}
		if size < 0 {
			return 0, &MalformedDynamicSize{
				Expression: self.SizeExpression.String(),
				Value:      size,
				Reason:     "is a negative struct size",
			}
		}
		ctx.cache.setSize(key, size)
		return size, nil
	}

	end, err := layout.end()
	if err != nil {
		return 0, errors.Wrapf(err, "struct %v", self.Name)
	}

	size = alignUp(end, self.Align)
	ctx.cache.setSize(key, size)
	return size, nil
}
