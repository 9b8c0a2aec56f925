package hexite

import (
	"math"

	"github.com/Velocidex/ordereddict"
	"github.com/pkg/errors"
)

type placement struct {
	start int64
	size  int64
	err   error
	done  bool
}

func (self placement) end() int64 {
	return self.start + self.size
}

// A layout places the fields of one struct instance (or the children
// of a Format) at a base offset. Fixed fields are placed from their
// declaration. Dynamic fields first decode the fields declared
// before them so their expressions can refer to them.
type layout struct {
	fields []*Field
	ctx    SizeContext

	placed []placement

	// Values of the first `decoded` fields.
	this    *ordereddict.Dict
	decoded int

	// The first error seen while decoding values into this.
	this_err error
}

func newLayout(fields []*Field, ctx SizeContext) *layout {
	return &layout{
		fields: fields,
		ctx:    ctx,
		placed: make([]placement, len(fields)),
		this:   ordereddict.NewDict(),
	}
}

func (self *layout) base() int64 {
	return self.ctx.Offset
}

// Context for evaluating expressions of field i.
func (self *layout) fieldContext(i int) SizeContext {
	return self.ctx.WithThis(self.thisBefore(i))
}

func (self *layout) place(i int) placement {
	p := &self.placed[i]
	if p.done {
		return *p
	}
	p.done = true

	field := self.fields[i]
	if field.fixed() {
		p.start = self.base() + field.Offset
		p.size, _ = FixedSize(field.Type)
		return *p
	}

	ctx := self.fieldContext(i)
	offset := field.Offset
	if field.OffsetExpression != nil {
		var err error
		offset, err = field.OffsetExpression.EvalInt64(ctx)
		if err != nil {
			p.start = self.base()
			p.err = self.explain(err)
			return *p
		}

		if offset < 0 {
			p.start = self.base()
			p.err = &MalformedDynamicSize{
				Expression: field.OffsetExpression.String(),
				Value:      offset,
				Reason:     "is a negative field offset",
			}
			return *p
		}

		if offset > math.MaxInt64-self.base() {
			p.start = self.base()
			p.err = &MalformedDynamicSize{
				Expression: field.OffsetExpression.String(),
				Value:      offset,
				Reason:     "overflows the field offset",
			}
			return *p
		}
	}

	p.start = self.base() + offset
	p.size, p.err = Size(field.Type, ctx.At(p.start))
	if p.err != nil {
		p.err = self.explain(p.err)
	}
	return *p
}

// An expression that fails because a value it needs could not be
// decoded should report why that value is missing.
func (self *layout) explain(err error) error {
	if self.this_err != nil && errors.Is(err, MalformedDynamicSizeError) {
		return self.this_err
	}
	return err
}

func (self *layout) thisBefore(i int) *ordereddict.Dict {
	for self.decoded < i {
		j := self.decoded
		self.decoded++

		value, err := self.value(j)
		if err != nil {
			if self.this_err == nil {
				self.this_err = err
			}
			continue
		}
		self.this.Set(self.fields[j].Name, value)
	}
	return self.this
}

// The value of field i as seen by expressions: primitives decode to
// numbers, structs to dicts and slices to their element count.
func (self *layout) value(i int) (interface{}, error) {
	p := self.place(i)
	if p.err != nil {
		return nil, p.err
	}

	switch t := self.fields[i].Type.(type) {
	case *Primitive:
		return t.Decode(self.ctx.Reader, p.start)

	case *Struct:
		nested := newLayout(t.fields, self.ctx.At(p.start))
		return nested.values(), nested.this_err

	case *Slice:
		return t.ElementCount(self.fieldContext(i).At(p.start))
	}

	return nil, errors.Wrapf(InvalidConfigurationError,
		"unknown type %T", self.fields[i].Type)
}

// Decode every field into this.
func (self *layout) values() *ordereddict.Dict {
	return self.thisBefore(len(self.fields))
}

// The end of the furthest field relative to the base.
func (self *layout) end() (int64, error) {
	end := int64(0)
	for i := range self.fields {
		p := self.place(i)
		if p.err != nil {
			return 0, errors.Wrapf(p.err, "field %v", self.fields[i].Name)
		}

		if p.end()-self.base() > end {
			end = p.end() - self.base()
		}
	}
	return end, nil
}
