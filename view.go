package hexite

import (
	"bytes"
	stderrors "errors"
	"io"

	"github.com/Velocidex/ordereddict"
	"github.com/pkg/errors"
	"www.velocidex.com/golang/vfilter"
)

// Bounds expression driven element counts unless a View is told
// otherwise.
const DefaultMaxElements = 1 << 20

// A Buffer is the read only byte source a View decodes from.
// *bytes.Reader and *io.SectionReader both satisfy it.
type Buffer interface {
	io.ReaderAt
	Size() int64
}

// A View applies a Format to a buffer. The buffer must outlive the
// View; the View never writes to it. Several Views may share one
// buffer across goroutines, but a single View is not safe for
// concurrent use because of its decode cache.
type View struct {
	buffer Buffer
	format *Format
	scope  vfilter.Scope

	cache        *decodeCache
	max_elements int64
}

type ViewOption func(self *View)

// WithoutCache makes every query walk dynamic slices from their first
// element.
func WithoutCache() ViewOption {
	return func(self *View) {
		self.cache = nil
	}
}

func WithMaxElements(max_elements int64) ViewOption {
	return func(self *View) {
		self.max_elements = max_elements
	}
}

func WithScope(scope vfilter.Scope) ViewOption {
	return func(self *View) {
		self.scope = scope
	}
}

func NewView(buffer Buffer, format *Format, options ...ViewOption) (*View, error) {
	if IsNil(buffer) || format == nil {
		return nil, errors.Wrap(InvalidConfigurationError,
			"a view needs a buffer and a format")
	}

	err := format.Validate()
	if err != nil {
		return nil, err
	}
	format.seal()

	result := &View{
		buffer:       buffer,
		format:       format,
		cache:        newDecodeCache(),
		max_elements: DefaultMaxElements,
	}

	for _, o := range options {
		o(result)
	}

	if result.max_elements < 0 {
		return nil, errors.Wrapf(InvalidConfigurationError,
			"negative max elements %d", result.max_elements)
	}

	if result.scope == nil {
		result.scope = MakeScope()
	}

	return result, nil
}

func NewBytesView(data []byte, format *Format, options ...ViewOption) (*View, error) {
	return NewView(bytes.NewReader(data), format, options...)
}

func (self *View) Format() *Format {
	return self.format
}

func (self *View) BufferSize() int64 {
	return self.buffer.Size()
}

// ResetCache forgets every remembered size and element position.
func (self *View) ResetCache() {
	self.cache.reset()
}

func (self *View) sizeContext() SizeContext {
	return SizeContext{
		Reader:   self.buffer,
		Scope:    self.scope,
		MaxCount: self.max_elements,
		cache:    self.cache,
	}
}

// Size is the number of bytes the format requires.
func (self *View) Size() (int64, error) {
	return self.format.Size(self.sizeContext())
}

type QueryResult struct {
	Fields []*DecodedField

	// Every failure, annotated with the path of the field that
	// failed. Failed fields also carry their own error.
	Errors []error
}

func (self *QueryResult) Err() error {
	return stderrors.Join(self.Errors...)
}

func (self *QueryResult) Truncated() bool {
	for _, err := range self.Errors {
		if errors.Is(err, TruncatedDataError) {
			return true
		}
	}
	return false
}

// Query decodes the fields whose bytes intersect [start, end).
// Fields entirely outside the range are not decoded. Failures are
// reported per field and never abort the rest of the query.
func (self *View) Query(start, end int64) (*QueryResult, error) {
	if start < 0 || end < start {
		return nil, errors.Wrapf(InvalidConfigurationError,
			"invalid range [%#x, %#x)", start, end)
	}

	result := &QueryResult{}
	if start == end {
		return result, nil
	}

	debugf("query %v [%#x, %#x)", self.format.name, start, end)

	q := &query{
		start:       start,
		end:         end,
		buffer_size: self.buffer.Size(),
		result:      result,
	}

	root := newLayout(self.format.children, self.sizeContext())
	q.walkLayout(root, NewHierarchy(self.format.name))

	for _, field := range result.Fields {
		if field.Err != nil {
			result.Errors = append(result.Errors,
				errors.Wrap(field.Err, field.Path.String()))
		}
	}

	if len(result.Fields) == 0 {
		total, err := root.end()
		if err == nil && start >= total {
			result.Errors = append(result.Errors, &TruncatedData{
				Offset: total,
				Short:  end - total,
			})
		}
	}

	return result, nil
}

type query struct {
	start, end  int64
	buffer_size int64
	result      *QueryResult
}

func (self *query) intersects(start, size int64) bool {
	if size == 0 {
		return start >= self.start && start < self.end
	}
	return start < self.end && start+size > self.start
}

func (self *query) emit(field *DecodedField) *DecodedField {
	self.result.Fields = append(self.result.Fields, field)
	return field
}

func (self *query) walkLayout(layout *layout, path Hierarchy) {
	for i, field := range layout.fields {
		p := layout.place(i)
		field_path := path.Field(field.Name)

		if p.err != nil {
			// We do not know how long it is, so report it if it
			// could be visible.
			if p.start < self.end {
				self.emit(&DecodedField{
					Path:   field_path,
					Offset: p.start,
					Type:   field.Type,
					Err:    p.err,
				})
			}
			continue
		}

		if !self.intersects(p.start, p.size) {
			continue
		}

		ctx := layout.ctx
		slice, ok := field.Type.(*Slice)
		if ok && slice.CountExpression != nil {
			ctx = layout.fieldContext(i)
		}

		self.visit(field.Type, field_path, p.start, p.size, ctx)
	}
}

func (self *query) visit(t Type, path Hierarchy,
	start, size int64, ctx SizeContext) {
	field := self.emit(&DecodedField{
		Path:   path,
		Offset: start,
		Length: size,
		Type:   t,
	})

	switch t := t.(type) {
	case *Primitive:
		field.Value, field.Err = t.Decode(ctx.Reader, start)

	case *Struct:
		nested, err := ctx.nested()
		if err != nil {
			field.Err = err
			return
		}
		self.walkLayout(newLayout(t.fields, nested.At(start)), path)

	case *Slice:
		self.walkSlice(t, field, ctx.At(start))
	}
}

func (self *query) walkSlice(slice *Slice, field *DecodedField, ctx SizeContext) {
	count, err := slice.ElementCount(ctx)
	if err != nil {
		field.Err = err
		return
	}

	element_size, ok := FixedSize(slice.Element)
	if ok {
		if element_size == 0 {
			return
		}

		// Fixed elements can be located directly.
		first := int64(0)
		if self.start > ctx.Offset {
			first = (self.start - ctx.Offset) / element_size
		}

		for i := first; i < count; i++ {
			element_start := ctx.Offset + i*element_size
			if element_start >= self.end {
				break
			}

			self.visit(slice.Element, field.Path.Element(i),
				element_start, element_size, ctx)

			// Everything after this is missing too.
			if element_start+element_size > self.buffer_size {
				break
			}
		}
		return
	}

	// Dynamic elements must be walked from the closest element whose
	// start we already know.
	i, offset := ctx.cache.elementAt(slice, ctx.Offset, self.start)
	if i > 0 {
		debugf("slice %v at %#x: query resumes at element %d",
			slice.TypeName(), ctx.Offset, i)
	}

	for ; i < count && offset < self.end; i++ {
		size, err := Size(slice.Element, ctx.At(offset))
		if err != nil {
			// Later elements can not be located.
			self.emit(&DecodedField{
				Path:   field.Path.Element(i),
				Offset: offset,
				Type:   slice.Element,
				Err:    err,
			})
			return
		}
		ctx.cache.recordElement(slice, ctx.Offset, i+1, offset+size)

		if self.intersects(offset, size) {
			self.visit(slice.Element, field.Path.Element(i), offset, size, ctx)
		}
		offset += size
	}
}

// Decode fully decodes a top level child (or the whole format when
// name is the format's name) into plain values: numbers, ordered
// dicts for structs and lists for slices.
func (self *View) Decode(name string) (interface{}, error) {
	ctx := self.sizeContext()
	root := newLayout(self.format.children, ctx)

	if name == self.format.name {
		return decodeLayout(root)
	}

	idx, child, err := self.format.Child(name)
	if err != nil {
		return nil, err
	}

	p := root.place(idx)
	if p.err != nil {
		return nil, errors.Wrap(p.err, name)
	}

	return decodeValue(child.Type, root.fieldContext(idx).At(p.start))
}

func decodeLayout(layout *layout) (*ordereddict.Dict, error) {
	result := ordereddict.NewDict()
	for i, field := range layout.fields {
		p := layout.place(i)
		if p.err != nil {
			return nil, errors.Wrap(p.err, field.Name)
		}

		ctx := layout.ctx
		if _, ok := field.Type.(*Slice); ok {
			ctx = layout.fieldContext(i)
		}

		value, err := decodeValue(field.Type, ctx.At(p.start))
		if err != nil {
			return nil, errors.Wrap(err, field.Name)
		}
		result.Set(field.Name, value)
	}
	return result, nil
}

const maxPreallocated = 4096

func decodeValue(t Type, ctx SizeContext) (interface{}, error) {
	switch t := t.(type) {
	case *Primitive:
		return t.Decode(ctx.Reader, ctx.Offset)

	case *Struct:
		nested, err := ctx.nested()
		if err != nil {
			return nil, err
		}
		return decodeLayout(newLayout(t.fields, nested))

	case *Slice:
		count, err := t.ElementCount(ctx)
		if err != nil {
			return nil, err
		}

		// Rejects counts whose elements can not fit.
		_, err = Size(t, ctx)
		if err != nil {
			return nil, err
		}

		// The count comes from the data so it does not size the
		// allocation.
		result := make([]interface{}, 0, min(count, maxPreallocated))
		offset := ctx.Offset
		for i := int64(0); i < count; i++ {
			size, err := Size(t.Element, ctx.At(offset))
			if err != nil {
				return nil, errors.Wrapf(err, "element %d", i)
			}

			value, err := decodeValue(t.Element, ctx.At(offset))
			if err != nil {
				return nil, errors.Wrapf(err, "element %d", i)
			}
			result = append(result, value)
			offset += size
		}
		return result, nil
	}

	return nil, errors.Wrapf(InvalidConfigurationError, "unknown type %T", t)
}

// SliceExtent describes where a top level slice lives.
type SliceExtent struct {
	Start int64
	Size  int64
	Count int64
}

// AverageElementSize is what a scroll container needs to estimate
// the space of elements it does not render.
func (self *SliceExtent) AverageElementSize() int64 {
	if self.Count == 0 {
		return 0
	}
	return self.Size / self.Count
}

func (self *View) sliceChild(name string) (*Slice, SizeContext, error) {
	idx, child, err := self.format.Child(name)
	if err != nil {
		return nil, SizeContext{}, err
	}

	slice, ok := child.Type.(*Slice)
	if !ok {
		return nil, SizeContext{}, errors.Wrapf(InvalidConfigurationError,
			"child %v is a %v, not a slice", name, child.Type.TypeName())
	}

	root := newLayout(self.format.children, self.sizeContext())
	p := root.place(idx)
	if p.err != nil {
		return nil, SizeContext{}, errors.Wrap(p.err, name)
	}

	return slice, root.fieldContext(idx).At(p.start), nil
}

func (self *View) SliceExtent(name string) (*SliceExtent, error) {
	slice, ctx, err := self.sliceChild(name)
	if err != nil {
		return nil, err
	}

	count, err := slice.ElementCount(ctx)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}

	size, err := Size(slice, ctx)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}

	return &SliceExtent{Start: ctx.Offset, Size: size, Count: count}, nil
}

// SliceSpan translates the element window [first, last) of a top
// level slice into the byte range a Query needs.
func (self *View) SliceSpan(name string, first, last int64) (int64, int64, error) {
	if first < 0 || last < first {
		return 0, 0, errors.Wrapf(InvalidConfigurationError,
			"invalid element range [%d, %d)", first, last)
	}

	slice, ctx, err := self.sliceChild(name)
	if err != nil {
		return 0, 0, err
	}

	count, err := slice.ElementCount(ctx)
	if err != nil {
		return 0, 0, errors.Wrap(err, name)
	}

	start, err := slice.elementStart(ctx, count, first)
	if err != nil {
		return 0, 0, errors.Wrap(err, name)
	}

	end, err := slice.elementStart(ctx, count, last)
	if err != nil {
		return 0, 0, errors.Wrap(err, name)
	}

	return start, end, nil
}
