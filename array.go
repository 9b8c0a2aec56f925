package hexite

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// A homogeneous repetition of one element type. The count is either
// declared or read from previously decoded data.
type Slice struct {
	Name string

	Element         Type
	Count           int64
	CountExpression *Expression

	// Counts above this are rejected as malformed. 0 falls back to
	// the context's MaxCount.
	MaxCount int64
}

func NewSlice(element Type, count int64) *Slice {
	return &Slice{
		Element: element,
		Count:   count,
	}
}

func NewDynamicSlice(element Type, count *Expression) *Slice {
	return &Slice{
		Element:         element,
		CountExpression: count,
	}
}

func (self *Slice) TypeName() string {
	if self.Name != "" {
		return self.Name
	}

	element := "?"
	if !IsNil(self.Element) {
		element = self.Element.TypeName()
	}

	if self.CountExpression != nil {
		return fmt.Sprintf("%s[%s]", element, self.CountExpression)
	}
	return fmt.Sprintf("%s[%d]", element, self.Count)
}

func (self *Slice) isType() {}

// Negative or overflowing counts are not fixed so that Size reports
// them.
func (self *Slice) fixedSize(stack *sizingStack) (int64, bool) {
	if self.CountExpression != nil || IsNil(self.Element) || self.Count < 0 {
		return 0, false
	}

	size, ok := fixedSize(self.Element, stack)
	if !ok || !fitsInt64(size, self.Count) {
		return 0, false
	}
	return size * self.Count, true
}

func fitsInt64(element_size, count int64) bool {
	return element_size == 0 || count <= math.MaxInt64/element_size
}

func (self *Slice) overflow(count int64) error {
	return &MalformedDynamicSize{
		Expression: self.countString(),
		Value:      count,
		Reason:     "elements overflow the slice size",
	}
}

func (self *Slice) countString() string {
	if self.CountExpression != nil {
		return self.CountExpression.String()
	}
	return ""
}

// ElementCount resolves the number of elements for an instance whose
// siblings are in ctx.This.
func (self *Slice) ElementCount(ctx SizeContext) (int64, error) {
	if self.CountExpression == nil {
		if self.Count < 0 {
			return 0, &MalformedDynamicSize{
				Value:  self.Count,
				Reason: "negative element count",
			}
		}
		return self.Count, nil
	}

	count, err := self.CountExpression.EvalInt64(ctx)
	if err != nil {
		return 0, err
	}

	if count < 0 {
		return 0, &MalformedDynamicSize{
			Expression: self.CountExpression.String(),
			Value:      count,
			Reason:     "is a negative element count",
		}
	}

	max_count := self.MaxCount
	if max_count == 0 {
		max_count = ctx.MaxCount
	}

	if max_count > 0 && count > max_count {
		return 0, &MalformedDynamicSize{
			Expression: self.CountExpression.String(),
			Value:      count,
			Reason:     fmt.Sprintf("exceeds max_count %d", max_count),
		}
	}

	return count, nil
}

func (self *Slice) dynamicSize(ctx SizeContext) (int64, error) {
	if IsNil(self.Element) {
		return 0, errors.Wrap(InvalidConfigurationError, "slice without an element type")
	}

	count, err := self.ElementCount(ctx)
	if err != nil {
		return 0, err
	}

	element_size, ok := FixedSize(self.Element)
	if ok {
		if !fitsInt64(element_size, count) ||
			element_size*count > math.MaxInt64-ctx.Offset {
			return 0, self.overflow(count)
		}
		return element_size * count, nil
	}

	key := sizeKey{t: self, offset: ctx.Offset, count: count}
	size, pres := ctx.cache.size(key)
	if pres {
		return size, nil
	}

	end, err := self.elementStart(ctx, count, count)
	if err != nil {
		return 0, err
	}

	ctx.cache.setSize(key, end-ctx.Offset)
	return end - ctx.Offset, nil
}

// elementStart returns the absolute offset where element `index`
// starts. Dynamic elements can only be located by sizing every
// element before them, so the walk resumes from the closest element
// the cache already knows about.
func (self *Slice) elementStart(ctx SizeContext, count, index int64) (int64, error) {
	if index > count {
		index = count
	}

	element_size, ok := FixedSize(self.Element)
	if ok {
		if !fitsInt64(element_size, index) ||
			element_size*index > math.MaxInt64-ctx.Offset {
			return 0, self.overflow(count)
		}
		return ctx.Offset + element_size*index, nil
	}

	i, offset := ctx.cache.nearestElement(self, ctx.Offset, index)
	if i > 0 {
		debugf("slice %v at %#x: resuming at element %d", self.TypeName(), ctx.Offset, i)
	}

	for ; i < index; i++ {
		size, err := Size(self.Element, ctx.At(offset))
		if err != nil {
			return 0, errors.Wrapf(err, "element %d", i)
		}
		if size > math.MaxInt64-offset {
			return 0, self.overflow(count)
		}
		offset += size
		ctx.cache.recordElement(self, ctx.Offset, i+1, offset)
	}

	return offset, nil
}
