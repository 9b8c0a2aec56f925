package hexite

import (
	"fmt"
	"io"

	"github.com/Velocidex/ordereddict"
	"www.velocidex.com/golang/vfilter"
)

// Structs nested deeper than this are rejected. Only data driven
// recursion (a struct holding a counted slice of itself) can get
// here.
const MaxNesting = 512

// SizeContext carries whatever is needed to resolve a size that
// depends on data. It is passed by value into every size query and
// fixed size types ignore it entirely.
type SizeContext struct {
	// The buffer being decoded.
	Reader io.ReaderAt

	// Absolute offset of the instance being sized.
	Offset int64

	// Values of previously decoded sibling fields. Count and offset
	// expressions are evaluated against this.
	This *ordereddict.Dict

	// Scope used to evaluate lambdas. A fresh scope is made when nil.
	Scope vfilter.Scope

	// Upper bound on expression driven element counts. 0 means
	// unbounded.
	MaxCount int64

	// Set by a View so repeated size queries do not walk the same
	// elements twice.
	cache *decodeCache

	// How many structs enclose the instance.
	depth int
}

func (self SizeContext) At(offset int64) SizeContext {
	self.Offset = offset
	return self
}

func (self SizeContext) WithThis(this *ordereddict.Dict) SizeContext {
	self.This = this
	return self
}

// nested is the context for the fields of a struct instance.
func (self SizeContext) nested() (SizeContext, error) {
	if self.depth >= MaxNesting {
		return self, &MalformedDynamicSize{
			Value:  self.depth,
			Reason: fmt.Sprintf("structs nest deeper than %d", MaxNesting),
		}
	}
	self.depth++
	return self, nil
}
