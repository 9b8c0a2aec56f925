package hexite

import (
	"fmt"

	"github.com/pkg/errors"
)

// A Format binds byte offsets to types over a buffer. It is built by
// AddChild calls and becomes read only once a View uses it.
type Format struct {
	name  string
	union bool

	// Children keep insertion order for display even when offsets
	// are not monotonic.
	children []*Field

	sealed bool
}

type FormatOption func(self *Format)

// WithUnionLayout allows children to overlap deliberately.
func WithUnionLayout() FormatOption {
	return func(self *Format) {
		self.union = true
	}
}

func NewFormat(name string, options ...FormatOption) *Format {
	result := &Format{name: name}
	for _, o := range options {
		o(result)
	}
	return result
}

func (self *Format) Name() string {
	return self.name
}

func (self *Format) IsUnion() bool {
	return self.union
}

func (self *Format) AddChild(offset int64, t Type) error {
	return self.AddNamedChild("", offset, t)
}

func (self *Format) AddNamedChild(name string, offset int64, t Type) error {
	if self.sealed {
		return errors.Wrapf(InvalidConfigurationError,
			"format %v is already in use by a view", self.name)
	}

	if IsNil(t) {
		return errors.Wrapf(InvalidConfigurationError,
			"format %v: child %d has no type", self.name, len(self.children))
	}

	if offset < 0 {
		return errors.Wrapf(InvalidConfigurationError,
			"format %v: child %d has negative offset %d",
			self.name, len(self.children), offset)
	}

	if name == "" {
		name = fmt.Sprintf("child_%d", len(self.children))
	}

	self.children = append(self.children, &Field{
		Name:   name,
		Offset: offset,
		Type:   t,
	})
	return nil
}

func (self *Format) Children() []*Field {
	return append([]*Field{}, self.children...)
}

// Child finds a top level child by name.
func (self *Format) Child(name string) (int, *Field, error) {
	for idx, child := range self.children {
		if child.Name == name {
			return idx, child, nil
		}
	}
	return 0, nil, errors.Wrapf(NotFoundError, "child %v in format %v",
		name, self.name)
}

// Size is the number of bytes a buffer needs to hold every child.
func (self *Format) Size(ctx SizeContext) (int64, error) {
	return newLayout(self.children, ctx.At(0)).end()
}

func (self *Format) seal() {
	self.sealed = true
}
