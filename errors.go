package hexite

import (
	"errors"
	"fmt"
)

var (
	NotFoundError             = errors.New("NotFoundError")
	InvalidConfigurationError = errors.New("InvalidConfiguration")
	LayoutConflictError       = errors.New("LayoutConflict")
	TruncatedDataError        = errors.New("TruncatedData")
	MalformedDynamicSizeError = errors.New("MalformedDynamicSize")
)

// TruncatedData is reported when a decode needs bytes beyond the end
// of the buffer.
type TruncatedData struct {
	// Where the data ran out.
	Offset int64

	// How many bytes are missing.
	Short int64
}

func (self *TruncatedData) Error() string {
	return fmt.Sprintf("TruncatedData: %d bytes short at offset %#x",
		self.Short, self.Offset)
}

func (self *TruncatedData) Unwrap() error {
	return TruncatedDataError
}

// Span describes one side of a LayoutConflict.
type Span struct {
	Name  string
	Index int
	Start int64
	End   int64
}

func (self Span) String() string {
	return fmt.Sprintf("%v (#%d) [%#x, %#x)", self.Name, self.Index,
		self.Start, self.End)
}

// LayoutConflict is reported when two non union children claim the
// same bytes.
type LayoutConflict struct {
	Owner  string
	First  Span
	Second Span
}

func (self *LayoutConflict) Error() string {
	return fmt.Sprintf("LayoutConflict in %v: %v overlaps %v",
		self.Owner, self.First, self.Second)
}

func (self *LayoutConflict) Unwrap() error {
	return LayoutConflictError
}

// MalformedDynamicSize is reported when a count, offset or size
// expression produces something that can not be a length.
type MalformedDynamicSize struct {
	Expression string
	Value      interface{}
	Reason     string
}

func (self *MalformedDynamicSize) Error() string {
	if self.Expression == "" {
		return fmt.Sprintf("MalformedDynamicSize: %v (%v)", self.Reason, self.Value)
	}
	return fmt.Sprintf("MalformedDynamicSize: '%v' %v (%v)",
		self.Expression, self.Reason, self.Value)
}

func (self *MalformedDynamicSize) Unwrap() error {
	return MalformedDynamicSizeError
}
