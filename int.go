package hexite

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"
)

type Endian int

const (
	LittleEndian Endian = iota
	BigEndian
	NativeEndian
)

func (self Endian) order() binary.ByteOrder {
	switch self {
	case BigEndian:
		return binary.BigEndian
	case NativeEndian:
		return binary.NativeEndian
	}
	return binary.LittleEndian
}

type PrimitiveKind int

const (
	Unsigned PrimitiveKind = iota
	Signed
	Float
)

// A leaf type with a width known without looking at the data.
type Primitive struct {
	Name   string
	Width  int64
	Kind   PrimitiveKind
	Endian Endian

	// Optional display names for integer values.
	Labels Labels
}

func NewPrimitive(name string, width int64,
	kind PrimitiveKind, endian Endian) (*Primitive, error) {
	result := &Primitive{
		Name:   name,
		Width:  width,
		Kind:   kind,
		Endian: endian,
	}
	return result, result.validate()
}

func (self *Primitive) TypeName() string {
	return self.Name
}

func (self *Primitive) isType() {}

func (self *Primitive) validate() error {
	switch self.Kind {
	case Float:
		if self.Width == 4 || self.Width == 8 {
			return nil
		}
	default:
		switch self.Width {
		case 1, 2, 4, 8:
			return nil
		}
	}
	return errors.Wrapf(InvalidConfigurationError,
		"primitive %v can not be %d bytes wide", self.Name, self.Width)
}

// Decode reads the value at offset. Unsigned primitives decode to
// uint64, signed to int64 and floats to float64.
func (self *Primitive) Decode(reader io.ReaderAt, offset int64) (interface{}, error) {
	if offset < 0 {
		return nil, errors.Wrapf(InvalidConfigurationError,
			"negative offset %d", offset)
	}

	buf := make([]byte, self.Width)
	n, err := reader.ReadAt(buf, offset)
	if int64(n) < self.Width {
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		return nil, &TruncatedData{
			Offset: offset + int64(n),
			Short:  self.Width - int64(n),
		}
	}
	return self.convert(buf), nil
}

func (self *Primitive) convert(buf []byte) interface{} {
	order := self.Endian.order()

	var bits uint64
	switch self.Width {
	case 1:
		bits = uint64(buf[0])
	case 2:
		bits = uint64(order.Uint16(buf))
	case 4:
		bits = uint64(order.Uint32(buf))
	default:
		bits = order.Uint64(buf)
	}

	switch self.Kind {
	case Signed:
		// Sign extend from the primitive's width.
		shift := 64 - 8*uint(self.Width)
		return int64(bits<<shift) >> shift

	case Float:
		if self.Width == 4 {
			return float64(math.Float32frombits(uint32(bits)))
		}
		return math.Float64frombits(bits)
	}

	return bits
}

// Label renders value with the primitive's labels, if any.
func (self *Primitive) Label(value interface{}) (string, bool) {
	if self.Labels == nil {
		return "", false
	}

	i, ok := to_int64(value)
	if !ok {
		return "", false
	}
	return self.Labels.Label(i), true
}

func (self *Primitive) String() string {
	return fmt.Sprintf("%v(%d)", self.Name, self.Width)
}
