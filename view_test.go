package hexite

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A count followed by four length prefixed records:
//
//	04 | 02 aa bb | 00 | 03 01 02 03 | 01 09
var recordsSample = []byte{
	0x04,
	0x02, 0xaa, 0xbb,
	0x00,
	0x03, 0x01, 0x02, 0x03,
	0x01, 0x09,
}

func recordsFormat(t *testing.T) *Format {
	length_expression, err := NewExpression("Length")
	require.NoError(t, err)

	record := NewStruct("Record", 0)
	record.AddField("Length", 0, Uint8)
	record.AddField("Data", 1, NewDynamicSlice(Uint8, length_expression))

	count_expression, err := NewExpression("x => x.count")
	require.NoError(t, err)

	format := NewFormat("root")
	require.NoError(t, format.AddNamedChild("count", 0, Uint8))
	require.NoError(t, format.AddNamedChild("records", 1,
		NewDynamicSlice(record, count_expression)))
	return format
}

func paths(result *QueryResult) []string {
	var paths []string
	for _, field := range result.Fields {
		paths = append(paths, field.Path.String())
	}
	return paths
}

func rows(t *testing.T, result *QueryResult) string {
	serialized, err := json.Marshal(result.Fields)
	require.NoError(t, err)
	return string(serialized)
}

func TestSingleField(t *testing.T) {
	format := NewFormat("root")
	require.NoError(t, format.AddChild(0, Uint32))

	view, err := NewBytesView([]byte{1, 0, 0, 0}, format)
	require.NoError(t, err)

	result, err := view.Query(0, 4)
	require.NoError(t, err)
	assert.NoError(t, result.Err())

	require.Equal(t, 1, len(result.Fields))
	field := result.Fields[0]
	assert.Equal(t, "root.child_0", field.Path.String())
	assert.Equal(t, uint64(1), field.Value)
	assert.Equal(t, int64(0), field.Start())
	assert.Equal(t, int64(4), field.End())
}

func TestQueryRanges(t *testing.T) {
	format := NewFormat("root")
	require.NoError(t, format.AddChild(0, Uint32))

	view, err := NewBytesView([]byte{1, 0, 0, 0}, format)
	require.NoError(t, err)

	// Zero length ranges decode nothing.
	result, err := view.Query(2, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, len(result.Fields))
	assert.Equal(t, 0, len(result.Errors))

	// Past the end of the format.
	result, err = view.Query(10, 20)
	require.NoError(t, err)
	assert.Equal(t, 0, len(result.Fields))
	require.Equal(t, 1, len(result.Errors))
	assert.True(t, result.Truncated())

	truncated := &TruncatedData{}
	require.True(t, errors.As(result.Errors[0], &truncated))
	assert.Equal(t, int64(4), truncated.Offset)
	assert.Equal(t, int64(16), truncated.Short)

	_, err = view.Query(-1, 2)
	assert.True(t, errors.Is(err, InvalidConfigurationError))

	_, err = view.Query(4, 2)
	assert.True(t, errors.Is(err, InvalidConfigurationError))
}

func TestQuerySkipsFieldsOutsideRange(t *testing.T) {
	format := NewFormat("root")
	require.NoError(t, format.AddChild(0, Uint32))
	require.NoError(t, format.AddChild(4, Uint32))
	require.NoError(t, format.AddChild(8, Uint32))

	view, err := NewBytesView(sample, format)
	require.NoError(t, err)

	result, err := view.Query(4, 8)
	require.NoError(t, err)
	assert.Equal(t, []string{"root.child_1"}, paths(result))
	assert.Equal(t, uint64(0x08070605), result.Fields[0].Value)

	// Partially covered fields are decoded whole.
	result, err = view.Query(3, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"root.child_0", "root.child_1"}, paths(result))
}

func TestChildrenKeepInsertionOrder(t *testing.T) {
	format := NewFormat("root")
	require.NoError(t, format.AddNamedChild("second", 4, Uint32))
	require.NoError(t, format.AddNamedChild("first", 0, Uint32))

	view, err := NewBytesView(sample, format)
	require.NoError(t, err)

	result, err := view.Query(0, 8)
	require.NoError(t, err)
	assert.Equal(t, []string{"root.second", "root.first"}, paths(result))
	assert.Equal(t, int64(4), result.Fields[0].Offset)
}

func TestTruncatedBuffer(t *testing.T) {
	format := NewFormat("root")
	require.NoError(t, format.AddChild(0, Uint32))
	require.NoError(t, format.AddChild(4, Uint32))

	view, err := NewBytesView([]byte{1, 2, 3, 4, 5, 6}, format)
	require.NoError(t, err)

	result, err := view.Query(0, 8)
	require.NoError(t, err)
	require.Equal(t, 2, len(result.Fields))

	// The first field is unaffected.
	assert.NoError(t, result.Fields[0].Err)
	assert.Equal(t, uint64(0x04030201), result.Fields[0].Value)

	truncated := &TruncatedData{}
	require.True(t, errors.As(result.Fields[1].Err, &truncated))
	assert.Equal(t, int64(6), truncated.Offset)
	assert.Equal(t, int64(2), truncated.Short)

	assert.True(t, result.Truncated())
	require.Equal(t, 1, len(result.Errors))
	assert.Contains(t, result.Errors[0].Error(), "root.child_1")
}

func TestLengthsAddUpToSize(t *testing.T) {
	format := NewFormat("root")
	offset := int64(0)
	for _, primitive := range []*Primitive{Uint8, Uint16, Uint32, Uint64} {
		require.NoError(t, format.AddChild(offset, primitive))
		offset += primitive.Width
	}

	view, err := NewBytesView(sample, format)
	require.NoError(t, err)

	size, err := view.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(15), size)

	result, err := view.Query(0, size)
	require.NoError(t, err)

	total := int64(0)
	for _, field := range result.Fields {
		total += field.Length
	}
	assert.Equal(t, size, total)
}

func TestLayoutConflict(t *testing.T) {
	format := NewFormat("root")
	require.NoError(t, format.AddNamedChild("a", 0, Uint32))
	require.NoError(t, format.AddNamedChild("b", 2, Uint32))

	_, err := NewBytesView(sample, format)
	assert.True(t, errors.Is(err, LayoutConflictError))

	conflict := &LayoutConflict{}
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "a", conflict.First.Name)
	assert.Equal(t, "b", conflict.Second.Name)
	assert.Contains(t, err.Error(), "a (#0)")
	assert.Contains(t, err.Error(), "b (#1)")

	// Deliberate overlaps are fine in a union.
	format = NewFormat("root", WithUnionLayout())
	require.NoError(t, format.AddNamedChild("a", 0, Uint32))
	require.NoError(t, format.AddNamedChild("b", 2, Uint32))

	view, err := NewBytesView(sample, format)
	require.NoError(t, err)

	result, err := view.Query(0, 6)
	require.NoError(t, err)
	assert.Equal(t, []string{"root.a", "root.b"}, paths(result))
}

func TestAdjacentChildrenDoNotConflict(t *testing.T) {
	format := NewFormat("root")
	require.NoError(t, format.AddChild(4, Uint32))
	require.NoError(t, format.AddChild(0, Uint32))
	assert.NoError(t, format.Validate())
}

func TestFormatConfiguration(t *testing.T) {
	format := NewFormat("root")
	assert.True(t, errors.Is(format.AddChild(0, nil), InvalidConfigurationError))
	assert.True(t, errors.Is(format.AddChild(-1, Uint8), InvalidConfigurationError))
	require.NoError(t, format.AddChild(0, Uint8))

	_, err := NewBytesView(sample, format)
	require.NoError(t, err)

	// A format in use by a view can not change.
	err = format.AddChild(1, Uint8)
	assert.True(t, errors.Is(err, InvalidConfigurationError))

	_, _, err = format.Child("missing")
	assert.True(t, errors.Is(err, NotFoundError))

	_, err = NewView(nil, format)
	assert.True(t, errors.Is(err, InvalidConfigurationError))
}

func TestDynamicRecords(t *testing.T) {
	view, err := NewBytesView(recordsSample, recordsFormat(t))
	require.NoError(t, err)

	size, err := view.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(11), size)

	result, err := view.Query(5, 9)
	require.NoError(t, err)
	assert.NoError(t, result.Err())

	assert.Equal(t, []string{
		"root.records",
		"root.records[2]",
		"root.records[2].Length",
		"root.records[2].Data",
		"root.records[2].Data[0]",
		"root.records[2].Data[1]",
		"root.records[2].Data[2]",
	}, paths(result))

	// The container covers every record.
	assert.Equal(t, int64(1), result.Fields[0].Offset)
	assert.Equal(t, int64(10), result.Fields[0].Length)

	assert.Equal(t, int64(5), result.Fields[1].Offset)
	assert.Equal(t, int64(4), result.Fields[1].Length)
	assert.Equal(t, uint64(3), result.Fields[2].Value)
	assert.Equal(t, uint64(1), result.Fields[4].Value)
	assert.Equal(t, uint64(3), result.Fields[6].Value)

	// The empty Data of record 1 sits at offset 5, outside the range.
	result, err = view.Query(4, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"root.records",
		"root.records[1]",
		"root.records[1].Length",
	}, paths(result))
}

func TestCacheDoesNotChangeResults(t *testing.T) {
	cached, err := NewBytesView(recordsSample, recordsFormat(t))
	require.NoError(t, err)

	uncached, err := NewBytesView(recordsSample, recordsFormat(t), WithoutCache())
	require.NoError(t, err)

	for _, r := range [][2]int64{{0, 11}, {9, 11}, {5, 9}, {1, 2}, {0, 1}, {4, 10}} {
		// Query twice so the second run resumes from the cache.
		for i := 0; i < 2; i++ {
			expected, err := uncached.Query(r[0], r[1])
			require.NoError(t, err)

			actual, err := cached.Query(r[0], r[1])
			require.NoError(t, err)

			assert.Equal(t, rows(t, expected), rows(t, actual), "range %v", r)
		}
	}

	cached.ResetCache()
	expected, _ := uncached.Query(0, 11)
	actual, _ := cached.Query(0, 11)
	assert.Equal(t, rows(t, expected), rows(t, actual))
}

func TestMalformedCount(t *testing.T) {
	data := append([]byte{}, recordsSample...)
	data[0] = 200

	view, err := NewBytesView(data, recordsFormat(t), WithMaxElements(100))
	require.NoError(t, err)

	result, err := view.Query(0, 11)
	require.NoError(t, err)

	// The count itself still decodes.
	assert.Equal(t, []string{"root.count", "root.records"}, paths(result))
	assert.Equal(t, uint64(200), result.Fields[0].Value)
	assert.NoError(t, result.Fields[0].Err)

	assert.True(t, errors.Is(result.Fields[1].Err, MalformedDynamicSizeError))
	require.Equal(t, 1, len(result.Errors))
	assert.True(t, errors.Is(result.Errors[0], MalformedDynamicSizeError))

	_, err = view.Size()
	assert.True(t, errors.Is(err, MalformedDynamicSizeError))
}

func TestSliceMaxCount(t *testing.T) {
	count, err := NewExpression("x => x.count")
	require.NoError(t, err)

	slice := NewDynamicSlice(Uint8, count)
	slice.MaxCount = 2

	format := NewFormat("root")
	require.NoError(t, format.AddNamedChild("count", 0, Uint8))
	require.NoError(t, format.AddNamedChild("data", 1, slice))

	view, err := NewBytesView([]byte{3, 1, 2, 3}, format)
	require.NoError(t, err)

	_, err = view.Size()
	assert.True(t, errors.Is(err, MalformedDynamicSizeError))
	assert.Contains(t, err.Error(), "max_count 2")
}

func TestTruncatedCount(t *testing.T) {
	count, err := NewExpression("count")
	require.NoError(t, err)

	format := NewFormat("root")
	require.NoError(t, format.AddNamedChild("count", 0, Uint32))
	require.NoError(t, format.AddNamedChild("data", 4, NewDynamicSlice(Uint8, count)))

	view, err := NewBytesView([]byte{1, 0}, format)
	require.NoError(t, err)

	result, err := view.Query(0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"root.count", "root.data"}, paths(result))

	// The count is missing so the data can not be sized either.
	for _, field := range result.Fields {
		assert.True(t, errors.Is(field.Err, TruncatedDataError), field.Path.String())
	}
}

func TestFixedSliceQuery(t *testing.T) {
	format := NewFormat("root")
	require.NoError(t, format.AddNamedChild("words", 0, NewSlice(Uint16, 8)))

	view, err := NewBytesView(sample, format)
	require.NoError(t, err)

	result, err := view.Query(6, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"root.words",
		"root.words[3]",
		"root.words[4]",
	}, paths(result))
	assert.Equal(t, uint64(0x0807), result.Fields[1].Value)
	assert.Equal(t, "uint16[8]", result.Fields[0].Type.TypeName())

	// Elements past the buffer end stop the walk at the first one.
	short := NewFormat("root")
	require.NoError(t, short.AddNamedChild("words", 0, NewSlice(Uint16, 100)))
	view, err = NewBytesView(sample, short)
	require.NoError(t, err)

	result, err = view.Query(0, 200)
	require.NoError(t, err)
	assert.Equal(t, 1+10, len(result.Fields))
	assert.True(t, result.Truncated())
}

func TestSliceExtentAndSpan(t *testing.T) {
	view, err := NewBytesView(recordsSample, recordsFormat(t))
	require.NoError(t, err)

	extent, err := view.SliceExtent("records")
	require.NoError(t, err)
	assert.Equal(t, int64(1), extent.Start)
	assert.Equal(t, int64(10), extent.Size)
	assert.Equal(t, int64(4), extent.Count)
	assert.Equal(t, int64(2), extent.AverageElementSize())

	start, end, err := view.SliceSpan("records", 2, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(5), start)
	assert.Equal(t, int64(11), end)

	// Ranges past the count clamp to the end of the slice.
	start, end, err = view.SliceSpan("records", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(4), start)
	assert.Equal(t, int64(11), end)

	_, _, err = view.SliceSpan("records", 3, 1)
	assert.True(t, errors.Is(err, InvalidConfigurationError))

	_, err = view.SliceExtent("count")
	assert.True(t, errors.Is(err, InvalidConfigurationError))

	_, err = view.SliceExtent("missing")
	assert.True(t, errors.Is(err, NotFoundError))
}

func TestDecode(t *testing.T) {
	view, err := NewBytesView(recordsSample, recordsFormat(t))
	require.NoError(t, err)

	value, err := view.Decode("root")
	require.NoError(t, err)

	serialized, err := json.Marshal(value)
	require.NoError(t, err)
	assert.Equal(t, `{"count":4,"records":[`+
		`{"Length":2,"Data":[170,187]},`+
		`{"Length":0,"Data":[]},`+
		`{"Length":3,"Data":[1,2,3]},`+
		`{"Length":1,"Data":[9]}]}`, string(serialized))

	_, err = view.Decode("missing")
	assert.True(t, errors.Is(err, NotFoundError))
}

func TestStructSizes(t *testing.T) {
	aligned := NewStruct("Aligned", 0)
	aligned.AddField("a", 0, Uint8)
	aligned.AddField("b", 2, Uint16)
	aligned.Align = 8

	size, ok := FixedSize(aligned)
	assert.True(t, ok)
	assert.Equal(t, int64(8), size)

	// A declared size wins even over dynamic members.
	count, err := NewExpression("a")
	require.NoError(t, err)

	declared := NewStruct("Declared", 16)
	declared.AddField("a", 0, Uint8)
	declared.AddField("b", 1, NewDynamicSlice(Uint8, count))
	assert.True(t, IsFixed(declared))

	declared.Size = 0
	assert.False(t, IsFixed(declared))

	// Size expressions see the decoded members.
	size_expression, err := NewExpression("x => x.a")
	require.NoError(t, err)

	sized := NewStruct("Sized", 0)
	sized.AddField("a", 0, Uint8)
	sized.SizeExpression = size_expression
	assert.False(t, IsFixed(sized))

	view_format := NewFormat("root")
	require.NoError(t, view_format.AddChild(0, sized))
	view, err := NewBytesView([]byte{6, 0, 0, 0, 0, 0}, view_format)
	require.NoError(t, err)

	total, err := view.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)

	_, err = Size(nil, SizeContext{})
	assert.True(t, errors.Is(err, InvalidConfigurationError))
}

func TestSelfContainingStruct(t *testing.T) {
	// An empty array of the struct itself still has no finite size.
	format, _, err := LoadFormat([]byte(`
name: nodes
structs:
  - [Node, 0, [
      [value, 0, uint32],
      [children, 4, Array, {type: Node, count: 0}]
    ]]
children:
  - [root, 0, Node]
`))
	require.NoError(t, err)

	_, err = NewBytesView(sample, format)
	assert.True(t, errors.Is(err, InvalidConfigurationError))
	assert.Contains(t, err.Error(), "Node contains itself")

	node := NewStruct("Node", 0)
	node.AddField("value", 0, Uint32)
	node.AddField("next", 4, node)
	assert.False(t, IsFixed(node))

	format = NewFormat("root")
	require.NoError(t, format.AddChild(0, node))
	_, err = NewBytesView(sample, format)
	assert.True(t, errors.Is(err, InvalidConfigurationError))

	// Sizing it directly runs out of nesting instead of stack.
	_, err = Size(node, SizeContext{Reader: bytes.NewReader(make([]byte, 4096))})
	assert.True(t, errors.Is(err, MalformedDynamicSizeError))
}

func TestRecursiveStruct(t *testing.T) {
	format, _, err := LoadFormat([]byte(`
name: trees
structs:
  - [Tree, 0, [
      [count, 0, uint8],
      [children, 1, Array, {type: Tree, count: "x => x.count"}]
    ]]
children:
  - [root, 0, Tree]
`))
	require.NoError(t, err)

	view, err := NewBytesView([]byte{2, 0, 1, 0}, format)
	require.NoError(t, err)

	size, err := view.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(4), size)

	value, err := view.Decode("root")
	require.NoError(t, err)

	serialized, err := json.Marshal(value)
	require.NoError(t, err)
	assert.Equal(t, `{"count":2,"children":[`+
		`{"count":0,"children":[]},`+
		`{"count":1,"children":[{"count":0,"children":[]}]}]}`,
		string(serialized))

	// Every node has one child so only the nesting limit stops it.
	deep := bytes.Repeat([]byte{1}, 4*MaxNesting)
	view, err = NewBytesView(deep, format)
	require.NoError(t, err)

	_, err = view.Size()
	assert.True(t, errors.Is(err, MalformedDynamicSizeError))

	_, err = view.Decode("root")
	assert.Error(t, err)
}

func TestOverflowingCount(t *testing.T) {
	count, err := NewExpression("x => x.count")
	require.NoError(t, err)

	format := NewFormat("root")
	require.NoError(t, format.AddNamedChild("count", 0, Uint64))
	require.NoError(t, format.AddNamedChild("data", 8, NewDynamicSlice(Uint32, count)))

	// 0x4000000000000001 uint32 elements wrap around to 4 bytes.
	data := []byte{
		0x01, 0, 0, 0, 0, 0, 0, 0x40,
		0x01, 0x02, 0x03, 0x04,
	}
	view, err := NewBytesView(data, format, WithMaxElements(0))
	require.NoError(t, err)

	_, err = view.Size()
	assert.True(t, errors.Is(err, MalformedDynamicSizeError))

	_, err = view.SliceExtent("data")
	assert.True(t, errors.Is(err, MalformedDynamicSizeError))

	_, err = view.Decode("data")
	assert.True(t, errors.Is(err, MalformedDynamicSizeError))

	result, err := view.Query(0, 12)
	require.NoError(t, err)
	assert.Equal(t, []string{"root.count", "root.data"}, paths(result))
	assert.True(t, errors.Is(result.Fields[1].Err, MalformedDynamicSizeError))

	// A huge count that does not overflow fails on the data, not on
	// the allocation.
	data = []byte{
		0, 0, 0, 0, 0, 0x01, 0, 0,
		0xaa, 0xbb,
	}
	byte_format := NewFormat("root")
	require.NoError(t, byte_format.AddNamedChild("count", 0, Uint64))
	require.NoError(t, byte_format.AddNamedChild("data", 8, NewDynamicSlice(Uint8, count)))

	view, err = NewBytesView(data, byte_format, WithMaxElements(0))
	require.NoError(t, err)

	size, err := view.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(8+1<<40), size)

	_, err = view.Decode("data")
	assert.True(t, errors.Is(err, TruncatedDataError))
}

func TestSliceSizeErrors(t *testing.T) {
	negative := NewSlice(Uint8, -1)
	assert.False(t, IsFixed(negative))

	_, err := Size(negative, SizeContext{})
	assert.True(t, errors.Is(err, MalformedDynamicSizeError))

	huge := NewSlice(Uint64, math.MaxInt64/4)
	assert.False(t, IsFixed(huge))

	_, err = Size(huge, SizeContext{})
	assert.True(t, errors.Is(err, MalformedDynamicSizeError))

	// The largest sizes still fit.
	fits := NewSlice(Uint8, math.MaxInt64-1)
	_, err = Size(fits, SizeContext{})
	assert.NoError(t, err)
}
