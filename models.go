//  Every profile contains some basic built in types that make it
//  easier to describe common structs. The model is a mapping between
//  the generic names of types and the corresponding primitives.

package hexite

var (
	Uint8  = mustPrimitive("uint8", 1, Unsigned, LittleEndian)
	Uint16 = mustPrimitive("uint16", 2, Unsigned, LittleEndian)
	Uint32 = mustPrimitive("uint32", 4, Unsigned, LittleEndian)
	Uint64 = mustPrimitive("uint64", 8, Unsigned, LittleEndian)

	Int8  = mustPrimitive("int8", 1, Signed, LittleEndian)
	Int16 = mustPrimitive("int16", 2, Signed, LittleEndian)
	Int32 = mustPrimitive("int32", 4, Signed, LittleEndian)
	Int64 = mustPrimitive("int64", 8, Signed, LittleEndian)

	Uint16BE = mustPrimitive("uint16be", 2, Unsigned, BigEndian)
	Uint32BE = mustPrimitive("uint32be", 4, Unsigned, BigEndian)
	Uint64BE = mustPrimitive("uint64be", 8, Unsigned, BigEndian)

	Int16BE = mustPrimitive("int16be", 2, Signed, BigEndian)
	Int32BE = mustPrimitive("int32be", 4, Signed, BigEndian)
	Int64BE = mustPrimitive("int64be", 8, Signed, BigEndian)

	Float32   = mustPrimitive("float32", 4, Float, LittleEndian)
	Float64   = mustPrimitive("float64", 8, Float, LittleEndian)
	Float32BE = mustPrimitive("float32be", 4, Float, BigEndian)
	Float64BE = mustPrimitive("float64be", 8, Float, BigEndian)

	NativeUint32 = mustPrimitive("native_uint32", 4, Unsigned, NativeEndian)
	NativeUint64 = mustPrimitive("native_uint64", 8, Unsigned, NativeEndian)
)

func mustPrimitive(name string, width int64,
	kind PrimitiveKind, endian Endian) *Primitive {
	result, err := NewPrimitive(name, width, kind, endian)
	if err != nil {
		panic(err)
	}
	return result
}

func AddModel(profile *Profile) {
	for _, primitive := range []*Primitive{
		Uint8, Uint16, Uint32, Uint64,
		Int8, Int16, Int32, Int64,
		Uint16BE, Uint32BE, Uint64BE,
		Int16BE, Int32BE, Int64BE,
		Float32, Float64, Float32BE, Float64BE,
		NativeUint32, NativeUint64,
	} {
		profile.types[primitive.Name] = primitive
	}

	// Aliases
	profile.types["uint8be"] = Uint8
	profile.types["int8be"] = Int8
	profile.types["int"] = Int32
	profile.types["char"] = Int8
	profile.types["byte"] = Uint8
	profile.types["short int"] = Int16
	profile.types["unsigned char"] = Uint8
	profile.types["unsigned int"] = Uint32
	profile.types["unsigned long"] = Uint32
	profile.types["unsigned long long"] = Uint64
	profile.types["unsigned short"] = Uint16
	profile.types["float"] = Float32
	profile.types["double"] = Float64
}
