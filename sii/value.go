package sii

import (
	"io"

	"github.com/scsparse/siigo/internal/wire"
)

// Value type codes, as they appear on the wire.
const (
	TypeString             = 0x01
	TypeStringArray         = 0x02
	TypeEncodedString       = 0x03
	TypeEncodedStringArray  = 0x04
	TypeSingle              = 0x05
	TypeSingleArray         = 0x06
	TypeVec2s               = 0x07
	TypeVec3s               = 0x09
	TypeVec3sArray          = 0x0A
	TypeVec3i               = 0x11
	TypeVec3iArray          = 0x12
	TypeVec4s               = 0x17
	TypeVec4sArray          = 0x18
	TypeVec8s               = 0x19
	TypeVec8sArray          = 0x1A
	TypeInt32               = 0x25
	TypeInt32Array          = 0x26
	TypeUInt32              = 0x27
	TypeUInt32Array         = 0x28
	TypeUInt16              = 0x2B
	TypeUInt16Array         = 0x2C
	TypeUInt32Alias         = 0x2F // undocumented alias for TypeUInt32, observed in game data
	TypeInt64               = 0x31
	TypeInt64Array          = 0x32
	TypeUInt64              = 0x33
	TypeUInt64Array         = 0x34
	TypeByteBool            = 0x35
	TypeByteBoolArray       = 0x36
	TypeOrdinalString       = 0x37
	TypeID                  = 0x39
	TypeIDArray             = 0x3A
	TypeIDAlt               = 0x3B
	TypeIDArrayAlt          = 0x3C
	TypeIDAlt2              = 0x3D
)

// Vec2s, Vec3s, Vec4s, Vec8s and Vec3i are the fixed-size tuple value
// shapes the format embeds directly (not length-prefixed).
type (
	Vec2s [2]float32
	Vec3s [3]float32
	Vec4s [4]float32
	Vec8s [8]float32
	Vec3i [3]int32
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindString Kind = iota
	KindStringArray
	KindEncodedString
	KindEncodedStringArray
	KindSingle
	KindSingleArray
	KindVec2s
	KindVec3s
	KindVec3sArray
	KindVec3i
	KindVec3iArray
	KindVec4s
	KindVec4sArray
	KindVec8s
	KindVec8sArray
	KindInt32
	KindInt32Array
	KindUInt32
	KindUInt32Array
	KindUInt16
	KindUInt16Array
	KindInt64
	KindInt64Array
	KindUInt64
	KindUInt64Array
	KindByteBool
	KindByteBoolArray
	KindOrdinalString
	KindID
	KindIDArray
)

func (k Kind) String() string {
	names := [...]string{
		"String", "StringArray", "EncodedString", "EncodedStringArray",
		"Single", "SingleArray", "Vec2s", "Vec3s", "Vec3sArray", "Vec3i",
		"Vec3iArray", "Vec4s", "Vec4sArray", "Vec8s", "Vec8sArray", "Int32",
		"Int32Array", "UInt32", "UInt32Array", "UInt16", "UInt16Array",
		"Int64", "Int64Array", "UInt64", "UInt64Array", "ByteBool",
		"ByteBoolArray", "OrdinalString", "ID", "IDArray",
	}
	if int(k) < 0 || int(k) >= len(names) {
		return "Unknown"
	}
	return names[k]
}

// Value is the tagged sum of every value shape the format can produce.
// Exactly one of the typed fields is meaningful, selected by Kind.
type Value struct {
	Kind Kind

	Str        string
	StrArr     []string
	Enc        uint64
	EncArr     []uint64
	F32        float32
	F32Arr     []float32
	V2         Vec2s
	V3         Vec3s
	V3Arr      []Vec3s
	V3i        Vec3i
	V3iArr     []Vec3i
	V4         Vec4s
	V4Arr      []Vec4s
	V8         Vec8s
	V8Arr      []Vec8s
	I32        int32
	I32Arr     []int32
	U32        uint32
	U32Arr     []uint32
	U16        uint16
	U16Arr     []uint16
	I64        int64
	I64Arr     []int64
	U64        uint64
	U64Arr     []uint64
	Bool       bool
	BoolArr    []bool
	OrdinalStr string
	ID         ID
	IDArr      []ID
}

// StringValue, UInt64Value, etc. are convenience constructors used by the
// text parser (which only ever produces a handful of the variants) and by
// tests.
func StringValue(s string) Value           { return Value{Kind: KindString, Str: s} }
func StringArrayValue(s []string) Value    { return Value{Kind: KindStringArray, StrArr: s} }
func EncodedStringValue(v uint64) Value    { return Value{Kind: KindEncodedString, Enc: v} }
func EncodedStringArrayValue(v []uint64) Value {
	return Value{Kind: KindEncodedStringArray, EncArr: v}
}
func SingleValue(f float32) Value        { return Value{Kind: KindSingle, F32: f} }
func UInt64Value(v uint64) Value         { return Value{Kind: KindUInt64, U64: v} }
func UInt64ArrayValue(v []uint64) Value  { return Value{Kind: KindUInt64Array, U64Arr: v} }
func ByteBoolValue(b bool) Value         { return Value{Kind: KindByteBool, Bool: b} }
func IDValue(id ID) Value                { return Value{Kind: KindID, ID: id} }
func IDArrayValue(v []ID) Value          { return Value{Kind: KindIDArray, IDArr: v} }

// OrdinalTable is a schema-local map from ordinal to string, used to decode
// TypeOrdinalString (0x37) fields.
type OrdinalTable map[uint32]string

func (t OrdinalTable) Get(ordinal uint32) (string, bool) {
	s, ok := t[ordinal]
	return s, ok
}

func readOrdinalTable(r io.Reader) (OrdinalTable, error) {
	n, err := wire.ReadU32(r)
	if err != nil {
		return nil, err
	}
	out := make(OrdinalTable, n)
	for i := uint32(0); i < n; i++ {
		ordinal, err := wire.ReadU32(r)
		if err != nil {
			return nil, err
		}
		s, err := wire.ReadString(r)
		if err != nil {
			return nil, err
		}
		out[ordinal] = s
	}
	return out, nil
}

// ReadOrdinalTable is the exported form of readOrdinalTable, used by
// sii/binary while parsing a schema's field definitions.
func ReadOrdinalTable(r io.Reader) (OrdinalTable, error) {
	return readOrdinalTable(r)
}

// FieldDef is one field in a binary SII Schema: its name, wire type code,
// and (only for TypeOrdinalString fields) its ordinal table.
type FieldDef struct {
	Name     string
	TypeCode uint32
	Ordinals OrdinalTable
}

// Schema is a binary-SII record that defines a named struct layout used by
// subsequent data records referencing the same schema id within one stream.
type Schema struct {
	SchemaID   uint32
	StructName string
	Fields     []FieldDef
}

// Struct is a parsed data record: an identifier, a struct name borrowed
// from its schema (or its own name, for text-parsed structs), and a field
// map.
type Struct struct {
	ID         ID
	StructName string
	Fields     map[string]Value
}

// Get returns the named field, or FieldMissingError if absent.
func (s *Struct) Get(name string) (Value, error) {
	v, ok := s.Fields[name]
	if !ok {
		return Value{}, &FieldMissingError{FieldName: name}
	}
	return v, nil
}

func (s *Struct) getKind(name string, kind Kind) (Value, error) {
	v, err := s.Get(name)
	if err != nil {
		return Value{}, err
	}
	if v.Kind != kind {
		return Value{}, &FieldTypeMismatchError{FieldName: name, Want: kind.String(), Got: v.Kind.String()}
	}
	return v, nil
}

func (s *Struct) GetString(name string) (string, error) {
	v, err := s.getKind(name, KindString)
	if err != nil {
		return "", err
	}
	return v.Str, nil
}

func (s *Struct) GetStringArray(name string) ([]string, error) {
	v, err := s.getKind(name, KindStringArray)
	if err != nil {
		return nil, err
	}
	return v.StrArr, nil
}

func (s *Struct) GetUInt32(name string) (uint32, error) {
	v, err := s.getKind(name, KindUInt32)
	if err != nil {
		return 0, err
	}
	return v.U32, nil
}

func (s *Struct) GetInt64(name string) (int64, error) {
	v, err := s.getKind(name, KindInt64)
	if err != nil {
		return 0, err
	}
	return v.I64, nil
}

func (s *Struct) GetUInt64(name string) (uint64, error) {
	v, err := s.getKind(name, KindUInt64)
	if err != nil {
		return 0, err
	}
	return v.U64, nil
}

func (s *Struct) GetUInt64Array(name string) ([]uint64, error) {
	v, err := s.getKind(name, KindUInt64Array)
	if err != nil {
		return nil, err
	}
	return v.U64Arr, nil
}

func (s *Struct) GetEncodedStringArray(name string) ([]uint64, error) {
	v, err := s.getKind(name, KindEncodedStringArray)
	if err != nil {
		return nil, err
	}
	return v.EncArr, nil
}

func (s *Struct) GetID(name string) (ID, error) {
	v, err := s.getKind(name, KindID)
	if err != nil {
		return ID{}, err
	}
	return v.ID, nil
}

func (s *Struct) GetIDArray(name string) ([]ID, error) {
	v, err := s.getKind(name, KindIDArray)
	if err != nil {
		return nil, err
	}
	return v.IDArr, nil
}

// valueDecoder decodes one Value given the already-consumed type code and
// (for TypeOrdinalString) the field's ordinal table. Structuring decode as
// a code -> function table keeps adding a new type code local to one map
// entry instead of growing a long switch.
type valueDecoder func(r io.Reader, ordinals OrdinalTable) (Value, error)

var valueDecoders map[uint32]valueDecoder

func init() {
	valueDecoders = map[uint32]valueDecoder{
		TypeString: func(r io.Reader, _ OrdinalTable) (Value, error) {
			s, err := wire.ReadString(r)
			return StringValue(s), err
		},
		TypeStringArray: func(r io.Reader, _ OrdinalTable) (Value, error) {
			a, err := wire.ReadArray(r, wire.ReadString)
			return StringArrayValue(a), err
		},
		TypeEncodedString: func(r io.Reader, _ OrdinalTable) (Value, error) {
			v, err := wire.ReadU64(r)
			return EncodedStringValue(v), err
		},
		TypeEncodedStringArray: func(r io.Reader, _ OrdinalTable) (Value, error) {
			a, err := wire.ReadArray(r, wire.ReadU64)
			return EncodedStringArrayValue(a), err
		},
		TypeSingle: func(r io.Reader, _ OrdinalTable) (Value, error) {
			f, err := wire.ReadF32(r)
			return SingleValue(f), err
		},
		TypeSingleArray: func(r io.Reader, _ OrdinalTable) (Value, error) {
			a, err := wire.ReadArray(r, wire.ReadF32)
			return Value{Kind: KindSingleArray, F32Arr: a}, err
		},
		TypeVec2s: func(r io.Reader, _ OrdinalTable) (Value, error) {
			v, err := readVec2s(r)
			return Value{Kind: KindVec2s, V2: v}, err
		},
		TypeVec3s: func(r io.Reader, _ OrdinalTable) (Value, error) {
			v, err := readVec3s(r)
			return Value{Kind: KindVec3s, V3: v}, err
		},
		TypeVec3sArray: func(r io.Reader, _ OrdinalTable) (Value, error) {
			a, err := wire.ReadArray(r, readVec3s)
			return Value{Kind: KindVec3sArray, V3Arr: a}, err
		},
		TypeVec3i: func(r io.Reader, _ OrdinalTable) (Value, error) {
			v, err := readVec3i(r)
			return Value{Kind: KindVec3i, V3i: v}, err
		},
		TypeVec3iArray: func(r io.Reader, _ OrdinalTable) (Value, error) {
			a, err := wire.ReadArray(r, readVec3i)
			return Value{Kind: KindVec3iArray, V3iArr: a}, err
		},
		TypeVec4s: func(r io.Reader, _ OrdinalTable) (Value, error) {
			v, err := readVec4s(r)
			return Value{Kind: KindVec4s, V4: v}, err
		},
		TypeVec4sArray: func(r io.Reader, _ OrdinalTable) (Value, error) {
			a, err := wire.ReadArray(r, readVec4s)
			return Value{Kind: KindVec4sArray, V4Arr: a}, err
		},
		TypeVec8s: func(r io.Reader, _ OrdinalTable) (Value, error) {
			v, err := readVec8s(r)
			return Value{Kind: KindVec8s, V8: v}, err
		},
		TypeVec8sArray: func(r io.Reader, _ OrdinalTable) (Value, error) {
			a, err := wire.ReadArray(r, readVec8s)
			return Value{Kind: KindVec8sArray, V8Arr: a}, err
		},
		TypeInt32: func(r io.Reader, _ OrdinalTable) (Value, error) {
			v, err := wire.ReadI32(r)
			return Value{Kind: KindInt32, I32: v}, err
		},
		TypeInt32Array: func(r io.Reader, _ OrdinalTable) (Value, error) {
			a, err := wire.ReadArray(r, wire.ReadI32)
			return Value{Kind: KindInt32Array, I32Arr: a}, err
		},
		TypeUInt32: func(r io.Reader, _ OrdinalTable) (Value, error) {
			v, err := wire.ReadU32(r)
			return Value{Kind: KindUInt32, U32: v}, err
		},
		TypeUInt32Array: func(r io.Reader, _ OrdinalTable) (Value, error) {
			a, err := wire.ReadArray(r, wire.ReadU32)
			return Value{Kind: KindUInt32Array, U32Arr: a}, err
		},
		TypeUInt16: func(r io.Reader, _ OrdinalTable) (Value, error) {
			v, err := wire.ReadU16(r)
			return Value{Kind: KindUInt16, U16: v}, err
		},
		TypeUInt16Array: func(r io.Reader, _ OrdinalTable) (Value, error) {
			a, err := wire.ReadArray(r, wire.ReadU16)
			return Value{Kind: KindUInt16Array, U16Arr: a}, err
		},
		TypeInt64: func(r io.Reader, _ OrdinalTable) (Value, error) {
			v, err := wire.ReadI64(r)
			return Value{Kind: KindInt64, I64: v}, err
		},
		TypeInt64Array: func(r io.Reader, _ OrdinalTable) (Value, error) {
			a, err := wire.ReadArray(r, wire.ReadI64)
			return Value{Kind: KindInt64Array, I64Arr: a}, err
		},
		TypeUInt64: func(r io.Reader, _ OrdinalTable) (Value, error) {
			v, err := wire.ReadU64(r)
			return UInt64Value(v), err
		},
		TypeUInt64Array: func(r io.Reader, _ OrdinalTable) (Value, error) {
			a, err := wire.ReadArray(r, wire.ReadU64)
			return UInt64ArrayValue(a), err
		},
		TypeByteBool: func(r io.Reader, _ OrdinalTable) (Value, error) {
			b, err := wire.ReadBool(r)
			return ByteBoolValue(b), err
		},
		TypeByteBoolArray: func(r io.Reader, _ OrdinalTable) (Value, error) {
			a, err := wire.ReadArray(r, wire.ReadBool)
			return Value{Kind: KindByteBoolArray, BoolArr: a}, err
		},
		TypeOrdinalString: decodeOrdinalString,
		TypeID: func(r io.Reader, _ OrdinalTable) (Value, error) {
			id, err := ReadID(r)
			return IDValue(id), err
		},
		TypeIDArray: func(r io.Reader, _ OrdinalTable) (Value, error) {
			a, err := wire.ReadArray(r, ReadID)
			return IDArrayValue(a), err
		},
	}
	// 0x3B/0x3D are additional observed codes for single IDs; 0x3C for ID arrays.
	valueDecoders[TypeIDAlt] = valueDecoders[TypeID]
	valueDecoders[TypeIDAlt2] = valueDecoders[TypeID]
	valueDecoders[TypeIDArrayAlt] = valueDecoders[TypeIDArray]
	// 0x2F is an undocumented alias for UInt32, observed in game data.
	valueDecoders[TypeUInt32Alias] = valueDecoders[TypeUInt32]
}

func readVec2s(r io.Reader) (Vec2s, error) {
	var v Vec2s
	for i := range v {
		f, err := wire.ReadF32(r)
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

func readVec3s(r io.Reader) (Vec3s, error) {
	var v Vec3s
	for i := range v {
		f, err := wire.ReadF32(r)
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

func readVec4s(r io.Reader) (Vec4s, error) {
	var v Vec4s
	for i := range v {
		f, err := wire.ReadF32(r)
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

func readVec8s(r io.Reader) (Vec8s, error) {
	var v Vec8s
	for i := range v {
		f, err := wire.ReadF32(r)
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

func readVec3i(r io.Reader) (Vec3i, error) {
	var v Vec3i
	for i := range v {
		n, err := wire.ReadI32(r)
		if err != nil {
			return v, err
		}
		v[i] = n
	}
	return v, nil
}

func decodeOrdinalString(r io.Reader, ordinals OrdinalTable) (Value, error) {
	ordinal, err := wire.ReadU32(r)
	if err != nil {
		return Value{}, err
	}
	if ordinals == nil {
		return Value{}, &MissingOrdinalTableError{}
	}
	s, ok := ordinals.Get(ordinal)
	if !ok {
		return Value{}, &MissingOrdinalEntryError{Ordinal: ordinal}
	}
	return Value{Kind: KindOrdinalString, OrdinalStr: s}, nil
}

// CoerceArray promotes a slice of scalar Values accumulated from repeated
// `name[]: value` text-SII fields into the matching *Array Value variant,
// inferring the element type from the first entry (the textual format has
// no schema to declare it up front). A first element of any kind other
// than String, EncodedString, ID or UInt64 -- or a slice mixing kinds --
// is rejected with UnsupportedArrayElementError rather than best-effort
// coerced.
func CoerceArray(fieldName string, elems []Value) (Value, error) {
	if len(elems) == 0 {
		return Value{Kind: KindStringArray}, nil
	}
	first := elems[0].Kind
	for _, e := range elems[1:] {
		if e.Kind != first {
			return Value{}, &UnsupportedArrayElementError{FieldName: fieldName, Variant: e.Kind.String()}
		}
	}
	switch first {
	case KindString:
		out := make([]string, len(elems))
		for i, e := range elems {
			out[i] = e.Str
		}
		return StringArrayValue(out), nil
	case KindEncodedString:
		out := make([]uint64, len(elems))
		for i, e := range elems {
			out[i] = e.Enc
		}
		return EncodedStringArrayValue(out), nil
	case KindID:
		out := make([]ID, len(elems))
		for i, e := range elems {
			out[i] = e.ID
		}
		return IDArrayValue(out), nil
	case KindUInt64:
		out := make([]uint64, len(elems))
		for i, e := range elems {
			out[i] = e.U64
		}
		return UInt64ArrayValue(out), nil
	default:
		return Value{}, &UnsupportedArrayElementError{FieldName: fieldName, Variant: first.String()}
	}
}

// DecodeValue decodes one Value of the given wire type code from r,
// consulting ordinals for TypeOrdinalString fields. fieldName is used only
// to annotate UnsupportedValueTypeError/MissingOrdinalTableError.
func DecodeValue(r io.Reader, typeCode uint32, fieldName string, ordinals OrdinalTable) (Value, error) {
	dec, ok := valueDecoders[typeCode]
	if !ok {
		return Value{}, &UnsupportedValueTypeError{Code: typeCode, FieldName: fieldName}
	}
	v, err := dec(r, ordinals)
	if err != nil {
		if mot, ok := err.(*MissingOrdinalTableError); ok {
			mot.FieldName = fieldName
			return Value{}, mot
		}
		return Value{}, err
	}
	return v, nil
}
