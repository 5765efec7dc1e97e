package sii

import "fmt"

// BadMagicError is returned when a stream's magic/signature bytes don't
// match what the format requires.
type BadMagicError struct {
	Expected uint32
	Found    uint32
}

func (e *BadMagicError) Error() string {
	return fmt.Sprintf("bad magic: expected %#x, found %#x", e.Expected, e.Found)
}

// UnsupportedVersionError is returned for a recognized magic but an
// unhandled format version.
type UnsupportedVersionError struct {
	Found uint32
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported version: %d", e.Found)
}

// UnexpectedByteError is returned by the text lexer on an unrecognized byte.
type UnexpectedByteError struct {
	Position int64
	Byte     byte
}

func (e *UnexpectedByteError) Error() string {
	return fmt.Sprintf("unexpected byte %#02x at position %d", e.Byte, e.Position)
}

// UnexpectedTokenError is returned by the text parser when a token doesn't
// match the expected grammar production.
type UnexpectedTokenError struct {
	Found    string
	Expected string
}

func (e *UnexpectedTokenError) Error() string {
	return fmt.Sprintf("unexpected token %s, expected %s", e.Found, e.Expected)
}

// UnknownSchemaError is returned when a binary data block references a
// schema id that was never registered.
type UnknownSchemaError struct {
	SchemaID uint32
}

func (e *UnknownSchemaError) Error() string {
	return fmt.Sprintf("unknown schema %#x", e.SchemaID)
}

// UnsupportedValueTypeError is returned when a schema field names a value
// type code this decoder doesn't implement.
type UnsupportedValueTypeError struct {
	Code      uint32
	FieldName string
}

func (e *UnsupportedValueTypeError) Error() string {
	return fmt.Sprintf("unsupported value type %#x for field %q", e.Code, e.FieldName)
}

// MissingOrdinalTableError is returned when an OrdinalString field (0x37)
// has no associated ordinal table.
type MissingOrdinalTableError struct {
	FieldName string
}

func (e *MissingOrdinalTableError) Error() string {
	return fmt.Sprintf("missing ordinal table for field %q", e.FieldName)
}

// MissingOrdinalEntryError is returned when an ordinal table has no mapping
// for a decoded ordinal value.
type MissingOrdinalEntryError struct {
	Ordinal uint32
}

func (e *MissingOrdinalEntryError) Error() string {
	return fmt.Sprintf("missing ordinal table entry for %d", e.Ordinal)
}

// UnsupportedEntryTypeError is returned by the archive reader for entry
// types this core doesn't expose as streams (directory entries).
type UnsupportedEntryTypeError struct {
	Code uint32
}

func (e *UnsupportedEntryTypeError) Error() string {
	return fmt.Sprintf("unsupported archive entry type %d", e.Code)
}

// UnsupportedArrayElementError is returned by the text parser when an
// accumulated array's first element can't be promoted to an array Value.
type UnsupportedArrayElementError struct {
	FieldName string
	Variant   string
}

func (e *UnsupportedArrayElementError) Error() string {
	return fmt.Sprintf("field %q: cannot promote %s elements to an array value", e.FieldName, e.Variant)
}

// FieldMissingError is returned by Struct's typed accessors when the named
// field isn't present.
type FieldMissingError struct {
	FieldName string
}

func (e *FieldMissingError) Error() string {
	return fmt.Sprintf("missing field %q", e.FieldName)
}

// FieldTypeMismatchError is returned by Struct's typed accessors when the
// named field is present but holds a different Value variant.
type FieldTypeMismatchError struct {
	FieldName string
	Want      string
	Got       string
}

func (e *FieldTypeMismatchError) Error() string {
	return fmt.Sprintf("field %q: want %s, got %s", e.FieldName, e.Want, e.Got)
}

var (
	// ErrDecryptionFailed indicates the AES envelope's ciphertext was empty
	// or not a whole number of blocks, or its PKCS7 padding did not
	// validate after CBC decryption.
	ErrDecryptionFailed = fmt.Errorf("decryption failed: invalid padding")

	// ErrNamelessIDInTextParse indicates an attempt to parse a
	// "_nameless.xxxx.xxxx.xxxx.xxxx" string back into an ID. The textual
	// SII format never contains these (only binary streams produce
	// Nameless ids), and the rendered hex groups don't carry enough
	// information to losslessly reconstruct the original 64-bit value's
	// byte order without a dedicated grammar, so re-parsing is rejected.
	ErrNamelessIDInTextParse = fmt.Errorf("nameless ids cannot be re-parsed from text")

	// ErrDuplicateEntry indicates two archive entries share a hash.
	ErrDuplicateEntry = fmt.Errorf("duplicate archive entry hash")
)
