package binary

import (
	"bytes"
	"io"
	"testing"

	"github.com/scsparse/siigo/sii"
)

// u32le appends v to buf as 4 little-endian bytes.
func u32le(buf *bytes.Buffer, v uint32) {
	buf.WriteByte(byte(v))
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v >> 16))
	buf.WriteByte(byte(v >> 24))
}

func lenString(buf *bytes.Buffer, s string) {
	u32le(buf, uint32(len(s)))
	buf.WriteString(s)
}

// buildStream builds a minimal binary-stream fixture: magic BSII version 3,
// one schema (id 0x2A, name "test", one string field "name"), one data
// record referencing that schema with field value "hello".
func buildStream(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer

	u32le(&buf, 0x49495342) // "BSII"
	u32le(&buf, 3)          // version

	// Schema block: block_type 0 (schema), continuation byte 1, id 0x2A.
	u32le(&buf, 0)
	buf.WriteByte(1)
	u32le(&buf, 0x2A)
	lenString(&buf, "test")
	u32le(&buf, sii.TypeString)
	lenString(&buf, "name")
	u32le(&buf, 0) // field-list terminator

	// Data record: block_type 0x2A, id (1 named part, encoded "a"), field "hello".
	u32le(&buf, 0x2A)
	aVal, err := sii.EncodeString("a")
	if err != nil {
		t.Fatalf("EncodeString: %v", err)
	}
	buf.WriteByte(1) // 1 named part
	for i := 0; i < 8; i++ {
		buf.WriteByte(byte(aVal >> (8 * i)))
	}
	lenString(&buf, "hello")

	return buf.Bytes()
}

func TestParserYieldsSchemaThenStruct(t *testing.T) {
	stream := buildStream(t)
	p, err := Open(bytes.NewReader(stream))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	block, err := p.Next()
	if err != nil {
		t.Fatalf("Next (schema): %v", err)
	}
	if block.Schema == nil || block.Schema.StructName != "test" {
		t.Fatalf("first block = %+v, want schema \"test\"", block)
	}

	block, err = p.Next()
	if err != nil {
		t.Fatalf("Next (struct): %v", err)
	}
	if block.Struct == nil || block.Struct.StructName != "test" {
		t.Fatalf("second block = %+v, want struct \"test\"", block)
	}
	name, err := block.Struct.GetString("name")
	if err != nil || name != "hello" {
		t.Fatalf("GetString(name) = %q, %v, want hello, nil", name, err)
	}

	if _, err := p.Next(); err != io.EOF {
		t.Fatalf("Next at end = %v, want io.EOF", err)
	}
}

func TestOpenDataOnlySkipsSchemas(t *testing.T) {
	stream := buildStream(t)
	d, err := OpenDataOnly(bytes.NewReader(stream))
	if err != nil {
		t.Fatalf("OpenDataOnly: %v", err)
	}
	st, err := d.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if st.StructName != "test" {
		t.Fatalf("StructName = %q, want test", st.StructName)
	}
	if _, err := d.Next(); err != io.EOF {
		t.Fatalf("Next at end = %v, want io.EOF", err)
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	u32le(&buf, 0xDEADBEEF)
	u32le(&buf, 3)
	_, err := Open(&buf)
	if _, ok := err.(*sii.BadMagicError); !ok {
		t.Fatalf("err = %v (%T), want *sii.BadMagicError", err, err)
	}
}

func TestOpenRejectsUnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	u32le(&buf, 0x49495342)
	u32le(&buf, 99)
	_, err := Open(&buf)
	if _, ok := err.(*sii.UnsupportedVersionError); !ok {
		t.Fatalf("err = %v (%T), want *sii.UnsupportedVersionError", err, err)
	}
}

func TestUnknownSchemaReference(t *testing.T) {
	var buf bytes.Buffer
	u32le(&buf, 0x49495342)
	u32le(&buf, 3)
	u32le(&buf, 0x99) // data record referencing a schema id never defined

	p, err := Open(&buf)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, err = p.Next()
	if _, ok := err.(*sii.UnknownSchemaError); !ok {
		t.Fatalf("err = %v (%T), want *sii.UnknownSchemaError", err, err)
	}
}

func TestSchemaRedefinitionLastWins(t *testing.T) {
	var buf bytes.Buffer
	u32le(&buf, 0x49495342)
	u32le(&buf, 3)

	writeSchema := func(name string) {
		u32le(&buf, 0)
		buf.WriteByte(1)
		u32le(&buf, 0x10)
		lenString(&buf, name)
		u32le(&buf, 0) // no fields
	}
	writeSchema("first")
	writeSchema("second")

	u32le(&buf, 0x10)
	buf.WriteByte(1)
	v, _ := sii.EncodeString("x")
	for i := 0; i < 8; i++ {
		buf.WriteByte(byte(v >> (8 * i)))
	}

	p, err := Open(&buf)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := p.Next(); err != nil {
		t.Fatalf("Next (schema 1): %v", err)
	}
	if _, err := p.Next(); err != nil {
		t.Fatalf("Next (schema 2): %v", err)
	}
	block, err := p.Next()
	if err != nil {
		t.Fatalf("Next (struct): %v", err)
	}
	if block.Struct.StructName != "second" {
		t.Fatalf("StructName = %q, want %q (last schema wins)", block.Struct.StructName, "second")
	}
}
