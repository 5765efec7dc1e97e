// Package binary implements the schema-first binary SII decoder: a stream
// of interleaved schema-definition records and data records that reference
// a prior schema by id.
package binary

import (
	"io"

	"github.com/scsparse/siigo/internal/wire"
	"github.com/scsparse/siigo/sii"
)

// siiSignature is the magic 4 bytes "BSII" read little-endian as a u32.
const siiSignature = 0x49495342

// Block is the result of one Next call: exactly one of Schema or Struct is
// non-nil.
type Block struct {
	Schema *sii.Schema
	Struct *sii.Struct
}

// Parser streams schema and data blocks out of a binary SII byte stream.
// It is one-shot: once Next returns io.EOF or an error, the Parser must not
// be reused.
type Parser struct {
	r          io.Reader
	schemas    map[uint32]*sii.Schema
}

// Open validates the BSII header (magic + version 2 or 3) and returns a
// Parser ready to stream blocks from r.
func Open(r io.Reader) (*Parser, error) {
	magic, err := wire.ReadU32(r)
	if err != nil {
		return nil, err
	}
	if magic != siiSignature {
		return nil, &sii.BadMagicError{Expected: siiSignature, Found: magic}
	}
	version, err := wire.ReadU32(r)
	if err != nil {
		return nil, err
	}
	if version != 2 && version != 3 {
		return nil, &sii.UnsupportedVersionError{Found: version}
	}
	return &Parser{r: r, schemas: make(map[uint32]*sii.Schema)}, nil
}

// Next returns the next schema or data block, or io.EOF once the stream's
// schema-record terminator has been read. Any other error aborts the
// parser; it must not be called again afterward.
func (p *Parser) Next() (Block, error) {
	blockType, err := wire.ReadU32(p.r)
	if err != nil {
		return Block{}, err
	}

	if blockType == 0 {
		schema, err := p.parseSchema()
		if err != nil {
			return Block{}, err
		}
		if schema == nil {
			return Block{}, io.EOF
		}
		p.schemas[schema.SchemaID] = schema
		return Block{Schema: schema}, nil
	}

	st, err := p.parseStruct(blockType)
	if err != nil {
		return Block{}, err
	}
	return Block{Struct: st}, nil
}

// parseSchema reads one schema record. A leading zero continuation byte
// means the stream has ended; it returns (nil, nil) in that case.
func (p *Parser) parseSchema() (*sii.Schema, error) {
	more, err := wire.ReadBool(p.r)
	if err != nil {
		return nil, err
	}
	if !more {
		return nil, nil
	}

	id, err := wire.ReadU32(p.r)
	if err != nil {
		return nil, err
	}
	name, err := wire.ReadString(p.r)
	if err != nil {
		return nil, err
	}

	var fields []sii.FieldDef
	for {
		typeCode, err := wire.ReadU32(p.r)
		if err != nil {
			return nil, err
		}
		if typeCode == 0 {
			break
		}
		fieldName, err := wire.ReadString(p.r)
		if err != nil {
			return nil, err
		}
		var ordinals sii.OrdinalTable
		if typeCode == sii.TypeOrdinalString {
			ordinals, err = sii.ReadOrdinalTable(p.r)
			if err != nil {
				return nil, err
			}
		}
		fields = append(fields, sii.FieldDef{Name: fieldName, TypeCode: typeCode, Ordinals: ordinals})
	}

	return &sii.Schema{SchemaID: id, StructName: name, Fields: fields}, nil
}

// parseStruct reads one data record for the schema named by blockType (the
// schema id). The most recently registered schema for that id is used.
func (p *Parser) parseStruct(schemaID uint32) (*sii.Struct, error) {
	schema, ok := p.schemas[schemaID]
	if !ok {
		return nil, &sii.UnknownSchemaError{SchemaID: schemaID}
	}

	id, err := sii.ReadID(p.r)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]sii.Value, len(schema.Fields))
	for _, field := range schema.Fields {
		v, err := sii.DecodeValue(p.r, field.TypeCode, field.Name, field.Ordinals)
		if err != nil {
			return nil, err
		}
		fields[field.Name] = v
	}

	return &sii.Struct{ID: id, StructName: schema.StructName, Fields: fields}, nil
}

// DataParser wraps Parser, skipping schema blocks so callers only see
// Structs.
type DataParser struct {
	p *Parser
}

// OpenDataOnly is the data-only counterpart to Open.
func OpenDataOnly(r io.Reader) (*DataParser, error) {
	p, err := Open(r)
	if err != nil {
		return nil, err
	}
	return &DataParser{p: p}, nil
}

// Next returns the next Struct, skipping schema blocks, until io.EOF.
func (d *DataParser) Next() (*sii.Struct, error) {
	for {
		block, err := d.p.Next()
		if err != nil {
			return nil, err
		}
		if block.Struct != nil {
			return block.Struct, nil
		}
	}
}
