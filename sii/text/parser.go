package text

import (
	"fmt"
	"io"

	"github.com/scsparse/siigo/sii"
)

// Parser is a recursive-descent parser over a token stream, producing the
// same Struct shape as sii/binary. It is one-shot: once Next returns io.EOF
// or an error, the Parser must not be reused.
type Parser struct {
	lexer   *Lexer
	peeked  *Token
	peekErr error
}

// Open consumes the leading "SiiNunit {" wrapper and returns a Parser ready
// to stream Structs from r.
func Open(r io.Reader) (*Parser, error) {
	p := &Parser{lexer: NewLexer(r)}

	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if tok.Kind != TokIdentifier || tok.Str != "SiiNunit" {
		return nil, &sii.UnexpectedTokenError{Found: tok.String(), Expected: "identifier \"SiiNunit\""}
	}
	tok, err = p.next()
	if err != nil {
		return nil, err
	}
	if tok.Kind != TokLeftBrace {
		return nil, &sii.UnexpectedTokenError{Found: tok.String(), Expected: "'{'"}
	}
	return p, nil
}

func (p *Parser) next() (Token, error) {
	if p.peeked != nil {
		t := *p.peeked
		p.peeked = nil
		return t, nil
	}
	if p.peekErr != nil {
		err := p.peekErr
		p.peekErr = nil
		return Token{}, err
	}
	return p.lexer.Next()
}

func (p *Parser) peek() (Token, error) {
	if p.peeked == nil && p.peekErr == nil {
		t, err := p.lexer.Next()
		if err != nil {
			p.peekErr = err
		} else {
			p.peeked = &t
		}
	}
	if p.peekErr != nil {
		return Token{}, p.peekErr
	}
	return *p.peeked, nil
}

// Next returns the next top-level Struct, or io.EOF once the closing brace
// of the SiiNunit wrapper is reached.
func (p *Parser) Next() (*sii.Struct, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case TokRightBrace:
		return nil, io.EOF
	case TokIdentifier:
		return p.readStruct()
	default:
		return nil, &sii.UnexpectedTokenError{Found: tok.String(), Expected: "struct or '}'"}
	}
}

// readStruct parses `struct_name : struct_id { fields }`.
func (p *Parser) readStruct() (*sii.Struct, error) {
	nameTok, err := p.next()
	if err != nil {
		return nil, err
	}
	if nameTok.Kind != TokIdentifier {
		return nil, &sii.UnexpectedTokenError{Found: nameTok.String(), Expected: "struct name"}
	}

	if err := p.expect(TokColon); err != nil {
		return nil, err
	}

	idTok, err := p.next()
	if err != nil {
		return nil, err
	}
	if idTok.Kind != TokIdentifier {
		return nil, &sii.UnexpectedTokenError{Found: idTok.String(), Expected: "struct id"}
	}
	structID, err := sii.ParseID(idTok.Str)
	if err != nil {
		return nil, fmt.Errorf("parsing struct id: %w", err)
	}

	if err := p.expect(TokLeftBrace); err != nil {
		return nil, err
	}

	arrays := make(map[string][]sii.Value)
	fields := make(map[string]sii.Value)

	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind == TokRightBrace {
			p.next()
			break
		}

		fieldTok, err := p.next()
		if err != nil {
			return nil, err
		}
		if fieldTok.Kind != TokIdentifier {
			return nil, &sii.UnexpectedTokenError{Found: fieldTok.String(), Expected: "field name"}
		}
		fieldName := fieldTok.Str

		isArray := false
		peeked, err := p.peek()
		if err != nil {
			return nil, err
		}
		if peeked.Kind == TokLeftRightBracket {
			p.next()
			isArray = true
		}

		if err := p.expect(TokColon); err != nil {
			return nil, err
		}

		valueTok, err := p.next()
		if err != nil {
			return nil, err
		}
		value, err := valueFromToken(valueTok)
		if err != nil {
			return nil, err
		}

		if isArray {
			arrays[fieldName] = append(arrays[fieldName], value)
		} else {
			fields[fieldName] = value
		}
	}

	for name, elems := range arrays {
		v, err := sii.CoerceArray(name, elems)
		if err != nil {
			return nil, err
		}
		fields[name] = v
	}

	return &sii.Struct{ID: structID, StructName: nameTok.Str, Fields: fields}, nil
}

// valueFromToken converts a scalar value token into a Value. The textual
// format is schema-less, so bare identifiers always become Value::String;
// a caller that knows a field is semantically an ID converts it with
// sii.ParseID.
func valueFromToken(t Token) (sii.Value, error) {
	switch t.Kind {
	case TokIdentifier:
		return sii.StringValue(t.Str), nil
	case TokQuotedString:
		return sii.StringValue(t.Str), nil
	case TokInteger:
		return sii.UInt64Value(t.Int), nil
	case TokFloat:
		return sii.SingleValue(t.Flt), nil
	case TokBoolean:
		return sii.ByteBoolValue(t.Bool), nil
	default:
		return sii.Value{}, &sii.UnexpectedTokenError{Found: t.String(), Expected: "value"}
	}
}

func (p *Parser) expect(kind TokenKind) error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if tok.Kind != kind {
		return &sii.UnexpectedTokenError{Found: tok.String(), Expected: fmt.Sprintf("token kind %d", kind)}
	}
	return nil
}
