// Package text implements the textual SiiNunit lexer and recursive-descent
// parser, producing the same Struct shape as sii/binary.
package text

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/scsparse/siigo/sii"
)

// TokenKind identifies a lexed token's shape.
type TokenKind int

const (
	TokIdentifier TokenKind = iota
	TokQuotedString
	TokInteger
	TokFloat
	TokBoolean
	TokLeftBrace
	TokRightBrace
	TokColon
	TokLeftRightBracket
)

// Token is one lexical unit of a textual SII stream.
type Token struct {
	Kind TokenKind
	Str  string
	Int  uint64
	Flt  float32
	Bool bool
}

func (t Token) String() string {
	switch t.Kind {
	case TokIdentifier:
		return fmt.Sprintf("identifier %q", t.Str)
	case TokQuotedString:
		return fmt.Sprintf("string %q", t.Str)
	case TokInteger:
		return fmt.Sprintf("integer %d", t.Int)
	case TokFloat:
		return fmt.Sprintf("float %g", t.Flt)
	case TokBoolean:
		return fmt.Sprintf("boolean %v", t.Bool)
	case TokLeftBrace:
		return "'{'"
	case TokRightBrace:
		return "'}'"
	case TokColon:
		return "':'"
	case TokLeftRightBracket:
		return "'[]'"
	default:
		return "?"
	}
}

func isIdentByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '.' || c == '_'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

// Lexer is a single-pass byte-stream tokenizer for the textual SII grammar.
type Lexer struct {
	r   *bufio.Reader
	pos int64
}

// NewLexer wraps r for tokenization.
func NewLexer(r io.Reader) *Lexer {
	return &Lexer{r: bufio.NewReader(r)}
}

func (l *Lexer) peekByte() (byte, error) {
	b, err := l.r.Peek(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (l *Lexer) readByte() (byte, error) {
	b, err := l.r.ReadByte()
	if err != nil {
		return 0, err
	}
	l.pos++
	return b, nil
}

// Next returns the next token, or io.EOF at end of stream.
func (l *Lexer) Next() (Token, error) {
	if err := l.skipWhitespace(); err != nil {
		return Token{}, err
	}

	c, err := l.peekByte()
	if err != nil {
		return Token{}, err
	}

	switch {
	case isIdentByte(c):
		return l.readIdentifierOrNumber()
	case c == '{':
		l.readByte()
		return Token{Kind: TokLeftBrace}, nil
	case c == '}':
		l.readByte()
		return Token{Kind: TokRightBrace}, nil
	case c == ':':
		l.readByte()
		return Token{Kind: TokColon}, nil
	case c == '[':
		return l.readLeftRightBracket()
	case c == '"':
		return l.readQuotedString()
	case c == 0xEF:
		if err := l.skipUTF8BOM(); err != nil {
			return Token{}, err
		}
		return l.Next()
	default:
		return Token{}, &sii.UnexpectedByteError{Position: l.pos, Byte: c}
	}
}

// readIdentifierOrNumber takes the whole run of identifier-shaped bytes,
// then classifies it: any letter/underscore makes it an Identifier (or
// Boolean for true/false); otherwise a dot makes it a Float, and its
// absence an Integer. This mirrors the fact that the textual format
// permits bare strings beginning with a digit.
func (l *Lexer) readIdentifierOrNumber() (Token, error) {
	var sb strings.Builder
	for {
		c, err := l.peekByte()
		if err != nil {
			if err == io.EOF {
				break
			}
			return Token{}, err
		}
		if !isIdentByte(c) {
			break
		}
		l.readByte()
		sb.WriteByte(c)
	}
	chars := sb.String()

	hasAlpha := false
	for i := 0; i < len(chars); i++ {
		if isAlpha(chars[i]) {
			hasAlpha = true
			break
		}
	}

	if hasAlpha {
		switch chars {
		case "true":
			return Token{Kind: TokBoolean, Bool: true}, nil
		case "false":
			return Token{Kind: TokBoolean, Bool: false}, nil
		default:
			return Token{Kind: TokIdentifier, Str: chars}, nil
		}
	}

	if strings.Contains(chars, ".") {
		f, err := strconv.ParseFloat(chars, 32)
		if err != nil {
			return Token{}, fmt.Errorf("parsing float %q: %w", chars, err)
		}
		return Token{Kind: TokFloat, Flt: float32(f)}, nil
	}

	n, err := strconv.ParseUint(chars, 10, 64)
	if err != nil {
		return Token{}, fmt.Errorf("parsing integer %q: %w", chars, err)
	}
	return Token{Kind: TokInteger, Int: n}, nil
}

func (l *Lexer) readLeftRightBracket() (Token, error) {
	if err := l.expectByte('['); err != nil {
		return Token{}, err
	}
	if err := l.expectByte(']'); err != nil {
		return Token{}, err
	}
	return Token{Kind: TokLeftRightBracket}, nil
}

func (l *Lexer) readQuotedString() (Token, error) {
	if err := l.expectByte('"'); err != nil {
		return Token{}, err
	}
	var sb strings.Builder
	for {
		c, err := l.peekByte()
		if err != nil {
			return Token{}, err
		}
		switch {
		case c == '\\':
			l.readByte()
			esc, err := l.peekByte()
			if err != nil {
				return Token{}, err
			}
			switch esc {
			case '"', '\\':
				l.readByte()
				sb.WriteByte(esc)
			case 'n':
				l.readByte()
				sb.WriteByte('\n')
			default:
				return Token{}, fmt.Errorf("unexpected quoted string escape '\\%c'", esc)
			}
		case c == '"':
			l.readByte()
			return Token{Kind: TokQuotedString, Str: sb.String()}, nil
		default:
			l.readByte()
			sb.WriteByte(c)
		}
	}
}

func (l *Lexer) skipWhitespace() error {
	for {
		c, err := l.peekByte()
		if err != nil {
			return err
		}
		switch c {
		case '#':
			if err := l.skipComment(); err != nil {
				return err
			}
		case ' ', '\t', '\r', '\n':
			l.readByte()
		default:
			return nil
		}
	}
}

func (l *Lexer) skipComment() error {
	for {
		c, err := l.readByte()
		if err != nil {
			return err
		}
		if c == '\n' {
			return nil
		}
	}
}

func (l *Lexer) skipUTF8BOM() error {
	for _, want := range [3]byte{0xEF, 0xBB, 0xBF} {
		if err := l.expectByte(want); err != nil {
			return err
		}
	}
	return nil
}

func (l *Lexer) expectByte(want byte) error {
	got, err := l.readByte()
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("expected %q but found %q", want, got)
	}
	return nil
}
