package sii

import (
	"fmt"
	"io"
	"strings"

	"github.com/scsparse/siigo/internal/wire"
)

// encodedAlphabet is the 37-symbol alphabet EncodedString packs into a
// uint64 as base-38 digits offset by one (zero terminates the packing).
const encodedAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz_"

// EncodeString packs up to 12 characters of s (case-insensitive, must be
// drawn from encodedAlphabet) into the wire representation used by Named
// ID parts. It is the inverse of decodeEncodedString.
func EncodeString(s string) (uint64, error) {
	if len(s) > 12 {
		return 0, fmt.Errorf("encoded string %q longer than 12 characters", s)
	}
	var acc uint64
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		idx := strings.IndexByte(encodedAlphabet, c)
		if idx < 0 {
			return 0, fmt.Errorf("encoded string %q contains unsupported character %q", s, c)
		}
		acc = acc*38 + uint64(idx+1)
	}
	return acc, nil
}

// decodeEncodedString unpacks a wire EncodedString value into its canonical
// (lowercase) textual form.
func decodeEncodedString(v uint64) string {
	var b []byte
	for v > 0 {
		idx := v%38 - 1
		b = append(b, encodedAlphabet[idx])
		v /= 38
	}
	return string(b)
}

// ID is the format's universal object key: either a dotted sequence of
// encoded-string parts (Named) or a single opaque 64-bit integer (Nameless).
type ID struct {
	nameless    bool
	namelessVal uint64
	namedParts  []uint64
}

// NamedID builds a Named ID from its encoded-string parts (already packed,
// e.g. via EncodeString). parts must be non-empty.
func NamedID(parts ...uint64) (ID, error) {
	if len(parts) == 0 {
		return ID{}, fmt.Errorf("named id must have at least one part")
	}
	if len(parts) > 254 {
		return ID{}, fmt.Errorf("named id has %d parts, maximum is 254", len(parts))
	}
	return ID{namedParts: append([]uint64(nil), parts...)}, nil
}

// NamelessID builds a Nameless ID from its opaque 64-bit value.
func NamelessID(v uint64) ID {
	return ID{nameless: true, namelessVal: v}
}

// IsNameless reports whether id is the Nameless variant.
func (id ID) IsNameless() bool { return id.nameless }

// PartCount returns the number of encoded-string parts in a Named ID, or 0
// for a Nameless ID.
func (id ID) PartCount() int {
	if id.nameless {
		return 0
	}
	return len(id.namedParts)
}

// StringPart returns the decoded text of the part at index (supporting
// negative indices counting from the end, as Python-style slicing does).
// ok is false for a Nameless ID or an out-of-range index.
func (id ID) StringPart(index int) (part string, ok bool) {
	if id.nameless {
		return "", false
	}
	n := len(id.namedParts)
	i := index
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return "", false
	}
	return decodeEncodedString(id.namedParts[i]), true
}

// String renders id in its canonical textual form.
func (id ID) String() string {
	if id.nameless {
		b := [8]byte{}
		for i := 0; i < 8; i++ {
			b[i] = byte(id.namelessVal >> (8 * i))
		}
		// The first byte of each pair is rendered unpadded, the second
		// zero-padded to two digits (e.g. bytes 01 02 -> "102").
		return fmt.Sprintf("_nameless.%x%02x.%x%02x.%x%02x.%x%02x",
			b[0], b[1], b[2], b[3], b[4], b[5], b[6], b[7])
	}
	parts := make([]string, len(id.namedParts))
	for i, p := range id.namedParts {
		parts[i] = decodeEncodedString(p)
	}
	return strings.Join(parts, ".")
}

// ParseID parses the dotted textual form of an ID (e.g.
// "company.volatile.renat.riga" or ".a.b") back into its wire parts. A
// single leading dot is the game's convention for marking a struct id as
// rooted rather than relative to its containing file and carries no part
// of its own: ".a.b" parses to the same two parts as "a.b". Nameless ids
// cannot be reconstructed from text; see ErrNamelessIDInTextParse.
func ParseID(s string) (ID, error) {
	if strings.HasPrefix(s, "_nameless.") {
		return ID{}, ErrNamelessIDInTextParse
	}
	s = strings.TrimPrefix(s, ".")
	raw := strings.Split(s, ".")
	parts := make([]uint64, 0, len(raw))
	for _, p := range raw {
		if p == "" {
			// An internal empty segment (as in "a..b") has no textual
			// representation of its own; it encodes to zero.
			parts = append(parts, 0)
			continue
		}
		v, err := EncodeString(p)
		if err != nil {
			return ID{}, fmt.Errorf("parsing id %q: %w", s, err)
		}
		parts = append(parts, v)
	}
	return NamedID(parts...)
}

// ReadID decodes an ID from the wire: 1-byte len; 0xFF means the next 8
// bytes are a Nameless u64, otherwise len u64 parts form a Named id.
func ReadID(r io.Reader) (ID, error) {
	n, err := wire.ReadU8(r)
	if err != nil {
		return ID{}, err
	}
	if n == 0xFF {
		v, err := wire.ReadU64(r)
		if err != nil {
			return ID{}, err
		}
		return NamelessID(v), nil
	}
	parts := make([]uint64, n)
	for i := range parts {
		v, err := wire.ReadU64(r)
		if err != nil {
			return ID{}, err
		}
		parts[i] = v
	}
	return ID{namedParts: parts}, nil
}
