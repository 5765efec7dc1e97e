// Package siigo decodes the SII family of formats used by the game's save
// files and packaged asset archives: an outer AES-256-CBC or 3nK stream
// cipher wraps an optionally zlib-deflated payload, which is either the
// schema-first binary SII encoding or the human-readable textual SiiNunit
// encoding. This file wires the sii/crypt, sii/binary and sii/text packages
// into the two entry points a caller actually needs.
package siigo

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/scsparse/siigo/scs"
	"github.com/scsparse/siigo/sii"
	"github.com/scsparse/siigo/sii/binary"
	"github.com/scsparse/siigo/sii/crypt"
	"github.com/scsparse/siigo/sii/text"
)

// binarySignaturePrefix is the little-endian encoding of the 4-byte "BSII" magic
// sii/binary.Open itself validates; it is sniffed here, unconsumed, to
// decide whether a payload needs a zlib inflation pass first.
var binarySignaturePrefix = [4]byte{'B', 'S', 'I', 'I'}

// OpenSaveFile decrypts r's AES-256-CBC envelope, transparently inflates a
// zlib-compressed payload if present, and returns a DataParser over the
// resulting binary SII stream, fed from a standalone encrypted save file.
func OpenSaveFile(r io.Reader) (*binary.DataParser, error) {
	plain, err := crypt.DecryptAES(r)
	if err != nil {
		return nil, fmt.Errorf("decrypting save file: %w", err)
	}

	payload, err := sniffInflate(plain)
	if err != nil {
		return nil, fmt.Errorf("inflating save file payload: %w", err)
	}

	return binary.OpenDataOnly(payload)
}

// OpenArchiveText opens the textual SiiNunit entry named by hash out of
// archive a, optionally undoing the lightweight 3nK stream cipher some
// archive entries are stored under, and returns a Parser streaming its
// top-level structs.
func OpenArchiveText(a *scs.Archive, hash uint64, threeNK bool) (*text.Parser, error) {
	r, err := a.OpenEntry(hash)
	if err != nil {
		return nil, fmt.Errorf("opening archive entry %#x: %w", hash, err)
	}

	if threeNK {
		r, err = crypt.NewThreeNKReader(r)
		if err != nil {
			return nil, fmt.Errorf("decrypting archive entry %#x: %w", hash, err)
		}
	}

	return text.Open(r)
}

// sniffInflate peeks the decrypted payload's leading bytes: if they already
// carry the binary SII magic the payload is returned unchanged, otherwise
// it's run through zlib inflation first: SII payloads may optionally be
// zlib-compressed under the encryption layer.
func sniffInflate(plain []byte) (io.Reader, error) {
	br := bufio.NewReader(bytes.NewReader(plain))
	head, err := br.Peek(len(binarySignaturePrefix))
	if err != nil && err != io.EOF {
		return nil, err
	}

	if len(head) == len(binarySignaturePrefix) && [4]byte(head) == binarySignaturePrefix {
		return br, nil
	}

	return zlib.NewReader(br)
}

// ID is the hierarchical or nameless identifier type decoded structs are
// keyed by, re-exported here so callers need not import sii directly for
// the common path.
type ID = sii.ID

// ParseID parses a dotted identifier string into an ID. ID.String performs
// the inverse.
func ParseID(s string) (ID, error) {
	return sii.ParseID(s)
}
