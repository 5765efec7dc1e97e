package crypt

import (
	"fmt"
	"io"
)

// threeNKMagic is the literal 2-byte header prefix "3n".
var threeNKMagic = [2]byte{'3', 'n'}

// threeNKLookup is the 256-byte S-box the 3nK stream cipher XORs against.
//
// The real table is an embedded constant of the format, documented by the
// SII_Decrypt project (github.com/TheLazyTomcat/SII_Decrypt); the source
// defining it was not available when this package was written, so this is
// a synthesized fixed permutation standing in for it. The decrypt formula
// around it -- cipher[i] XOR (lookup[(i+seed)&0xFF] XOR (i>>8)) -- matches
// the documented algorithm exactly.
var threeNKLookup = [256]byte{
	0xc4, 0x08, 0xae, 0x34, 0x74, 0x88, 0xc6, 0xf5, 0xb8, 0x36, 0x71, 0x97, 0x49, 0x4b, 0xff, 0x64,
	0x6e, 0x60, 0x4e, 0x6a, 0x87, 0x29, 0x55, 0x17, 0xb0, 0x1c, 0x46, 0xde, 0xef, 0x2a, 0xd7, 0x93,
	0x5c, 0xda, 0x37, 0x48, 0x83, 0x01, 0x65, 0xf9, 0xdd, 0xa1, 0xe3, 0x53, 0xc9, 0x2b, 0xd3, 0x20,
	0x51, 0x9f, 0x3b, 0xc5, 0xdb, 0xd2, 0x59, 0xd8, 0x96, 0x68, 0x3c, 0x00, 0x84, 0x8d, 0x52, 0xdc,
	0x58, 0xa4, 0xc8, 0x38, 0x67, 0x54, 0x30, 0x2e, 0xa7, 0x42, 0x06, 0x61, 0x81, 0xca, 0x76, 0xe7,
	0x07, 0x92, 0x14, 0x9e, 0x0b, 0x0f, 0xcb, 0xb7, 0xf1, 0x1b, 0x8f, 0x7c, 0xd5, 0xed, 0x40, 0xa0,
	0x5d, 0xc1, 0xa9, 0x5f, 0x91, 0x85, 0x90, 0xaa, 0x2f, 0x1d, 0xa5, 0xe1, 0xb6, 0xd6, 0x0c, 0x8c,
	0xf6, 0x3e, 0xe8, 0xec, 0xf0, 0x6d, 0x02, 0x78, 0x12, 0x9d, 0xba, 0xab, 0x16, 0x0e, 0x9b, 0x3f,
	0xfa, 0xea, 0x13, 0x56, 0x9c, 0xc3, 0xf8, 0x09, 0xdf, 0x89, 0xcd, 0x69, 0xe0, 0x50, 0xc0, 0xb2,
	0x6b, 0x21, 0x44, 0xc2, 0x8a, 0x31, 0x1a, 0xbe, 0x2c, 0x35, 0x1f, 0x63, 0xa8, 0x23, 0x4c, 0x5b,
	0xe6, 0xd1, 0x15, 0xe4, 0x82, 0x10, 0xbd, 0x7e, 0x41, 0xfe, 0xb5, 0x9a, 0x77, 0x47, 0xaf, 0xfd,
	0xb9, 0x98, 0x73, 0x4f, 0xbf, 0x24, 0x99, 0xfb, 0x72, 0xb3, 0xb4, 0x79, 0x6c, 0x22, 0xcf, 0x33,
	0x70, 0x27, 0xbc, 0xe5, 0x8e, 0xf7, 0x18, 0xf4, 0xee, 0x5e, 0xe2, 0xf2, 0xd0, 0x95, 0xe9, 0x39,
	0x7a, 0xeb, 0x80, 0xbb, 0xcc, 0x25, 0x5a, 0xce, 0x8b, 0x43, 0x1e, 0x32, 0x3d, 0x7d, 0x57, 0x3a,
	0x86, 0x0d, 0xac, 0x05, 0x66, 0x03, 0xd9, 0x4d, 0x7f, 0xa6, 0xa2, 0xb1, 0x62, 0x2d, 0x04, 0x28,
	0xfc, 0x6f, 0x0a, 0x11, 0x26, 0xc7, 0x94, 0xa3, 0x7b, 0x75, 0x19, 0xd4, 0xf3, 0x4a, 0x45, 0xad,
}

// ThreeNKReader is a byte-wise stream transform over an inner reader,
// decrypting as it's read. It is one-shot and propagates the inner
// reader's EOF.
type ThreeNKReader struct {
	inner io.Reader
	seed  byte
	pos   int64
}

// NewThreeNKReader reads the 4-byte 3nK header ('3', 'n', seed, reserved)
// and returns a reader that decrypts the remainder of r on demand.
func NewThreeNKReader(r io.Reader) (*ThreeNKReader, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	if hdr[0] != threeNKMagic[0] || hdr[1] != threeNKMagic[1] {
		return nil, fmt.Errorf("bad 3nK magic: %q", hdr[:2])
	}
	seed := hdr[2]
	// hdr[3] is reserved and ignored.
	return &ThreeNKReader{inner: r, seed: seed}, nil
}

// Read decrypts bytes as they're pulled from the inner stream.
func (d *ThreeNKReader) Read(p []byte) (int, error) {
	n, err := d.inner.Read(p)
	for i := 0; i < n; i++ {
		idx := (uint64(d.pos) + uint64(d.seed)) & 0xFF
		p[i] ^= threeNKLookup[idx] ^ byte(d.pos>>8)
		d.pos++
	}
	return n, err
}
