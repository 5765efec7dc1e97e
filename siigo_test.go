package siigo

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zlib"

	"github.com/scsparse/siigo/scs"
	"github.com/scsparse/siigo/sii"
	"github.com/scsparse/siigo/sii/crypt"
)

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

// buildBinarySII builds a minimal BSII stream with one schema and one
// struct, the same shape as sii/binary's own fixture.
func buildBinarySII(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	u32le(&buf, 0x49495342)
	u32le(&buf, 3)

	u32le(&buf, 0)
	buf.WriteByte(1)
	u32le(&buf, 0x2A)
	lenString(&buf, "test")
	u32le(&buf, sii.TypeString)
	lenString(&buf, "name")
	u32le(&buf, 0)

	u32le(&buf, 0x2A)
	v, err := sii.EncodeString("a")
	if err != nil {
		t.Fatalf("EncodeString: %v", err)
	}
	buf.WriteByte(1)
	for i := 0; i < 8; i++ {
		buf.WriteByte(byte(v >> (8 * i)))
	}
	lenString(&buf, "hello")

	return buf.Bytes()
}

func encryptAESEnvelope(t *testing.T, plaintext []byte) []byte {
	t.Helper()

	pad := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := append(append([]byte(nil), plaintext...), bytes.Repeat([]byte{byte(pad)}, pad)...)

	key := [32]byte{
		0x2A, 0x5F, 0xCB, 0x17, 0x91, 0xD2, 0x2F, 0xB6, 0x02, 0x45, 0xB3, 0xD8, 0x36, 0x9E, 0xD0, 0xB2,
		0xC2, 0x73, 0x71, 0x56, 0x3F, 0xBF, 0x1F, 0x3C, 0x9E, 0xDF, 0x6B, 0x11, 0x82, 0x5A, 0x5D, 0x0A,
	}
	block, err := aes.NewCipher(key[:])
	if err != nil {
		t.Fatalf("aes.NewCipher: %v", err)
	}
	var iv [16]byte
	mode := cipher.NewCBCEncrypter(block, iv[:])
	ciphertext := make([]byte, len(padded))
	mode.CryptBlocks(ciphertext, padded)

	var buf bytes.Buffer
	var magic [4]byte
	binary.LittleEndian.PutUint32(magic[:], 0x43736353)
	buf.Write(magic[:])
	buf.Write(make([]byte, 32))
	buf.Write(iv[:])
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(plaintext)))
	buf.Write(lenBuf[:])
	buf.Write(ciphertext)
	return buf.Bytes()
}

func TestOpenSaveFileRawBinary(t *testing.T) {
	plain := buildBinarySII(t)
	envelope := encryptAESEnvelope(t, plain)

	d, err := OpenSaveFile(bytes.NewReader(envelope))
	if err != nil {
		t.Fatalf("OpenSaveFile: %v", err)
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

func TestOpenSaveFileZlibCompressedBinary(t *testing.T) {
	plain := buildBinarySII(t)

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(plain); err != nil {
		t.Fatalf("zlib Write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib Close: %v", err)
	}

	envelope := encryptAESEnvelope(t, compressed.Bytes())

	d, err := OpenSaveFile(bytes.NewReader(envelope))
	if err != nil {
		t.Fatalf("OpenSaveFile: %v", err)
	}
	st, err := d.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if st.StructName != "test" {
		t.Fatalf("StructName = %q, want test", st.StructName)
	}
}

func u64le(buf *bytes.Buffer, v uint64) {
	for i := 0; i < 8; i++ {
		buf.WriteByte(byte(v >> (8 * i)))
	}
}

func buildArchiveWithEntry(t *testing.T, hash uint64, body []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("SCS#")
	u32le(&buf, 1)
	buf.WriteString("CITY")
	u32le(&buf, 1)

	offset := uint32(4 + 4 + 4 + 4 + 4)
	u32le(&buf, offset+uint32(len(body)))
	buf.Write(body)

	u64le(&buf, hash)
	u32le(&buf, offset)
	u32le(&buf, 0)
	u32le(&buf, uint32(scs.UncompressedFile))
	u32le(&buf, 0)
	u32le(&buf, uint32(len(body)))
	u32le(&buf, 0)

	return buf.Bytes()
}

func TestOpenArchiveTextWithThreeNK(t *testing.T) {
	const src = `SiiNunit {
	foo : .a.b {
		bar: "hi"
	}
}`
	encrypted := encryptThreeNKForSiigoTest(t, []byte(src), 0x07)

	const hash = uint64(0x748A55BF49E4F39E)
	data := buildArchiveWithEntry(t, hash, encrypted)

	dir := t.TempDir()
	path := filepath.Join(dir, "archive.scs")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	a, err := scs.Open(path)
	if err != nil {
		t.Fatalf("scs.Open: %v", err)
	}
	defer a.Close()

	p, err := OpenArchiveText(a, hash, true)
	if err != nil {
		t.Fatalf("OpenArchiveText: %v", err)
	}
	st, err := p.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if st.StructName != "foo" {
		t.Fatalf("StructName = %q, want foo", st.StructName)
	}
	bar, err := st.GetString("bar")
	if err != nil || bar != "hi" {
		t.Fatalf("GetString(bar) = %q, %v, want hi, nil", bar, err)
	}
}

// encryptThreeNKForSiigoTest builds a 3nK-encrypted buffer decryptable by
// crypt.NewThreeNKReader, exercising the same wiring OpenArchiveText uses.
func encryptThreeNKForSiigoTest(t *testing.T, plaintext []byte, seed byte) []byte {
	t.Helper()
	header := []byte{'3', 'n', seed, 0}
	plain := append(append([]byte(nil), header...), plaintext...)
	r, err := crypt.NewThreeNKReader(bytes.NewReader(plain))
	if err != nil {
		t.Fatalf("NewThreeNKReader: %v", err)
	}
	// Decrypting header-prefixed plaintext with the cipher produces the
	// matching ciphertext, since XOR keystreams are their own inverse.
	decrypted, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return append(header, decrypted...)
}

func TestParseIDReExport(t *testing.T) {
	id, err := ParseID("company.volatile.renat.riga")
	if err != nil {
		t.Fatalf("ParseID: %v", err)
	}
	if got := id.String(); got != "company.volatile.renat.riga" {
		t.Fatalf("String() = %q", got)
	}
}
