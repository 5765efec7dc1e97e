package scs

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zlib"

	"github.com/scsparse/siigo/sii"
)

func u32le(buf *bytes.Buffer, v uint32) {
	buf.WriteByte(byte(v))
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v >> 16))
	buf.WriteByte(byte(v >> 24))
}

func u64le(buf *bytes.Buffer, v uint64) {
	for i := 0; i < 8; i++ {
		buf.WriteByte(byte(v >> (8 * i)))
	}
}

// buildArchive assembles a minimal SCS#/CITY archive with one body section
// (laid out right after the fixed 20-byte header) followed by an entry
// table, matching src/scs/mod.rs's field order.
func buildArchive(t *testing.T, body []byte, entries []EntryDescriptor) []byte {
	t.Helper()
	var buf bytes.Buffer

	buf.WriteString("SCS#")
	u32le(&buf, 1) // version
	buf.WriteString("CITY")
	u32le(&buf, uint32(len(entries)))

	headerLen := 4 + 4 + 4 + 4 // magic + version + city + entryCount
	entryTableOffset := headerLen + 4 + len(body)
	u32le(&buf, uint32(entryTableOffset))

	buf.Write(body)

	for _, e := range entries {
		u64le(&buf, e.Hash)
		u32le(&buf, e.Offset)
		u32le(&buf, 0) // reserved
		u32le(&buf, uint32(e.EntryType))
		u32le(&buf, e.CRC32)
		u32le(&buf, e.Size)
		u32le(&buf, e.ZSize)
	}

	return buf.Bytes()
}

func writeTempArchive(t *testing.T, data []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.scs")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestArchiveUncompressedEntry(t *testing.T) {
	const hash = uint64(0x748A55BF49E4F39E)
	body := []byte("abc")
	offset := uint32(4 + 4 + 4 + 4 + 4) // header + entryTableOffset field, body starts here

	data := buildArchive(t, body, []EntryDescriptor{
		{Hash: hash, Offset: offset, EntryType: UncompressedFile, Size: uint32(len(body))},
	})

	a, err := Open(writeTempArchive(t, data))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	r, err := a.OpenEntry(hash)
	if err != nil {
		t.Fatalf("OpenEntry: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("entry body = %q, want %q", got, body)
	}
}

func TestArchiveCompressedEntry(t *testing.T) {
	plain := bytes.Repeat([]byte("the quick brown fox "), 50)

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(plain); err != nil {
		t.Fatalf("zlib Write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib Close: %v", err)
	}

	const hash = uint64(0x1)
	offset := uint32(4 + 4 + 4 + 4 + 4)
	data := buildArchive(t, compressed.Bytes(), []EntryDescriptor{
		{Hash: hash, Offset: offset, EntryType: CompressedFile, Size: uint32(len(plain)), ZSize: uint32(compressed.Len())},
	})

	a, err := Open(writeTempArchive(t, data))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	r, err := a.OpenEntry(hash)
	if err != nil {
		t.Fatalf("OpenEntry: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("inflated entry mismatch: got %d bytes, want %d", len(got), len(plain))
	}
}

func TestArchiveDuplicateHashRejected(t *testing.T) {
	data := buildArchive(t, nil, []EntryDescriptor{
		{Hash: 1, Offset: 16, EntryType: UncompressedFile, Size: 0},
		{Hash: 1, Offset: 16, EntryType: UncompressedFile, Size: 0},
	})

	_, err := Open(writeTempArchive(t, data))
	if err == nil {
		t.Fatal("expected duplicate-hash error")
	}
}

func TestArchiveDirEntryTypeRejected(t *testing.T) {
	const hash = uint64(1)
	offset := uint32(4 + 4 + 4 + 4 + 4)
	data := buildArchive(t, []byte("x"), []EntryDescriptor{
		{Hash: hash, Offset: offset, EntryType: UncompressedDirEntries, Size: 1},
	})

	a, err := Open(writeTempArchive(t, data))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	_, err = a.OpenEntry(hash)
	if _, ok := err.(*sii.UnsupportedEntryTypeError); !ok {
		t.Fatalf("err = %v (%T), want *sii.UnsupportedEntryTypeError", err, err)
	}
}

func TestArchiveDescribeMissingEntry(t *testing.T) {
	data := buildArchive(t, nil, nil)
	a, err := Open(writeTempArchive(t, data))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	if _, ok := a.Describe(0xDEAD); ok {
		t.Fatal("expected Describe to report missing entry")
	}
}

func TestArchiveRejectsBadMagic(t *testing.T) {
	data := []byte("NOPE0000CITY00000000")
	_, err := Open(writeTempArchive(t, data))
	if _, ok := err.(*sii.BadMagicError); !ok {
		t.Fatalf("err = %v (%T), want *sii.BadMagicError", err, err)
	}
}
