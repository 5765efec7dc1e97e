// Package scs reads the packaged asset archive format ("SCS#"/"CITY")
// used to ship the game's assets and save-adjacent files.
// An Archive opens its entry table once and then exposes each entry as a
// plain io.Reader, plain or zlib-inflated. It owns a single *os.File
// exclusively: only one entry stream may be open against an Archive at a
// time, the same shape as a classic MPQ-style archive reader that seeks to
// each entry's offset on demand.
package scs

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zlib"

	"github.com/scsparse/siigo/internal/wire"
	"github.com/scsparse/siigo/sii"
)

// scsSignature and cityMarker are the archive's big-endian magic markers;
// every other multi-byte field in the format is little-endian.
var (
	scsSignature = [4]byte{'S', 'C', 'S', '#'}
	cityMarker   = [4]byte{'C', 'I', 'T', 'Y'}
)

// EntryType classifies an archive entry descriptor.
type EntryType int

const (
	UncompressedFile EntryType = iota
	UncompressedDirEntries
	CompressedFile
	CompressedDirEntries
)

func entryTypeFromCode(code uint32) (EntryType, error) {
	switch code {
	case 0, 4:
		return UncompressedFile, nil
	case 1, 5:
		return UncompressedDirEntries, nil
	case 2, 6:
		return CompressedFile, nil
	case 3, 7:
		return CompressedDirEntries, nil
	default:
		return 0, &sii.UnsupportedEntryTypeError{Code: code}
	}
}

// EntryDescriptor describes one entry in the archive's entry table.
type EntryDescriptor struct {
	Hash      uint64
	Offset    uint32
	EntryType EntryType
	TypeCode  uint32 // raw wire type code (0-7) EntryType was derived from
	CRC32     uint32
	Size      uint32
	ZSize     uint32
}

func readEntryDescriptor(r io.Reader) (EntryDescriptor, error) {
	hash, err := wire.ReadU64(r)
	if err != nil {
		return EntryDescriptor{}, err
	}
	offset, err := wire.ReadU32(r)
	if err != nil {
		return EntryDescriptor{}, err
	}
	if _, err := wire.ReadU32(r); err != nil { // reserved
		return EntryDescriptor{}, err
	}
	typeCode, err := wire.ReadU32(r)
	if err != nil {
		return EntryDescriptor{}, err
	}
	entryType, err := entryTypeFromCode(typeCode)
	if err != nil {
		return EntryDescriptor{}, err
	}
	crc32, err := wire.ReadU32(r)
	if err != nil {
		return EntryDescriptor{}, err
	}
	size, err := wire.ReadU32(r)
	if err != nil {
		return EntryDescriptor{}, err
	}
	zsize, err := wire.ReadU32(r)
	if err != nil {
		return EntryDescriptor{}, err
	}
	return EntryDescriptor{
		Hash:      hash,
		Offset:    offset,
		EntryType: entryType,
		TypeCode:  typeCode,
		CRC32:     crc32,
		Size:      size,
		ZSize:     zsize,
	}, nil
}

// Archive is an opened SCS asset container: its entry table indexed by
// hash, plus the file handle entries are read from.
type Archive struct {
	file    *os.File
	entries map[uint64]EntryDescriptor
}

// Open opens the archive at path and reads its entry table.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	a, err := OpenFile(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return a, nil
}

// OpenFile reads the entry table of an already-open archive file. The
// Archive takes ownership of f; closing the Archive closes f.
func OpenFile(f *os.File) (*Archive, error) {
	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return nil, err
	}
	if magic != scsSignature {
		return nil, &sii.BadMagicError{
			Expected: binary.BigEndian.Uint32(scsSignature[:]),
			Found:    binary.BigEndian.Uint32(magic[:]),
		}
	}

	if _, err := wire.ReadU32(f); err != nil { // version, ignored
		return nil, err
	}

	var cityMagic [4]byte
	if _, err := io.ReadFull(f, cityMagic[:]); err != nil {
		return nil, err
	}
	if cityMagic != cityMarker {
		return nil, &sii.BadMagicError{
			Expected: binary.BigEndian.Uint32(cityMarker[:]),
			Found:    binary.BigEndian.Uint32(cityMagic[:]),
		}
	}

	entryCount, err := wire.ReadU32(f)
	if err != nil {
		return nil, err
	}
	entryTableOffset, err := wire.ReadU32(f)
	if err != nil {
		return nil, err
	}

	if _, err := f.Seek(int64(entryTableOffset), io.SeekStart); err != nil {
		return nil, err
	}

	entries := make(map[uint64]EntryDescriptor, entryCount)
	for i := uint32(0); i < entryCount; i++ {
		e, err := readEntryDescriptor(f)
		if err != nil {
			return nil, err
		}
		if _, dup := entries[e.Hash]; dup {
			return nil, fmt.Errorf("entry hash %#x: %w", e.Hash, sii.ErrDuplicateEntry)
		}
		entries[e.Hash] = e
	}

	return &Archive{file: f, entries: entries}, nil
}

// Describe returns the entry descriptor for hash, if present.
func (a *Archive) Describe(hash uint64) (EntryDescriptor, bool) {
	e, ok := a.entries[hash]
	return e, ok
}

// OpenEntry seeks to the entry's offset and returns a reader over its
// bytes: a length-bounded reader for UncompressedFile, or a zlib-inflating
// reader for CompressedFile. Directory-entry types are rejected with
// UnsupportedEntryTypeError since this core never consumes them. Only one
// entry reader may be in use at a time, since seeking the shared file to
// open another entry invalidates any reader still in flight.
func (a *Archive) OpenEntry(hash uint64) (io.Reader, error) {
	e, ok := a.entries[hash]
	if !ok {
		return nil, fmt.Errorf("no such archive entry with hash %#x", hash)
	}

	if _, err := a.file.Seek(int64(e.Offset), io.SeekStart); err != nil {
		return nil, err
	}

	switch e.EntryType {
	case UncompressedFile:
		return io.LimitReader(a.file, int64(e.Size)), nil
	case CompressedFile:
		// The deflate stream's own end marker terminates the read; the
		// underlying file is not bounded by zsize.
		return zlib.NewReader(a.file)
	default:
		return nil, &sii.UnsupportedEntryTypeError{Code: e.TypeCode}
	}
}

// Close closes the archive's underlying file.
func (a *Archive) Close() error {
	return a.file.Close()
}
