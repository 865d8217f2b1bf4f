// Copyright 2022 The revdb Authors and Caleb Spare. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package strtable implements an immutable table mapping strings to dense
// integer ids and back.  A table is built once with a Builder, dumped to a
// flat byte image, and later read in place (for example from an mmap'd
// file) without copying.
//
// An image looks like:
//
//	┌───────────────────┐
//	│ header (32 bytes) │
//	├───────────────────┤
//	│ string offsets    │  (count+1) x uint32
//	├───────────────────┤
//	│ level0 seeds      │  level0Len x uint32
//	├───────────────────┤
//	│ level1 slots      │  level1Len x uint32 (id+1, 0 means empty)
//	├───────────────────┤
//	│ string bytes      │
//	└───────────────────┘
//
// Lookups use a minimal perfect hash built with the "Hash, displace, and
// compress" algorithm described in http://cmph.sourceforge.net/papers/esa09.pdf,
// followed by a comparison against the stored string to reject keys that
// were never added.
package strtable

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/dgryski/go-farm"

	"github.com/rime/revdb/internal/unsafestring"
)

const (
	magicTableHeader = uint32(0xC0FFEE05)
	formatVersion    = uint32(1)
	headerSize       = 32
)

// ID is the dense identifier of a string in a Table.
type ID uint32

// InvalidID is returned by Lookup for strings that are not in the table.
const InvalidID = ID(math.MaxUint32)

var (
	ErrShortImage = errors.New("string table image too short")
	ErrBadMagic   = errors.New("bad magic number on string table image")
)

// uint32Slice is a read-only view into a byte array as if it was []uint32
type uint32Slice []byte

func (s uint32Slice) Get(off uint64) uint32 {
	return binary.LittleEndian.Uint32(s[off*4 : off*4+4])
}

// Table is a read-only view over a string table image.  It never copies the
// image, so the image must outlive the Table.
type Table struct {
	count     uint64
	offsets   uint32Slice
	seeds     uint32Slice
	seedsMask uint64
	slots     uint32Slice
	slotsMask uint64
	blob      []byte
}

// New returns a Table reading from image.
func New(image []byte) (*Table, error) {
	if len(image) < headerSize {
		return nil, fmt.Errorf("%w: %d < %d", ErrShortImage, len(image), headerSize)
	}
	if magic := binary.LittleEndian.Uint32(image[0:4]); magic != magicTableHeader {
		return nil, fmt.Errorf("%w (%x)", ErrBadMagic, magic)
	}
	if version := binary.LittleEndian.Uint32(image[4:8]); version != formatVersion {
		return nil, fmt.Errorf("this version of revdb can only read v%d string tables; found v%d", formatVersion, version)
	}

	count := uint64(binary.LittleEndian.Uint32(image[8:12]))
	level0Len := uint64(binary.LittleEndian.Uint32(image[12:16]))
	level1Len := uint64(binary.LittleEndian.Uint32(image[16:20]))
	blobLen := uint64(binary.LittleEndian.Uint32(image[20:24]))

	if level0Len == 0 || level0Len&(level0Len-1) != 0 || level1Len == 0 || level1Len&(level1Len-1) != 0 {
		return nil, fmt.Errorf("bad hash table lengths %d/%d", level0Len, level1Len)
	}

	offsetsLen := (count + 1) * 4
	want := headerSize + offsetsLen + level0Len*4 + level1Len*4 + blobLen
	if uint64(len(image)) < want {
		return nil, fmt.Errorf("%w: %d < %d", ErrShortImage, len(image), want)
	}

	rest := image[headerSize:]
	offsets := rest[:offsetsLen]
	rest = rest[offsetsLen:]
	seeds := rest[:level0Len*4]
	rest = rest[level0Len*4:]
	slots := rest[:level1Len*4]
	blob := rest[level1Len*4 : level1Len*4+blobLen]

	t := &Table{
		count:     count,
		offsets:   offsets,
		seeds:     seeds,
		seedsMask: level0Len - 1,
		slots:     slots,
		slotsMask: level1Len - 1,
		blob:      blob,
	}
	if end := uint64(t.offsets.Get(count)); end != blobLen {
		return nil, fmt.Errorf("string offsets end at %d, expected %d", end, blobLen)
	}
	return t, nil
}

// Len returns the number of strings in the table.
func (t *Table) Len() int {
	return int(t.count)
}

// Lookup returns the id of s, or InvalidID if s was never added.
func (t *Table) Lookup(s string) ID {
	if t.count == 0 {
		return InvalidID
	}
	b := unsafestring.ToBytes(s)
	// first we hash the key with a fixed seed, giving us the offset
	// of a seed that perfectly hashes into our second-level table
	seed := t.seeds.Get(farm.Hash64WithSeed(b, 0) & t.seedsMask)
	slot := t.slots.Get(farm.Hash64WithSeed(b, uint64(seed)) & t.slotsMask)
	if slot == 0 {
		return InvalidID
	}
	id := uint64(slot - 1)
	if id >= t.count || !unsafestring.Equal(t.bytes(id), s) {
		return InvalidID
	}
	return ID(id)
}

// GetString returns the string with the given id, or "" if id is out of range.
// The result is copied out of the image.
func (t *Table) GetString(id ID) string {
	if uint64(id) >= t.count {
		return ""
	}
	return string(t.bytes(uint64(id)))
}

func (t *Table) bytes(id uint64) []byte {
	start := t.offsets.Get(id)
	end := t.offsets.Get(id + 1)
	return t.blob[start:end]
}
