// Copyright 2023 The revdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package revdb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/rime/revdb/internal/mapped"
)

const (
	formatName       = "Rime::Reverse/3.1"
	formatPrefix     = "Rime::Reverse/"
	formatCompatible = 3.0
	// readers accept newer files up to one full version ahead
	formatTolerance = 1.0
	formatEpsilon   = 1e-9

	formatMaxLength = 32
	headerSize      = 128

	offChecksum     = 32
	offSettings     = 40
	offIndex        = 56
	offKeyTable     = 72
	offValueTable   = 88
	offHeaderDigest = 104

	// bytes reserved for the header and allocation padding when
	// estimating a new file's size
	reservedSize = 1024
	// size of a string id in the index array
	idSize = 4
)

var (
	ErrNoMetadata         = errors.New("reverse db metadata not found")
	ErrInvalidFormat      = errors.New("invalid reverse db metadata")
	ErrIncompatibleFormat = errors.New("incompatible reverse db format")
	ErrCorrupt            = errors.New("reverse db corrupted")
)

// metadata is the fixed-size header at the start of every reverse db file.
// All spans are offsets into the mapped file, never pointers.
type metadata struct {
	format           string
	dictFileChecksum uint32
	dictSettings     mapped.Span
	index            mapped.Span // Length counts entries, not bytes
	keyTable         mapped.Span
	valueTable       mapped.Span
}

func putSpan(b []byte, s mapped.Span) {
	binary.LittleEndian.PutUint64(b[0:8], s.Offset)
	binary.LittleEndian.PutUint64(b[8:16], s.Length)
}

func getSpan(b []byte) mapped.Span {
	return mapped.Span{
		Offset: binary.LittleEndian.Uint64(b[0:8]),
		Length: binary.LittleEndian.Uint64(b[8:16]),
	}
}

// MarshalTo writes every field but the format tag.  The tag is written
// separately by commitFormat, once the rest of the file is complete.
func (h *metadata) MarshalTo(b []byte) error {
	if len(b) < headerSize {
		return fmt.Errorf("header buffer too short: %d < %d", len(b), headerSize)
	}
	binary.LittleEndian.PutUint32(b[offChecksum:offChecksum+4], h.dictFileChecksum)
	putSpan(b[offSettings:], h.dictSettings)
	putSpan(b[offIndex:], h.index)
	putSpan(b[offKeyTable:], h.keyTable)
	putSpan(b[offValueTable:], h.valueTable)
	binary.LittleEndian.PutUint64(b[offHeaderDigest:offHeaderDigest+8], headerDigest(b))
	return nil
}

// commitFormat writes the format tag, marking the file as complete.
func commitFormat(b []byte, format string) {
	var tag [formatMaxLength]byte
	copy(tag[:formatMaxLength-1], format)
	copy(b[:formatMaxLength], tag[:])
}

func headerDigest(b []byte) uint64 {
	return xxhash.Sum64(b[offChecksum:offHeaderDigest])
}

// UnmarshalBytes parses and validates a header.  fileSize bounds every span.
func (h *metadata) UnmarshalBytes(b []byte, fileSize uint64) error {
	if len(b) < headerSize {
		return fmt.Errorf("%w: header too short: %d < %d", ErrNoMetadata, len(b), headerSize)
	}
	b = b[:headerSize]

	tag := b[:formatMaxLength]
	if i := bytes.IndexByte(tag, 0); i >= 0 {
		tag = tag[:i]
	}
	if !bytes.HasPrefix(tag, []byte(formatPrefix)) {
		return fmt.Errorf("%w: format %q", ErrInvalidFormat, tag)
	}
	if err := checkFormatVersion(string(tag[len(formatPrefix):])); err != nil {
		return err
	}
	h.format = string(tag)

	if expected, actual := binary.LittleEndian.Uint64(b[offHeaderDigest:offHeaderDigest+8]), headerDigest(b); expected != actual {
		return fmt.Errorf("%w: header checksum failed (%d != %d)", ErrCorrupt, expected, actual)
	}

	h.dictFileChecksum = binary.LittleEndian.Uint32(b[offChecksum : offChecksum+4])
	h.dictSettings = getSpan(b[offSettings:])
	h.index = getSpan(b[offIndex:])
	h.keyTable = getSpan(b[offKeyTable:])
	h.valueTable = getSpan(b[offValueTable:])

	indexBytes := mapped.Span{Offset: h.index.Offset, Length: h.index.Length * idSize}
	if h.index.Length > math.MaxUint64/idSize {
		return fmt.Errorf("%w: index count %d", ErrCorrupt, h.index.Length)
	}
	for name, s := range map[string]mapped.Span{
		"settings":    h.dictSettings,
		"index":       indexBytes,
		"key table":   h.keyTable,
		"value table": h.valueTable,
	} {
		if end := s.Offset + s.Length; end < s.Offset || end > fileSize {
			return fmt.Errorf("%w: %s [%d, +%d) beyond file size %d", ErrCorrupt, name, s.Offset, s.Length, fileSize)
		}
	}
	return nil
}

// checkFormatVersion accepts versions in
// [formatCompatible, formatCompatible+formatTolerance].
func checkFormatVersion(version string) error {
	v, err := strconv.ParseFloat(version, 64)
	if err != nil {
		return fmt.Errorf("%w: version %q", ErrIncompatibleFormat, version)
	}
	if math.IsNaN(v) || v-formatCompatible < -formatEpsilon || v-formatCompatible > formatTolerance+formatEpsilon {
		return fmt.Errorf("%w: version %s not within [%.1f, %.1f]", ErrIncompatibleFormat, version, formatCompatible, formatCompatible+formatTolerance)
	}
	return nil
}
