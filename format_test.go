// Copyright 2023 The revdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package revdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rime/revdb/internal/mapped"
)

func testMetadata() *metadata {
	return &metadata{
		dictFileChecksum: 0xcafebabe,
		dictSettings:     mapped.Span{Offset: 128, Length: 40},
		index:            mapped.Span{Offset: 168, Length: 3},
		keyTable:         mapped.Span{Offset: 184, Length: 100},
		valueTable:       mapped.Span{Offset: 288, Length: 100},
	}
}

func TestMetadata_RoundTrip(t *testing.T) {
	origH := testMetadata()

	// this should be an error
	err := origH.MarshalTo(nil)
	assert.Error(t, err)

	var newH metadata
	headerBytes := make([]byte, headerSize)
	// this should be an error -- missing format tag
	err = newH.UnmarshalBytes(headerBytes, 1024)
	assert.ErrorIs(t, err, ErrInvalidFormat)

	err = origH.MarshalTo(headerBytes)
	require.NoError(t, err)

	// written but not committed: still invalid
	err = newH.UnmarshalBytes(headerBytes, 1024)
	assert.ErrorIs(t, err, ErrInvalidFormat)

	commitFormat(headerBytes, formatName)

	// this should be an error
	err = newH.UnmarshalBytes(nil, 1024)
	assert.ErrorIs(t, err, ErrNoMetadata)

	err = newH.UnmarshalBytes(headerBytes, 1024)
	require.NoError(t, err)

	origH.format = formatName
	assert.Equal(t, origH, &newH)
}

func TestMetadata_Versions(t *testing.T) {
	for _, testcase := range []struct {
		format string
		err    error
	}{
		{"Rime::Reverse/3.1", nil},
		{"Rime::Reverse/3.0", nil},
		{"Rime::Reverse/3.9", nil},
		{"Rime::Reverse/4.0", nil},
		{"Rime::Reverse/2.0", ErrIncompatibleFormat},
		{"Rime::Reverse/2.9", ErrIncompatibleFormat},
		{"Rime::Reverse/4.1", ErrIncompatibleFormat},
		{"Rime::Reverse/x", ErrIncompatibleFormat},
		{"Rime::Reverse/", ErrIncompatibleFormat},
		{"Rime::Reverse/NaN", ErrIncompatibleFormat},
		{"Rime::Reverse/+Inf", ErrIncompatibleFormat},
		{"Rime::Prism/3.1", ErrInvalidFormat},
		{"Rime::Table/4.0", ErrInvalidFormat},
	} {
		headerBytes := make([]byte, headerSize)
		require.NoError(t, testMetadata().MarshalTo(headerBytes))
		commitFormat(headerBytes, testcase.format)

		var h metadata
		err := h.UnmarshalBytes(headerBytes, 1024)
		if testcase.err == nil {
			assert.NoError(t, err, testcase.format)
		} else {
			assert.ErrorIs(t, err, testcase.err, testcase.format)
		}
	}
}

func TestMetadata_Corrupt(t *testing.T) {
	headerBytes := make([]byte, headerSize)
	require.NoError(t, testMetadata().MarshalTo(headerBytes))
	commitFormat(headerBytes, formatName)

	var h metadata
	// spans must lie within the file
	err := h.UnmarshalBytes(headerBytes, 300)
	assert.ErrorIs(t, err, ErrCorrupt)

	// flipping a covered byte breaks the header digest
	headerBytes[offChecksum] ^= 0xff
	err = h.UnmarshalBytes(headerBytes, 1024)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestCommitFormat_Truncates(t *testing.T) {
	headerBytes := make([]byte, headerSize)
	for i := range headerBytes {
		headerBytes[i] = 'x'
	}
	commitFormat(headerBytes, "Rime::Reverse/3.1-and-a-very-long-suffix")
	// the tag is always NUL terminated and never spills past its field
	assert.Equal(t, byte(0), headerBytes[formatMaxLength-1])
	assert.Equal(t, byte('x'), headerBytes[formatMaxLength])
}
