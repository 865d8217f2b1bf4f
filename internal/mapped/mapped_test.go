// Copyright 2021 The revdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mapped

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_CreateAllocateReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region.bin")
	m := New(path)
	assert.False(t, m.IsOpen())
	assert.False(t, m.Exists())

	require.NoError(t, m.Create(64))
	assert.True(t, m.IsOpen())
	assert.True(t, m.Exists())
	assert.Equal(t, 64, m.Capacity())

	off, err := m.Allocate(16, 8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), off)

	buf, err := m.Bytes(off, 16)
	require.NoError(t, err)
	// fresh allocations are zeroed
	assert.Equal(t, make([]byte, 16), buf)
	binary.LittleEndian.PutUint32(buf[:4], 0xdeadbeef)

	// alignment is honored
	_, err = m.Allocate(1, 1)
	require.NoError(t, err)
	off2, err := m.Allocate(4, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), off2)

	span, err := m.CopyString("ni hao")
	require.NoError(t, err)
	assert.Equal(t, uint64(len("ni hao")), span.Length)

	require.NoError(t, m.ShrinkToFit())
	used := m.Size()
	require.NoError(t, m.Close())
	// double close is a no-op
	require.NoError(t, m.Close())

	stats, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(used), stats.Size())

	require.NoError(t, m.OpenReadOnly())
	defer func() {
		_ = m.Close()
	}()
	assert.Equal(t, used, m.Size())

	buf, err = m.Bytes(0, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), binary.LittleEndian.Uint32(buf))

	s, err := m.SpanBytes(span)
	require.NoError(t, err)
	assert.Equal(t, "ni hao", string(s))

	_, err = m.Allocate(1, 1)
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, m.ShrinkToFit(), ErrReadOnly)
}

func TestFile_Grow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grow.bin")
	m := New(path)
	require.NoError(t, m.Create(8))
	defer func() {
		_ = m.Close()
	}()

	first, err := m.Allocate(8, 8)
	require.NoError(t, err)
	buf, err := m.Bytes(first, 8)
	require.NoError(t, err)
	copy(buf, "abcdefgh")

	// exceeds the initial capacity and forces a remap
	second, err := m.Allocate(100, 8)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, m.Capacity(), 108)

	// offsets stay valid across the remap
	buf, err = m.Bytes(first, 8)
	require.NoError(t, err)
	assert.Equal(t, "abcdefgh", string(buf))
	_, err = m.Bytes(second, 100)
	require.NoError(t, err)
}

func TestFile_MaxSize(t *testing.T) {
	dir := t.TempDir()

	m := New(filepath.Join(dir, "small.bin"), WithMaxSize(32))
	assert.ErrorIs(t, m.Create(64), ErrNoSpace)

	require.NoError(t, m.Create(16))
	defer func() {
		_ = m.Close()
	}()
	_, err := m.Allocate(16, 1)
	require.NoError(t, err)
	_, err = m.Allocate(16, 1)
	require.NoError(t, err)
	assert.Equal(t, 32, m.Capacity())
	_, err = m.Allocate(1, 1)
	assert.ErrorIs(t, err, ErrNoSpace)
}

func TestFile_Errors(t *testing.T) {
	m := New("/doesnt/exist")
	assert.Error(t, m.OpenReadOnly())
	assert.False(t, m.IsOpen())

	_, err := m.Allocate(1, 1)
	assert.ErrorIs(t, err, ErrNotOpen)
	_, err = m.Bytes(0, 1)
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.ErrorIs(t, m.ShrinkToFit(), ErrNotOpen)
	require.NoError(t, m.Close())

	path := filepath.Join(t.TempDir(), "errs.bin")
	m = New(path)
	require.NoError(t, m.Create(16))
	_, err = m.Allocate(3, 3)
	assert.Error(t, err)
	_, err = m.Bytes(0, 1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	require.NoError(t, m.Remove())
	assert.False(t, m.Exists())
}

func TestFile_EmptyReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	m := New(path)
	require.NoError(t, m.OpenReadOnly())
	defer func() {
		_ = m.Close()
	}()
	assert.True(t, m.IsOpen())
	assert.Equal(t, 0, m.Size())
	_, err := m.Bytes(0, 1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}
