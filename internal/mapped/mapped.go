// Copyright 2021 The revdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package mapped provides an append-only, memory-mapped file region.
//
// A File is either created writable (Create) and filled by bump-allocating
// ranges with Allocate, or opened read-only (OpenReadOnly).  Allocated
// ranges are identified by their byte offset from the start of the mapping;
// a writable mapping may move when it grows, so callers must re-resolve
// offsets with Bytes rather than hold on to slices across allocations.
package mapped

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

var (
	ErrNotOpen    = errors.New("mapped file not open")
	ErrReadOnly   = errors.New("mapped file is read-only")
	ErrNoSpace    = errors.New("mapped file size limit reached")
	ErrOutOfRange = errors.New("range outside of mapped region")
)

// Span is an (offset, length) pair addressing bytes of a mapped region.
type Span struct {
	Offset uint64
	Length uint64
}

// Empty returns true if the span covers no bytes.
func (s Span) Empty() bool {
	return s.Length == 0
}

// Option configures a File.
type Option func(*File)

// WithMaxSize caps the size a writable mapping may grow to.  Allocations
// that would exceed it fail with ErrNoSpace.
func WithMaxSize(n int) Option {
	return func(m *File) {
		m.maxSize = n
	}
}

// File is a memory-mapped file region.  It is not safe for concurrent
// mutation; concurrent reads of a read-only mapping are fine.
type File struct {
	path     string
	f        *os.File
	data     []byte
	used     int
	readOnly bool
	maxSize  int
}

func New(path string, opts ...Option) *File {
	m := &File{path: path}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the path of the backing file.
func (m *File) Path() string {
	return m.path
}

// IsOpen reports whether the file is currently open (it may have an
// empty mapping if the file on disk is empty).
func (m *File) IsOpen() bool {
	return m.f != nil
}

// Exists reports whether the backing file exists.
func (m *File) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// Size returns the number of bytes in use: the allocation cursor for a
// writable mapping, or the file size for a read-only one.
func (m *File) Size() int {
	return m.used
}

// Capacity returns the current mapping length.
func (m *File) Capacity() int {
	return len(m.data)
}

// Create truncates (or creates) the backing file, sizes it to capacity
// bytes and maps it read-write.
func (m *File) Create(capacity int) error {
	if m.IsOpen() {
		if err := m.Close(); err != nil {
			return err
		}
	}
	if capacity <= 0 {
		return fmt.Errorf("invalid capacity %d", capacity)
	}
	if m.maxSize > 0 && capacity > m.maxSize {
		return fmt.Errorf("%w: create %d > %d", ErrNoSpace, capacity, m.maxSize)
	}
	f, err := os.OpenFile(m.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("os.OpenFile(%s): %w", m.path, err)
	}
	if err := f.Truncate(int64(capacity)); err != nil {
		_ = f.Close()
		return fmt.Errorf("f.Truncate(%d): %w", capacity, err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, capacity, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("mmap: %w", err)
	}
	m.f = f
	m.data = data
	m.used = 0
	m.readOnly = false
	return nil
}

// OpenReadOnly maps the existing backing file read-only.
func (m *File) OpenReadOnly() error {
	if m.IsOpen() {
		if err := m.Close(); err != nil {
			return err
		}
	}
	f, err := os.Open(m.path)
	if err != nil {
		return fmt.Errorf("os.Open(%s): %w", m.path, err)
	}
	stats, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("f.Stat: %w", err)
	}
	size := int(stats.Size())

	var data []byte
	if size > 0 {
		data, err = unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
		if err != nil {
			_ = f.Close()
			return fmt.Errorf("mmap: %w", err)
		}
		// lookups hop around the string tables; readahead doesn't help.
		// madvise requires page alignment, so EINVAL is ignored.
		if err := unix.Madvise(data, unix.MADV_RANDOM); err != nil && !errors.Is(err, unix.EINVAL) {
			_ = unix.Munmap(data)
			_ = f.Close()
			return fmt.Errorf("madvise: %w", err)
		}
	}

	m.f = f
	m.data = data
	m.used = size
	m.readOnly = true
	return nil
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// Allocate reserves n zeroed bytes aligned to align (a power of two) and
// returns their offset.  The mapping grows if needed, invalidating any
// slices previously returned by Bytes.
func (m *File) Allocate(n, align int) (uint64, error) {
	if !m.IsOpen() {
		return 0, ErrNotOpen
	}
	if m.readOnly {
		return 0, ErrReadOnly
	}
	if n < 0 || align <= 0 || align&(align-1) != 0 {
		return 0, fmt.Errorf("bad allocation request: %d bytes aligned to %d", n, align)
	}
	off := alignUp(m.used, align)
	end := off + n
	if end > len(m.data) {
		if err := m.grow(end); err != nil {
			return 0, err
		}
	}
	m.used = end
	return uint64(off), nil
}

func (m *File) grow(required int) error {
	newCap := len(m.data) * 2
	if newCap < required {
		newCap = required
	}
	if m.maxSize > 0 && newCap > m.maxSize {
		if required > m.maxSize {
			return fmt.Errorf("%w: need %d > %d", ErrNoSpace, required, m.maxSize)
		}
		newCap = m.maxSize
	}
	return m.remap(newCap)
}

func (m *File) remap(size int) error {
	if err := unix.Munmap(m.data); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	m.data = nil
	if err := m.f.Truncate(int64(size)); err != nil {
		return fmt.Errorf("f.Truncate(%d): %w", size, err)
	}
	if size == 0 {
		return nil
	}
	data, err := unix.Mmap(int(m.f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmap: %w", err)
	}
	m.data = data
	return nil
}

// Bytes resolves the n bytes at off against the current mapping.
func (m *File) Bytes(off uint64, n uint64) ([]byte, error) {
	if !m.IsOpen() {
		return nil, ErrNotOpen
	}
	end := off + n
	if end < off || end > uint64(m.used) {
		return nil, fmt.Errorf("%w: [%d, %d) not within %d bytes", ErrOutOfRange, off, end, m.used)
	}
	return m.data[off:end], nil
}

// SpanBytes is Bytes for a Span.
func (m *File) SpanBytes(s Span) ([]byte, error) {
	return m.Bytes(s.Offset, s.Length)
}

// CopyString allocates space for s, copies it in and returns its span.
// A trailing NUL is stored after the string but not included in the span.
func (m *File) CopyString(s string) (Span, error) {
	off, err := m.Allocate(len(s)+1, 1)
	if err != nil {
		return Span{}, err
	}
	copy(m.data[off:], s)
	return Span{Offset: off, Length: uint64(len(s))}, nil
}

// ShrinkToFit flushes the mapping and truncates the backing file to the
// bytes actually allocated.
func (m *File) ShrinkToFit() error {
	if !m.IsOpen() {
		return ErrNotOpen
	}
	if m.readOnly {
		return ErrReadOnly
	}
	if len(m.data) > 0 {
		if err := unix.Msync(m.data, unix.MS_SYNC); err != nil {
			return fmt.Errorf("msync: %w", err)
		}
	}
	if m.used == len(m.data) {
		return nil
	}
	return m.remap(m.used)
}

// Close unmaps and closes the file.  Closing a closed File is a no-op.
func (m *File) Close() error {
	if !m.IsOpen() {
		return nil
	}
	var err error
	if m.data != nil {
		if !m.readOnly {
			err = unix.Msync(m.data, unix.MS_SYNC)
		}
		if unmapErr := unix.Munmap(m.data); unmapErr != nil && err == nil {
			err = unmapErr
		}
		m.data = nil
	}
	if closeErr := m.f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	m.f = nil
	m.used = 0
	return err
}

// Remove closes the file and deletes it from disk.
func (m *File) Remove() error {
	closeErr := m.Close()
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return closeErr
}
