// Copyright 2021 The revdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package revdb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rime/revdb/internal/mapped"
	"github.com/rime/revdb/internal/strtable"
)

// stemKeySuffix separates stem keys from reverse lookup keys.  It starts
// with a control character that never occurs in dictionary text.
const stemKeySuffix = "\x1fstem"

var errNothingToSave = errors.New("no reverse db has been built")

// uint32Slice is a read-only view into a byte array as if it was []uint32
type uint32Slice []byte

func (s uint32Slice) Get(off uint64) uint32 {
	return binary.LittleEndian.Uint32(s[off*4 : off*4+4])
}

// ReverseDb is an immutable, memory-mapped table from text to the codes
// that produce it.  It is written once by Build and Save, and read by any
// number of goroutines after Load.  Close must not race with lookups.
type ReverseDb struct {
	path string
	opts options

	mu    sync.Mutex // serializes Build, Save, Load and Close
	state atomic.Pointer[dbState]
	build *buildState
}

// dbState is everything Lookup needs, fixed at Load time.
type dbState struct {
	file         *mapped.File
	meta         metadata
	index        uint32Slice
	keys         *strtable.Table
	values       *strtable.Table
	settingsText string
}

// NewReverseDb returns a closed ReverseDb for the file at path.
func NewReverseDb(path string, opts ...Option) *ReverseDb {
	return &ReverseDb{
		path: path,
		opts: newOptions(opts),
	}
}

// Path returns the path of the db file.
func (db *ReverseDb) Path() string {
	return db.path
}

// Exists reports whether the db file exists on disk.
func (db *ReverseDb) Exists() bool {
	_, err := os.Stat(db.path)
	return err == nil
}

// IsOpen reports whether the db is loaded and can answer lookups.
func (db *ReverseDb) IsOpen() bool {
	return db.state.Load() != nil
}

// Load maps the db file read-only and validates it.  Loading an open db
// is a no-op, so lookups already in flight keep their mapping.  On failure
// the db is left closed.
func (db *ReverseDb) Load() error {
	if db.IsOpen() {
		return nil
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.IsOpen() {
		return nil
	}
	return db.loadLocked()
}

func (db *ReverseDb) loadLocked() error {
	logger := db.opts.logger
	logger.Info("loading reversedb", "path", db.path)

	if s := db.state.Swap(nil); s != nil {
		if err := s.file.Close(); err != nil {
			logger.Warn("error closing reversedb", "path", db.path, "err", err)
		}
	}

	file := mapped.New(db.path)
	if err := file.OpenReadOnly(); err != nil {
		logger.Error("error opening reversedb", "path", db.path, "err", err)
		return fmt.Errorf("open reversedb: %w", err)
	}

	state, err := newDbState(file)
	if err != nil {
		_ = file.Close()
		logger.Error("invalid reversedb", "path", db.path, "err", err)
		return err
	}

	db.state.Store(state)
	return nil
}

func newDbState(file *mapped.File) (*dbState, error) {
	header, err := file.Bytes(0, headerSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoMetadata, err)
	}
	var meta metadata
	if err := meta.UnmarshalBytes(header, uint64(file.Size())); err != nil {
		return nil, err
	}

	keyImage, err := file.SpanBytes(meta.keyTable)
	if err != nil {
		return nil, fmt.Errorf("%w: key table: %s", ErrCorrupt, err)
	}
	keys, err := strtable.New(keyImage)
	if err != nil {
		return nil, fmt.Errorf("%w: key table: %s", ErrCorrupt, err)
	}
	valueImage, err := file.SpanBytes(meta.valueTable)
	if err != nil {
		return nil, fmt.Errorf("%w: value table: %s", ErrCorrupt, err)
	}
	values, err := strtable.New(valueImage)
	if err != nil {
		return nil, fmt.Errorf("%w: value table: %s", ErrCorrupt, err)
	}

	index, err := file.Bytes(meta.index.Offset, meta.index.Length*idSize)
	if err != nil {
		return nil, fmt.Errorf("%w: index: %s", ErrCorrupt, err)
	}
	// key ids index the array directly, so there must be one slot per key
	if uint64(keys.Len()) != meta.index.Length {
		return nil, fmt.Errorf("%w: %d keys but %d index entries", ErrCorrupt, keys.Len(), meta.index.Length)
	}

	var settingsText string
	if !meta.dictSettings.Empty() {
		b, err := file.SpanBytes(meta.dictSettings)
		if err != nil {
			return nil, fmt.Errorf("%w: dict settings: %s", ErrCorrupt, err)
		}
		settingsText = string(b)
	}

	return &dbState{
		file:         file,
		meta:         meta,
		index:        index,
		keys:         keys,
		values:       values,
		settingsText: settingsText,
	}, nil
}

// Lookup returns the value stored for text.  An empty value counts as not
// found, and so does any lookup before Load.
func (db *ReverseDb) Lookup(text string) (string, bool) {
	s := db.state.Load()
	if s == nil || s.keys == nil || s.values == nil || s.meta.index.Length == 0 {
		return "", false
	}
	keyID := s.keys.Lookup(text)
	if keyID == strtable.InvalidID {
		return "", false
	}
	valueID := s.index.Get(uint64(keyID))
	result := s.values.GetString(strtable.ID(valueID))
	return result, result != ""
}

// DictFileChecksum returns the checksum of the dictionary source the db was
// built from, or 0 if no metadata is available.
func (db *ReverseDb) DictFileChecksum() uint32 {
	if s := db.state.Load(); s != nil {
		return s.meta.dictFileChecksum
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.build != nil {
		return db.build.meta.dictFileChecksum
	}
	return 0
}

// Len returns the number of keys (reverse lookup texts plus stems).
func (db *ReverseDb) Len() int {
	if s := db.state.Load(); s != nil {
		return int(s.meta.index.Length)
	}
	return 0
}

// SettingsText returns the embedded dict settings, or "" if there are none.
func (db *ReverseDb) SettingsText() string {
	if s := db.state.Load(); s != nil {
		return s.settingsText
	}
	return ""
}

// Save commits a built db: the file is trimmed, made read-only and
// atomically renamed into place, then loaded.
func (db *ReverseDb) Save() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	bs := db.build
	if bs == nil {
		return errNothingToSave
	}
	db.build = nil
	db.opts.logger.Info("saving reverse file", "path", db.path)

	if err := bs.file.ShrinkToFit(); err != nil {
		_ = bs.file.Remove()
		return fmt.Errorf("ShrinkToFit: %w", err)
	}
	if err := bs.file.Close(); err != nil {
		_ = bs.file.Remove()
		return fmt.Errorf("close: %w", err)
	}
	tmpPath := bs.file.Path()
	// make the file read-only
	if err := os.Chmod(tmpPath, 0444); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("os.Chmod(0444): %w", err)
	}
	if err := os.Rename(tmpPath, db.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("os.Rename: %w", err)
	}

	return db.loadLocked()
}

// Close unmaps the db and discards any unsaved build.  Closing a closed db
// is a no-op.
func (db *ReverseDb) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.closeLocked()
}

func (db *ReverseDb) closeLocked() error {
	var err error
	if s := db.state.Swap(nil); s != nil {
		err = s.file.Close()
	}
	if db.build != nil {
		if removeErr := db.build.file.Remove(); removeErr != nil && err == nil {
			err = removeErr
		}
		db.build = nil
	}
	return err
}
