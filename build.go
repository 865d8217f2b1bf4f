// Copyright 2021 The revdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package revdb

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rime/revdb/internal/mapped"
	"github.com/rime/revdb/internal/strtable"
)

const (
	reverseValueSeparator = " | "
	stemValueSeparator    = " "
	syllableSeparator     = " "
)

// buildState is a db file that has been built but not yet saved.
type buildState struct {
	file *mapped.File
	meta metadata
}

// writeHeader re-resolves the header on every call: allocations may have
// moved the mapping.
func (bs *buildState) writeHeader() error {
	header, err := bs.file.Bytes(0, headerSize)
	if err != nil {
		return err
	}
	return bs.meta.MarshalTo(header)
}

// buildReverseTable walks the vocabulary breadth first and collects, for
// every text, the set of its codes spelled out as syllables.  Syllable ids
// outside the syllabary are skipped and counted; an entry left with no
// syllables contributes nothing.
func buildReverseTable(syllabary Syllabary, vocabulary Vocabulary) (ReverseLookupTable, int) {
	revTable := make(ReverseLookupTable)
	dropped := 0

	queue := []Vocabulary{vocabulary}
	for len(queue) > 0 {
		level := queue[0]
		queue = queue[1:]
		for _, page := range level {
			if page == nil {
				continue
			}
			for _, entry := range page.Entries {
				syllables := make([]string, 0, len(entry.Code))
				for _, id := range entry.Code {
					if id < 0 || int(id) >= len(syllabary) {
						dropped++
						continue
					}
					syllables = append(syllables, syllabary[id])
				}
				if len(syllables) == 0 {
					continue
				}
				revTable.Insert(entry.Text, strings.Join(syllables, syllableSeparator))
			}
			if page.NextLevel != nil {
				queue = append(queue, page.NextLevel)
			}
		}
	}
	return revTable, dropped
}

func sortedKeys(t ReverseLookupTable) []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Build constructs a new db file from a vocabulary and a stems table.
// Nothing is visible at Path until Save commits the result.  settings are
// embedded only if they use the rule-based encoder.
func (db *ReverseDb) Build(settings *DictSettings, syllabary Syllabary, vocabulary Vocabulary, stems ReverseLookupTable, dictFileChecksum uint32) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	logger := db.opts.logger
	logger.Info("building reversedb...", "path", db.path)

	revTable, dropped := buildReverseTable(syllabary, vocabulary)
	if dropped > 0 {
		logger.Debug("skipped out-of-range syllable ids", "count", dropped)
	}

	keyBuilder := strtable.NewBuilder()
	valueBuilder := strtable.NewBuilder()
	entryCount := len(revTable) + len(stems)
	keyRefs := make([]strtable.Ref, 0, entryCount)
	valueRefs := make([]strtable.Ref, 0, entryCount)

	// save reverse lookup entries
	for _, key := range sortedKeys(revTable) {
		value := revTable[key].Join(reverseValueSeparator)
		keyRefs = append(keyRefs, keyBuilder.Add(key, 0))
		valueRefs = append(valueRefs, valueBuilder.Add(value, 0))
	}
	// save stems
	for _, stem := range sortedKeys(stems) {
		value := stems[stem].Join(stemValueSeparator)
		keyRefs = append(keyRefs, keyBuilder.Add(stem+stemKeySuffix, 0))
		valueRefs = append(valueRefs, valueBuilder.Add(value, 0))
	}
	if keyBuilder.Len() != entryCount {
		return fmt.Errorf("%d keys collapsed into %d: texts must not contain %q", entryCount, keyBuilder.Len(), stemKeySuffix)
	}

	if err := keyBuilder.Build(); err != nil {
		return fmt.Errorf("key table: %w", err)
	}
	if err := valueBuilder.Build(); err != nil {
		return fmt.Errorf("value table: %w", err)
	}

	// dict settings required by the rule-based encoder
	var dictSettings string
	if settings.UseRuleBasedEncoder() {
		text, err := settings.SaveToText()
		if err != nil {
			return fmt.Errorf("dict settings: %w", err)
		}
		dictSettings = text
	}

	if err := db.closeLocked(); err != nil {
		logger.Warn("error closing reversedb", "path", db.path, "err", err)
	}

	keyTableSize := keyBuilder.BinarySize()
	valueTableSize := valueBuilder.BinarySize()
	estimatedSize := reservedSize + len(dictSettings) + entryCount*idSize + keyTableSize + valueTableSize

	// we want to write to a new file and do an atomic rename when we're done on disk
	dir := filepath.Dir(db.path)
	tmp, err := os.CreateTemp(dir, "revdb-builder.*.tmp")
	if err != nil {
		return fmt.Errorf("CreateTemp failed (may need permissions for dir %q): %w", dir, err)
	}
	_ = tmp.Close()

	var fileOpts []mapped.Option
	if db.opts.maxFileSize > 0 {
		fileOpts = append(fileOpts, mapped.WithMaxSize(db.opts.maxFileSize))
	}
	file := mapped.New(tmp.Name(), fileOpts...)
	bs := &buildState{file: file}
	fail := func(msg string, err error) error {
		_ = file.Remove()
		logger.Error(msg, "path", db.path, "err", err)
		return fmt.Errorf("%s: %w", msg, err)
	}

	if err := file.Create(estimatedSize); err != nil {
		return fail("error creating reversedb file", err)
	}

	// create metadata
	if off, err := file.Allocate(headerSize, 8); err != nil {
		return fail("error creating metadata", err)
	} else if off != 0 {
		return fail("error creating metadata", fmt.Errorf("header at offset %d", off))
	}
	bs.meta.dictFileChecksum = dictFileChecksum
	if err := bs.writeHeader(); err != nil {
		return fail("error creating metadata", err)
	}

	if dictSettings != "" {
		span, err := file.CopyString(dictSettings)
		if err != nil {
			return fail("error saving dict settings", err)
		}
		bs.meta.dictSettings = span
		if err := bs.writeHeader(); err != nil {
			return fail("error saving dict settings", err)
		}
	}

	indexLen := uint64(entryCount) * idSize
	indexOff, err := file.Allocate(int(indexLen), idSize)
	if err != nil {
		return fail("error creating index", err)
	}
	index, err := file.Bytes(indexOff, indexLen)
	if err != nil {
		return fail("error creating index", err)
	}
	for i := range keyRefs {
		keyID, err := keyBuilder.ID(keyRefs[i])
		if err != nil {
			return fail("error creating index", err)
		}
		valueID, err := valueBuilder.ID(valueRefs[i])
		if err != nil {
			return fail("error creating index", err)
		}
		binary.LittleEndian.PutUint32(index[uint64(keyID)*idSize:], uint32(valueID))
	}
	bs.meta.index = mapped.Span{Offset: indexOff, Length: uint64(entryCount)}
	if err := bs.writeHeader(); err != nil {
		return fail("error creating index", err)
	}

	// save key table image
	if bs.meta.keyTable, err = dumpTable(file, keyBuilder); err != nil {
		return fail("error creating key table image", err)
	}
	// save value table image
	if bs.meta.valueTable, err = dumpTable(file, valueBuilder); err != nil {
		return fail("error creating value table image", err)
	}
	if err := bs.writeHeader(); err != nil {
		return fail("error writing metadata", err)
	}

	// at last, complete the metadata
	header, err := file.Bytes(0, headerSize)
	if err != nil {
		return fail("error writing metadata", err)
	}
	commitFormat(header, formatName)

	db.build = bs
	logger.Info("built reversedb", "path", db.path, "entries", entryCount, "bytes", file.Size())
	return nil
}

func dumpTable(file *mapped.File, b *strtable.Builder) (mapped.Span, error) {
	size := b.BinarySize()
	off, err := file.Allocate(size, 8)
	if err != nil {
		return mapped.Span{}, err
	}
	buf, err := file.Bytes(off, uint64(size))
	if err != nil {
		return mapped.Span{}, err
	}
	if err := b.Dump(buf); err != nil {
		return mapped.Span{}, err
	}
	return mapped.Span{Offset: off, Length: uint64(size)}, nil
}
