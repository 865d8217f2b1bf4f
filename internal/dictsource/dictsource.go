// Copyright 2021 The revdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package dictsource reads Rime dictionary sources (*.dict.yaml): a YAML
// header closed by a "..." line, followed by tab separated entries.
package dictsource

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	farm "github.com/dgryski/go-farm"

	"github.com/rime/revdb"
)

const headerEnd = "..."

var (
	ErrNoHeader = errors.New("dict source: header not terminated by '...'")
	ErrNoText   = errors.New("dict source: columns lack 'text'")
	ErrNoName   = errors.New("dict source: missing dictionary name")
)

var defaultColumns = []string{"text", "code", "weight"}

// Source is a parsed dictionary, ready to be handed to ReverseDb.Build.
type Source struct {
	Settings   *revdb.DictSettings
	Syllabary  revdb.Syllabary
	Vocabulary revdb.Vocabulary
	Stems      revdb.ReverseLookupTable
	// Checksum fingerprints the source file, letting callers detect stale
	// reverse dbs.
	Checksum uint32
	// Entries counts the rows that made it into Vocabulary.
	Entries int
}

type row struct {
	text   string
	code   []string
	weight float64
	stem   string
}

type columnIndex struct {
	text, code, weight, stem int
}

func newColumnIndex(columns []string) (columnIndex, error) {
	if len(columns) == 0 {
		columns = defaultColumns
	}
	idx := columnIndex{-1, -1, -1, -1}
	for i, c := range columns {
		switch c {
		case "text":
			idx.text = i
		case "code":
			idx.code = i
		case "weight":
			idx.weight = i
		case "stem":
			idx.stem = i
		}
	}
	if idx.text < 0 {
		return idx, ErrNoText
	}
	return idx, nil
}

func field(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

// Parse reads a dictionary source.  Rows without a code are kept out of
// the vocabulary, but their stems are still recorded.
func Parse(r io.Reader) (*Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("io.ReadAll: %w", err)
	}

	header, body, ok := splitHeader(data)
	if !ok {
		return nil, ErrNoHeader
	}
	settings := new(revdb.DictSettings)
	if err := settings.LoadFromText(string(header)); err != nil {
		return nil, err
	}
	if settings.Name == "" {
		return nil, ErrNoName
	}
	columns, err := newColumnIndex(settings.Columns)
	if err != nil {
		return nil, err
	}

	var rows []row
	syllables := make(map[string]struct{})
	stems := make(revdb.ReverseLookupTable)

	s := bufio.NewScanner(bytes.NewReader(body))
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := bytes.Count(data[:len(data)-len(body)], []byte{'\n'})
	for s.Scan() {
		lineNo++
		line := strings.TrimRight(s.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		e := row{
			text: field(fields, columns.text),
			code: strings.Fields(field(fields, columns.code)),
			stem: field(fields, columns.stem),
		}
		if e.text == "" {
			return nil, fmt.Errorf("line %d: missing text", lineNo)
		}
		if w := field(fields, columns.weight); w != "" {
			if e.weight, err = parseWeight(w); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		}
		if e.stem != "" {
			stems.Insert(e.text, e.stem)
		}
		for _, syllable := range e.code {
			syllables[syllable] = struct{}{}
		}
		rows = append(rows, e)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
	}

	syllabary := make(revdb.Syllabary, 0, len(syllables))
	for syllable := range syllables {
		syllabary = append(syllabary, syllable)
	}
	sort.Strings(syllabary)
	ids := make(map[string]revdb.SyllableID, len(syllabary))
	for i, syllable := range syllabary {
		ids[syllable] = revdb.SyllableID(i)
	}

	src := &Source{
		Settings:   settings,
		Syllabary:  syllabary,
		Vocabulary: make(revdb.Vocabulary),
		Stems:      stems,
		Checksum:   farm.Fingerprint32(data),
	}
	for _, e := range rows {
		if len(e.code) == 0 {
			continue
		}
		code := make(revdb.Code, len(e.code))
		for i, syllable := range e.code {
			code[i] = ids[syllable]
		}
		if src.Vocabulary.Add(&revdb.ShortDictEntry{Text: e.text, Code: code, Weight: e.weight}) {
			src.Entries++
		}
	}
	return src, nil
}

// splitHeader returns the YAML before the first "..." line and everything
// after it.
func splitHeader(data []byte) (header, body []byte, ok bool) {
	rest := data
	for len(rest) > 0 {
		line, next, _ := bytes.Cut(rest, []byte{'\n'})
		if string(bytes.TrimRight(line, " \r")) == headerEnd {
			headerLen := len(data) - len(rest)
			return data[:headerLen], next, true
		}
		rest = next
	}
	return nil, nil, false
}

// parseWeight accepts plain numbers and percentages ("50%").
func parseWeight(s string) (float64, error) {
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		w, err := strconv.ParseFloat(pct, 64)
		if err != nil {
			return 0, fmt.Errorf("bad weight %q: %w", s, err)
		}
		return w / 100, nil
	}
	w, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad weight %q: %w", s, err)
	}
	return w, nil
}

// ParseStems reads a tab separated file of "text<TAB>stem" lines, adding
// them to stems.  Lines with a single column are ignored.
func ParseStems(r io.Reader, stems revdb.ReverseLookupTable) error {
	s := bufio.NewScanner(r)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimRight(s.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		text, stem, ok := strings.Cut(line, "\t")
		text, stem = strings.TrimSpace(text), strings.TrimSpace(stem)
		if !ok || text == "" || stem == "" {
			continue
		}
		stems.Insert(text, stem)
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("line %d: %w", lineNo+1, err)
	}
	return nil
}
