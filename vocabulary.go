// Copyright 2021 The revdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package revdb

import (
	"sort"
	"strings"
)

// SyllableID addresses a syllable in a Syllabary.
type SyllableID int32

// Syllabary is the ordered list of syllables; a syllable's id is its index.
type Syllabary []string

// Code is a sequence of syllable ids.
type Code []SyllableID

// indexCodeMaxLength is the number of leading syllables that get their own
// vocabulary level.  Longer codes share a tail page at the next level.
const indexCodeMaxLength = 3

// tailKey keys the page holding entries with codes longer than
// indexCodeMaxLength.
const tailKey = -1

// ShortDictEntry is a vocabulary entry: a text and the code that produces it.
type ShortDictEntry struct {
	Text   string
	Code   Code
	Weight float64
}

// VocabularyPage holds the entries whose code ends at this level, and the
// next level for longer codes sharing the same prefix.
type VocabularyPage struct {
	Entries   []*ShortDictEntry
	NextLevel Vocabulary
}

// Vocabulary is one level of the vocabulary tree, keyed by syllable id.
type Vocabulary map[int]*VocabularyPage

// LocateEntries returns the page that entries with the given code belong
// to, creating pages and levels as needed.  It returns nil for an empty code.
func (v Vocabulary) LocateEntries(code Code) *VocabularyPage {
	level := v
	for i := range code {
		key := tailKey
		if i < indexCodeMaxLength {
			key = int(code[i])
		}
		page, ok := level[key]
		if !ok {
			page = &VocabularyPage{}
			level[key] = page
		}
		if i == len(code)-1 || i == indexCodeMaxLength {
			return page
		}
		if page.NextLevel == nil {
			page.NextLevel = make(Vocabulary)
		}
		level = page.NextLevel
	}
	return nil
}

// Add files e under the page for its code.  Entries without a code are
// dropped and Add returns false.
func (v Vocabulary) Add(e *ShortDictEntry) bool {
	page := v.LocateEntries(e.Code)
	if page == nil {
		return false
	}
	page.Entries = append(page.Entries, e)
	return true
}

// StringSet is an unordered set of strings.
type StringSet map[string]struct{}

func (set StringSet) Contains(s string) bool {
	_, ok := set[s]
	return ok
}

func (set StringSet) Add(s string) {
	set[s] = struct{}{}
}

// Sorted returns the members of the set in byte order.
func (set StringSet) Sorted() []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Join returns the sorted members joined by sep.
func (set StringSet) Join(sep string) string {
	return strings.Join(set.Sorted(), sep)
}

// ReverseLookupTable maps a text to the set of strings related to it.
type ReverseLookupTable map[string]StringSet

// Insert adds value to the set for key.
func (t ReverseLookupTable) Insert(key, value string) {
	set, ok := t[key]
	if !ok {
		set = make(StringSet)
		t[key] = set
	}
	set.Add(value)
}
