// Copyright 2023 The revdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package revdb contains a memory-mapped reverse lookup store for input
// method dictionaries: given a text it returns the codes that produce it,
// and separately the stems recorded for it.
//
// A db file is built once from a vocabulary and a stems table, then mapped
// read-only by any number of readers.  It generally looks like:
//
//	┌───────────────────┐
//	│ header (128 B)    │
//	├───────────────────┤
//	│ dict settings     │  optional YAML text
//	├───────────────────┤
//	│ index             │  value id for each key id, uint32
//	├───────────────────┤
//	│ key table         │  string table over texts and stem keys
//	├───────────────────┤
//	│ value table       │  string table over joined codes and stems
//	└───────────────────┘
//
// The header starts with a 32-byte format tag ("Rime::Reverse/3.1") which
// is written last, so an interrupted build never produces a file that
// loads.  It is followed by the source dictionary checksum and the
// (offset, length) of every other section:
//
//	 0                              32      40      48      56      64
//	+-------------------------------+-------+-------+-------+-------+
//	| format tag (NUL padded)       |cksum 0|setting|setting| index |
//	|                               |       |  off  |  len  |  off  |
//	+-------+-------+-------+-------+-------+-------+-------+-------+
//	| index | key   | key   | value | value |header | reserved      |
//	| count |  off  | size  |  off  | size  |digest |               |
//	+-------+-------+-------+-------+-------+-------+-------+-------+
//	64      72      80      88      96      104     112           128
//
// Stems share the key space with reverse lookup texts: a stem key is its
// text followed by "\x1fstem".
package revdb
