// Copyright 2021 The revdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Command gen-testdata writes a synthetic Rime dictionary source to
// stdout, for benchmarking reverse db builds and lookups.
package main

import (
	"bufio"
	crand "crypto/rand"
	"encoding/binary"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
)

var (
	nEntries = flag.Int("n", 1000000, "number of entries")
	name     = flag.String("name", "synthetic", "dictionary name")
	seed     = flag.Int64("seed", 0, "random seed (0 picks one)")
)

var initials = []string{"", "b", "p", "m", "f", "d", "t", "n", "l", "g", "k", "h", "j", "q", "x", "zh", "ch", "sh", "r", "z", "c", "s", "y", "w"}
var finals = []string{"a", "o", "e", "i", "u", "ai", "ei", "ao", "ou", "an", "en", "ang", "eng", "ong", "ia", "ie", "iao", "iu", "ian", "in", "iang", "ing", "ua", "uo", "uai", "ui", "uan", "un", "uang"}

func newRand() *rand.Rand {
	if *seed != 0 {
		return rand.New(rand.NewSource(*seed))
	}
	var seedBytes [8]byte
	crand.Read(seedBytes[:])
	return rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(seedBytes[:]))))
}

func main() {
	flag.Parse()
	rng := newRand()

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	fmt.Fprintf(w, "---\nname: %s\nversion: \"1\"\nsort: by_weight\n...\n", *name)

	syllables := make([]string, 0, 4)
	for i := 0; i < *nEntries; i++ {
		// a CJK ideograph per syllable keeps texts realistic in size
		var text strings.Builder
		syllables = syllables[:0]
		for n := 1 + rng.Intn(4); n > 0; n-- {
			text.WriteRune(rune(0x4e00 + rng.Intn(0x5000)))
			syllables = append(syllables, initials[rng.Intn(len(initials))]+finals[rng.Intn(len(finals))])
		}
		fmt.Fprintf(w, "%s\t%s\t%d\n", text.String(), strings.Join(syllables, " "), rng.Intn(10000))
	}
}
