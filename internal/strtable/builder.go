// Copyright 2022 The revdb Authors and Caleb Spare. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package strtable

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/dgryski/go-farm"

	"github.com/rime/revdb/internal/unsafestring"
)

const (
	maxTableEntries = (1 << 31) - 1
	maxUint32       = ^uint32(0)
)

var (
	ErrNotBuilt     = errors.New("string table not built yet")
	ErrAlreadyBuilt = errors.New("string table already built")
)

// Ref identifies a string added to a Builder.  It becomes a final ID once
// the Builder is built.
type Ref uint32

// Builder collects strings, assigns dense ids and serializes them to an
// image readable by New.
type Builder struct {
	refs    map[string]Ref
	strs    []string
	weights []float64

	built bool
	final []ID // indexed by Ref
	image []byte
}

func NewBuilder() *Builder {
	return &Builder{
		refs: make(map[string]Ref),
	}
}

// Add adds s with the given weight.  Adding the same string again returns
// the same Ref and keeps the larger weight.
func (b *Builder) Add(s string, weight float64) Ref {
	if ref, ok := b.refs[s]; ok {
		if weight > b.weights[ref] {
			b.weights[ref] = weight
		}
		return ref
	}
	ref := Ref(len(b.strs))
	b.refs[s] = ref
	b.strs = append(b.strs, s)
	b.weights = append(b.weights, weight)
	return ref
}

// Len returns the number of distinct strings added so far.
func (b *Builder) Len() int {
	return len(b.strs)
}

// ID returns the final id assigned to ref.  Only valid after Build.
func (b *Builder) ID(ref Ref) (ID, error) {
	if !b.built {
		return InvalidID, ErrNotBuilt
	}
	if int(ref) >= len(b.final) {
		return InvalidID, fmt.Errorf("ref %d out of range (%d strings)", ref, len(b.final))
	}
	return b.final[ref], nil
}

// Build assigns ids (heavier strings first, ties broken by byte order) and
// constructs the serialized image.
func (b *Builder) Build() error {
	if b.built {
		return ErrAlreadyBuilt
	}
	n := len(b.strs)
	if n > maxTableEntries {
		return fmt.Errorf("too many elements -- we only support %d strings in a table (%d asked for)", maxTableEntries, n)
	}

	order := make([]Ref, n)
	for i := range order {
		order[i] = Ref(i)
	}
	sort.Slice(order, func(i, j int) bool {
		wi, wj := b.weights[order[i]], b.weights[order[j]]
		if wi != wj {
			return wi > wj
		}
		return b.strs[order[i]] < b.strs[order[j]]
	})
	final := make([]ID, n)
	for id, ref := range order {
		final[ref] = ID(id)
	}

	image, err := b.serialize(order)
	if err != nil {
		return err
	}

	b.final = final
	b.image = image
	b.built = true
	// we're done with this -- nil it so it can be GC'd earlier
	b.refs = nil
	return nil
}

// BinarySize returns the size in bytes of the serialized image.
func (b *Builder) BinarySize() int {
	return len(b.image)
}

// Dump copies the serialized image into buf, which must be at least
// BinarySize bytes long.
func (b *Builder) Dump(buf []byte) error {
	if !b.built {
		return ErrNotBuilt
	}
	if len(buf) < len(b.image) {
		return fmt.Errorf("buffer too small: %d < %d", len(buf), len(b.image))
	}
	copy(buf, b.image)
	return nil
}

// nextPow2 returns the next highest power of two above a given number.
func nextPow2(n int64) int64 {
	return 1 << (64 - bits.LeadingZeros64(uint64(n)))
}

type bucket struct {
	n    uint64
	vals []ID
}

// bySize is used to sort our buckets from most full to least full
type bySize []bucket

func (s bySize) Len() int           { return len(s) }
func (s bySize) Less(i, j int) bool { return len(s[i].vals) > len(s[j].vals) }
func (s bySize) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

func (b *Builder) serialize(order []Ref) ([]byte, error) {
	var (
		count     = int64(len(order))
		level0Len = nextPow2(count / 4)
		level1Len = nextPow2(count)
	)
	if level1Len >= int64(maxUint32) {
		return nil, fmt.Errorf("level1Len too big %d (too many entries)", level1Len)
	}

	var (
		level0Mask    = uint64(level0Len - 1)
		level1Mask    = uint64(level1Len - 1)
		level0        = make([]uint32, level0Len)
		level1        = make([]uint32, level1Len)
		sparseBuckets = make([][]ID, level0Len)
		blobLen       = 0
	)

	for id, ref := range order {
		key := unsafestring.ToBytes(b.strs[ref])
		n := farm.Hash64WithSeed(key, 0) & level0Mask
		sparseBuckets[n] = append(sparseBuckets[n], ID(id))
		blobLen += len(key)
	}
	if uint64(blobLen) > math.MaxUint32 {
		return nil, fmt.Errorf("string data too large: %d bytes", blobLen)
	}

	var buckets []bucket
	for n, vals := range sparseBuckets {
		if len(vals) > 0 {
			buckets = append(buckets, bucket{n: uint64(n), vals: vals})
		}
	}
	sort.Sort(bySize(buckets))

	occ := roaring.New()
	var tmpOcc []uint32
	for _, bkt := range buckets {
		seed := uint64(1)
	trySeed:
		if seed >= uint64(maxUint32) {
			return nil, errors.New("couldn't find 32-bit seed")
		}
		tmpOcc = tmpOcc[:0]
		for _, id := range bkt.vals {
			key := unsafestring.ToBytes(b.strs[order[id]])
			n := uint32(farm.Hash64WithSeed(key, seed) & level1Mask)
			if occ.Contains(n) {
				for _, n := range tmpOcc {
					occ.Remove(n)
					level1[n] = 0
				}
				seed++
				goto trySeed
			}
			tmpOcc = append(tmpOcc, n)
			occ.Add(n)
			level1[n] = uint32(id) + 1
		}
		level0[bkt.n] = uint32(seed)
	}

	size := headerSize + (len(order)+1)*4 + len(level0)*4 + len(level1)*4 + blobLen
	image := make([]byte, size)

	binary.LittleEndian.PutUint32(image[0:4], magicTableHeader)
	binary.LittleEndian.PutUint32(image[4:8], formatVersion)
	binary.LittleEndian.PutUint32(image[8:12], uint32(count))
	binary.LittleEndian.PutUint32(image[12:16], uint32(level0Len))
	binary.LittleEndian.PutUint32(image[16:20], uint32(level1Len))
	binary.LittleEndian.PutUint32(image[20:24], uint32(blobLen))

	off := headerSize
	blobStart := headerSize + (len(order)+1)*4 + len(level0)*4 + len(level1)*4
	strOff := 0
	for _, ref := range order {
		binary.LittleEndian.PutUint32(image[off:off+4], uint32(strOff))
		off += 4
		strOff += copy(image[blobStart+strOff:], b.strs[ref])
	}
	binary.LittleEndian.PutUint32(image[off:off+4], uint32(strOff))
	off += 4

	for _, seed := range level0 {
		binary.LittleEndian.PutUint32(image[off:off+4], seed)
		off += 4
	}
	for _, slot := range level1 {
		binary.LittleEndian.PutUint32(image[off:off+4], slot)
		off += 4
	}
	if off != blobStart {
		panic("invariant broken: hash tables don't end where string data starts")
	}

	return image, nil
}
