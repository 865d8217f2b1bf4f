// Copyright 2021 The revdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package revdb

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_GetDb(t *testing.T) {
	dir := t.TempDir()
	pool := NewPool(NewDeployedResolver(dir))
	defer func() { require.NoError(t, pool.Close()) }()

	const n = 16
	dbs := make([]*ReverseDb, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dbs[i] = pool.GetDb("luna_pinyin")
		}(i)
	}
	wg.Wait()

	for _, db := range dbs {
		assert.Same(t, dbs[0], db)
	}
	assert.Equal(t, filepath.Join(dir, "luna_pinyin.reverse.bin"), dbs[0].Path())
	assert.NotSame(t, dbs[0], pool.GetDb("cangjie5"))
}

func TestPool_Create(t *testing.T) {
	dir := t.TempDir()
	pool := NewPool(NewDeployedResolver(dir))

	db := pool.GetDb("luna_pinyin")
	vocab := testVocabulary(&ShortDictEntry{Text: "你好", Code: Code{1, 0}})
	require.NoError(t, db.Build(nil, testSyllabary, vocab, nil, 0))
	require.NoError(t, db.Save())
	require.NoError(t, db.Close())

	d1 := pool.Create("luna_pinyin")
	d2 := pool.Create("luna_pinyin")
	assert.NotSame(t, d1, d2)
	assert.Same(t, d1.Db(), d2.Db())

	require.NoError(t, d1.Load())
	actual, ok := d2.ReverseLookup("你好")
	require.True(t, ok)
	assert.Equal(t, "ni hao", actual)

	require.NoError(t, pool.Close())
	assert.False(t, db.IsOpen())
	// a closed pool starts over
	assert.NotSame(t, db, pool.GetDb("luna_pinyin"))
}

func TestPool_CreateFromTicket(t *testing.T) {
	pool := NewPool(NewDeployedResolver(t.TempDir()))
	defer func() { require.NoError(t, pool.Close()) }()

	schema, err := NewYAMLConfig([]byte(`
reverse_lookup:
  dictionary: stroke
  prefix: "` + "`" + `"
translator:
  dictionary: luna_pinyin
empty:
  dictionary: ""
`))
	require.NoError(t, err)

	dict := pool.CreateFromTicket(Ticket{Schema: schema, NameSpace: "reverse_lookup"})
	require.NotNil(t, dict)
	assert.Equal(t, "stroke.reverse.bin", filepath.Base(dict.Db().Path()))

	dict = pool.CreateFromTicket(Ticket{Schema: schema, NameSpace: "translator"})
	require.NotNil(t, dict)
	assert.Same(t, pool.GetDb("luna_pinyin"), dict.Db())

	assert.Nil(t, pool.CreateFromTicket(Ticket{Schema: schema, NameSpace: "speller"}))
	assert.Nil(t, pool.CreateFromTicket(Ticket{Schema: schema, NameSpace: "empty"}))
	assert.Nil(t, pool.CreateFromTicket(Ticket{NameSpace: "translator"}))
}
