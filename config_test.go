// Copyright 2021 The revdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package revdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYAMLConfig_GetString(t *testing.T) {
	config, err := NewYAMLConfig([]byte(`
schema:
  schema_id: luna_pinyin
  version: 0.15
translator:
  dictionary: luna_pinyin
  enable_completion: true
  tags: [abc]
`))
	require.NoError(t, err)

	for _, testcase := range []struct {
		path     string
		expected string
		ok       bool
	}{
		{"schema/schema_id", "luna_pinyin", true},
		{"schema/version", "0.15", true},
		{"translator/dictionary", "luna_pinyin", true},
		{"translator/enable_completion", "true", true},
		{"translator", "", false},
		{"translator/tags", "", false},
		{"translator/dictionary/extra", "", false},
		{"speller/alphabet", "", false},
		{"", "", false},
	} {
		actual, ok := config.GetString(testcase.path)
		assert.Equal(t, testcase.ok, ok, testcase.path)
		assert.Equal(t, testcase.expected, actual, testcase.path)
	}

	_, err = NewYAMLConfig([]byte("translator: [unterminated"))
	assert.Error(t, err)
}

func TestDirResolver(t *testing.T) {
	r := NewDeployedResolver("/usr/share/rime-data/build")
	assert.Equal(t, "/usr/share/rime-data/build/stroke.reverse.bin", r.ResolvePath("stroke"))
}
