// Copyright 2021 The revdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package revdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDictSettings_RoundTrip(t *testing.T) {
	settings := ruleBasedSettings()
	require.True(t, settings.UseRuleBasedEncoder())

	text, err := settings.SaveToText()
	require.NoError(t, err)
	assert.Contains(t, text, "name: cangjie5")

	var loaded DictSettings
	require.NoError(t, loaded.LoadFromText(text))
	assert.Equal(t, settings, &loaded)
}

func TestDictSettings_UseRuleBasedEncoder(t *testing.T) {
	var nilSettings *DictSettings
	assert.False(t, nilSettings.UseRuleBasedEncoder())
	assert.False(t, (&DictSettings{Name: "x"}).UseRuleBasedEncoder())
	assert.False(t, (&DictSettings{Name: "x", Encoder: &EncoderSettings{}}).UseRuleBasedEncoder())
}

func TestDictSettings_LoadFromText(t *testing.T) {
	var s DictSettings
	require.NoError(t, s.LoadFromText(`
name: wubi86
version: "0.5"
sort: by_weight
use_preset_vocabulary: true
max_phrase_length: 7
columns: [text, code]
encoder:
  rules:
    - length_equal: 2
      formula: "AaAbBaBb"
`))
	assert.Equal(t, "wubi86", s.Name)
	assert.Equal(t, "0.5", s.Version)
	assert.True(t, s.UsePresetVocabulary)
	assert.Equal(t, 7, s.MaxPhraseLength)
	assert.Equal(t, []string{"text", "code"}, s.Columns)
	require.True(t, s.UseRuleBasedEncoder())
	assert.Equal(t, "AaAbBaBb", s.Encoder.Rules[0].Formula)

	// failures leave s untouched
	assert.Error(t, s.LoadFromText("name: [unterminated"))
	assert.Error(t, s.LoadFromText("just a scalar"))
	assert.Equal(t, "wubi86", s.Name)

	// a header is not required
	require.NoError(t, s.LoadFromText("version: 1"))
	assert.Equal(t, "", s.Name)
	assert.Equal(t, "1", s.Version)
	assert.False(t, s.UseRuleBasedEncoder())
}
