// Copyright 2021 The revdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package revdb

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// EncoderRule describes how a phrase code is composed from the codes of
// its characters.
type EncoderRule struct {
	LengthEqual   int    `yaml:"length_equal,omitempty"`
	LengthInRange []int  `yaml:"length_in_range,omitempty,flow"`
	Formula       string `yaml:"formula"`
}

// EncoderSettings configures the rule-based phrase encoder.
type EncoderSettings struct {
	Rules           []EncoderRule `yaml:"rules,omitempty"`
	ExcludePatterns []string      `yaml:"exclude_patterns,omitempty"`
	TailAnchor      string        `yaml:"tail_anchor,omitempty"`
}

// DictSettings is the header of a dictionary source.  It is embedded into
// a reverse db when the dictionary uses the rule-based encoder, since the
// encoder needs it at runtime.
type DictSettings struct {
	Name                string           `yaml:"name"`
	Version             string           `yaml:"version,omitempty"`
	Sort                string           `yaml:"sort,omitempty"`
	UsePresetVocabulary bool             `yaml:"use_preset_vocabulary,omitempty"`
	MaxPhraseLength     int              `yaml:"max_phrase_length,omitempty"`
	MinPhraseWeight     float64          `yaml:"min_phrase_weight,omitempty"`
	Columns             []string         `yaml:"columns,omitempty,flow"`
	Encoder             *EncoderSettings `yaml:"encoder,omitempty"`
}

// UseRuleBasedEncoder reports whether encoder rules are configured.
func (s *DictSettings) UseRuleBasedEncoder() bool {
	return s != nil && s.Encoder != nil && len(s.Encoder.Rules) > 0
}

// SaveToText serializes the settings as YAML.
func (s *DictSettings) SaveToText() (string, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("yaml.Marshal: %w", err)
	}
	return string(out), nil
}

// LoadFromText replaces s with settings parsed from YAML text.  Missing
// fields are left zero.
func (s *DictSettings) LoadFromText(text string) error {
	var parsed DictSettings
	if err := yaml.Unmarshal([]byte(text), &parsed); err != nil {
		return fmt.Errorf("yaml.Unmarshal: %w", err)
	}
	*s = parsed
	return nil
}
