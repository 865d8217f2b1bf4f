// Copyright 2021 The revdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package revdb

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config gives read access to a schema's settings.  Paths are
// '/'-separated keys, e.g. "translator/dictionary".
type Config interface {
	GetString(path string) (string, bool)
}

// Ticket carries what a component needs to configure itself from a
// schema: the schema's config and the name space of its settings.
type Ticket struct {
	Schema    Config
	NameSpace string
}

// YAMLConfig is a Config backed by a parsed YAML document.
type YAMLConfig struct {
	root map[string]interface{}
}

// NewYAMLConfig parses a YAML schema.
func NewYAMLConfig(data []byte) (*YAMLConfig, error) {
	root := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal: %w", err)
	}
	return &YAMLConfig{root: root}, nil
}

// GetString returns the scalar at path.  Maps and lists are not strings.
func (c *YAMLConfig) GetString(path string) (string, bool) {
	var node interface{} = c.root
	for _, key := range strings.Split(path, "/") {
		m, ok := node.(map[string]interface{})
		if !ok {
			return "", false
		}
		if node, ok = m[key]; !ok {
			return "", false
		}
	}
	switch v := node.(type) {
	case nil, map[string]interface{}, []interface{}:
		return "", false
	case string:
		return v, true
	default:
		return fmt.Sprint(v), true
	}
}
