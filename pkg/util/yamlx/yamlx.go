/*
 * Copyright 2024 The wmsclient Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package yamlx reports which keys a YAML document defines, so configuration
// defaults are only applied to values the document left out
package yamlx

import (
	"errors"
	"strings"

	"gopkg.in/yaml.v3"
)

// KeyLookup is a lookup of keys available in the parsed yaml
type KeyLookup map[string]any

// ErrNotMapping is returned when the document root is not a YAML mapping
var ErrNotMapping = errors.New("yaml document root is not a mapping")

// GetKeyList parses a YAML-formatted document and returns its fully-qualified
// key names, joined with "." (e.g., "offline.max_queue_size"). Keys inside
// sequences are not reported.
func GetKeyList(yml string) (KeyLookup, error) {
	keys := make(KeyLookup)
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(yml), &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		// empty document
		return keys, nil
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, ErrNotMapping
	}
	walk(root, "", keys)
	return keys, nil
}

func walk(n *yaml.Node, prefix string, keys KeyLookup) {
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Value == "" {
			continue
		}
		key := k.Value
		if prefix != "" {
			key = prefix + "." + key
		}
		keys[key] = nil
		if v.Kind == yaml.MappingNode {
			walk(v, key, keys)
		}
	}
}

// IsDefined returns true if the key path joined from s was present in the document
func (k KeyLookup) IsDefined(s ...string) bool {
	if k == nil {
		return false
	}
	_, ok := k[strings.Join(s, ".")]
	return ok
}
