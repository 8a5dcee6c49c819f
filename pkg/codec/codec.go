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

// Package codec encodes the records written to the local store. Records are
// JSON, with values over a size threshold compressed with snappy. Every
// encoded record carries a one-byte format marker.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang/snappy"
)

// DefaultThreshold is the encoded size above which records are compressed
const DefaultThreshold = 4096

const (
	formatJSON   byte = 0x00
	formatSnappy byte = 0x01
)

// ErrEmptyRecord is returned when decoding a zero-length record
var ErrEmptyRecord = errors.New("empty record")

// Codec marshals values into store records
type Codec struct {
	// Threshold is the JSON size above which a record is compressed.
	// A negative Threshold disables compression.
	Threshold int
}

// New returns a Codec for the threshold; 0 selects DefaultThreshold
func New(threshold int) *Codec {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &Codec{Threshold: threshold}
}

// Marshal encodes v as a store record
func (c *Codec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if c.Threshold >= 0 && len(b) > c.Threshold {
		enc := snappy.Encode(nil, b)
		out := make([]byte, len(enc)+1)
		out[0] = formatSnappy
		copy(out[1:], enc)
		return out, nil
	}
	out := make([]byte, len(b)+1)
	out[0] = formatJSON
	copy(out[1:], b)
	return out, nil
}

// Unmarshal decodes a store record into v. Records without a format marker
// are read as plain JSON.
func (c *Codec) Unmarshal(data []byte, v any) error {
	b, err := Decode(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Decode returns the JSON document held in a store record
func Decode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyRecord
	}
	switch data[0] {
	case formatJSON:
		return data[1:], nil
	case formatSnappy:
		b, err := snappy.Decode(nil, data[1:])
		if err != nil {
			return nil, fmt.Errorf("snappy decode: %w", err)
		}
		return b, nil
	}
	return data, nil
}
