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

package offline

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/piecework/wmsclient/pkg/network"
)

// Kind identifies the mutation an Operation replays
type Kind string

const (
	// KindAPIRequest replays the stored URL, method and data as-is
	KindAPIRequest Kind = "api_request"
	// KindPieceworkAdd records a piecework entry: POST /piecework
	KindPieceworkAdd Kind = "piecework_add"
	// KindInventoryUpdate updates one inventory item: PUT /inventory/items/{itemId}
	KindInventoryUpdate Kind = "inventory_update"
)

// ErrUnknownKind is returned when replaying an operation of an unknown kind
var ErrUnknownKind = errors.New("unknown operation type")

// ErrMissingItemID is returned when replaying an inventory update with no item id
var ErrMissingItemID = errors.New("inventory update has no item id")

// Operation is a mutating request deferred while the API was unreachable.
// Timestamp is the epoch millisecond time it was queued.
type Operation struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"type"`
	URL        string          `json:"url,omitempty"`
	Method     string          `json:"method,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	ItemID     string          `json:"itemId,omitempty"`
	Timestamp  int64           `json:"timestamp"`
	RetryCount int             `json:"retryCount"`
}

// NewOperation returns an Operation of kind with data encoded as JSON
func NewOperation(kind Kind, data any) (Operation, error) {
	op := Operation{Kind: kind}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return op, fmt.Errorf("encode operation data: %w", err)
		}
		op.Data = b
	}
	return op, nil
}

// Request resolves the network request that replays the operation
func (o Operation) Request() (network.Request, error) {
	var req network.Request
	switch o.Kind {
	case KindAPIRequest:
		req = network.Request{URL: o.URL, Method: o.Method}
	case KindPieceworkAdd:
		req = network.Request{URL: "/piecework", Method: http.MethodPost}
	case KindInventoryUpdate:
		if o.ItemID == "" {
			return req, ErrMissingItemID
		}
		req = network.Request{
			URL:    "/inventory/items/" + url.PathEscape(o.ItemID),
			Method: http.MethodPut,
		}
	default:
		return req, fmt.Errorf("%w: %q", ErrUnknownKind, o.Kind)
	}
	if len(o.Data) > 0 {
		req.Data = o.Data
	}
	return req, nil
}
