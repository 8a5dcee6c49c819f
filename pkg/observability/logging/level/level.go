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

// Package level enumerates the supported log levels
package level

import "strings"

// Level is a named log level
type Level string

const (
	Debug Level = "debug"
	Info  Level = "info"
	Warn  Level = "warn"
	Error Level = "error"
	None  Level = "none"
)

// Parse returns the Level for s, and false when s is not a known level
func Parse(s string) (Level, bool) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	switch l {
	case Debug, Info, Warn, Error, None:
		return l, true
	}
	return Info, false
}
