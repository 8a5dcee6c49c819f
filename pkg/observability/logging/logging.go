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

// Package logging provides structured, leveled logging for wmsclient
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/piecework/wmsclient/pkg/observability/logging/level"
	"github.com/piecework/wmsclient/pkg/observability/logging/options"

	gkl "github.com/go-kit/log"
	gklevel "github.com/go-kit/log/level"
	"github.com/go-stack/stack"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Pairs represents a key=value pair that helps to describe a log event
type Pairs map[string]any

// Logger is the logging interface used throughout wmsclient
type Logger interface {
	Debug(event string, detail Pairs)
	Info(event string, detail Pairs)
	Warn(event string, detail Pairs)
	Error(event string, detail Pairs)
	// WarnOnce logs a warning only once per key, returning true if this
	// invocation was the one that logged it
	WarnOnce(key, event string, detail Pairs) bool
	HasWarnedOnce(key string) bool
	Level() level.Level
	Close()
}

var _ Logger = &logger{}

type logger struct {
	logger gkl.Logger
	closer io.Closer
	level  level.Level

	onceMutex      sync.Mutex
	onceRanEntries map[string]bool
}

// New returns a Logger for the provided logging options. When a log file is
// configured and instanceID is > 0, the file name is distinguished by the
// instance id so multiple processes can share one config
func New(instanceID int, o *options.Options) Logger {
	if o == nil {
		o = options.New()
	}
	var wr io.Writer
	if o.LogFile == "" {
		wr = os.Stdout
	} else {
		logFile := o.LogFile
		if instanceID > 0 {
			logFile = strings.Replace(logFile, ".log", "."+strconv.Itoa(instanceID)+".log", 1)
		}
		wr = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    64, // megabytes
			MaxBackups: 8,
			MaxAge:     7, // days
			Compress:   true,
		}
	}
	lvl, _ := level.Parse(o.LogLevel)
	return StreamLogger(wr, lvl)
}

// ConsoleLogger returns a Logger that prints log events to stdout
func ConsoleLogger(logLevel level.Level) Logger {
	return StreamLogger(os.Stdout, logLevel)
}

// NoopLogger returns a Logger that discards all events
func NoopLogger() Logger {
	return StreamLogger(io.Discard, level.None)
}

// StreamLogger returns a Logger writing logfmt lines to w
func StreamLogger(w io.Writer, logLevel level.Level) Logger {
	l := &logger{
		level:          logLevel,
		onceRanEntries: make(map[string]bool),
	}
	if c, ok := w.(io.Closer); ok && w != os.Stdout && w != os.Stderr {
		l.closer = c
	}
	base := gkl.NewLogfmtLogger(gkl.NewSyncWriter(w))
	base = gkl.With(base,
		"time", gkl.DefaultTimestampUTC,
		"app", "wmsclient",
		"caller", gkl.Valuer(callerValue),
	)
	switch logLevel {
	case level.Debug:
		base = gklevel.NewFilter(base, gklevel.AllowDebug())
	case level.Warn:
		base = gklevel.NewFilter(base, gklevel.AllowWarn())
	case level.Error:
		base = gklevel.NewFilter(base, gklevel.AllowError())
	case level.None:
		base = gklevel.NewFilter(base, gklevel.AllowNone())
	default:
		l.level = level.Info
		base = gklevel.NewFilter(base, gklevel.AllowInfo())
	}
	l.logger = base
	return l
}

func mapToArray(event string, detail Pairs) []any {
	a := make([]any, 0, (len(detail)*2)+2)
	a = append(a, "event", event)
	keys := make([]string, 0, len(detail))
	for k := range detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := detail[k]
		if err, ok := v.(error); ok && err != nil {
			v = err.Error()
		}
		a = append(a, k, v)
	}
	return a
}

func (l *logger) Debug(event string, detail Pairs) {
	gklevel.Debug(l.logger).Log(mapToArray(event, detail)...)
}

func (l *logger) Info(event string, detail Pairs) {
	gklevel.Info(l.logger).Log(mapToArray(event, detail)...)
}

func (l *logger) Warn(event string, detail Pairs) {
	gklevel.Warn(l.logger).Log(mapToArray(event, detail)...)
}

func (l *logger) Error(event string, detail Pairs) {
	gklevel.Error(l.logger).Log(mapToArray(event, detail)...)
}

func (l *logger) WarnOnce(key, event string, detail Pairs) bool {
	l.onceMutex.Lock()
	defer l.onceMutex.Unlock()
	key = "warn." + key
	if l.onceRanEntries[key] {
		return false
	}
	l.onceRanEntries[key] = true
	l.Warn(event, detail)
	return true
}

func (l *logger) HasWarnedOnce(key string) bool {
	l.onceMutex.Lock()
	defer l.onceMutex.Unlock()
	return l.onceRanEntries["warn."+key]
}

// Level returns the configured Log Level
func (l *logger) Level() level.Level {
	return l.level
}

// Close closes any opened file handles that were used for logging
func (l *logger) Close() {
	if l.closer != nil {
		l.closer.Close()
	}
}

const modulePrefix = "github.com/piecework/wmsclient/"

// callerValue reports the first frame outside of the logging packages and
// go-kit, relative to the module root
func callerValue() any {
	for _, c := range stack.Trace().TrimRuntime() {
		s := fmt.Sprintf("%+v", c)
		if strings.Contains(s, "/observability/logging") || strings.Contains(s, "go-kit/log") {
			continue
		}
		return strings.TrimPrefix(s, modulePrefix)
	}
	return ""
}
