// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"encoding/json"
	"io"
	"time"
)

// logEntry is the shape of one json log line. fluentd collectors key on
// the severity field and the split seconds/nanos timestamp, so the tags
// must stay as they are.
type logEntry struct {
	Name             string `json:"name,omitempty"`
	LevelName        string `json:"levelname,omitempty"`
	Severity         string `json:"severity,omitempty"`
	Message          string `json:"message,omitempty"`
	TimestampSeconds int64  `json:"timestampSeconds,omitempty"`
	TimestampNanos   int    `json:"timestampNanos,omitempty"`
}

// jsonWriter emits one logEntry per Write call. The factory builds a
// separate instance per severity level, so the writer carries its level
// as fixed state and needs no synchronization of its own beyond what the
// owning log.Logger provides.
type jsonWriter struct {
	w     io.Writer
	level string
}

func (jw *jsonWriter) Write(p []byte) (int, error) {
	now := time.Now()
	buf, err := json.Marshal(logEntry{
		Name:             ProgrammeName,
		LevelName:        jw.level,
		Severity:         jw.level,
		Message:          string(p),
		TimestampSeconds: now.Unix(),
		TimestampNanos:   now.Nanosecond(),
	})
	if err != nil {
		return 0, err
	}
	if _, err := jw.w.Write(append(buf, '\n')); err != nil {
		return 0, err
	}
	return len(p), nil
}

// textWriter prefixes each line with the severity initial and a glog-like
// timestamp, for reading a mount session by eye.
type textWriter struct {
	w     io.Writer
	level string
}

func (tw *textWriter) Write(p []byte) (int, error) {
	prefix := make([]byte, 0, 32)
	prefix = append(prefix, tw.level[0])
	prefix = time.Now().AppendFormat(prefix, "0102 15:04:05.000000")
	prefix = append(prefix, ' ')
	if _, err := tw.w.Write(prefix); err != nil {
		return 0, err
	}
	return tw.w.Write(p)
}
