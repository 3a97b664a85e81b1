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
	"fmt"
	"io"
	"log"
	"log/syslog"
	"os"

	"github.com/googlecloudplatform/libfusego/cfg"
	"github.com/jacobsa/daemonize"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ProgrammeName constant is used while writing the logs to syslog file, it is
// used while filtering the hellofs log-message from the syslog file, since
// syslog file contains all the system related logs from other programmes too.
const ProgrammeName string = "hellofs"

// HellofsInBackgroundMode is set in the daemon child's environment. When
// present the programme is the background process, not the one the user ran.
const HellofsInBackgroundMode = "HELLOFS_IN_BACKGROUND_MODE"

// asyncBufferSize is the number of pending log lines the background writer
// may queue before new lines start getting dropped.
const asyncBufferSize = 1000

var defaultLoggerFactory *loggerFactory

// InitLogFile initializes the logger factory to create loggers that print to
// a log file, rotated per the log-rotate config.
// In case of empty file, it starts writing the log to syslog file, which
// is eventually filtered and redirected to a fixed location using syslog
// config.
func InitLogFile(newLogConfig cfg.LoggingConfig) error {
	var fileWriter *AsyncLogger
	var sysWriter *syslog.Writer
	var err error
	if newLogConfig.FilePath != "" {
		fileWriter = NewAsyncLogger(&lumberjack.Logger{
			Filename:   string(newLogConfig.FilePath),
			MaxSize:    int(newLogConfig.LogRotate.MaxFileSizeMb),
			MaxBackups: int(newLogConfig.LogRotate.BackupFileCount),
			Compress:   newLogConfig.LogRotate.Compress,
		}, asyncBufferSize)
	} else {
		sysWriter, err = syslog.New(syslog.LOG_ALERT, ProgrammeName)
		if err != nil {
			return fmt.Errorf("error while creating syswriter: %w", err)
		}
	}

	defaultLoggerFactory = newLoggerFactory(&loggerFactory{
		file:      fileWriter,
		sysWriter: sysWriter,
		flag:      0,
		format:    newLogConfig.Format,
		level:     newLogConfig.Severity,
	})

	return nil
}

// init initializes the logger factory to use stdout and stderr.
func init() {
	defaultLoggerFactory = newLoggerFactory(&loggerFactory{
		file:  nil,
		flag:  log.Ldate | log.Ltime | log.Lmicroseconds,
		level: cfg.InfoLogSeverity,
	})
}

// Close flushes buffered log lines and closes the log file when necessary.
func Close() {
	if f := defaultLoggerFactory.file; f != nil {
		f.Close()
		defaultLoggerFactory.file = nil
	}
}

// NewNotice returns a new logger for logging notice with given prefix to
// the log file or the status writer which forwards the notices to the invoker
// from the daemon.
func NewNotice(prefix string) *log.Logger {
	return defaultLoggerFactory.newLogger("NOTICE", prefix)
}

// NewDebug returns a new logger for logging debug messages with given prefix
// to the log file or stdout.
func NewDebug(prefix string) *log.Logger {
	return defaultLoggerFactory.newLogger("DEBUG", prefix)
}

// NewInfo returns a new logger for logging info with given prefix to the log
// file or stdout.
func NewInfo(prefix string) *log.Logger {
	return defaultLoggerFactory.newLogger("INFO", prefix)
}

// NewError returns a new logger for logging errors with given prefix to the log
// file or stderr.
func NewError(prefix string) *log.Logger {
	return defaultLoggerFactory.newLogger("ERROR", prefix)
}

// Tracef prints the message with TRACE severity if the configured severity
// admits it.
func Tracef(format string, v ...interface{}) {
	defaultLoggerFactory.logf(cfg.TraceLogSeverity, defaultLoggerFactory.trace, format, v...)
}

// Debugf prints the message with DEBUG severity if the configured severity
// admits it.
func Debugf(format string, v ...interface{}) {
	defaultLoggerFactory.logf(cfg.DebugLogSeverity, defaultLoggerFactory.debug, format, v...)
}

// Infof prints the message with INFO severity if the configured severity
// admits it.
func Infof(format string, v ...interface{}) {
	defaultLoggerFactory.logf(cfg.InfoLogSeverity, defaultLoggerFactory.info, format, v...)
}

// Warnf prints the message with WARNING severity if the configured severity
// admits it.
func Warnf(format string, v ...interface{}) {
	defaultLoggerFactory.logf(cfg.WarningLogSeverity, defaultLoggerFactory.warning, format, v...)
}

// Errorf prints the message with ERROR severity if the configured severity
// admits it.
func Errorf(format string, v ...interface{}) {
	defaultLoggerFactory.logf(cfg.ErrorLogSeverity, defaultLoggerFactory.err, format, v...)
}

type loggerFactory struct {
	// If nil, log to stdout or stderr. Otherwise, log to this writer.
	file      *AsyncLogger
	sysWriter *syslog.Writer
	flag      int
	format    string
	level     cfg.LogSeverity

	trace, debug, info, warning, err *log.Logger
}

func newLoggerFactory(f *loggerFactory) *loggerFactory {
	f.trace = f.newLogger("TRACE", "")
	f.debug = f.newLogger("DEBUG", "")
	f.info = f.newLogger("INFO", "")
	f.warning = f.newLogger("WARNING", "")
	f.err = f.newLogger("ERROR", "")
	return f
}

func (f *loggerFactory) logf(level cfg.LogSeverity, logger *log.Logger, format string, v ...interface{}) {
	if level.Rank() < f.level.Rank() {
		return
	}
	logger.Printf(format, v...)
}

func (f *loggerFactory) newLogger(level, prefix string) *log.Logger {
	return log.New(f.writer(level), prefix, f.flag)
}

func (f *loggerFactory) writer(level string) io.Writer {
	if f.file != nil {
		if f.format == "json" {
			return &jsonWriter{
				w:     f.file,
				level: level,
			}
		}
		return &textWriter{
			w:     f.file,
			level: level,
		}
	} else if f.sysWriter != nil {
		if f.format == "json" {
			return &jsonWriter{
				w:     f.sysWriter,
				level: level,
			}
		}
		return &textWriter{
			w:     f.sysWriter,
			level: level,
		}
	}
	switch level {
	case "NOTICE":
		return daemonize.StatusWriter
	case "ERROR":
		return os.Stderr
	default:
		return os.Stdout
	}
}
