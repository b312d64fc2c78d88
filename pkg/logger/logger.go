// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger struct {
	prefix string
	logger *log.Logger
}

// Options controls where log lines go and how the file is rotated.
type Options struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	baseMu       sync.RWMutex
	baseLogger   = log.New(os.Stdout, "", log.LstdFlags)
	logFile      *lumberjack.Logger
	once         sync.Once
	debugEnabled bool
	debugMu      sync.RWMutex
)

// Init sets up the base logger writing to stdout and a rotated log file.
// Debug is enabled at startup when the DEBUG env var is set.
func Init(opts Options) error {
	var err error
	once.Do(func() {
		if opts.Path == "" {
			err = fmt.Errorf("log path is empty")
			return
		}
		if err = os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
			return
		}
		if opts.MaxSizeMB == 0 {
			opts.MaxSizeMB = 5
		}
		if opts.MaxBackups == 0 {
			opts.MaxBackups = 3
		}

		lj := &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}

		baseMu.Lock()
		logFile = lj
		baseLogger = log.New(io.MultiWriter(os.Stdout, lj), "", log.LstdFlags)
		baseMu.Unlock()

		if os.Getenv("DEBUG") != "" {
			EnableDebug(true)
		}
	})
	return err
}

// Close flushes and closes the log file (call on shutdown)
func Close() {
	baseMu.RLock()
	defer baseMu.RUnlock()
	if logFile != nil {
		logFile.Close()
	}
}

// EnableDebug dynamically turns debug logging on/off
func EnableDebug(on bool) {
	debugMu.Lock()
	debugEnabled = on
	debugMu.Unlock()
}

// IsDebug returns current debug state
func IsDebug() bool {
	debugMu.RLock()
	defer debugMu.RUnlock()
	return debugEnabled
}

// New returns a logger tagged with prefix. Loggers created before Init
// write to stdout only; later ones share the rotated file.
func New(prefix string) *Logger {
	return &Logger{prefix: prefix}
}

func (l *Logger) out() *log.Logger {
	if l.logger != nil {
		return l.logger
	}
	baseMu.RLock()
	defer baseMu.RUnlock()
	return baseLogger
}

// WithWriter redirects this logger only, used by tests to capture output.
func (l *Logger) WithWriter(w io.Writer) *Logger {
	l.logger = log.New(w, "", 0)
	return l
}

func (l *Logger) Info(fmtstr string, v ...any) {
	l.out().Printf("[%s] INFO: %s", l.prefix, fmt.Sprintf(fmtstr, v...))
}

func (l *Logger) Warn(fmtstr string, v ...any) {
	l.out().Printf("[%s] WARN: %s", l.prefix, fmt.Sprintf(fmtstr, v...))
}

func (l *Logger) Error(fmtstr string, v ...any) {
	formatted := fmt.Sprintf(fmtstr, v...)
	if _, file, line, ok := runtime.Caller(1); ok {
		l.out().Printf("[%s] ERROR: (%s:%d) %s", l.prefix, filepath.Base(file), line, formatted)
		return
	}
	l.out().Printf("[%s] ERROR: %s", l.prefix, formatted)
}

func (l *Logger) Fatal(fmtstr string, v ...any) {
	formatted := fmt.Sprintf(fmtstr, v...)
	if _, file, line, ok := runtime.Caller(1); ok {
		l.out().Printf("[%s] FATAL: (%s:%d) %s", l.prefix, filepath.Base(file), line, formatted)
	} else {
		l.out().Printf("[%s] FATAL: %s", l.prefix, formatted)
	}
	panic(formatted)
}

func (l *Logger) Debug(fmtstr string, v ...any) {
	if !IsDebug() {
		return
	}
	l.out().Printf("[%s] DEBUG: %s", l.prefix, fmt.Sprintf(fmtstr, v...))
}
