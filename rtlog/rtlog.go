// SPDX-License-Identifier: Apache-2.0

// Package rtlog is the handler-visible log sink. It writes one line
// per record to standard error in the form
// "<LEVEL>\t<request_id or \"-\">\t<message>", the format CloudWatch
// expects from a custom runtime's own stderr. It sits on top of
// logrus exactly the way the teacher's lambda/logging package does
// for the emulator's internal logging, via a package-level default
// logger and a custom Formatter rather than the standard library's
// log package.
package rtlog

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

const noRequestID = "-"

var (
	mu        sync.RWMutex
	requestID = noRequestID
	logger    = newLogger(os.Stderr)
)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&lineFormatter{})
	l.SetLevel(logrus.DebugLevel)
	return l
}

// SetOutput redirects the sink's output; used by tests to capture
// log lines.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

// SetRequestID binds the sink's current request_id, called by the
// invocation loop on DISPATCH entry.
func SetRequestID(id string) {
	mu.Lock()
	defer mu.Unlock()
	requestID = id
}

// ClearRequestID unbinds the request_id, called by the invocation loop
// after REPORT. Subsequent log lines carry "-" until the next DISPATCH.
func ClearRequestID() {
	SetRequestID(noRequestID)
}

func currentRequestID() string {
	mu.RLock()
	defer mu.RUnlock()
	return requestID
}

func entry() *logrus.Entry {
	return logger.WithField(fieldRequestID, currentRequestID())
}

// Error logs an error-level record. Retained in release builds.
func Error(args ...interface{}) { entry().Error(args...) }

// Errorf logs a formatted error-level record. Retained in release builds.
func Errorf(format string, args ...interface{}) { entry().Errorf(format, args...) }

// Warn, Warnf, Info, Infof, Debug and Debugf are elided to no-ops in
// release builds (build tag "release"); see rtlog_debug.go and
// rtlog_release.go.
