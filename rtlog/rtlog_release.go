//go:build release

// SPDX-License-Identifier: Apache-2.0

package rtlog

// Under the "release" build tag only Error/Errorf are retained; every
// other level compiles to a no-op, matching §4.5's retention rule.

func Warn(args ...interface{})                 {}
func Warnf(format string, args ...interface{}) {}

func Info(args ...interface{})                 {}
func Infof(format string, args ...interface{}) {}

func Debug(args ...interface{})                 {}
func Debugf(format string, args ...interface{}) {}
