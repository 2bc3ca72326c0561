//go:build !release

// SPDX-License-Identifier: Apache-2.0

package rtlog

// Warn, Info and Debug are live in default builds. They are elided to
// no-ops under the "release" build tag (see rtlog_release.go), the
// portable stand-in for compile-time log-level gating noted in §4.5.

func Warn(args ...interface{})                 { entry().Warn(args...) }
func Warnf(format string, args ...interface{}) { entry().Warnf(format, args...) }

func Info(args ...interface{})                 { entry().Info(args...) }
func Infof(format string, args ...interface{}) { entry().Infof(format, args...) }

func Debug(args ...interface{})                 { entry().Debug(args...) }
func Debugf(format string, args ...interface{}) { entry().Debugf(format, args...) }
