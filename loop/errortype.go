// SPDX-License-Identifier: Apache-2.0

package loop

import (
	"fmt"
	"reflect"
)

// lambdaErrorTyper is implemented by an error that wants to choose its
// own Lambda-Runtime-Function-Error-Type instead of accepting the
// reflected Go type name (§7).
type lambdaErrorTyper interface {
	LambdaErrorType() string
}

// ErrorTypeOf reports the error type string reported to the control
// plane for err: its LambdaErrorType() if it implements one, otherwise
// its dynamic Go type name with the package path stripped, mirroring
// how other language runtimes report an exception's class name — the
// Go-specific stand-in documented in §7.
func ErrorTypeOf(err error) string {
	if typed, ok := err.(lambdaErrorTyper); ok {
		return typed.LambdaErrorType()
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() == "" {
		return fmt.Sprintf("%T", err)
	}
	return t.Name()
}
