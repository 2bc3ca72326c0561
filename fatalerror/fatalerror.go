// SPDX-License-Identifier: Apache-2.0

// Package fatalerror defines the constant error-kind taxonomy reported
// to the Runtime API control plane and used internally to decide how
// an invocation failure is disposed of.
package fatalerror

// ErrorType is a stable identifier for a class of runtime failure.
// Namespaced separately from handler-supplied error names.
type ErrorType string

const (
	// InitFailure covers config load errors and the first HTTP
	// connection attempt failing before any invocation is pulled.
	InitFailure ErrorType = "Runtime.InitFailure"

	// TransportFailure covers network errors talking to the Runtime
	// API after init has succeeded.
	TransportFailure ErrorType = "Runtime.TransportFailure"

	// HandlerError covers the handler itself returning a non-nil
	// error, including a StreamMisuse error the handler did not
	// handle.
	HandlerError ErrorType = "Runtime.HandlerError"

	// StreamMisuse covers a Delegate method called from a state that
	// disallows it (e.g. Write before Open).
	StreamMisuse ErrorType = "Runtime.StreamMisuse"

	// OversizedResponse covers a buffered response exceeding the
	// platform's payload limit; the control plane itself rejects the
	// POST, this type only labels the condition in logs.
	OversizedResponse ErrorType = "Runtime.OversizedResponse"

	// Unknown is used when an error can't be classified into any of
	// the above, matching the teacher's own catch-all.
	Unknown ErrorType = "Unknown"
)
