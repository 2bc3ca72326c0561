// SPDX-License-Identifier: Apache-2.0

// Package invokectx assembles the per-invocation metadata surface
// (§4.4) passed to handlers: the two allocators, an environment
// accessor, the process-wide config, the per-request metadata, and —
// for streaming invocations only — the stream delegate.
package invokectx

import (
	"context"
	"time"

	"github.com/aws-samples/lambda-go-custom-runtime/config"
	"github.com/aws-samples/lambda-go-custom-runtime/memory"
)

// RequestMeta is the per-invocation metadata extracted from the
// Runtime API's next-invocation response headers (§3).
type RequestMeta struct {
	RequestID        string
	XRayTrace        string
	InvokedArn       string
	DeadlineMs       uint64
	ClientContext    string
	CognitoIdentity  string
}

// Deadline converts DeadlineMs into a time.Time, for handlers that
// want to derive a context.Context with a deadline. Advisory only —
// the runtime never enforces it (§5 Cancellation).
func (r RequestMeta) Deadline() time.Time {
	return time.UnixMilli(int64(r.DeadlineMs))
}

// Streamer is the subset of stream.Delegate handlers see. Defined
// here, rather than importing package stream directly into Context,
// so invokectx and stream don't need to know about each other's
// concrete types — package loop wires the concrete *stream.Delegate
// in when building a Context for a streaming invocation.
type Streamer interface {
	Open(contentType string) error
	Write(p []byte) (int, error)
	Writef(format string, args ...interface{}) (int, error)
	Flush() error
	Publish(p []byte) (int, error)
	Publishf(format string, args ...interface{}) (int, error)
	Close() error
	CloseWithError(errorType, errorMessage string) error
}

// Context is the immutable view handed to a handler for the duration
// of one invocation.
type Context struct {
	GPA    *memory.GeneralAllocator
	Arena  *memory.Arena
	Config *config.Config

	Request RequestMeta

	// Stream is non-nil only when the handler was dispatched by
	// RunStreaming.
	Stream Streamer

	// Ctx is a standard context.Context whose deadline mirrors
	// Request.Deadline(), provided purely for handlers that want to
	// use ctx.Done()/ctx.Err() idiomatically. The runtime does not
	// itself cancel it early or act on its expiry (§5).
	Ctx context.Context

	cancel context.CancelFunc
}

// New builds a Context for one invocation. cancel is invoked by the
// loop after the handler returns, to release the resources behind Ctx.
// A zero DeadlineMs (the Lambda-Runtime-Deadline-Ms header was absent
// or unparseable, see transport.Client.GetNext) leaves Ctx without a
// deadline rather than handing the handler an already-expired one.
func New(cfg *config.Config, gpa *memory.GeneralAllocator, arena *memory.Arena, req RequestMeta, stream Streamer) *Context {
	var ctx context.Context
	var cancel context.CancelFunc
	if req.DeadlineMs == 0 {
		ctx, cancel = context.WithCancel(context.Background())
	} else {
		ctx, cancel = context.WithDeadline(context.Background(), req.Deadline())
	}
	return &Context{
		GPA:     gpa,
		Arena:   arena,
		Config:  cfg,
		Request: req,
		Stream:  stream,
		Ctx:     ctx,
		cancel:  cancel,
	}
}

// Release cancels the derived context.Context. Called by the loop
// as soon as the handler returns, before the outcome is reported.
func (c *Context) Release() {
	if c.cancel != nil {
		c.cancel()
	}
}

// Env performs a case-sensitive lookup against the configuration's
// captured environment table, returning absent rather than empty
// string for unset keys (§4.4).
func (c *Context) Env(key string) (string, bool) {
	return c.Config.Env.Get(key)
}
