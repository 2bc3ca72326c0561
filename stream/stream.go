// SPDX-License-Identifier: Apache-2.0

// Package stream implements the streaming-response delegate (§4.7): a
// buffered writer sitting over chunked HTTP that a streaming handler
// drives through Open/Write/Flush/Publish/Close. Its state machine is
// modeled the same way the teacher's core.RuntimeState is
// (lambda/core/states.go): one interface with a method per operation,
// one concrete implementation per state, and a Delegate that holds only a
// pointer to its current state and swaps it on each legal transition.
package stream

import (
	"errors"
	"fmt"

	"github.com/aws-samples/lambda-go-custom-runtime/fatalerror"
)

// Errors returned when an operation is illegal from the delegate's
// current state.
var (
	ErrStreamNotOpen     = errors.New("stream: write before open")
	ErrStreamAlreadyOpen = errors.New("stream: already open")
	ErrStreamClosed      = errors.New("stream: closed")
)

// ChunkWriter is the wire-level surface Open() hands back once HTTP
// headers have been written: emit a non-empty chunk, or emit the
// zero-length terminating chunk followed by the trailers block.
// Implemented by transport.StreamWriter.
type ChunkWriter interface {
	WriteChunk(p []byte) error
	WriteTerminator(errorType, errorBody string) error
}

// Opener begins the chunked HTTP response and returns the
// ChunkWriter used for the rest of the invocation. Implemented by
// transport.StreamOpener.
type Opener interface {
	Open(contentType string) (ChunkWriter, error)
}

// PreOpenError is recorded when the handler calls CloseWithError
// before ever calling Open: since no HTTP headers are yet on the
// wire, the loop reports it through the ordinary invoke-error
// endpoint instead of a trailer (§4.7).
type PreOpenError struct {
	Type    string
	Message string
}

// Delegate is the per-invocation streaming handle exposed to handlers
// as invokectx.Context.Stream.
type Delegate struct {
	opener  Opener
	writer  ChunkWriter
	buf     []byte
	current streamState

	preOpen *PreOpenError
}

// New returns a Delegate in the unopened state, ready to be handed to
// a streaming handler.
func New(opener Opener) *Delegate {
	d := &Delegate{opener: opener}
	d.current = unopenedState{}
	return d
}

// Open begins the chunked response with the given content type.
func (d *Delegate) Open(contentType string) error {
	return d.current.Open(d, contentType)
}

// Write appends p to the internal buffer without emitting a chunk.
func (d *Delegate) Write(p []byte) (int, error) {
	return d.current.Write(d, p)
}

// Writef is fmt.Sprintf followed by Write.
func (d *Delegate) Writef(format string, args ...interface{}) (int, error) {
	return d.Write([]byte(fmt.Sprintf(format, args...)))
}

// Flush emits the buffer as a single chunk iff it is non-empty, then
// clears it.
func (d *Delegate) Flush() error {
	return d.current.Flush(d)
}

// Publish appends p then immediately flushes.
func (d *Delegate) Publish(p []byte) (int, error) {
	return d.current.Publish(d, p)
}

// Publishf is fmt.Sprintf followed by Publish.
func (d *Delegate) Publishf(format string, args ...interface{}) (int, error) {
	return d.Publish([]byte(fmt.Sprintf(format, args...)))
}

// Close finalizes the stream successfully: any buffered bytes are
// flushed, then a zero-length terminating chunk with empty trailers
// is emitted.
func (d *Delegate) Close() error {
	return d.current.Close(d)
}

// CloseWithError finalizes the stream with a handler-reported
// failure. If called before Open, no bytes have been sent yet and the
// error is instead surfaced to the loop via PendingPreOpenError so it
// can use the ordinary invoke-error endpoint.
func (d *Delegate) CloseWithError(errorType, errorMessage string) error {
	return d.current.CloseWithError(d, errorType, errorMessage)
}

// Opened reports whether Open has ever succeeded.
func (d *Delegate) Opened() bool {
	return d.writer != nil
}

// Closed reports whether the delegate has reached its terminal state.
func (d *Delegate) Closed() bool {
	_, closed := d.current.(closedState)
	return closed
}

// PendingPreOpenError returns the error recorded by a pre-Open
// CloseWithError call, if any.
func (d *Delegate) PendingPreOpenError() (*PreOpenError, bool) {
	if d.preOpen == nil {
		return nil, false
	}
	return d.preOpen, true
}

// FinalizeSuccess is called by the loop after a streaming handler
// returns nil. If the delegate never reached closed, it flushes any
// remaining buffer and emits the ordinary (non-error) terminator. A
// no-op if the delegate is already closed (the terminator was already
// emitted by an explicit Close/CloseWithError) or was never opened
// (nothing was ever put on the wire; loop.dispatchStreaming treats this
// exactly like a buffered empty response via PostResponse).
func (d *Delegate) FinalizeSuccess() error {
	if d.Closed() || !d.Opened() {
		return nil
	}
	if err := d.flushLocked(); err != nil {
		return err
	}
	err := d.writer.WriteTerminator("", "")
	d.current = closedState{}
	return err
}

// FinalizeError is called by the loop after a streaming handler
// returns a non-nil error and the delegate was never explicitly
// closed. If Open was never called there is nothing to finalize on
// the wire; the loop instead reports the failure via the ordinary
// invoke-error endpoint.
func (d *Delegate) FinalizeError(errorType, errorMessage string) error {
	if d.Closed() || !d.Opened() {
		return nil
	}
	if err := d.flushLocked(); err != nil {
		return err
	}
	err := d.writer.WriteTerminator(errorType, errorMessage)
	d.current = closedState{}
	return err
}

func (d *Delegate) flushLocked() error {
	if len(d.buf) == 0 {
		return nil
	}
	err := d.writer.WriteChunk(d.buf)
	d.buf = d.buf[:0]
	return err
}

// Error makes *PreOpenError an error whose text is the handler-supplied
// message.
func (e *PreOpenError) Error() string { return e.Message }

// Kind classifies PreOpenError as a StreamMisuse-flavored
// HandlerError: the handler actively invoked stream failure
// reporting, it just did so before there was a stream on the wire.
func (e *PreOpenError) Kind() fatalerror.ErrorType { return fatalerror.HandlerError }
