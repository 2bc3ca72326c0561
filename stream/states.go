// SPDX-License-Identifier: Apache-2.0

package stream

// streamState is one row of the transition table in §4.7: one method
// per Delegate operation, each concrete state overriding only the
// transitions legal from it.
type streamState interface {
	Open(d *Delegate, contentType string) error
	Write(d *Delegate, p []byte) (int, error)
	Flush(d *Delegate) error
	Publish(d *Delegate, p []byte) (int, error)
	Close(d *Delegate) error
	CloseWithError(d *Delegate, errorType, errorMessage string) error
}

// unopenedState: Open succeeds and transitions to open-empty; every
// write-shaped op fails with ErrStreamNotOpen; Close is a no-op
// (nothing was ever sent); CloseWithError records a PreOpenError for
// the loop to report via the ordinary invoke-error endpoint.
type unopenedState struct{}

func (unopenedState) Open(d *Delegate, contentType string) error {
	writer, err := d.opener.Open(contentType)
	if err != nil {
		return err
	}
	d.writer = writer
	d.current = openEmptyState{}
	return nil
}

func (unopenedState) Write(d *Delegate, p []byte) (int, error) { return 0, ErrStreamNotOpen }
func (unopenedState) Flush(d *Delegate) error                  { return ErrStreamNotOpen }
func (unopenedState) Publish(d *Delegate, p []byte) (int, error) {
	return 0, ErrStreamNotOpen
}
func (unopenedState) Close(d *Delegate) error { return nil }
func (unopenedState) CloseWithError(d *Delegate, errorType, errorMessage string) error {
	d.preOpen = &PreOpenError{Type: errorType, Message: errorMessage}
	d.current = closedState{}
	return nil
}

// openEmptyState: the buffer is empty. Write fills it and moves to
// open-buffered. Flush is a no-op (nothing buffered). Publish writes
// a chunk and stays in open-empty (the chunk it just emitted leaves
// the buffer empty again). Close/CloseWithError emit the terminator
// and move to closed.
type openEmptyState struct{}

func (openEmptyState) Open(d *Delegate, contentType string) error { return ErrStreamAlreadyOpen }

func (openEmptyState) Write(d *Delegate, p []byte) (int, error) {
	d.buf = append(d.buf, p...)
	d.current = openBufferedState{}
	return len(p), nil
}

func (openEmptyState) Flush(d *Delegate) error { return nil }

func (openEmptyState) Publish(d *Delegate, p []byte) (int, error) {
	if err := d.writer.WriteChunk(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (openEmptyState) Close(d *Delegate) error {
	err := d.writer.WriteTerminator("", "")
	d.current = closedState{}
	return err
}

func (openEmptyState) CloseWithError(d *Delegate, errorType, errorMessage string) error {
	err := d.writer.WriteTerminator(errorType, errorMessage)
	d.current = closedState{}
	return err
}

// openBufferedState: the buffer holds unflushed bytes. Write appends
// and stays in open-buffered. Flush emits the buffer as one chunk and
// moves to open-empty. Publish appends then flushes, also moving to
// open-empty. Close/CloseWithError flush first, then terminate.
type openBufferedState struct{}

func (openBufferedState) Open(d *Delegate, contentType string) error { return ErrStreamAlreadyOpen }

func (openBufferedState) Write(d *Delegate, p []byte) (int, error) {
	d.buf = append(d.buf, p...)
	return len(p), nil
}

func (openBufferedState) Flush(d *Delegate) error {
	if err := d.flushLocked(); err != nil {
		return err
	}
	d.current = openEmptyState{}
	return nil
}

func (openBufferedState) Publish(d *Delegate, p []byte) (int, error) {
	d.buf = append(d.buf, p...)
	if err := d.flushLocked(); err != nil {
		return 0, err
	}
	d.current = openEmptyState{}
	return len(p), nil
}

func (openBufferedState) Close(d *Delegate) error {
	if err := d.flushLocked(); err != nil {
		return err
	}
	err := d.writer.WriteTerminator("", "")
	d.current = closedState{}
	return err
}

func (openBufferedState) CloseWithError(d *Delegate, errorType, errorMessage string) error {
	if err := d.flushLocked(); err != nil {
		return err
	}
	err := d.writer.WriteTerminator(errorType, errorMessage)
	d.current = closedState{}
	return err
}

// closedState: terminal. Everything fails with ErrStreamClosed except
// Close/CloseWithError, which are no-ops — the terminator was already
// written and must never be written twice.
type closedState struct{}

func (closedState) Open(d *Delegate, contentType string) error { return ErrStreamClosed }
func (closedState) Write(d *Delegate, p []byte) (int, error)   { return 0, ErrStreamClosed }
func (closedState) Flush(d *Delegate) error                    { return ErrStreamClosed }
func (closedState) Publish(d *Delegate, p []byte) (int, error) {
	return 0, ErrStreamClosed
}
func (closedState) Close(d *Delegate) error                                       { return nil }
func (closedState) CloseWithError(d *Delegate, errorType, errorMessage string) error { return nil }
