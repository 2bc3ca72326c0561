// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/aws-samples/lambda-go-custom-runtime/stream"
)

// StreamOpener adapts a Client to stream.Opener, binding the
// request ID the Open(contentType) call needs but that stream.Opener
// itself doesn't carry (the delegate is created once per invocation,
// after the request ID is already known).
type StreamOpener struct {
	client    *Client
	requestID string
}

// NewStreamOpener returns a stream.Opener bound to one invocation.
func (c *Client) NewStreamOpener(requestID string) *StreamOpener {
	return &StreamOpener{client: c, requestID: requestID}
}

// Open begins the chunked response for this invocation's request ID.
func (o *StreamOpener) Open(contentType string) (stream.ChunkWriter, error) {
	return o.client.openStream(o.requestID, contentType)
}

// StreamWriter is the wire-level chunked writer handed back by Open.
// It owns the client's connection for the duration of one streaming
// invocation: nothing else may use the connection until WriteTerminator
// returns, which single-threaded production operation guarantees.
type StreamWriter struct {
	client *Client
	bw     *bufio.Writer
}

func (c *Client) openStream(requestID, contentType string) (*StreamWriter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConn(); err != nil {
		return nil, err
	}

	bw := bufio.NewWriter(c.conn)
	path := fmt.Sprintf(pathResponseFmt, requestID)
	if err := writeRequestLine(bw, "POST", path); err != nil {
		c.dropConn()
		return nil, err
	}
	headers := [][2]string{
		{"Host", c.endpoint},
		{"Transfer-Encoding", "chunked"},
		{"Content-Type", contentType},
		{hdrResponseMode, "streaming"},
		{"Trailer", hdrTrailerDecl},
	}
	for _, kv := range headers {
		if err := writeHeader(bw, kv[0], kv[1]); err != nil {
			c.dropConn()
			return nil, err
		}
	}
	if err := endHeaders(bw); err != nil {
		c.dropConn()
		return nil, err
	}
	if err := bw.Flush(); err != nil {
		c.dropConn()
		return nil, err
	}

	return &StreamWriter{client: c, bw: bw}, nil
}

// WriteChunk emits p as a single HTTP/1.1 chunk: its length in hex,
// CRLF, the bytes, CRLF. An empty p is ignored and writes nothing —
// an empty chunk here would be indistinguishable from the terminator.
func (w *StreamWriter) WriteChunk(p []byte) error {
	w.client.mu.Lock()
	defer w.client.mu.Unlock()

	if len(p) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w.bw, "%x\r\n", len(p)); err != nil {
		w.client.dropConn()
		return err
	}
	if _, err := w.bw.Write(p); err != nil {
		w.client.dropConn()
		return err
	}
	if _, err := w.bw.WriteString("\r\n"); err != nil {
		w.client.dropConn()
		return err
	}
	return w.bw.Flush()
}

// WriteTerminator emits the zero-length terminating chunk followed by
// the trailers block (empty for success, non-empty for a handler
// error reported after headers were already sent — §4.7) and the
// final CRLF, then reads and discards the control plane's response.
func (w *StreamWriter) WriteTerminator(errorType, errorBody string) error {
	w.client.mu.Lock()
	defer w.client.mu.Unlock()

	if _, err := w.bw.WriteString("0\r\n"); err != nil {
		w.client.dropConn()
		return err
	}

	if errorType != "" {
		body, err := json.Marshal(errorBody)
		if err != nil {
			body = []byte(`""`)
		}
		if err := writeHeader(w.bw, hdrFuncErrorType, errorType); err != nil {
			w.client.dropConn()
			return err
		}
		if err := writeHeader(w.bw, "Lambda-Runtime-Function-Error-Body", string(body)); err != nil {
			w.client.dropConn()
			return err
		}
	}

	if err := endHeaders(w.bw); err != nil {
		w.client.dropConn()
		return err
	}
	if err := w.bw.Flush(); err != nil {
		w.client.dropConn()
		return err
	}

	resp, err := readResponse(w.client.br)
	if err != nil {
		w.client.dropConn()
		return err
	}
	if !isSuccess(resp.status) {
		return fmt.Errorf("transport: stream response: unexpected status %d", resp.status)
	}
	return nil
}
