// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/aws-samples/lambda-go-custom-runtime/invokectx"
)

const (
	pathNext          = "/2018-06-01/runtime/invocation/next"
	pathResponseFmt   = "/2018-06-01/runtime/invocation/%s/response"
	pathInvokeErrFmt  = "/2018-06-01/runtime/invocation/%s/error"
	pathInitError     = "/2018-06-01/runtime/init/error"

	hdrRequestID       = "Lambda-Runtime-Aws-Request-Id"
	hdrTraceID         = "Lambda-Runtime-Trace-Id"
	hdrInvokedArn      = "Lambda-Runtime-Invoked-Function-Arn"
	hdrDeadlineMs      = "Lambda-Runtime-Deadline-Ms"
	hdrClientContext   = "Lambda-Runtime-Client-Context"
	hdrCognitoIdentity = "Lambda-Runtime-Cognito-Identity"
	hdrFuncErrorType   = "Lambda-Runtime-Function-Error-Type"
	hdrResponseMode    = "Lambda-Runtime-Function-Response-Mode"
	hdrTrailerDecl     = "Lambda-Runtime-Function-Error-Type, Lambda-Runtime-Function-Error-Body"
)

// Client is a single long-lived connection to the Runtime API,
// transparently re-established on any transport-level failure (§4.1).
// The loop drives it strictly sequentially; the mutex exists so tests
// can drive one Client from concurrent goroutines without data races
// (see TestClientSerializesConcurrentCalls), not because production
// needs it.
type Client struct {
	endpoint string

	mu   sync.Mutex
	conn net.Conn
	br   *bufio.Reader
}

// NewClient returns a Client bound to endpoint ("host:port", the
// value of AWS_LAMBDA_RUNTIME_API).
func NewClient(endpoint string) *Client {
	return &Client{endpoint: endpoint}
}

func (c *Client) ensureConn() error {
	if c.conn != nil {
		return nil
	}
	conn, err := net.Dial("tcp", c.endpoint)
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", c.endpoint, err)
	}
	c.conn = conn
	c.br = bufio.NewReader(conn)
	return nil
}

// dropConn discards the current connection so the next call
// re-dials, the transparent reconnection behavior §4.1 requires on
// any transport-level failure.
func (c *Client) dropConn() {
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = nil
	c.br = nil
}

// NextInvocation is the result of a successful GetNext call.
type NextInvocation struct {
	Event []byte
	Meta  invokectx.RequestMeta
}

// GetNext issues GET /runtime/invocation/next, a long-poll request
// that blocks until the platform has an event. It does not set a
// client-side deadline on the connection — the platform owns timing.
func (c *Client) GetNext(ctx context.Context) (*NextInvocation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.roundTrip("GET", pathNext, nil, nil)
	if err != nil {
		c.dropConn()
		return nil, err
	}
	if !isSuccess(resp.status) {
		c.dropConn()
		return nil, fmt.Errorf("transport: GET next: unexpected status %d", resp.status)
	}

	meta := invokectx.RequestMeta{
		RequestID:       resp.headers.Get(hdrRequestID),
		XRayTrace:       resp.headers.Get(hdrTraceID),
		InvokedArn:      resp.headers.Get(hdrInvokedArn),
		ClientContext:   resp.headers.Get(hdrClientContext),
		CognitoIdentity: resp.headers.Get(hdrCognitoIdentity),
	}
	if dl := resp.headers.Get(hdrDeadlineMs); dl != "" {
		if v, err := strconv.ParseUint(dl, 10, 64); err == nil {
			meta.DeadlineMs = v
		}
	}

	return &NextInvocation{Event: resp.body, Meta: meta}, nil
}

// PostResponse issues POST /runtime/invocation/{id}/response with a
// Content-Length body. A non-2xx is an unrecoverable protocol fault:
// it is returned to the caller, which logs it and treats the
// invocation as complete regardless (§4.1).
func (c *Client) PostResponse(ctx context.Context, requestID string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := fmt.Sprintf(pathResponseFmt, requestID)
	resp, err := c.roundTrip("POST", path, nil, body)
	if err != nil {
		c.dropConn()
		return err
	}
	if !isSuccess(resp.status) {
		return fmt.Errorf("transport: POST response: unexpected status %d", resp.status)
	}
	return nil
}

// PostInvokeError issues POST /runtime/invocation/{id}/error with the
// small JSON error body and the Lambda-Runtime-Function-Error-Type
// header.
func (c *Client) PostInvokeError(ctx context.Context, requestID, errorType, errorMessage string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := fmt.Sprintf(pathInvokeErrFmt, requestID)
	return c.postErrorBody(path, errorType, errorMessage)
}

// PostInitError issues POST /runtime/init/error, used before any
// invocation is pulled when startup itself fails.
func (c *Client) PostInitError(ctx context.Context, errorType, errorMessage string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.postErrorBody(pathInitError, errorType, errorMessage)
}

func (c *Client) postErrorBody(path, errorType, errorMessage string) error {
	body, err := json.Marshal(struct {
		ErrorType    string `json:"errorType"`
		ErrorMessage string `json:"errorMessage"`
	}{ErrorType: errorType, ErrorMessage: errorMessage})
	if err != nil {
		return fmt.Errorf("transport: marshal error body: %w", err)
	}

	extra := map[string]string{
		hdrFuncErrorType: errorType,
		"Content-Type":   "application/json",
	}

	resp, err := c.roundTrip("POST", path, extra, body)
	if err != nil {
		c.dropConn()
		return err
	}
	if !isSuccess(resp.status) {
		return fmt.Errorf("transport: POST %s: unexpected status %d", path, resp.status)
	}
	return nil
}

// roundTrip writes one request and reads one response over the
// client's single persistent connection, dialing it lazily.
func (c *Client) roundTrip(method, path string, extraHeaders map[string]string, body []byte) (*wireResponse, error) {
	if err := c.ensureConn(); err != nil {
		return nil, err
	}

	bw := bufio.NewWriter(c.conn)
	if err := writeRequestLine(bw, method, path); err != nil {
		return nil, err
	}
	if err := writeHeader(bw, "Host", c.endpoint); err != nil {
		return nil, err
	}
	if err := writeHeader(bw, "Content-Length", strconv.Itoa(len(body))); err != nil {
		return nil, err
	}
	for k, v := range extraHeaders {
		if err := writeHeader(bw, k, v); err != nil {
			return nil, err
		}
	}
	if err := endHeaders(bw); err != nil {
		return nil, err
	}
	if len(body) > 0 {
		if _, err := bw.Write(body); err != nil {
			return nil, err
		}
	}
	if err := bw.Flush(); err != nil {
		return nil, err
	}

	return readResponse(c.br)
}
