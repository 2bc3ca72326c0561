// SPDX-License-Identifier: Apache-2.0

package loop

import (
	"bufio"
	"errors"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws-samples/lambda-go-custom-runtime/config"
	"github.com/aws-samples/lambda-go-custom-runtime/envtable"
	"github.com/aws-samples/lambda-go-custom-runtime/invokectx"
	"github.com/aws-samples/lambda-go-custom-runtime/memory"
	"github.com/aws-samples/lambda-go-custom-runtime/transport"
)

// recordedRequest is one HTTP request the fake Runtime API observed.
type recordedRequest struct {
	method  string
	path    string
	headers map[string]string
	body    []byte
	trailer map[string]string
}

// fakeAPI is a tiny single-connection Runtime API stand-in that
// understands both Content-Length and chunked-with-trailers request
// bodies, enough to exercise loop's buffered and streaming dispatch
// against a real *transport.Client.
type fakeAPI struct {
	ln   net.Listener
	next func() (status int, headers map[string]string, body []byte)

	mu   sync.Mutex
	reqs []recordedRequest
}

func startFakeAPI(t *testing.T, respond func(method, path string) (status int, headers map[string]string, body []byte)) *fakeAPI {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	f := &fakeAPI{ln: ln}
	f.next = func() (int, map[string]string, []byte) { return respond("", "") }

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		br := bufio.NewReader(conn)

		for {
			rec, ok := readOneRequest(br)
			if !ok {
				return
			}
			f.mu.Lock()
			f.reqs = append(f.reqs, rec)
			f.mu.Unlock()

			status, headers, body := respond(rec.method, rec.path)
			conn.Write([]byte("HTTP/1.1 " + itoa(status) + " x\r\n"))
			for k, v := range headers {
				conn.Write([]byte(k + ": " + v + "\r\n"))
			}
			conn.Write([]byte("Content-Length: " + itoa(len(body)) + "\r\n\r\n"))
			conn.Write(body)
		}
	}()

	return f
}

func (f *fakeAPI) requests() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedRequest, len(f.reqs))
	copy(out, f.reqs)
	return out
}

func readOneRequest(br *bufio.Reader) (recordedRequest, bool) {
	line, err := br.ReadString('\n')
	if err != nil {
		return recordedRequest{}, false
	}
	parts := strings.SplitN(strings.TrimRight(line, "\r\n"), " ", 3)
	if len(parts) < 2 {
		return recordedRequest{}, false
	}
	rec := recordedRequest{method: parts[0], path: parts[1], headers: map[string]string{}}

	for {
		hl, err := br.ReadString('\n')
		if err != nil {
			return recordedRequest{}, false
		}
		hl = strings.TrimRight(hl, "\r\n")
		if hl == "" {
			break
		}
		idx := strings.IndexByte(hl, ':')
		if idx < 0 {
			continue
		}
		rec.headers[strings.TrimSpace(hl[:idx])] = strings.TrimSpace(hl[idx+1:])
	}

	if strings.EqualFold(rec.headers["Transfer-Encoding"], "chunked") {
		var body []byte
		trailer := map[string]string{}
		for {
			sizeLine, err := br.ReadString('\n')
			if err != nil {
				return recordedRequest{}, false
			}
			size, err := strconv.ParseInt(strings.TrimRight(sizeLine, "\r\n"), 16, 64)
			if err != nil {
				return recordedRequest{}, false
			}
			if size == 0 {
				break
			}
			chunk := make([]byte, size)
			if _, err := readFull(br, chunk); err != nil {
				return recordedRequest{}, false
			}
			body = append(body, chunk...)
			br.ReadString('\n') // trailing CRLF after chunk data
		}
		for {
			tl, err := br.ReadString('\n')
			if err != nil {
				return recordedRequest{}, false
			}
			tl = strings.TrimRight(tl, "\r\n")
			if tl == "" {
				break
			}
			idx := strings.IndexByte(tl, ':')
			if idx >= 0 {
				trailer[strings.TrimSpace(tl[:idx])] = strings.TrimSpace(tl[idx+1:])
			}
		}
		rec.body = body
		rec.trailer = trailer
		return rec, true
	}

	if cl := rec.headers["Content-Length"]; cl != "" {
		n, _ := strconv.Atoi(cl)
		if n > 0 {
			buf := make([]byte, n)
			if _, err := readFull(br, buf); err != nil {
				return recordedRequest{}, false
			}
			rec.body = buf
		}
	}
	return rec, true
}

func readFull(br *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := br.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func itoa(n int) string { return strconv.Itoa(n) }

func testDeps(t *testing.T, endpoint string) Deps {
	t.Helper()
	return Deps{
		Client: transport.NewClient(endpoint),
		Config: &config.Config{Env: envtable.Capture()},
		GPA:    memory.NewGeneralAllocator(),
		Arena:  memory.NewArena(),
	}
}

func nextMeta(requestID string) *transport.NextInvocation {
	return &transport.NextInvocation{
		Event: []byte(`{}`),
		Meta: invokectx.RequestMeta{
			RequestID:  requestID,
			DeadlineMs: uint64(time.Now().Add(time.Minute).UnixMilli()),
		},
	}
}

func TestDispatchBufferedSuccessPostsResponse(t *testing.T) {
	f := startFakeAPI(t, func(method, path string) (int, map[string]string, []byte) {
		return 202, nil, nil
	})
	deps := testDeps(t, f.ln.Addr().String())

	dispatchBuffered(deps, nextMeta("req-1"), func(ctx *invokectx.Context, event []byte) ([]byte, error) {
		return []byte("Hello, world!"), nil
	})

	reqs := f.requests()
	if len(reqs) != 1 || reqs[0].path != "/2018-06-01/runtime/invocation/req-1/response" {
		t.Fatalf("requests = %+v", reqs)
	}
	if string(reqs[0].body) != "Hello, world!" {
		t.Fatalf("body = %q", reqs[0].body)
	}
}

func TestDispatchBufferedHandlerErrorPostsInvokeError(t *testing.T) {
	f := startFakeAPI(t, func(method, path string) (int, map[string]string, []byte) {
		return 202, nil, nil
	})
	deps := testDeps(t, f.ln.Addr().String())

	dispatchBuffered(deps, nextMeta("req-2"), func(ctx *invokectx.Context, event []byte) ([]byte, error) {
		return nil, errors.New("bad input")
	})

	reqs := f.requests()
	if len(reqs) != 1 || reqs[0].path != "/2018-06-01/runtime/invocation/req-2/error" {
		t.Fatalf("requests = %+v", reqs)
	}
	if reqs[0].headers["Lambda-Runtime-Function-Error-Type"] != "errorString" {
		t.Fatalf("error type header = %q", reqs[0].headers["Lambda-Runtime-Function-Error-Type"])
	}
}

func TestDispatchBufferedInstallsAndClearsXRayTraceEnv(t *testing.T) {
	os.Unsetenv(xrayTraceEnvKey)
	defer os.Unsetenv(xrayTraceEnvKey)

	f := startFakeAPI(t, func(method, path string) (int, map[string]string, []byte) {
		return 202, nil, nil
	})
	deps := testDeps(t, f.ln.Addr().String())

	next := nextMeta("req-xray")
	next.Meta.XRayTrace = "Root=1-5e1b4151-5ac6c58f0e6a45d3e6a45d3e"

	var seenDuringHandler string
	dispatchBuffered(deps, next, func(ctx *invokectx.Context, event []byte) ([]byte, error) {
		seenDuringHandler = os.Getenv(xrayTraceEnvKey)
		return nil, nil
	})

	if seenDuringHandler != next.Meta.XRayTrace {
		t.Fatalf("%s during handler = %q, want %q", xrayTraceEnvKey, seenDuringHandler, next.Meta.XRayTrace)
	}
	if got := os.Getenv(xrayTraceEnvKey); got != "" {
		t.Fatalf("%s after dispatch = %q, want cleared", xrayTraceEnvKey, got)
	}
}

func TestDispatchStreamingNeverOpenedSuccessPostsEmptyResponse(t *testing.T) {
	f := startFakeAPI(t, func(method, path string) (int, map[string]string, []byte) {
		return 202, nil, nil
	})
	deps := testDeps(t, f.ln.Addr().String())

	dispatchStreaming(deps, nextMeta("req-3"), func(ctx *invokectx.Context, event []byte) error {
		return nil
	})

	reqs := f.requests()
	if len(reqs) != 1 || reqs[0].path != "/2018-06-01/runtime/invocation/req-3/response" {
		t.Fatalf("requests = %+v", reqs)
	}
	if len(reqs[0].body) != 0 {
		t.Fatalf("body = %q, want empty", reqs[0].body)
	}
}

func TestDispatchStreamingThreeMessages(t *testing.T) {
	f := startFakeAPI(t, func(method, path string) (int, map[string]string, []byte) {
		return 200, nil, nil
	})
	deps := testDeps(t, f.ln.Addr().String())

	dispatchStreaming(deps, nextMeta("req-4"), func(ctx *invokectx.Context, event []byte) error {
		if err := ctx.Stream.Open("text/event-stream"); err != nil {
			return err
		}
		if _, err := ctx.Stream.Publish([]byte("A")); err != nil {
			return err
		}
		if _, err := ctx.Stream.Write([]byte("B")); err != nil {
			return err
		}
		if err := ctx.Stream.Flush(); err != nil {
			return err
		}
		_, err := ctx.Stream.Publishf("%d", 3)
		return err
	})

	reqs := f.requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %+v", reqs)
	}
	if string(reqs[0].body) != "AB3" {
		t.Fatalf("body = %q, want concatenated chunks AB3", reqs[0].body)
	}
	if reqs[0].trailer["Lambda-Runtime-Function-Error-Type"] != "" {
		t.Fatalf("unexpected error trailer: %+v", reqs[0].trailer)
	}
}

func TestDispatchStreamingErrorAfterOpenSetsTrailer(t *testing.T) {
	f := startFakeAPI(t, func(method, path string) (int, map[string]string, []byte) {
		return 200, nil, nil
	})
	deps := testDeps(t, f.ln.Addr().String())

	dispatchStreaming(deps, nextMeta("req-5"), func(ctx *invokectx.Context, event []byte) error {
		if err := ctx.Stream.Open("application/json"); err != nil {
			return err
		}
		if _, err := ctx.Stream.Publish([]byte(`{"x":1}`)); err != nil {
			return err
		}
		return errors.New("boom")
	})

	reqs := f.requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %+v", reqs)
	}
	if string(reqs[0].body) != `{"x":1}` {
		t.Fatalf("body = %q", reqs[0].body)
	}
	if reqs[0].trailer["Lambda-Runtime-Function-Error-Type"] != "errorString" {
		t.Fatalf("trailer = %+v", reqs[0].trailer)
	}
}

func TestNextBackoffSchedule(t *testing.T) {
	want := []time.Duration{
		50 * time.Millisecond,
		100 * time.Millisecond,
		200 * time.Millisecond,
		2 * time.Second,
		2 * time.Second,
	}
	for i, w := range want {
		if got := nextBackoff(i); got != w {
			t.Fatalf("nextBackoff(%d) = %v, want %v", i, got, w)
		}
	}
}

func TestErrorTypeOfUsesLambdaErrorType(t *testing.T) {
	err := namedLambdaError{}
	if got := ErrorTypeOf(err); got != "CustomName" {
		t.Fatalf("ErrorTypeOf = %q", got)
	}
}

func TestErrorTypeOfReflectsGoTypeName(t *testing.T) {
	err := errors.New("plain")
	if got := ErrorTypeOf(err); got != "errorString" {
		t.Fatalf("ErrorTypeOf = %q", got)
	}
}

type namedLambdaError struct{}

func (namedLambdaError) Error() string          { return "named" }
func (namedLambdaError) LambdaErrorType() string { return "CustomName" }
