// SPDX-License-Identifier: Apache-2.0

// Package loop drives the single-threaded poll-dispatch-report cycle
// (§4.6, §4.7). It knows nothing about how a handler is packaged as a
// bootstrap binary — that is package runtime's job — only how to pull
// one invocation at a time off a transport.Client and report its
// outcome.
package loop

import (
	"context"
	"time"

	"github.com/aws-samples/lambda-go-custom-runtime/config"
	"github.com/aws-samples/lambda-go-custom-runtime/invokectx"
	"github.com/aws-samples/lambda-go-custom-runtime/memory"
	"github.com/aws-samples/lambda-go-custom-runtime/rtlog"
	"github.com/aws-samples/lambda-go-custom-runtime/stream"
	"github.com/aws-samples/lambda-go-custom-runtime/transport"
)

// BufferedHandler produces the whole response body in one return.
type BufferedHandler func(ctx *invokectx.Context, event []byte) ([]byte, error)

// StreamingHandler reports its output incrementally through
// ctx.Stream and signals completion by returning.
type StreamingHandler func(ctx *invokectx.Context, event []byte) error

// Deps is the set of already-initialized collaborators the loop needs;
// package runtime builds one of these during INIT and keeps it for the
// process lifetime.
type Deps struct {
	Client *transport.Client
	Config *config.Config
	GPA    *memory.GeneralAllocator
	Arena  *memory.Arena
}

// pollNext retries GetNext with the backoff schedule in backoff.go
// until it succeeds; per §4.6 step 2 there is no bound on attempts.
func pollNext(ctx context.Context, client *transport.Client) *transport.NextInvocation {
	attempt := 0
	for {
		next, err := client.GetNext(ctx)
		if err == nil {
			return next
		}
		rtlog.Errorf("poll next invocation: %v", err)
		time.Sleep(nextBackoff(attempt))
		attempt++
	}
}

// RunBuffered runs the buffered-mode loop forever (§4.6). It only
// returns if ctx is canceled, which production callers never do — the
// platform terminates the process instead.
func RunBuffered(ctx context.Context, deps Deps, handler BufferedHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		next := pollNext(ctx, deps.Client)
		dispatchBuffered(deps, next, handler)
	}
}

func dispatchBuffered(deps Deps, next *transport.NextInvocation, handler BufferedHandler) {
	requestID := next.Meta.RequestID
	rtlog.SetRequestID(requestID)
	setXRayTraceEnv(next.Meta.XRayTrace)
	deps.Arena.Reset()

	ictx := invokectx.New(deps.Config, deps.GPA, deps.Arena, next.Meta, nil)
	body, err := handler(ictx, next.Event)
	ictx.Release()

	if err != nil {
		rtlog.Errorf("handler error: %s: %v", ErrorTypeOf(err), err)
		if rerr := deps.Client.PostInvokeError(ictx.Ctx, requestID, ErrorTypeOf(err), err.Error()); rerr != nil {
			rtlog.Errorf("report invoke error: %v", rerr)
		}
	} else if rerr := deps.Client.PostResponse(ictx.Ctx, requestID, body); rerr != nil {
		rtlog.Errorf("post response: %v", rerr)
	}

	clearXRayTraceEnv()
	rtlog.ClearRequestID()
	deps.Arena.Reset()
}

// RunStreaming runs the streaming-mode loop forever (§4.7).
func RunStreaming(ctx context.Context, deps Deps, handler StreamingHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		next := pollNext(ctx, deps.Client)
		dispatchStreaming(deps, next, handler)
	}
}

func dispatchStreaming(deps Deps, next *transport.NextInvocation, handler StreamingHandler) {
	requestID := next.Meta.RequestID
	rtlog.SetRequestID(requestID)
	setXRayTraceEnv(next.Meta.XRayTrace)
	deps.Arena.Reset()

	delegate := stream.New(deps.Client.NewStreamOpener(requestID))
	ictx := invokectx.New(deps.Config, deps.GPA, deps.Arena, next.Meta, delegate)
	handlerErr := handler(ictx, next.Event)
	ictx.Release()

	reportStreamOutcome(deps, ictx.Ctx, requestID, delegate, handlerErr)

	clearXRayTraceEnv()
	rtlog.ClearRequestID()
	deps.Arena.Reset()
}

// reportStreamOutcome implements the disposition table in §4.7's
// closing paragraphs: a pre-Open CloseWithError is reported through
// the ordinary invoke-error endpoint (no bytes were ever on the wire
// for it to ride along with); everything else that already reached
// the wire is finalized through the delegate itself; a handler that
// never called Open at all is treated like an empty buffered response
// or error, exactly as stream.Delegate.FinalizeSuccess documents.
func reportStreamOutcome(deps Deps, ctx context.Context, requestID string, delegate *stream.Delegate, handlerErr error) {
	if pre, ok := delegate.PendingPreOpenError(); ok {
		if rerr := deps.Client.PostInvokeError(ctx, requestID, pre.Type, pre.Message); rerr != nil {
			rtlog.Errorf("report invoke error: %v", rerr)
		}
		return
	}

	if handlerErr != nil {
		rtlog.Errorf("handler error: %s: %v", ErrorTypeOf(handlerErr), handlerErr)
		if delegate.Opened() {
			if ferr := delegate.FinalizeError(ErrorTypeOf(handlerErr), handlerErr.Error()); ferr != nil {
				rtlog.Errorf("finalize stream error: %v", ferr)
			}
		} else if rerr := deps.Client.PostInvokeError(ctx, requestID, ErrorTypeOf(handlerErr), handlerErr.Error()); rerr != nil {
			rtlog.Errorf("report invoke error: %v", rerr)
		}
		return
	}

	if delegate.Opened() {
		if ferr := delegate.FinalizeSuccess(); ferr != nil {
			rtlog.Errorf("finalize stream: %v", ferr)
		}
		return
	}
	if rerr := deps.Client.PostResponse(ctx, requestID, []byte{}); rerr != nil {
		rtlog.Errorf("post response: %v", rerr)
	}
}
