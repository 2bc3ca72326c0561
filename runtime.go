// SPDX-License-Identifier: Apache-2.0

// Package runtime is the top-level entry point a function's bootstrap
// binary links against: it wires config, transport, the allocator
// pair, and the invocation loop together (§4), and exposes exactly two
// calls a main package needs — RunBuffered and RunStreaming — plus the
// error-type reflection rule handler code can opt out of (§7). This
// package itself builds no executable; see cmd/exampleecho and
// cmd/examplestream for the thin main()s that do, and cmd/locallambda
// for the local Runtime API stand-in used to drive them (§4.8).
package runtime

import (
	"context"

	"github.com/aws-samples/lambda-go-custom-runtime/config"
	"github.com/aws-samples/lambda-go-custom-runtime/envtable"
	"github.com/aws-samples/lambda-go-custom-runtime/fatalerror"
	"github.com/aws-samples/lambda-go-custom-runtime/loop"
	"github.com/aws-samples/lambda-go-custom-runtime/memory"
	"github.com/aws-samples/lambda-go-custom-runtime/rtlog"
	"github.com/aws-samples/lambda-go-custom-runtime/transport"
)

// keyRuntimeAPI mirrors config's own unexported key: it has to be
// checked independently of config.Load, since Load can fail for an
// entirely different missing variable while AWS_LAMBDA_RUNTIME_API
// is present — and it can also be absent entirely, in which case §8
// scenario S6 requires no network I/O at all.
const keyRuntimeAPI = "AWS_LAMBDA_RUNTIME_API"

// BufferedHandler and StreamingHandler alias package loop's handler
// shapes so a bootstrap's main package never needs to import loop
// itself.
type (
	BufferedHandler  = loop.BufferedHandler
	StreamingHandler = loop.StreamingHandler
)

// ErrorTypeOf is the error-type-name rule §7 specifies for the
// Lambda-Runtime-Function-Error-Type header and its streaming-trailer
// equivalent.
func ErrorTypeOf(err error) string { return loop.ErrorTypeOf(err) }

// RunBuffered initializes the runtime and drives the buffered-mode
// loop (§4.6) until its context is canceled — which, in a real
// bootstrap, never happens; the platform simply kills the process.
// A non-nil return means INIT failed; main should exit non-zero.
func RunBuffered(handler BufferedHandler) error {
	deps, err := initialize()
	if err != nil {
		return err
	}
	return loop.RunBuffered(context.Background(), *deps, handler)
}

// RunStreaming is RunBuffered's streaming-mode (§4.7) counterpart.
func RunStreaming(handler StreamingHandler) error {
	deps, err := initialize()
	if err != nil {
		return err
	}
	return loop.RunStreaming(context.Background(), *deps, handler)
}

// initialize performs INIT (§4.6 step 1): load config, and on failure
// report it via PostInitError — but only when AWS_LAMBDA_RUNTIME_API
// is actually set, since otherwise there is no endpoint to send it to.
func initialize() (*loop.Deps, error) {
	env := envtable.Capture()
	endpoint, hasEndpoint := env.Get(keyRuntimeAPI)

	cfg, err := config.Load()
	if err != nil {
		rtlog.Errorf("init failed: %v", err)
		if hasEndpoint {
			client := transport.NewClient(endpoint)
			if rerr := client.PostInitError(context.Background(), string(fatalerror.InitFailure), err.Error()); rerr != nil {
				rtlog.Errorf("report init error: %v", rerr)
			}
		}
		return nil, err
	}

	return &loop.Deps{
		Client: transport.NewClient(cfg.APIEndpoint),
		Config: cfg,
		GPA:    memory.NewGeneralAllocator(),
		Arena:  memory.NewArena(),
	}, nil
}
