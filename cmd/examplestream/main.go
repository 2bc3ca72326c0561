// SPDX-License-Identifier: Apache-2.0

// Command examplestream is a minimal streaming-mode function: it
// splits the invocation event on newlines and publishes each line as
// its own chunk.
package main

import (
	"bytes"
	"fmt"
	"os"

	runtime "github.com/aws-samples/lambda-go-custom-runtime"
	"github.com/aws-samples/lambda-go-custom-runtime/invokectx"
)

func handler(ctx *invokectx.Context, event []byte) error {
	if err := ctx.Stream.Open("text/event-stream"); err != nil {
		return err
	}
	for _, line := range bytes.Split(event, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		if _, err := ctx.Stream.Publish(line); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := runtime.RunStreaming(handler); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
