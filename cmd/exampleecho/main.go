// SPDX-License-Identifier: Apache-2.0

// Command exampleecho is a minimal buffered-mode function: it echoes
// the invocation event back as the response body. Built as bootstrap
// and deployed to a real function, or exercised locally against
// cmd/locallambda.
package main

import (
	"fmt"
	"os"

	runtime "github.com/aws-samples/lambda-go-custom-runtime"
	"github.com/aws-samples/lambda-go-custom-runtime/invokectx"
)

func handler(ctx *invokectx.Context, event []byte) ([]byte, error) {
	out := ctx.GPA.Alloc(len(event))
	copy(out, event)
	return out, nil
}

func main() {
	if err := runtime.RunBuffered(handler); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
