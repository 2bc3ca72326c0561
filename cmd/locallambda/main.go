// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"net"
	"net/http"
	"os"

	flags "github.com/jessevdk/go-flags"
)

// cliOptions mirrors cmd/aws-lambda-rie's own options struct: a flat
// struct of long-form flags parsed by go-flags.
type cliOptions struct {
	Port   int    `long:"port" default:"8080" description:"port to listen on"`
	Events string `long:"events" required:"true" description:"path to a newline-delimited JSON events file"`
}

func main() {
	opts, err := parseCLIArgs(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	events, err := loadEvents(opts.Events)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	queue := newEventQueue(events)
	srv := newServer(queue, os.Stdout)

	addr := fmt.Sprintf("127.0.0.1:%d", opts.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "locallambda listening on %s (%d queued events)\n", addr, len(events))
	fmt.Fprintf(os.Stdout, "export AWS_LAMBDA_RUNTIME_API=%s\n", addr)

	if err := http.Serve(ln, srv.router()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseCLIArgs(argv []string) (cliOptions, error) {
	var opts cliOptions
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.ParseArgs(argv[1:]); err != nil {
		return cliOptions{}, err
	}
	return opts, nil
}
