// SPDX-License-Identifier: Apache-2.0

// Package config loads the process-wide, immutable configuration
// record exactly once at startup, the way the teacher's rapidcore/env
// package classifies reserved environment variables before the
// sandbox's first invocation — except here the classification runs
// inside the runtime client itself rather than a supervisor that execs
// it.
package config

import (
	"fmt"
	"strconv"

	"github.com/aws-samples/lambda-go-custom-runtime/envtable"
	"github.com/aws-samples/lambda-go-custom-runtime/fatalerror"
	"github.com/aws-samples/lambda-go-custom-runtime/rtlog"
)

// InitType enumerates AWS_LAMBDA_INITIALIZATION_TYPE values.
type InitType string

const (
	OnDemand            InitType = "on_demand"
	ProvisionedConcurrency InitType = "provisioned"
	SnapStart            InitType = "snap_start"
)

// reserved env var keys this package consumes directly.
const (
	keyRegion        = "AWS_REGION"
	keyAccessID      = "AWS_ACCESS_KEY_ID"
	keyAccessSecret  = "AWS_SECRET_ACCESS_KEY"
	keySessionToken  = "AWS_SESSION_TOKEN"
	keyFuncName      = "AWS_LAMBDA_FUNCTION_NAME"
	keyFuncVersion   = "AWS_LAMBDA_FUNCTION_VERSION"
	keyFuncSizeMB    = "AWS_LAMBDA_FUNCTION_MEMORY_SIZE"
	keyFuncInit      = "AWS_LAMBDA_INITIALIZATION_TYPE"
	keyHandler       = "_HANDLER"
	keyLogGroup      = "AWS_LAMBDA_LOG_GROUP_NAME"
	keyLogStream     = "AWS_LAMBDA_LOG_STREAM_NAME"
	keyRuntimeAPI    = "AWS_LAMBDA_RUNTIME_API"
)

// Config is the immutable, process-wide configuration snapshot. All
// invocations observe the same instance.
type Config struct {
	Region        string
	AccessID      string
	AccessSecret  string
	SessionToken  string
	FuncName      string
	FuncVersion   string
	FuncSizeMB    int
	FuncInit      InitType
	FuncHandler   string
	LogGroup      string
	LogStream     string
	APIEndpoint   string
	Env           *envtable.Table
}

// Error wraps a config load failure with the fatalerror classification
// the loop uses to decide how to report it.
type Error struct {
	Kind    fatalerror.ErrorType
	Message string
}

func (e *Error) Error() string { return e.Message }

func initErrorf(format string, args ...interface{}) *Error {
	return &Error{Kind: fatalerror.InitFailure, Message: fmt.Sprintf(format, args...)}
}

// mandatory lists every env var whose absence is a fatal init error.
// Per §4.2, everything is mandatory except the two optional
// mobile-SDK fields, which are per-request (Lambda-Runtime-Client-Context
// / Lambda-Runtime-Cognito-Identity headers), not configuration, and so
// never appear here at all.
var mandatory = []string{
	keyRegion, keyAccessID, keyAccessSecret, keySessionToken,
	keyFuncName, keyFuncVersion, keyFuncSizeMB, keyHandler,
	keyLogGroup, keyLogStream, keyRuntimeAPI,
}

// reservedKeys is every env var classified into a named Config field,
// mandatory or not. env_table (§3) is defined as the remainder of the
// environment after these are removed — keyFuncInit is optional but
// still a named field (Config.FuncInit), so it must be stripped here
// too, not just from the mandatory check above.
var reservedKeys = append(append([]string{}, mandatory...), keyFuncInit)

// Load reads the process environment exactly once into a Config.
// Missing mandatory variables or a malformed AWS_LAMBDA_FUNCTION_MEMORY_SIZE
// are reported as a *Error with Kind InitFailure.
func Load() (*Config, error) {
	env := envtable.Capture()

	for _, key := range mandatory {
		if _, ok := env.Get(key); !ok {
			return nil, initErrorf("missing required environment variable %s", key)
		}
	}

	sizeStr, _ := env.Get(keyFuncSizeMB)
	sizeMB, err := strconv.Atoi(sizeStr)
	if err != nil || sizeMB < 0 {
		return nil, initErrorf("invalid %s: %q", keyFuncSizeMB, sizeStr)
	}

	region, _ := env.Get(keyRegion)
	accessID, _ := env.Get(keyAccessID)
	accessSecret, _ := env.Get(keyAccessSecret)
	sessionToken, _ := env.Get(keySessionToken)
	funcName, _ := env.Get(keyFuncName)
	funcVersion, _ := env.Get(keyFuncVersion)
	handler, _ := env.Get(keyHandler)
	logGroup, _ := env.Get(keyLogGroup)
	logStream, _ := env.Get(keyLogStream)
	apiEndpoint, _ := env.Get(keyRuntimeAPI)
	initTypeRaw, _ := env.Get(keyFuncInit)

	cfg := &Config{
		Region:       region,
		AccessID:     accessID,
		AccessSecret: accessSecret,
		SessionToken: sessionToken,
		FuncName:     funcName,
		FuncVersion:  funcVersion,
		FuncSizeMB:   sizeMB,
		FuncInit:     parseInitType(initTypeRaw),
		FuncHandler:  handler,
		LogGroup:     logGroup,
		LogStream:    logStream,
		APIEndpoint:  apiEndpoint,
		Env:          env.WithoutKeys(reservedKeys...),
	}

	return cfg, nil
}

func parseInitType(raw string) InitType {
	switch raw {
	case "on-demand":
		return OnDemand
	case "provisioned-concurrency":
		return ProvisionedConcurrency
	case "snap-start":
		return SnapStart
	case "":
		return OnDemand
	default:
		rtlog.Warnf("unrecognized %s value %q, defaulting to on-demand", keyFuncInit, raw)
		return OnDemand
	}
}
