// SPDX-License-Identifier: Apache-2.0

// Package main implements the local Runtime API stand-in described in
// §4.8: a go-chi/chi router mounting the same routes the real
// platform serves, grounded directly on lambda/rapi/router.go, with
// go-chi/render used for its small JSON acknowledgements exactly the
// way lambda/rapi/handler/runtimelogs_stub.go renders its own.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

const (
	pathNext             = "/2018-06-01/runtime/invocation/next"
	pathResponsePattern  = "/2018-06-01/runtime/invocation/{requestID}/response"
	pathInvokeErrPattern = "/2018-06-01/runtime/invocation/{requestID}/error"
	pathInitError        = "/2018-06-01/runtime/init/error"

	hdrRequestID    = "Lambda-Runtime-Aws-Request-Id"
	hdrDeadlineMs   = "Lambda-Runtime-Deadline-Ms"
	hdrFuncErrType  = "Lambda-Runtime-Function-Error-Type"
	hdrFuncErrBody  = "Lambda-Runtime-Function-Error-Body"
	hdrResponseMode = "Lambda-Runtime-Function-Response-Mode"
)

// invocationTimeout is the fixed deadline the harness advertises for
// every queued event; real deployments get theirs from the platform.
const invocationTimeout = 30 * time.Second

type statusResponse struct {
	Status string `json:"status"`
}

type errorPayload struct {
	ErrorType    string `json:"errorType"`
	ErrorMessage string `json:"errorMessage"`
}

// server renders invocation and report traffic to out, the same
// narrow responsibility lambda/rapi's EventRenderingService has, just
// pointed at a terminal instead of a real sandboxed runtime.
type server struct {
	queue *eventQueue
	out   io.Writer

	mu      sync.Mutex
	emitted int
}

func newServer(queue *eventQueue, out io.Writer) *server {
	return &server{queue: queue, out: out}
}

func (s *server) router() http.Handler {
	r := chi.NewRouter()
	r.Get(pathNext, s.handleNext)
	r.Post(pathResponsePattern, s.handleResponse)
	r.Post(pathInvokeErrPattern, s.handleInvokeError)
	r.Post(pathInitError, s.handleInitError)
	return r
}

func (s *server) handleNext(w http.ResponseWriter, r *http.Request) {
	event, ok := s.queue.next()
	if !ok {
		http.Error(w, "no more queued events", http.StatusGone)
		return
	}

	id := uuid.New().String()
	deadline := time.Now().Add(invocationTimeout).UnixMilli()

	w.Header().Set(hdrRequestID, id)
	w.Header().Set(hdrDeadlineMs, strconv.FormatInt(deadline, 10))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(event)

	s.logf("[%s] dispatched event: %s", id, event)
}

func (s *server) handleResponse(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if r.Header.Get(hdrResponseMode) == "streaming" {
		s.logf("[%s] streamed response (%d bytes): %s", requestID, len(body), body)
		if errType := r.Trailer.Get(hdrFuncErrType); errType != "" {
			s.logf("[%s] stream error trailer: %s: %s", requestID, errType, r.Trailer.Get(hdrFuncErrBody))
		}
	} else {
		s.logf("[%s] response (%d bytes): %s", requestID, len(body), body)
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, statusResponse{Status: "OK"})
}

func (s *server) handleInvokeError(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")
	s.logReportedError(requestID, r)

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, statusResponse{Status: "OK"})
}

func (s *server) handleInitError(w http.ResponseWriter, r *http.Request) {
	s.logReportedError("init", r)

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, statusResponse{Status: "OK"})
}

func (s *server) logReportedError(label string, r *http.Request) {
	var payload errorPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.logf("[%s] error report (unparseable body): %v", label, err)
		return
	}
	s.logf("[%s] error: %s: %s", label, payload.ErrorType, payload.ErrorMessage)
}

func (s *server) logf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitted++
	fmt.Fprintf(s.out, format+"\n", args...)
}
