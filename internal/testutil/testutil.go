// Package testutil provides an in process stand in for the GraphQL engine
// HTTP API together with helpers to build clients against it.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/Pallinder/go-randomdata"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/require"

	"github.com/hasura/graphql-engine/console/internal/httpc"
)

// Request is a request body received by the fake engine.
type Request struct {
	Path string
	Type string
	Args json.RawMessage
	Raw  json.RawMessage
}

// Responder answers one request type. It returns the status code and a
// value to be JSON encoded as the body.
type Responder func(r Request) (int, interface{})

// FakeEngine records every request and answers from per type responders.
// Unknown types get {"message":"success"}.
type FakeEngine struct {
	Server *httptest.Server

	mu         sync.Mutex
	requests   []Request
	responders map[string]Responder
}

func NewFakeEngine(t *testing.T) *FakeEngine {
	t.Helper()
	f := &FakeEngine{responders: map[string]Responder{}}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// On registers the answer for requests of the given type.
func (f *FakeEngine) On(requestType string, responder Responder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responders[requestType] = responder
}

// Reply is a Responder returning a fixed status and body.
func Reply(status int, body interface{}) Responder {
	return func(Request) (int, interface{}) { return status, body }
}

func (f *FakeEngine) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// RequestsOfType filters Requests by envelope type.
func (f *FakeEngine) RequestsOfType(requestType string) []Request {
	var out []Request
	for _, r := range f.Requests() {
		if r.Type == requestType {
			out = append(out, r)
		}
	}
	return out
}

func (f *FakeEngine) serve(w http.ResponseWriter, req *http.Request) {
	raw, _ := io.ReadAll(req.Body)
	var envelope struct {
		Type string          `json:"type"`
		Args json.RawMessage `json:"args"`
	}
	_ = json.Unmarshal(raw, &envelope)
	if req.Method == http.MethodGet {
		envelope.Type = "GET " + req.URL.Path
	}
	r := Request{Path: req.URL.Path, Type: envelope.Type, Args: envelope.Args, Raw: raw}

	f.mu.Lock()
	f.requests = append(f.requests, r)
	responder, ok := f.responders[envelope.Type]
	f.mu.Unlock()

	status, body := http.StatusOK, interface{}(map[string]string{"message": "success"})
	if ok {
		status, body = responder(r)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// NewHttpcClient returns a client pointed at the fake engine.
func (f *FakeEngine) NewHttpcClient(t *testing.T, headers map[string]string) *httpc.Client {
	t.Helper()
	c, err := httpc.New(nil, f.Server.URL+"/", headers)
	require.NoError(t, err)
	return c
}

// UniqueName builds a name that will not collide across test runs.
func UniqueName(t *testing.T) string {
	u, err := uuid.NewV4()
	require.NoError(t, err)
	return randomdata.SillyName() + "_" + u.String()[:8]
}

// APIError is the body the engine sends on failures.
func APIError(code, message string) map[string]string {
	return map[string]string{"code": code, "error": message, "path": "$"}
}
