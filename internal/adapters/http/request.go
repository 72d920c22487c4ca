package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/bft-labs/jsonbatch/internal/ports"
)

// ErrAlreadyStarted is returned by Start on a request that was started before.
var ErrAlreadyStarted = errors.New("request already started")

// Response is a received HTTP response with its body read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Request is a POST that runs on its own goroutine once started.
//
// Handlers are attached before Start, so no outcome can be produced before
// its handler exists. When the exchange ends the completion handlers run
// first, then either the success handlers (a response was received, whatever
// its status) or the failure handlers (no usable response).
type Request struct {
	client  ports.HTTPClient
	req     *http.Request
	started atomic.Bool

	onComplete []func()
	onSuccess  []func(*Response)
	onFailure  []func(error)
}

// OnComplete registers fn to run when the exchange ends, before any other handler.
func (r *Request) OnComplete(fn func()) *Request {
	r.mustNotBeStarted()
	r.onComplete = append(r.onComplete, fn)
	return r
}

// OnSuccess registers fn to run when a response is received.
func (r *Request) OnSuccess(fn func(*Response)) *Request {
	r.mustNotBeStarted()
	r.onSuccess = append(r.onSuccess, fn)
	return r
}

// OnFailure registers fn to run when the request fails at transport level.
func (r *Request) OnFailure(fn func(error)) *Request {
	r.mustNotBeStarted()
	r.onFailure = append(r.onFailure, fn)
	return r
}

// Start launches the exchange in the background. It returns immediately.
func (r *Request) Start() error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	go r.execute()
	return nil
}

// URL returns the destination of the request.
func (r *Request) URL() string {
	return r.req.URL.String()
}

// Method returns the HTTP method of the request.
func (r *Request) Method() string {
	return r.req.Method
}

// Header returns the request headers.
func (r *Request) Header() http.Header {
	return r.req.Header
}

func (r *Request) mustNotBeStarted() {
	if r.started.Load() {
		panic("jsonbatch/http: handler registered after Start")
	}
}

func (r *Request) execute() {
	resp, err := r.roundTrip()

	for _, fn := range r.onComplete {
		fn()
	}

	if err != nil {
		for _, fn := range r.onFailure {
			fn(err)
		}
		return
	}
	for _, fn := range r.onSuccess {
		fn(resp)
	}
}

// roundTrip performs the exchange. A panicking client is reported as a
// transport failure so the completion handlers still run.
func (r *Request) roundTrip() (resp *Response, err error) {
	defer func() {
		if p := recover(); p != nil {
			resp, err = nil, fmt.Errorf("http client panic: %v", p)
		}
	}()

	res, err := r.client.Do(r.req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       body,
	}, nil
}
