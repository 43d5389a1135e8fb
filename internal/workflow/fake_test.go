package workflow

import (
	"context"
	"sync"

	"github.com/inforens/nori/internal/gateway"
)

// fakeCompleter returns canned results and records every request.
type fakeCompleter struct {
	mu       sync.Mutex
	results  []gateway.Result
	requests []gateway.Request
}

func newFake(results ...gateway.Result) *fakeCompleter {
	return &fakeCompleter{results: results}
}

func reply(text string) gateway.Result {
	return gateway.Result{Text: text, StatusCode: 200}
}

func (f *fakeCompleter) Complete(_ context.Context, req gateway.Request) gateway.Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if len(f.results) == 0 {
		return gateway.Result{Failure: gateway.Unreachable, Detail: "no canned result"}
	}
	res := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return res
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeCompleter) last() gateway.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}
