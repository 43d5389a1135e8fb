package api

import (
	"context"
	"sync"
	"testing"

	"github.com/inforens/nori/internal/prompt"
	"github.com/inforens/nori/internal/storage"
	"github.com/inforens/nori/internal/workflow"
)

type fakeAsker struct {
	mu       sync.Mutex
	answer   workflow.StructuredAnswer
	err      error
	sessions []string
}

func (f *fakeAsker) Ask(_ context.Context, sessionID, question string) (workflow.StructuredAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, sessionID)
	if f.err != nil {
		return workflow.StructuredAnswer{}, f.err
	}
	if question == "" {
		return workflow.StructuredAnswer{}, workflow.ErrEmptyQuestion
	}
	return f.answer, nil
}

type fakeScholarships struct {
	res workflow.ScholarshipResult
	err error
	got prompt.ScholarshipProfile
}

func (f *fakeScholarships) Find(_ context.Context, sp prompt.ScholarshipProfile) (workflow.ScholarshipResult, error) {
	f.got = sp
	return f.res, f.err
}

type fakeSOP struct {
	res workflow.SOPResult
	err error
	got prompt.SOPDetails
}

func (f *fakeSOP) Generate(_ context.Context, d prompt.SOPDetails) (workflow.SOPResult, error) {
	f.got = d
	return f.res, f.err
}

type fakeCV struct {
	cv         *workflow.CV
	err        error
	parsedText string
}

func (f *fakeCV) Generate(_ context.Context, in workflow.CVInput) (*workflow.CV, error) {
	return f.cv, f.err
}

func (f *fakeCV) Parse(_ context.Context, text string) (*workflow.CV, error) {
	f.parsedText = text
	return f.cv, f.err
}

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
