package tryon

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// MockGenerator is a mock implementation of Generator that counts calls.
type MockGenerator struct {
	GenerateFunc  func(ctx context.Context, prompt string, config *GenerateConfig) (*GenerateResult, error)
	CompositeFunc func(ctx context.Context, model, clothing InputImage, instruction string, config *GenerateConfig) (*GenerateResult, error)
	AnalyzeFunc   func(ctx context.Context, image InputImage, config *GenerateConfig) (*ClothingAnalysis, error)
	ModelsFunc    func() []ModelInfo
	CloseFunc     func() error

	generateCalls  atomic.Int32
	compositeCalls atomic.Int32
	analyzeCalls   atomic.Int32
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string, config *GenerateConfig) (*GenerateResult, error) {
	m.generateCalls.Add(1)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, config)
	}
	return imageResult("model"), nil
}

func (m *MockGenerator) Composite(ctx context.Context, model, clothing InputImage, instruction string, config *GenerateConfig) (*GenerateResult, error) {
	m.compositeCalls.Add(1)
	if m.CompositeFunc != nil {
		return m.CompositeFunc(ctx, model, clothing, instruction, config)
	}
	return imageResult("composite"), nil
}

func (m *MockGenerator) Analyze(ctx context.Context, image InputImage, config *GenerateConfig) (*ClothingAnalysis, error) {
	m.analyzeCalls.Add(1)
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, image, config)
	}
	return &ClothingAnalysis{GarmentType: "t-shirt", Features: []string{"white"}, SuggestedGender: "unisex"}, nil
}

func (m *MockGenerator) Models() []ModelInfo {
	if m.ModelsFunc != nil {
		return m.ModelsFunc()
	}
	return testModels()
}

func (m *MockGenerator) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *MockGenerator) calls() int {
	return int(m.generateCalls.Load() + m.compositeCalls.Load() + m.analyzeCalls.Load())
}

func testModels() []ModelInfo {
	return []ModelInfo{
		{Name: "image-model", Provider: "test", Role: RoleImage},
		{Name: "analysis-model", Provider: "test", Role: RoleAnalysis},
	}
}

func imageResult(payload string) *GenerateResult {
	return &GenerateResult{
		Images: []GeneratedImage{{Data: []byte(payload), MIMEType: "image/png"}},
	}
}

func overloaded() error {
	return &StatusError{Code: 503, Status: "UNAVAILABLE", Message: "The model is overloaded.", Model: "image-model"}
}

// timerRecorder hands out timers that fire immediately and records every wait.
type timerRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *timerRecorder) NewTimer() backoff.Timer {
	return &instantTimer{rec: r, c: make(chan time.Time, 1)}
}

func (r *timerRecorder) Waits() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.waits...)
}

type instantTimer struct {
	rec *timerRecorder
	c   chan time.Time
}

func (t *instantTimer) Start(d time.Duration) {
	t.rec.mu.Lock()
	t.rec.waits = append(t.rec.waits, d)
	t.rec.mu.Unlock()
	t.c <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time {
	return t.c
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(gen *MockGenerator, rec *timerRecorder, opts ...ManagerOption) *Manager {
	policy := DefaultRetryPolicy()
	policy.NewTimer = rec.NewTimer

	opts = append([]ManagerOption{WithRetryPolicy(policy), WithLogger(discardLogger())}, opts...)
	return NewManager(gen, opts...)
}

func validRequest(angle ViewAngle) GenerationRequest {
	return GenerationRequest{
		Clothing:            InputImage{Data: []byte("clothing"), MIMEType: "image/jpeg"},
		Model:               InputImage{Data: []byte("model"), MIMEType: "image/png"},
		ClothingDescription: "red floral summer dress",
		ModelDescription:    "a tall female model in a neutral pose",
		Angle:               angle,
	}
}
