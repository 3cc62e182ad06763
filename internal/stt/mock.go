package stt

import (
	"context"
	"fmt"
	"sync"
)

// MockEngine is a model-free engine for local development and testing. Each
// recognizer segments the incoming audio into one-second windows and reports
// an utterance boundary at every window edge, so the full pipeline can be
// exercised without a Vosk model on disk.
type MockEngine struct {
	config      Config
	mu          sync.Mutex
	initialized bool
}

// NewMockEngine creates a new mock STT engine
func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

// Initialize records the configuration; no model is loaded
func (m *MockEngine) Initialize(config Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return fmt.Errorf("engine already initialized")
	}
	if config.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", config.SampleRate)
	}

	m.config = config
	m.initialized = true
	return nil
}

// NewRecognizer creates an independent mock recognizer
func (m *MockEngine) NewRecognizer() (Recognizer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, fmt.Errorf("engine not initialized")
	}

	return &mockRecognizer{samplesPerSegment: m.config.SampleRate}, nil
}

// Close releases the engine
func (m *MockEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = false
	return nil
}

// IsInitialized returns true if the engine is initialized
func (m *MockEngine) IsInitialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

type mockRecognizer struct {
	mu                sync.Mutex
	closed            bool
	samplesPerSegment int
	sampleCount       int
	segment           int
}

func (r *mockRecognizer) Feed(ctx context.Context, chunk []byte) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("recognizer closed")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	// 16-bit samples, two bytes each
	r.sampleCount += len(chunk) / 2
	if r.sampleCount >= r.samplesPerSegment {
		r.sampleCount -= r.samplesPerSegment
		r.segment++
		return &Result{
			Text:       fmt.Sprintf("mock segment %d", r.segment),
			Boundary:   true,
			Confidence: 1.0,
		}, nil
	}

	return &Result{
		Text:     fmt.Sprintf("mock segment %d", r.segment+1),
		Boundary: false,
	}, nil
}

func (r *mockRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
