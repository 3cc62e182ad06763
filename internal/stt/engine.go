package stt

import "context"

// Result represents the outcome of feeding one audio chunk to a recognizer
type Result struct {
	// Text is the recognized text: settled text when Boundary is true,
	// interim text otherwise. May be empty (silence, noise).
	Text string

	// Boundary indicates the recognizer settled on a complete utterance
	// with this chunk
	Boundary bool

	// Confidence is the average word confidence for a settled utterance
	// (0.0 for interim results)
	Confidence float64
}

// Config holds configuration for the STT engine
type Config struct {
	// ModelPath is the path to the STT model directory
	ModelPath string

	// SampleRate is the audio sample rate in Hz
	SampleRate int

	// MaxAlternatives is the maximum number of alternative results to return
	MaxAlternatives int
}

// Recognizer is a stateful incremental decoder for one audio stream.
// Feed must be called strictly sequentially; a Recognizer must never be
// shared between connections.
type Recognizer interface {
	// Feed consumes one chunk of 16-bit mono PCM audio and reports whether
	// an utterance boundary was reached and the associated text
	Feed(ctx context.Context, chunk []byte) (*Result, error)

	// Close releases the recognizer's decode state
	Close() error
}

// Engine is the interface for speech-to-text engines. An Engine owns the
// loaded model (shared, read-only) and mints one Recognizer per stream.
type Engine interface {
	// Initialize loads the model with the given configuration
	Initialize(config Config) error

	// NewRecognizer creates an independent recognizer carrying its own
	// mutable decode state
	NewRecognizer() (Recognizer, error)

	// Close releases the model and all engine resources
	Close() error

	// IsInitialized returns true if the engine is initialized
	IsInitialized() bool
}

// DefaultConfig returns a default STT configuration
func DefaultConfig(modelPath string) Config {
	return Config{
		ModelPath:       modelPath,
		SampleRate:      16000,
		MaxAlternatives: 0,
	}
}
