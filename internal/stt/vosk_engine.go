package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"
)

// VoskEngine implements the Engine interface using Vosk. The loaded model is
// shared read-only by every recognizer the engine creates.
type VoskEngine struct {
	model       *vosk.VoskModel
	config      Config
	mu          sync.Mutex
	initialized bool
}

// VoskResult represents the JSON result from Vosk
type VoskResult struct {
	Text   string `json:"text"`
	Result []struct {
		Conf  float64 `json:"conf"`
		End   float64 `json:"end"`
		Start float64 `json:"start"`
		Word  string  `json:"word"`
	} `json:"result,omitempty"`
	Partial string `json:"partial,omitempty"`
}

// NewVoskEngine creates a new Vosk STT engine
func NewVoskEngine() *VoskEngine {
	return &VoskEngine{}
}

// Initialize loads the Vosk model into memory. Must complete before any
// recognizer is created.
func (v *VoskEngine) Initialize(config Config) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.initialized {
		return fmt.Errorf("engine already initialized")
	}

	// Set log level (0 = errors only, higher = more verbose)
	vosk.SetLogLevel(-1) // Suppress logs

	// Load the model
	model, err := vosk.NewModel(config.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to load model from %s: %w", config.ModelPath, err)
	}
	if model == nil {
		return fmt.Errorf("failed to load model from %s: model returned nil", config.ModelPath)
	}
	v.model = model

	v.config = config
	v.initialized = true

	return nil
}

// NewRecognizer creates a recognizer bound to the shared model. Each stream
// gets its own recognizer; the decode state inside is never shared.
func (v *VoskEngine) NewRecognizer() (Recognizer, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return nil, fmt.Errorf("engine not initialized")
	}

	recognizer, err := vosk.NewRecognizer(v.model, float64(v.config.SampleRate))
	if err != nil {
		return nil, fmt.Errorf("failed to create recognizer: %w", err)
	}

	if v.config.MaxAlternatives > 0 {
		recognizer.SetMaxAlternatives(v.config.MaxAlternatives)
	}
	// Always enable word results to get confidence scores
	recognizer.SetWords(1)

	return &voskRecognizer{rec: recognizer}, nil
}

// Close releases the model
func (v *VoskEngine) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return nil
	}

	if v.model != nil {
		v.model.Free()
		v.model = nil
	}

	v.initialized = false
	return nil
}

// IsInitialized returns true if the engine is initialized
func (v *VoskEngine) IsInitialized() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.initialized
}

// voskRecognizer wraps one Vosk recognizer instance. Feed is serialized with
// a mutex; the decoder is not reentrant.
type voskRecognizer struct {
	rec *vosk.VoskRecognizer
	mu  sync.Mutex
}

// Feed processes one audio chunk and returns the recognition result
func (r *voskRecognizer) Feed(ctx context.Context, chunk []byte) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rec == nil {
		return nil, fmt.Errorf("recognizer closed")
	}

	// Check context cancellation
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	state := r.rec.AcceptWaveform(chunk)

	var result Result

	if state > 0 {
		// Utterance boundary reached, settled text available
		resultJSON := r.rec.Result()
		var voskResult VoskResult
		if err := json.Unmarshal([]byte(resultJSON), &voskResult); err != nil {
			return nil, fmt.Errorf("failed to parse result: %w", err)
		}

		result.Text = voskResult.Text
		result.Boundary = true
		result.Confidence = calculateAverageConfidence(voskResult)
	} else {
		// Interim result
		partialJSON := r.rec.PartialResult()
		var voskResult VoskResult
		if err := json.Unmarshal([]byte(partialJSON), &voskResult); err != nil {
			return nil, fmt.Errorf("failed to parse partial result: %w", err)
		}

		result.Text = voskResult.Partial
		result.Boundary = false
		result.Confidence = 0.0
	}

	return &result, nil
}

// Close frees the recognizer
func (r *voskRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rec != nil {
		r.rec.Free()
		r.rec = nil
	}
	return nil
}

// calculateAverageConfidence calculates the average confidence from word results
func calculateAverageConfidence(result VoskResult) float64 {
	if len(result.Result) == 0 {
		return 0.0
	}

	var sum float64
	for _, word := range result.Result {
		sum += word.Conf
	}

	return sum / float64(len(result.Result))
}
