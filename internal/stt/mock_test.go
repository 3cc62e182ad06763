package stt

import (
	"context"
	"testing"
)

func newMockRecognizer(t *testing.T, sampleRate int) Recognizer {
	t.Helper()
	engine := NewMockEngine()
	if err := engine.Initialize(Config{SampleRate: sampleRate}); err != nil {
		t.Fatalf("initialize error: %v", err)
	}
	rec, err := engine.NewRecognizer()
	if err != nil {
		t.Fatalf("new recognizer error: %v", err)
	}
	return rec
}

func TestMockRecognizerSegmentsBySampleCount(t *testing.T) {
	// 4 samples per segment = 8 bytes of 16-bit audio
	rec := newMockRecognizer(t, 4)

	result, err := rec.Feed(context.Background(), make([]byte, 4))
	if err != nil {
		t.Fatalf("feed error: %v", err)
	}
	if result.Boundary {
		t.Fatalf("expected interim result below the segment size")
	}
	if result.Text != "mock segment 1" {
		t.Fatalf("expected %q, got %q", "mock segment 1", result.Text)
	}

	result, err = rec.Feed(context.Background(), make([]byte, 4))
	if err != nil {
		t.Fatalf("feed error: %v", err)
	}
	if !result.Boundary {
		t.Fatalf("expected boundary at the segment edge")
	}
	if result.Text != "mock segment 1" {
		t.Fatalf("expected %q, got %q", "mock segment 1", result.Text)
	}

	result, err = rec.Feed(context.Background(), make([]byte, 8))
	if err != nil {
		t.Fatalf("feed error: %v", err)
	}
	if !result.Boundary || result.Text != "mock segment 2" {
		t.Fatalf("expected second segment boundary, got %+v", result)
	}
}

func TestMockRecognizersAreIndependent(t *testing.T) {
	engine := NewMockEngine()
	if err := engine.Initialize(Config{SampleRate: 4}); err != nil {
		t.Fatalf("initialize error: %v", err)
	}

	rec1, err := engine.NewRecognizer()
	if err != nil {
		t.Fatalf("new recognizer error: %v", err)
	}
	rec2, err := engine.NewRecognizer()
	if err != nil {
		t.Fatalf("new recognizer error: %v", err)
	}

	if _, err := rec1.Feed(context.Background(), make([]byte, 8)); err != nil {
		t.Fatalf("feed error: %v", err)
	}

	result, err := rec2.Feed(context.Background(), make([]byte, 4))
	if err != nil {
		t.Fatalf("feed error: %v", err)
	}
	if result.Boundary {
		t.Fatalf("recognizers leaked sample counts")
	}
}

func TestMockRecognizerClosedFeedFails(t *testing.T) {
	rec := newMockRecognizer(t, 4)
	if err := rec.Close(); err != nil {
		t.Fatalf("close error: %v", err)
	}
	if _, err := rec.Feed(context.Background(), make([]byte, 4)); err == nil {
		t.Fatalf("expected error feeding a closed recognizer")
	}
}

func TestMockEngineRequiresInitialize(t *testing.T) {
	engine := NewMockEngine()
	if _, err := engine.NewRecognizer(); err == nil {
		t.Fatalf("expected error before initialize")
	}
	if err := engine.Initialize(Config{SampleRate: 0}); err == nil {
		t.Fatalf("expected error for invalid sample rate")
	}
}
