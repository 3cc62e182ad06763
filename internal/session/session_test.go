package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/emmett/hark/internal/stt"
)

// fakeRecognizer delegates to a feed function so each test can script the
// recognizer's behavior.
type fakeRecognizer struct {
	feed   func(chunk []byte) (*stt.Result, error)
	closed bool
}

func (f *fakeRecognizer) Feed(_ context.Context, chunk []byte) (*stt.Result, error) {
	return f.feed(chunk)
}

func (f *fakeRecognizer) Close() error {
	f.closed = true
	return nil
}

// scriptedRecognizer replays a fixed sequence of results.
func scriptedRecognizer(results ...*stt.Result) *fakeRecognizer {
	i := 0
	return &fakeRecognizer{feed: func(_ []byte) (*stt.Result, error) {
		if i >= len(results) {
			return &stt.Result{}, nil
		}
		r := results[i]
		i++
		return r, nil
	}}
}

func mustUpdate(t *testing.T, s *Session, frame []byte) {
	t.Helper()
	evt, err := s.Accept(context.Background(), frame)
	if err != nil {
		t.Fatalf("accept error: %v", err)
	}
	if evt != nil {
		t.Fatalf("expected silent update, got event %+v", evt)
	}
}

func mustFlush(t *testing.T, s *Session) *Event {
	t.Helper()
	evt, err := s.Accept(context.Background(), nil)
	if err != nil {
		t.Fatalf("flush error: %v", err)
	}
	if evt == nil {
		t.Fatalf("expected flush event, got nil")
	}
	return evt
}

func TestFlushPrefersSettledResult(t *testing.T) {
	s := New(scriptedRecognizer(
		&stt.Result{Text: "hello"},
		&stt.Result{Text: "hello world", Boundary: true},
	))

	mustUpdate(t, s, []byte("chunk1"))
	mustUpdate(t, s, []byte("chunk2"))

	evt := mustFlush(t, s)
	if evt.Text != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", evt.Text)
	}
}

func TestFlushFallsBackToPartial(t *testing.T) {
	s := New(scriptedRecognizer(&stt.Result{Text: "hel"}))

	mustUpdate(t, s, []byte("chunk1"))

	evt := mustFlush(t, s)
	if evt.Text != "hel" {
		t.Fatalf("expected %q, got %q", "hel", evt.Text)
	}
}

func TestFlushWithNoAudioSendsEmptyText(t *testing.T) {
	s := New(scriptedRecognizer())

	evt := mustFlush(t, s)
	if evt.Text != "" {
		t.Fatalf("expected empty text, got %q", evt.Text)
	}
}

func TestFlushResetsTracking(t *testing.T) {
	s := New(scriptedRecognizer(
		&stt.Result{Text: "one two", Boundary: true},
	))

	mustUpdate(t, s, []byte("chunk"))

	first := mustFlush(t, s)
	if first.Text != "one two" {
		t.Fatalf("expected %q, got %q", "one two", first.Text)
	}

	// No audio between flushes: the second flush must not see stale state.
	second := mustFlush(t, s)
	if second.Text != "" {
		t.Fatalf("expected empty text after reset, got %q", second.Text)
	}
}

func TestEmptyRecognizerTextIsIgnored(t *testing.T) {
	s := New(scriptedRecognizer(
		&stt.Result{Text: "so far"},
		&stt.Result{Text: "", Boundary: true}, // silence at a boundary
		&stt.Result{Text: ""},                 // silence mid-utterance
	))

	mustUpdate(t, s, []byte("a"))
	mustUpdate(t, s, []byte("b"))
	mustUpdate(t, s, []byte("c"))

	if s.lastPartial != "so far" {
		t.Fatalf("expected partial %q preserved, got %q", "so far", s.lastPartial)
	}
	if s.lastFinal != "" {
		t.Fatalf("expected no settled result, got %q", s.lastFinal)
	}
}

func TestRecognizerErrorLeavesStateUnchanged(t *testing.T) {
	decodeErr := errors.New("decode failure")
	calls := 0
	rec := &fakeRecognizer{feed: func(_ []byte) (*stt.Result, error) {
		calls++
		switch calls {
		case 1:
			return &stt.Result{Text: "hello"}, nil
		case 2:
			return nil, decodeErr
		default:
			return &stt.Result{Text: "hello world", Boundary: true}, nil
		}
	}}
	s := New(rec)

	mustUpdate(t, s, []byte("good"))

	if _, err := s.Accept(context.Background(), []byte("bad")); !errors.Is(err, decodeErr) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if s.lastPartial != "hello" || s.lastFinal != "" {
		t.Fatalf("state changed by failed frame: partial=%q final=%q", s.lastPartial, s.lastFinal)
	}

	// The session must stay usable after the failure.
	mustUpdate(t, s, []byte("good again"))

	evt := mustFlush(t, s)
	if evt.Text != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", evt.Text)
	}
}

// cumulativeRecognizer reports text derived from everything fed so far, so
// its output depends on arrival order.
func cumulativeRecognizer() *fakeRecognizer {
	var seen []byte
	return &fakeRecognizer{feed: func(chunk []byte) (*stt.Result, error) {
		seen = append(seen, chunk...)
		return &stt.Result{Text: fmt.Sprintf("%x", seen)}, nil
	}}
}

func TestFrameOrderAffectsResult(t *testing.T) {
	a, b := []byte{0x01, 0x02}, []byte{0x03, 0x04}

	run := func(frames ...[]byte) string {
		s := New(cumulativeRecognizer())
		for _, f := range frames {
			mustUpdate(t, s, f)
		}
		return mustFlush(t, s).Text
	}

	ab := run(a, b)
	ba := run(b, a)
	if ab == ba {
		t.Fatalf("expected order-dependent results, both produced %q", ab)
	}
}

func TestSessionsDoNotShareState(t *testing.T) {
	makeSession := func(label string) *Session {
		n := 0
		return New(&fakeRecognizer{feed: func(_ []byte) (*stt.Result, error) {
			n++
			return &stt.Result{Text: fmt.Sprintf("%s %d", label, n), Boundary: true}, nil
		}})
	}

	s1 := makeSession("first")
	s2 := makeSession("second")

	var wg sync.WaitGroup
	results := make([]string, 2)
	for i, s := range []*Session{s1, s2} {
		wg.Add(1)
		go func(i int, s *Session) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if _, err := s.Accept(context.Background(), []byte("audio")); err != nil {
					t.Errorf("accept error: %v", err)
					return
				}
			}
			evt, err := s.Accept(context.Background(), nil)
			if err != nil {
				t.Errorf("flush error: %v", err)
				return
			}
			results[i] = evt.Text
		}(i, s)
	}
	wg.Wait()

	if results[0] != "first 10" {
		t.Fatalf("expected %q, got %q", "first 10", results[0])
	}
	if results[1] != "second 10" {
		t.Fatalf("expected %q, got %q", "second 10", results[1])
	}
}

func TestCloseReleasesRecognizer(t *testing.T) {
	rec := scriptedRecognizer()
	s := New(rec)

	if err := s.Close(); err != nil {
		t.Fatalf("close error: %v", err)
	}
	if !rec.closed {
		t.Fatalf("expected recognizer to be closed")
	}
}
