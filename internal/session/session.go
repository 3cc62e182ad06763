package session

import (
	"context"

	"github.com/emmett/hark/internal/stt"
)

// Event is the single outbound message produced by an end-of-stream flush
type Event struct {
	Text string `json:"text"`
}

// Session tracks the running partial/final recognition state for exactly one
// connection. It owns its recognizer exclusively for the connection's
// lifetime; Accept must be called strictly sequentially, never concurrently.
type Session struct {
	rec stt.Recognizer

	// Most recent interim text not yet superseded by a settled result,
	// and most recent settled text since the last flush. Empty = unset.
	// The pair is cleared together only at an end-of-stream flush.
	lastPartial string
	lastFinal   string
}

// New creates a session owning the given recognizer
func New(rec stt.Recognizer) *Session {
	return &Session{rec: rec}
}

// Accept processes one inbound frame.
//
// A zero-length frame is the end-of-stream sentinel: the flush event text is
// resolved by priority (last settled result, else last interim result, else
// empty string), the tracked pair is cleared so a new utterance can begin on
// the same connection, and the event is returned.
//
// Any other frame is fed to the recognizer and updates the tracked state
// silently: a nil event with a nil error means the state was updated and
// nothing is owed to the peer. On recognizer failure the tracked state is
// left unchanged and the session remains usable for the next frame.
func (s *Session) Accept(ctx context.Context, frame []byte) (*Event, error) {
	if len(frame) == 0 {
		return s.flush(), nil
	}

	result, err := s.rec.Feed(ctx, frame)
	if err != nil {
		return nil, err
	}

	if result.Boundary {
		// A boundary with empty text means silence or noise; keep the
		// previous settled result.
		if result.Text != "" {
			s.lastFinal = result.Text
		}
	} else if result.Text != "" {
		s.lastPartial = result.Text
	}

	return nil, nil
}

func (s *Session) flush() *Event {
	text := s.lastFinal
	if text == "" {
		text = s.lastPartial
	}
	s.lastPartial = ""
	s.lastFinal = ""
	return &Event{Text: text}
}

// Close releases the recognizer. The session must not be used afterwards.
func (s *Session) Close() error {
	return s.rec.Close()
}
