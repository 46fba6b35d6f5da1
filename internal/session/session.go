// Package session keeps named conversation transcripts across requests,
// cached in memory and persisted as JSONL files.
package session

import (
	"sync"
	"time"

	"github.com/toolbridge/toolbridge/internal/schema"
)

// Session is one named conversation. The transcript only grows; Replace
// installs the longer transcript a completed run produced.
type Session struct {
	Key       string
	CreatedAt time.Time
	UpdatedAt time.Time

	mu       sync.Mutex
	messages []schema.Message
}

func newSession(key string, now time.Time) *Session {
	return &Session{Key: key, CreatedAt: now, UpdatedAt: now}
}

// Snapshot returns a copy of the transcript safe to hand to a run.
func (s *Session) Snapshot() []schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return schema.CloneTranscript(s.messages)
}

// Replace installs the transcript produced by a completed run.
func (s *Session) Replace(msgs []schema.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = schema.CloneTranscript(msgs)
	s.UpdatedAt = time.Now()
}

// Len returns the current transcript length.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
