package chat

import (
	"errors"
	"sync"
	"time"

	"github.com/zhouzirui/haven/backend/internal/model/chat"
)

// ErrSessionNotFound is returned when no conversation exists for a key.
var ErrSessionNotFound = errors.New("session not found")

// entry owns one conversation. Its mutex serializes appends against the
// reaper's staleness check; an evicted entry is never written again.
type entry struct {
	mu        sync.Mutex
	conv      chat.Conversation
	createdAt time.Time
	evicted   bool
}

// Store keeps conversation contexts in memory, keyed by user and session.
type Store struct {
	mu      sync.Mutex
	entries map[chat.SessionKey]*entry
	now     func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock creates an empty store that stamps new entries with now.
func NewStoreWithClock(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		entries: make(map[chat.SessionKey]*entry),
		now:     now,
	}
}

// GetOrCreate returns the conversation for the key, creating an empty one on first access.
func (s *Store) GetOrCreate(userID, sessionID string) chat.Conversation {
	e := s.lookup(chat.SessionKey{UserID: userID, SessionID: sessionID})

	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot(e.conv)
}

// Append pushes msg onto the conversation identified by conv, keeping only
// the most recent chat.MaxRecentMessages entries.
func (s *Store) Append(conv chat.Conversation, msg chat.Message) chat.Conversation {
	key := conv.Key()
	for {
		e := s.lookup(key)

		e.mu.Lock()
		if e.evicted {
			// Lost a race with the reaper; retry against a fresh entry.
			e.mu.Unlock()
			continue
		}

		messages := append(e.conv.RecentMessages, msg)
		if overflow := len(messages) - chat.MaxRecentMessages; overflow > 0 {
			trimmed := make([]chat.Message, chat.MaxRecentMessages)
			copy(trimmed, messages[overflow:])
			messages = trimmed
		}
		e.conv.RecentMessages = messages

		out := snapshot(e.conv)
		e.mu.Unlock()
		return out
	}
}

// Sweep evicts every conversation whose last activity is strictly older than
// now minus ttl and returns how many were removed. Entries created after the
// sweep starts are left alone.
func (s *Store) Sweep(now time.Time, ttl time.Duration) int {
	cutoff := now.Add(-ttl)

	s.mu.Lock()
	candidates := make(map[chat.SessionKey]*entry, len(s.entries))
	for key, e := range s.entries {
		candidates[key] = e
	}
	s.mu.Unlock()

	removed := 0
	for key, e := range candidates {
		e.mu.Lock()
		if e.evicted || !e.lastActivity().Before(cutoff) {
			e.mu.Unlock()
			continue
		}
		e.evicted = true

		s.mu.Lock()
		if current, ok := s.entries[key]; ok && current == e {
			delete(s.entries, key)
			removed++
		}
		s.mu.Unlock()
		e.mu.Unlock()
	}
	return removed
}

// Transcript returns a copy of the recent messages for a key.
func (s *Store) Transcript(userID, sessionID string) ([]chat.Message, error) {
	s.mu.Lock()
	e, ok := s.entries[chat.SessionKey{UserID: userID, SessionID: sessionID}]
	s.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return nil, ErrSessionNotFound
	}
	return snapshot(e.conv).RecentMessages, nil
}

// Len reports the number of live conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) lookup(key chat.SessionKey) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		return e
	}
	e := &entry{
		conv: chat.Conversation{
			UserID:         key.UserID,
			SessionID:      key.SessionID,
			RecentMessages: make([]chat.Message, 0, chat.MaxRecentMessages),
		},
		createdAt: s.now(),
	}
	s.entries[key] = e
	return e
}

// lastActivity is the last message time, or the creation time for an empty conversation.
func (e *entry) lastActivity() time.Time {
	if last, ok := e.conv.LastMessage(); ok {
		return last.Timestamp
	}
	return e.createdAt
}

func snapshot(conv chat.Conversation) chat.Conversation {
	copied := make([]chat.Message, len(conv.RecentMessages))
	copy(copied, conv.RecentMessages)
	conv.RecentMessages = copied
	return conv
}
