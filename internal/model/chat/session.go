package chat

// MaxRecentMessages bounds the rolling window kept per conversation.
const MaxRecentMessages = 10

// SessionKey is the composite identifier of a conversation.
type SessionKey struct {
	UserID    string
	SessionID string
}

// Conversation captures the rolling window of recent messages for one user/session pair.
type Conversation struct {
	UserID         string    `json:"userId"`
	SessionID      string    `json:"sessionId"`
	RecentMessages []Message `json:"recentMessages"`
}

// Key returns the composite key the conversation is stored under.
func (c Conversation) Key() SessionKey {
	return SessionKey{UserID: c.UserID, SessionID: c.SessionID}
}

// LastMessage returns the most recent message, if any.
func (c Conversation) LastMessage() (Message, bool) {
	if len(c.RecentMessages) == 0 {
		return Message{}, false
	}
	return c.RecentMessages[len(c.RecentMessages)-1], true
}
