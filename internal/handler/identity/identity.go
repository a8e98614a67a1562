package identity

import (
	"strings"

	"github.com/google/uuid"
)

// Resolver fills in the user and session identifiers a client omitted.
type Resolver struct {
	DefaultUserID string
}

// Resolve returns trimmed identifiers, defaulting the user and minting a session id when blank.
func (r Resolver) Resolve(userID, sessionID string) (string, string) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = r.DefaultUserID
	}
	if userID == "" {
		userID = "anonymous"
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return userID, sessionID
}
