// Package session models conversation continuity between relay invocations.
//
// A session carries context from one model call to the next in one of two
// ways: a locally stored message history that rides along with every request,
// or a server-side previous-response pointer that lets the vendor reassemble
// the conversation on its end. Which one is used is a configuration choice.
package session

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

// Mode selects how conversation continuity is carried across calls.
type Mode string

const (
	// ModeOff disables continuity; every call is one-shot.
	ModeOff Mode = "off"
	// ModeHistory stores the transcript locally and resends it each call.
	ModeHistory Mode = "history"
	// ModeServer stores only the vendor's previous-response pointer.
	ModeServer Mode = "server"
)

// ParseMode validates a user-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeOff, ModeHistory, ModeServer:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid session mode %q: use off, history, or server", s)
}

// Role values for transcript messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in a history-mode transcript.
type Message struct {
	ID      string    `json:"id"`
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Session is the persisted continuity state. Exactly one of Messages or
// PreviousResponseID is populated, depending on Mode.
type Session struct {
	Mode               Mode      `json:"mode"`
	StartedAt          time.Time `json:"started_at"`
	Messages           []Message `json:"messages,omitempty"`
	PreviousResponseID string    `json:"previous_response_id,omitempty"`
}

// New returns a fresh session with no accumulated context.
func New(mode Mode, now time.Time) *Session {
	return &Session{Mode: mode, StartedAt: now}
}

// Turns reports the number of completed user/assistant exchanges.
func (s *Session) Turns() int {
	return len(s.Messages) / 2
}

// Append records a completed exchange. It is a no-op outside history mode so
// callers do not have to branch on the mode themselves.
func (s *Session) Append(user, assistant Message) {
	if s.Mode != ModeHistory {
		return
	}
	s.Messages = append(s.Messages, user, assistant)
}

// Advance updates the server-side pointer after a successful call. A no-op
// outside server mode.
func (s *Session) Advance(responseID string) {
	if s.Mode != ModeServer {
		return
	}
	s.PreviousResponseID = responseID
}

// Trim drops the oldest exchanges until at most maxTurns user/assistant pairs
// remain. Pairs are never split. maxTurns <= 0 leaves the transcript alone.
func (s *Session) Trim(maxTurns int) {
	if maxTurns <= 0 || s.Turns() <= maxTurns {
		return
	}
	pairs := lo.Chunk(s.Messages[:s.Turns()*2], 2)
	kept := pairs[len(pairs)-maxTurns:]
	s.Messages = lo.Flatten(kept)
}

// Context returns a defensive copy of the transcript, trimmed to maxTurns
// exchanges, suitable for inclusion in the next request.
func (s *Session) Context(maxTurns int) []Message {
	clone := &Session{Mode: s.Mode, Messages: append([]Message(nil), s.Messages...)}
	clone.Trim(maxTurns)
	return clone.Messages
}
