// internal/domain/session.go
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionState is the controller-level state of one consultation.
type SessionState string

const (
	StateAwaitingProfile SessionState = "awaiting_profile"
	StateConsulting      SessionState = "consulting"
	StateFinalizing      SessionState = "finalizing"
	StatePlanReady       SessionState = "plan_ready"
)

// FinalizeThreshold is the minimum transcript length (user and assistant
// messages combined) before a consultation may be finalized.
const FinalizeThreshold = 5

const (
	contextUserPrefix      = "User: "
	contextAssistantPrefix = "AI: "
)

var ErrProfileMissing = errors.New("profile is missing")

// Session is one in-flight consultation. Messages holds only user and
// assistant turns; the coach's system instruction lives with the controller.
// The context summary is never stored, Context derives it from Preamble and
// Messages on every call.
type Session struct {
	UserID    primitive.ObjectID `json:"userId"`
	State     SessionState       `json:"state"`
	Profile   Profile            `json:"profile"`
	Preamble  string             `json:"preamble"`
	Messages  []Message          `json:"messages"`
	StartedAt time.Time          `json:"startedAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// PrimingMessage is the opening prompt built from a profile.
func PrimingMessage(p *Profile) string {
	return fmt.Sprintf("Hi %s, I see your goal is to %s. Let's quickly go over your preferences to create your workout plan.", p.FullName, p.Goal)
}

// StartSession creates a session for profile with an empty transcript.
// The caller is expected to run the opening exchange with the oracle.
func StartSession(profile *Profile) (*Session, error) {
	if profile == nil {
		return nil, ErrProfileMissing
	}
	now := time.Now().UTC()
	return &Session{
		UserID:    profile.UserID,
		State:     StateConsulting,
		Profile:   *profile,
		Preamble:  PrimingMessage(profile),
		Messages:  []Message{},
		StartedAt: now,
		UpdatedAt: now,
	}, nil
}

// AppendUser adds a user turn. Blank text is ignored and false is returned.
func (s *Session) AppendUser(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	s.append(UserMessage(text))
	return true
}

// AppendAssistant adds an assistant turn.
func (s *Session) AppendAssistant(text string) {
	s.append(AssistantMessage(text))
}

func (s *Session) append(m Message) {
	s.Messages = append(s.Messages, m)
	s.UpdatedAt = time.Now().UTC()
}

// Snapshot returns a copy of the transcript.
func (s *Session) Snapshot() []Message {
	out := make([]Message, len(s.Messages))
	copy(out, s.Messages)
	return out
}

// Context is the textual summary sent to the oracle.
func (s *Session) Context() string {
	return ProjectContext(s.Preamble, s.Messages)
}

// CanFinalize reports whether the readiness gate is open.
func (s *Session) CanFinalize() bool {
	return len(s.Messages) >= FinalizeThreshold
}

// ProjectContext renders preamble followed by one "\nUser: " or "\nAI: " line
// per message. System messages are skipped.
func ProjectContext(preamble string, messages []Message) string {
	var b strings.Builder
	b.WriteString(preamble)
	for _, m := range messages {
		switch m.Role {
		case MessageRoleUser:
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(contextUserPrefix)
		case MessageRoleAssistant:
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(contextAssistantPrefix)
		default:
			continue
		}
		b.WriteString(m.Content)
	}
	return b.String()
}
