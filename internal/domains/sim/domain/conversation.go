package domain

import (
	"fmt"

	contractsim "github.com/megamake/roleplay/internal/contracts/v1/sim"
)

// History is the ordered conversation sent to the completion service.
//
// Invariants:
//   - turns[0] is the persona turn and is never replaced;
//   - a user turn follows the persona or an assistant turn;
//   - an assistant turn follows a user turn;
//   - turns are only ever appended.
//
// History is not safe for concurrent use; the owning session serializes access.
type History struct {
	turns []contractsim.TurnV1
}

// NewHistory returns a history holding only the persona turn.
func NewHistory(persona contractsim.TurnV1) *History {
	return &History{turns: []contractsim.TurnV1{persona}}
}

// AppendUser appends a user turn. Text is taken verbatim; an empty
// transcription is still a turn. It fails while a previous user turn is
// still waiting for its reply.
func (h *History) AppendUser(text string) error {
	if h.PendingReply() {
		return fmt.Errorf("previous user turn is still waiting for a reply")
	}
	h.turns = append(h.turns, contractsim.TurnV1{Role: contractsim.RoleUser, Content: text})
	return nil
}

// AppendAssistant appends the reply to the trailing user turn.
func (h *History) AppendAssistant(text string) error {
	if !h.PendingReply() {
		return fmt.Errorf("assistant turn must follow a user turn")
	}
	h.turns = append(h.turns, contractsim.TurnV1{Role: contractsim.RoleAssistant, Content: text})
	return nil
}

// PendingReply reports whether the last turn is a user turn with no reply.
func (h *History) PendingReply() bool {
	return h.turns[len(h.turns)-1].Role == contractsim.RoleUser
}

// LastUser returns the trailing user turn's text when a reply is pending.
func (h *History) LastUser() (string, bool) {
	if !h.PendingReply() {
		return "", false
	}
	return h.turns[len(h.turns)-1].Content, true
}

// Turns returns a copy of every turn, persona first.
func (h *History) Turns() []contractsim.TurnV1 {
	out := make([]contractsim.TurnV1, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int { return len(h.turns) }

// CompletedTurns counts user turns that have a reply.
func (h *History) CompletedTurns() int {
	n := 0
	for _, t := range h.turns {
		if t.Role == contractsim.RoleAssistant {
			n++
		}
	}
	return n
}

// Validate checks the ordering invariants. It exists for tests and for
// assertions at session boundaries; the append methods already enforce them.
func Validate(turns []contractsim.TurnV1) error {
	if len(turns) == 0 {
		return fmt.Errorf("history is empty")
	}
	if turns[0].Role != contractsim.RoleSystem {
		return fmt.Errorf("turn 0 has role %q, want system", turns[0].Role)
	}
	for i := 1; i < len(turns); i++ {
		prev := turns[i-1].Role
		switch turns[i].Role {
		case contractsim.RoleUser:
			if prev != contractsim.RoleSystem && prev != contractsim.RoleAssistant {
				return fmt.Errorf("turn %d: user turn follows %s", i, prev)
			}
		case contractsim.RoleAssistant:
			if prev != contractsim.RoleUser {
				return fmt.Errorf("turn %d: assistant turn follows %s", i, prev)
			}
		default:
			return fmt.Errorf("turn %d: unexpected role %q", i, turns[i].Role)
		}
	}
	return nil
}
