package sim

// RoleV1 is the author role of one conversation turn.
type RoleV1 string

const (
	RoleSystem    RoleV1 = "system"
	RoleUser      RoleV1 = "user"
	RoleAssistant RoleV1 = "assistant"
)

// TurnV1 is one role-tagged utterance in a conversation history.
// Values are immutable once appended.
type TurnV1 struct {
	Role    RoleV1 `json:"role"`
	Content string `json:"content"`
}

// SpeakerUser and SpeakerAssistant prefix transcript lines.
const (
	SpeakerUser      = "Nurse"
	SpeakerAssistant = "Sam Richards"
)
