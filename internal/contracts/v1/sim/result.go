package sim

// AudioSourceV1 names how a turn's audio entered the system.
type AudioSourceV1 string

const (
	AudioSourceStream AudioSourceV1 = "stream"
	AudioSourceUpload AudioSourceV1 = "upload"
)

// AudioPayloadV1 is a decodable audio payload for one user turn.
// Stream captures are WAV-packaged before they get here; uploads are
// forwarded untouched.
type AudioPayloadV1 struct {
	Source      AudioSourceV1 `json:"source"`
	Filename    string        `json:"filename"`
	ContentType string        `json:"content_type,omitempty"`
	Data        []byte        `json:"-"`
}

// TurnResultV1 is what presentation needs after one turn.
//
// When synthesis fails the text fields are still set and Audio is empty;
// the caller also receives the synthesis error.
type TurnResultV1 struct {
	Turn          int      `json:"turn"`
	UserText      string   `json:"user_text"`
	AssistantText string   `json:"assistant_text"`
	Audio         []byte   `json:"audio,omitempty"`
	AudioMIME     string   `json:"audio_mime,omitempty"`
	TranscriptN   int      `json:"transcript_n"`
	Warnings      []string `json:"warnings,omitempty"`
}

// SessionViewV1 is the rendered state of one session.
type SessionViewV1 struct {
	SessionID string   `json:"session_id"`
	CreatedTS string   `json:"created_ts"`
	Turns     []TurnV1 `json:"turns"`

	Transcript []string `json:"transcript"`

	// PendingReply is true when the last user turn has no reply yet.
	PendingReply bool `json:"pending_reply"`

	// ExportFilename is captured when the view is rendered; empty when
	// there is nothing to export.
	ExportFilename string `json:"export_filename,omitempty"`
}

// TranscriptExportV1 is the one-shot plain-text download.
type TranscriptExportV1 struct {
	Filename string `json:"filename"`
	MIME     string `json:"mime"`
	Content  string `json:"content"`
}
