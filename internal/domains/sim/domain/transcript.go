package domain

import (
	"regexp"
	"strings"
	"time"

	contractsim "github.com/megamake/roleplay/internal/contracts/v1/sim"
)

// TranscriptMIME is the content type of an exported transcript.
const TranscriptMIME = "text/plain"

// Transcript is the human-readable dialogue log, one "<Speaker>: <text>"
// line per utterance. Append-only.
type Transcript struct {
	lines []string
}

func (t *Transcript) AppendUser(text string) {
	t.lines = append(t.lines, contractsim.SpeakerUser+": "+text)
}

func (t *Transcript) AppendAssistant(text string) {
	t.lines = append(t.lines, contractsim.SpeakerAssistant+": "+text)
}

func (t *Transcript) Lines() []string {
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}

func (t *Transcript) Len() int { return len(t.lines) }

func (t *Transcript) Empty() bool { return len(t.lines) == 0 }

// Text joins every line with "\n", without a trailing newline.
func (t *Transcript) Text() string {
	return strings.Join(t.lines, "\n")
}

// ExportFilename returns the download name for a transcript rendered at ts:
//
//	transcript_YYYYMMDD-HHMMSS.txt
func ExportFilename(ts time.Time) string {
	return "transcript_" + ts.UTC().Format("20060102-150405") + ".txt"
}

var exportFilenameRE = regexp.MustCompile(`^transcript_\d{8}-\d{6}\.txt$`)

// IsValidExportFilename reports whether name was produced by ExportFilename.
// The download endpoint only echoes names that pass this check.
func IsValidExportFilename(name string) bool {
	return exportFilenameRE.MatchString(name)
}
