package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	contractsim "github.com/megamake/roleplay/internal/contracts/v1/sim"
	"github.com/megamake/roleplay/internal/platform/errors"
)

// LatestTranscript is the pointer file naming the most recent export.
const LatestTranscript = "transcript_latest.txt"

// Writer stores session outputs (reply audio, exported transcripts) in Dir.
type Writer struct {
	Dir string
}

// WriteTranscript writes:
// 1) the export under its own filename (transcript_YYYYMMDD-HHMMSS.txt)
// 2) transcript_latest.txt, a pointer file containing that filename (one line)
//
// NOTE: pointer files instead of symlinks for cross-platform reliability.
func (w Writer) WriteTranscript(exp contractsim.TranscriptExportV1) (transcriptPath string, latestPointerPath string, err error) {
	name := strings.TrimSpace(exp.Filename)
	if name == "" || name != filepath.Base(name) {
		return "", "", errors.NewInternal("invalid transcript filename: "+exp.Filename, nil)
	}
	if err := w.ensureDir(); err != nil {
		return "", "", err
	}

	fullPath := filepath.Join(w.Dir, name)
	if err := os.WriteFile(fullPath, []byte(exp.Content), 0o644); err != nil {
		return "", "", errors.New(errors.KindIO, "failed to write transcript file", err)
	}

	latestPath := filepath.Join(w.Dir, LatestTranscript)
	if err := os.WriteFile(latestPath, []byte(name+"\n"), 0o644); err != nil {
		return "", "", errors.New(errors.KindIO, "failed to write latest pointer file", err)
	}
	return fullPath, latestPath, nil
}

// WriteReplyAudio writes reply_NN.<ext> for one turn.
func (w Writer) WriteReplyAudio(turn int, mimeType string, data []byte) (string, error) {
	if turn < 1 {
		return "", errors.NewInternal(fmt.Sprintf("invalid turn number %d", turn), nil)
	}
	if err := w.ensureDir(); err != nil {
		return "", err
	}
	p := filepath.Join(w.Dir, fmt.Sprintf("reply_%02d%s", turn, AudioExt(mimeType)))
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", errors.New(errors.KindIO, "failed to write reply audio", err)
	}
	return p, nil
}

// AudioExt maps a reply content type to a file extension.
func AudioExt(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/ogg", "audio/opus":
		return ".ogg"
	default:
		return ".bin"
	}
}

func (w Writer) ensureDir() error {
	if strings.TrimSpace(w.Dir) == "" {
		return errors.NewInternal("output dir is empty", nil)
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return errors.New(errors.KindIO, "failed to create output directory", err)
	}
	return nil
}
