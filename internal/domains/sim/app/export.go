package app

import (
	"strings"

	contractsim "github.com/megamake/roleplay/internal/contracts/v1/sim"
	"github.com/megamake/roleplay/internal/domains/sim/domain"
	apperrors "github.com/megamake/roleplay/internal/platform/errors"
)

type ExportRequest struct {
	SessionID string

	// Filename is the name captured when the view was rendered. Empty or
	// malformed names are replaced with one stamped now.
	Filename string
}

type ExportResult struct {
	Export contractsim.TranscriptExportV1
}

// Export returns the transcript as a plain-text download. Exporting twice
// without an intervening turn yields identical content.
func (s *Service) Export(req ExportRequest) (ExportResult, error) {
	sess, err := s.session(req.SessionID)
	if err != nil {
		return ExportResult{}, err
	}

	sess.Lock()
	defer sess.Unlock()

	if sess.Transcript.Empty() {
		return ExportResult{}, apperrors.NewUsage("nothing to export yet")
	}

	name := strings.TrimSpace(req.Filename)
	if !domain.IsValidExportFilename(name) {
		name = domain.ExportFilename(s.now())
	}
	return ExportResult{Export: contractsim.TranscriptExportV1{
		Filename: name,
		MIME:     domain.TranscriptMIME,
		Content:  sess.Transcript.Text(),
	}}, nil
}
