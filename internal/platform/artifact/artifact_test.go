package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractsim "github.com/megamake/roleplay/internal/contracts/v1/sim"
)

func TestWriteTranscriptAndPointer(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w := Writer{Dir: dir}

	p, latest, err := w.WriteTranscript(contractsim.TranscriptExportV1{
		Filename: "transcript_20261018-090507.txt",
		MIME:     "text/plain",
		Content:  "Nurse: Hello Sam\nSam Richards: No.",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "Nurse: Hello Sam\nSam Richards: No.", string(data))

	ptr, err := os.ReadFile(latest)
	require.NoError(t, err)
	assert.Equal(t, "transcript_20261018-090507.txt\n", string(ptr))
}

func TestWriteTranscriptRejectsPaths(t *testing.T) {
	w := Writer{Dir: t.TempDir()}
	_, _, err := w.WriteTranscript(contractsim.TranscriptExportV1{Filename: "../escape.txt"})
	assert.Error(t, err)
}

func TestWriteReplyAudio(t *testing.T) {
	w := Writer{Dir: t.TempDir()}

	p, err := w.WriteReplyAudio(3, "audio/mpeg", []byte{0xff, 0xfb})
	require.NoError(t, err)
	assert.Equal(t, "reply_03.mp3", filepath.Base(p))

	_, err = w.WriteReplyAudio(0, "audio/mpeg", nil)
	assert.Error(t, err)

	_, err = Writer{}.WriteReplyAudio(1, "audio/wav", nil)
	assert.Error(t, err)
}

func TestAudioExt(t *testing.T) {
	assert.Equal(t, ".mp3", AudioExt("audio/mpeg"))
	assert.Equal(t, ".wav", AudioExt("audio/wav"))
	assert.Equal(t, ".bin", AudioExt(""))
}
