package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloat32LEFrames(t *testing.T) {
	in := []float32{0, 0.5, -1, 1}
	b := EncodeFloat32LE(in)
	assert.Len(t, b, 16)
	assert.Equal(t, in, DecodeFloat32LE(b))

	// A partial trailing sample is dropped.
	assert.Equal(t, in, DecodeFloat32LE(append(b, 0x01, 0x02)))
	assert.Empty(t, DecodeFloat32LE(nil))
}
