// Package audio packages captured PCM into the container the speech-to-text
// service expects.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// BitsPerSample is fixed: captured audio is always packaged as 16-bit PCM.
const BitsPerSample = 16

// wavHeader is the canonical 44-byte RIFF/WAVE PCM header.
type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// Info describes a WAV payload.
type Info struct {
	SampleRate    int     `json:"sample_rate"`
	Channels      int     `json:"channels"`
	BitsPerSample int     `json:"bits_per_sample"`
	NumFrames     int     `json:"num_frames"`
	Duration      float64 `json:"duration_seconds"`
}

// FloatToPCM16 converts amplitude samples in [-1, 1] to int16. Values outside
// the range are clamped before scaling by 32767.
func FloatToPCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[i] = int16(s * 32767)
	}
	return out
}

// EncodeWAV writes interleaved PCM-16 samples as a WAV file. An empty sample
// slice is valid and yields a header-only file; a silent window is still a turn.
func EncodeWAV(samples []int16, sampleRate, channels int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("channel count must be positive, got %d", channels)
	}
	if len(samples)%channels != 0 {
		return nil, fmt.Errorf("sample count %d is not a multiple of %d channels", len(samples), channels)
	}

	blockAlign := uint16(channels * BitsPerSample / 8)
	dataSize := uint32(len(samples) * 2)

	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: BitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(samples)*2))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	if len(samples) > 0 {
		if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
			return nil, fmt.Errorf("failed to write audio data: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// ReadInfo parses the header of a canonical PCM WAV payload.
func ReadInfo(data []byte) (Info, error) {
	if len(data) < 44 {
		return Info{}, fmt.Errorf("WAV data too short: need at least 44 bytes, got %d", len(data))
	}

	var h wavHeader
	if err := binary.Read(bytes.NewReader(data[:44]), binary.LittleEndian, &h); err != nil {
		return Info{}, fmt.Errorf("failed to read WAV header: %w", err)
	}
	if string(h.ChunkID[:]) != "RIFF" || string(h.Format[:]) != "WAVE" {
		return Info{}, fmt.Errorf("invalid WAV file: missing RIFF/WAVE header")
	}
	if string(h.Subchunk1ID[:]) != "fmt " || string(h.Subchunk2ID[:]) != "data" {
		return Info{}, fmt.Errorf("invalid WAV file: unexpected chunk layout")
	}
	if h.SampleRate == 0 || h.BlockAlign == 0 {
		return Info{}, fmt.Errorf("invalid WAV file: zero sample rate or block align")
	}

	frames := int(h.Subchunk2Size) / int(h.BlockAlign)
	return Info{
		SampleRate:    int(h.SampleRate),
		Channels:      int(h.NumChannels),
		BitsPerSample: int(h.BitsPerSample),
		NumFrames:     frames,
		Duration:      float64(frames) / float64(h.SampleRate),
	}, nil
}
