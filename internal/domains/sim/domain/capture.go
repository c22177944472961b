package domain

// Block is one chunk of captured mono PCM delivered by an input stream.
// Status carries a device-reported condition (for example "input overflow");
// a block may carry a status and no samples.
type Block struct {
	Samples []float32
	Status  string
}

// Capture is the result of one acquisition window.
type Capture struct {
	Samples  []float32
	Blocks   int
	Warnings []string
}

// Seconds returns the captured duration at sampleRate.
func (c Capture) Seconds(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(sampleRate)
}
