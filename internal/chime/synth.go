package chime

import "math"

// Output format shared with the audio backend.
const (
	SampleRate = 48000
	Channels   = 2
)

// Shape of the notification chime.
const (
	chimeFreq   = 800.0
	attackTime  = 0.010
	peakGain    = 0.25
	floorGain   = 0.01
	chimeLength = 0.300
)

// generateChime renders the notification chime as 16-bit little-endian
// stereo PCM: a single sine tone with a 10ms linear attack and an
// exponential tail that reaches floorGain exactly at the cutoff.
func generateChime() []byte {
	numSamples := int(SampleRate * chimeLength)
	samples := make([]byte, numSamples*2*Channels)

	for i := 0; i < numSamples; i++ {
		t := float64(i) / SampleRate

		var envelope float64
		if t < attackTime {
			envelope = peakGain * t / attackTime
		} else {
			envelope = peakGain * math.Pow(floorGain/peakGain, (t-attackTime)/(chimeLength-attackTime))
		}

		sample := math.Sin(2*math.Pi*chimeFreq*t) * envelope
		value := int16(sample * 32767)

		idx := i * 2 * Channels
		samples[idx] = byte(value)
		samples[idx+1] = byte(value >> 8)
		samples[idx+2] = byte(value)
		samples[idx+3] = byte(value >> 8)
	}

	return samples
}
