//go:build linux && !cgo

package platform

import "errors"

// stubAudio is the Linux-without-CGO fallback. ALSA output needs CGO,
// so opening the device always fails and the chime stays silent.
type stubAudio struct{}

// NewAudio returns the host audio backend.
// On Linux without CGO, audio is not available.
func NewAudio() AudioPlatform {
	return stubAudio{}
}

func (stubAudio) Open(sampleRate, channels int) (AudioDevice, error) {
	return nil, errors.New("audio not available: built without CGO support (Linux requires CGO for ALSA)")
}
