//go:build !linux || cgo

package platform

import (
	"bytes"
	"fmt"
	"time"

	"github.com/hajimehoshi/oto/v2"
)

// otoAudio opens the system audio output through the oto library.
type otoAudio struct{}

// NewAudio returns the host audio backend.
func NewAudio() AudioPlatform {
	return otoAudio{}
}

func (otoAudio) Open(sampleRate, channels int) (AudioDevice, error) {
	ctx, ready, err := oto.NewContext(sampleRate, channels, 2)
	if err != nil {
		return nil, fmt.Errorf("open audio context: %w", err)
	}
	return &otoDevice{ctx: ctx, ready: ready}, nil
}

type otoDevice struct {
	ctx   *oto.Context
	ready chan struct{}
}

func (d *otoDevice) Ready() <-chan struct{} {
	return d.ready
}

func (d *otoDevice) Play(pcm []byte) {
	p := d.ctx.NewPlayer(bytes.NewReader(pcm))
	p.Play()
	go func() {
		for p.IsPlaying() {
			time.Sleep(10 * time.Millisecond)
		}
		p.Close()
	}()
}
