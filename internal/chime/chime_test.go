package chime

import (
	"errors"
	"testing"
	"time"

	"github.com/civicwatch/herald/internal/platform"
)

type fakeDevice struct {
	ready  chan struct{}
	played chan []byte
}

func newFakeDevice(ready bool) *fakeDevice {
	d := &fakeDevice{
		ready:  make(chan struct{}),
		played: make(chan []byte, 4),
	}
	if ready {
		close(d.ready)
	}
	return d
}

func (d *fakeDevice) Ready() <-chan struct{} { return d.ready }
func (d *fakeDevice) Play(pcm []byte)        { d.played <- pcm }

type fakeAudio struct {
	opens  int
	err    error
	device *fakeDevice
}

func (a *fakeAudio) Open(sampleRate, channels int) (platform.AudioDevice, error) {
	a.opens++
	if a.err != nil {
		return nil, a.err
	}
	return a.device, nil
}

func TestGestureOpensDeviceOnce(t *testing.T) {
	audio := &fakeAudio{device: newFakeDevice(true)}
	m := NewManager(audio, true, nil)

	m.Arm()
	m.Gesture()
	m.Gesture()
	m.Gesture()

	if audio.opens != 1 {
		t.Errorf("expected exactly one open, got %d", audio.opens)
	}
	if !m.Unlocked() {
		t.Error("expected manager to be unlocked after gesture")
	}
}

func TestGestureBeforeArmIsIgnored(t *testing.T) {
	audio := &fakeAudio{device: newFakeDevice(true)}
	m := NewManager(audio, true, nil)

	m.Gesture()

	if audio.opens != 0 {
		t.Errorf("expected no open before arming, got %d", audio.opens)
	}
	if m.Unlocked() {
		t.Error("expected manager to stay locked")
	}
}

func TestGestureOpenFailureStaysSilent(t *testing.T) {
	audio := &fakeAudio{err: errors.New("no sound card")}
	m := NewManager(audio, true, nil)

	m.Arm()
	m.Gesture()
	m.Gesture()

	if audio.opens != 1 {
		t.Errorf("expected no retry after a failed unlock, opens = %d", audio.opens)
	}
	if m.Unlocked() {
		t.Error("expected manager to stay locked after open failure")
	}

	// Playing against a failed unlock must not block or panic.
	m.Play()
}

func TestPlayWaitsForDeviceReady(t *testing.T) {
	dev := newFakeDevice(false)
	audio := &fakeAudio{device: dev}
	m := NewManager(audio, true, nil)

	m.Arm()
	m.Gesture()
	m.Play()

	select {
	case <-dev.played:
		t.Fatal("expected play to wait for device readiness")
	case <-time.After(50 * time.Millisecond):
	}

	close(dev.ready)

	select {
	case pcm := <-dev.played:
		if len(pcm) == 0 {
			t.Error("expected chime samples")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected chime once the device became ready")
	}
}

func TestPlayDisabledIsNoop(t *testing.T) {
	dev := newFakeDevice(true)
	audio := &fakeAudio{device: dev}
	m := NewManager(audio, true, nil)

	m.Arm()
	m.Gesture()
	m.SetEnabled(false)
	m.Play()

	select {
	case <-dev.played:
		t.Fatal("expected no chime while disabled")
	case <-time.After(50 * time.Millisecond):
	}

	if m.IsEnabled() {
		t.Error("expected IsEnabled to report false")
	}
}

func TestGenerateChimeEnvelope(t *testing.T) {
	pcm := generateChime()

	wantLen := int(SampleRate*chimeLength) * 2 * Channels
	if len(pcm) != wantLen {
		t.Fatalf("expected %d bytes, got %d", wantLen, len(pcm))
	}

	sampleAt := func(i int) int16 {
		return int16(uint16(pcm[i*4]) | uint16(pcm[i*4+1])<<8)
	}
	abs := func(v int16) int {
		if v < 0 {
			return int(-int32(v))
		}
		return int(v)
	}

	if v := sampleAt(0); v != 0 {
		t.Errorf("expected the attack to start from silence, got %d", v)
	}

	numSamples := len(pcm) / (2 * Channels)
	peak := 0
	for i := 0; i < numSamples; i++ {
		if a := abs(sampleAt(i)); a > peak {
			peak = a
		}
	}
	gain := float64(peakGain)
	limit := int(gain*32767) + 1
	if peak > limit {
		t.Errorf("peak %d exceeds the gain ceiling %d", peak, limit)
	}
	if peak < 8000 {
		t.Errorf("peak %d never reaches the attack gain", peak)
	}

	// The exponential tail should be near silence by the cutoff.
	tailStart := numSamples - SampleRate/100
	tailPeak := 0
	for i := tailStart; i < numSamples; i++ {
		if a := abs(sampleAt(i)); a > tailPeak {
			tailPeak = a
		}
	}
	if tailPeak > 400 {
		t.Errorf("tail peak %d is too loud for a faded chime", tailPeak)
	}

	// Both channels carry the same signal.
	for _, i := range []int{0, numSamples / 2, numSamples - 1} {
		if pcm[i*4] != pcm[i*4+2] || pcm[i*4+1] != pcm[i*4+3] {
			t.Errorf("expected identical stereo frames at sample %d", i)
		}
	}
}
