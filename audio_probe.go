package main

import (
	"encoding/binary"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// probeAudioStream renders the field value at the probe point as a PCM
// level, one target level per tick, giving an audible cue of the modulation
// envelope while debugging drive patterns.
type probeAudioStream struct {
	mu     sync.Mutex
	sample float32
	dc     float32

	// last is the level at the end of the previous buffer. Only Read
	// touches it, on the audio goroutine.
	last float32
}

func newProbeAudioStream() *probeAudioStream {
	return &probeAudioStream{}
}

// SetSample updates the target level. A slow high-pass keeps a constant
// field offset from pinning the output at DC.
func (s *probeAudioStream) SetSample(v float32) {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	s.mu.Lock()
	const alpha = 0.001
	s.dc += alpha * (v - s.dc)
	s.sample = v - s.dc
	s.mu.Unlock()
}

// Read fills whole stereo int16 frames, ramping linearly from the previous
// buffer's level to the current target so tick-rate level steps do not
// click.
func (s *probeAudioStream) Read(p []byte) (int, error) {
	frames := len(p) / 4
	if frames == 0 {
		return 0, nil
	}
	s.mu.Lock()
	target := s.sample
	s.mu.Unlock()

	cur := s.last
	step := (target - cur) / float32(frames)
	for f := 0; f < frames; f++ {
		cur += step
		if f == frames-1 {
			// Land exactly on the target despite step rounding.
			cur = target
		}
		v := uint16(int16(cur * 32767))
		binary.LittleEndian.PutUint16(p[f*4:], v)
		binary.LittleEndian.PutUint16(p[f*4+2:], v)
	}
	s.last = target
	return frames * 4, nil
}

func (s *probeAudioStream) Close() error {
	return nil
}

// probeFieldSample evaluates the field at a single world point using the
// same quantized contract as the slice texels.
func probeFieldSample(arr *sourceArray, p mgl32.Vec3, wavenum float32, dir directivity, mode fieldMode) float32 {
	var re, im float32
	for _, src := range arr.Sources() {
		cr, ci := fieldContribution(p, src.pos, src.dir,
			quantizePhase(src.phase), quantizeAmp(src.amp), wavenum, dir)
		re += cr
		im += ci
	}
	return fieldScalar(re, im, mode)
}
