package main

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeAudioStreamFrames(t *testing.T) {
	s := newProbeAudioStream()
	s.SetSample(0.5)

	buf := make([]byte, 10)
	n, err := s.Read(buf)
	require.NoError(t, err)
	// Whole stereo frames only.
	assert.Equal(t, 8, n)

	// Left and right channels carry the same PCM value.
	assert.Equal(t, buf[0], buf[2])
	assert.Equal(t, buf[1], buf[3])
}

// Each buffer ramps toward the held level; once there, the output is flat at
// the target.
func TestProbeAudioStreamRampsToTarget(t *testing.T) {
	s := newProbeAudioStream()
	s.SetSample(0.5)

	first := make([]byte, 16)
	_, err := s.Read(first)
	require.NoError(t, err)
	v0 := int16(binary.LittleEndian.Uint16(first[0:]))
	v3 := int16(binary.LittleEndian.Uint16(first[12:]))
	assert.Greater(t, v3, v0)

	want := int16(s.sample * 32767)
	assert.Equal(t, want, v3)

	second := make([]byte, 8)
	_, err = s.Read(second)
	require.NoError(t, err)
	for f := 0; f < 2; f++ {
		assert.Equal(t, want, int16(binary.LittleEndian.Uint16(second[f*4:])))
	}
}

func TestProbeAudioStreamClampsInput(t *testing.T) {
	s := newProbeAudioStream()
	s.SetSample(5)
	assert.LessOrEqual(t, s.sample, float32(1))
	s.SetSample(-5)
	assert.GreaterOrEqual(t, s.sample, float32(-1))
}
