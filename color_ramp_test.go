package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorRampEncode(t *testing.T) {
	ramp := newColorRamp(colorRampSamples)
	assert.Equal(t, colorRampSamples, ramp.Len())

	texels := ramp.encode(0.95)
	require.Len(t, texels, colorRampSamples*4)
	a := quantizeAmp(0.95)
	for i := 3; i < len(texels); i += 4 {
		require.Equal(t, a, texels[i])
	}

	// Zero pressure is blue, full scale is red.
	assert.Greater(t, texels[2], texels[0])
	last := (colorRampSamples - 1) * 4
	assert.Greater(t, texels[last], texels[last+2])
}

func TestColorRampAtClamps(t *testing.T) {
	ramp := newColorRamp(colorRampSamples)
	assert.Equal(t, ramp.samples[0], ramp.at(-1))
	assert.Equal(t, ramp.samples[colorRampSamples-1], ramp.at(2))
	assert.Equal(t, ramp.samples[colorRampSamples/2], ramp.at(0.5))
}
