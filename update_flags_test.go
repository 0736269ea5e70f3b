package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateFlagRaiseClear(t *testing.T) {
	var f updateFlag
	assert.True(t, f.empty())

	f.raise(updateSourceDrive | updateWavenum)
	assert.True(t, f.contains(updateSourceDrive))
	assert.True(t, f.contains(updateWavenum))
	assert.False(t, f.contains(updateColorMap))
	assert.False(t, f.contains(updateSourceDrive|updateColorMap))
	assert.True(t, f.containsAny(updateSourceDrive|updateColorMap))

	f.clear(updateSourceDrive)
	assert.False(t, f.contains(updateSourceDrive))
	assert.True(t, f.contains(updateWavenum))

	f.clear(updateWavenum)
	assert.True(t, f.empty())
}

func TestUpdateFlagAllCoversEveryBit(t *testing.T) {
	bits := []updateFlag{
		updateSliceSize, updateSlicePos, updateSourcePos, updateSourceDrive,
		updateColorMap, updateWavenum, updateCameraPos, updateSourceAlpha,
	}
	for _, b := range bits {
		assert.True(t, updateAll.contains(b))
	}
	assert.Equal(t, updateSourcePos, initSource)
}
