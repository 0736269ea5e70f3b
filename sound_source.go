package main

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

// errDriveLengthMismatch reports a drive update carrying fewer entries than
// the live source count. The overlapping prefix is still applied.
var errDriveLengthMismatch = errors.New("drive update shorter than source array")

// soundSource is a single transducer emitter. Position and direction are
// geometry parameters refreshed only on array reconfiguration; amplitude and
// phase are drive parameters refreshed at high frequency.
type soundSource struct {
	pos   mgl32.Vec3
	dir   mgl32.Vec3
	amp   float32
	phase float32
}

// sourceArray is the authoritative ordered collection of transducer sources.
// Every mutating operation raises the corresponding change-mask bits on the
// shared mask so the synchronizer rebuilds the affected GPU encodings on the
// next tick; nothing is pushed eagerly.
type sourceArray struct {
	sources []soundSource
	mask    *updateFlag
}

// newSourceArray returns an empty array raising bits on mask.
func newSourceArray(mask *updateFlag) *sourceArray {
	return &sourceArray{mask: mask}
}

// Len returns the current source count.
func (a *sourceArray) Len() int {
	return len(a.sources)
}

// Sources exposes the backing slice for read-only iteration by the
// synchronizer and renderer.
func (a *sourceArray) Sources() []soundSource {
	return a.sources
}

// Reset replaces the array contents wholesale. Geometry changes are rare, so
// clear-then-rebuild is preferred over incremental diffing.
func (a *sourceArray) Reset(sources []soundSource) {
	a.sources = a.sources[:0]
	a.sources = append(a.sources, sources...)
	a.mask.raise(initSource | updateSourceDrive)
}

// UpdateDrive applies per-source amplitude and phase values zipped 1:1
// against the existing sources. Entries beyond the array length are ignored;
// arrays shorter than the source count update the overlapping prefix and
// return errDriveLengthMismatch.
func (a *sourceArray) UpdateDrive(amps, phases []float32) error {
	n := len(a.sources)
	short := len(amps) < n || len(phases) < n
	if len(amps) < n {
		n = len(amps)
	}
	if len(phases) < n {
		n = len(phases)
	}
	for i := 0; i < n; i++ {
		a.sources[i].amp = amps[i]
		a.sources[i].phase = phases[i]
	}
	a.mask.raise(updateSourceDrive)
	if short {
		return errDriveLengthMismatch
	}
	return nil
}

// ClearDrive zeroes amplitude and phase for every source.
func (a *sourceArray) ClearDrive() {
	for i := range a.sources {
		a.sources[i].amp = 0
		a.sources[i].phase = 0
	}
	a.mask.raise(updateSourceDrive)
}

// SnapshotDrive captures the current amplitudes and silences the array,
// implementing the feed's Pause command.
func (a *sourceArray) SnapshotDrive() []float32 {
	saved := make([]float32, len(a.sources))
	for i := range a.sources {
		saved[i] = a.sources[i].amp
		a.sources[i].amp = 0
	}
	a.mask.raise(updateSourceDrive)
	return saved
}

// RestoreDrive reinstates amplitudes captured by SnapshotDrive, implementing
// Resume. Extra saved entries are ignored when the array shrank in between.
func (a *sourceArray) RestoreDrive(saved []float32) {
	n := len(a.sources)
	if len(saved) < n {
		n = len(saved)
	}
	for i := 0; i < n; i++ {
		a.sources[i].amp = saved[i]
	}
	a.mask.raise(updateSourceDrive)
}
