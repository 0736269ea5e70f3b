package main

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedEventRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		ev   feedEvent
	}{
		{"geometry", feedEvent{kind: feedGeometry, devices: []deviceGeometry{{
			origin: mgl32.Vec3{1, 2, 3},
			right:  mgl32.Vec3{1, 0, 0},
			up:     mgl32.Vec3{0, 1, 0},
		}}}},
		{"gain", feedEvent{kind: feedGain, duties: []uint8{0, 128, 255}, phases: []uint8{10, 20, 30}}},
		{"clear", feedEvent{kind: feedClear}},
		{"pause", feedEvent{kind: feedPause}},
		{"resume", feedEvent{kind: feedResume}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeFeedEvent(&buf, tt.ev))
			got, err := readFeedEvent(&buf)
			require.NoError(t, err)
			assert.Equal(t, tt.ev.kind, got.kind)
			assert.Equal(t, tt.ev.devices, got.devices)
			assert.Equal(t, tt.ev.duties, got.duties)
			assert.Equal(t, tt.ev.phases, got.phases)
		})
	}
}

func TestReadFeedEventRejectsUnknownOpcode(t *testing.T) {
	_, err := readFeedEvent(bytes.NewReader([]byte{0xff}))
	assert.Error(t, err)
}

func TestReadFeedEventRejectsHugeCount(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(opGain)
	buf.Write([]byte{0xff, 0xff, 0xff, 0xff})
	_, err := readFeedEvent(&buf)
	assert.Error(t, err)
}

func TestGainConversion(t *testing.T) {
	// Full duty is unit amplitude; zero duty is silence.
	assert.InDelta(t, 1.0, gainAmp(255), 1e-2)
	assert.Equal(t, float32(0), gainAmp(0))

	// Phase bytes wrap to [0, 2π).
	assert.InDelta(t, 0, gainPhase(0), 1e-5)
	assert.InDelta(t, 0, gainPhase(255), 1e-5)
	mid := gainPhase(128)
	assert.Greater(t, mid, float32(0))
	assert.Less(t, mid, twoPi)
}

func TestMakeDeviceTransducers(t *testing.T) {
	geo := deviceGeometry{
		origin: mgl32.Vec3{0, 0, 0},
		right:  mgl32.Vec3{1, 0, 0},
		up:     mgl32.Vec3{0, 1, 0},
	}
	sources := makeDeviceTransducers(geo)
	// 18x14 grid minus the three missing corner transducers.
	assert.Len(t, sources, numTransX*numTransY-3)

	// Forward axis is right × up.
	for _, s := range sources {
		assert.Equal(t, mgl32.Vec3{0, 0, 1}, s.dir)
	}
	// Grid spacing along the right vector.
	assert.InDelta(t, transSpacing, sources[1].pos.X()-sources[0].pos.X(), 1e-5)
}

func TestApplyFeedEventSequence(t *testing.T) {
	var mask updateFlag
	arr := newSourceArray(&mask)

	geo := feedEvent{kind: feedGeometry, devices: []deviceGeometry{{
		right: mgl32.Vec3{1, 0, 0},
		up:    mgl32.Vec3{0, 1, 0},
	}}}
	var saved []float32
	saved = applyFeedEvent(geo, arr, saved)
	n := arr.Len()
	require.Equal(t, numTransX*numTransY-3, n)

	duties := make([]uint8, n)
	phases := make([]uint8, n)
	for i := range duties {
		duties[i] = 255
	}
	saved = applyFeedEvent(feedEvent{kind: feedGain, duties: duties, phases: phases}, arr, saved)
	wantAmp := math32.Sin(255.0 / 510 * math32.Pi)
	assert.InDelta(t, wantAmp, arr.Sources()[0].amp, 1e-5)

	saved = applyFeedEvent(feedEvent{kind: feedPause}, arr, saved)
	assert.Zero(t, arr.Sources()[0].amp)
	require.Len(t, saved, n)

	saved = applyFeedEvent(feedEvent{kind: feedResume}, arr, saved)
	assert.InDelta(t, wantAmp, arr.Sources()[0].amp, 1e-5)
	assert.Nil(t, saved)

	applyFeedEvent(feedEvent{kind: feedClear}, arr, nil)
	assert.Zero(t, arr.Sources()[0].amp)
	assert.Zero(t, arr.Sources()[0].phase)
}

// Drives the server over a real local socket: connect, send frames, drain.
func TestFeedServerEndToEnd(t *testing.T) {
	srv, err := newFeedServer(0)
	require.NoError(t, err)
	defer srv.Close()

	conn, err := net.Dial("tcp", srv.listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, writeFeedEvent(conn, feedEvent{kind: feedGeometry, devices: []deviceGeometry{{
		right: mgl32.Vec3{1, 0, 0},
		up:    mgl32.Vec3{0, 1, 0},
	}}}))
	require.NoError(t, writeFeedEvent(conn, feedEvent{kind: feedClear}))

	var mask updateFlag
	arr := newSourceArray(&mask)
	require.Eventually(t, func() bool {
		srv.drain(arr, nil)
		return arr.Len() == numTransX*numTransY-3 && mask.contains(updateSourceDrive)
	}, 2*time.Second, 10*time.Millisecond)
}
