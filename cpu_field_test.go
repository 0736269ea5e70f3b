package main

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildCPUPipeline runs the synchronizer against the CPU evaluator with four
// unit sources in the z=0 plane and the slice lying in that same plane.
func buildCPUPipeline(t *testing.T) (*sliceViewer, *cpuFieldEvaluator, *viewerSettings) {
	t.Helper()
	eval := newCPUFieldEvaluator(isotropicDirectivity)
	v := newSliceViewer(eval)
	s := defaultSettings()
	s.SliceWidth, s.SliceHeight = 20, 20
	s.SlicePos = [3]float32{5, 5, 0}
	s.SliceRot = [3]float32{0, 0, 0}

	mask := updateAll
	arr := newSourceArray(&mask)
	arr.Reset([]soundSource{
		{pos: mgl32.Vec3{0, 0, 0}, dir: mgl32.Vec3{0, 0, 1}, amp: 1},
		{pos: mgl32.Vec3{10, 0, 0}, dir: mgl32.Vec3{0, 0, 1}, amp: 1},
		{pos: mgl32.Vec3{0, 10, 0}, dir: mgl32.Vec3{0, 0, 1}, amp: 1},
		{pos: mgl32.Vec3{10, 10, 0}, dir: mgl32.Vec3{0, 0, 1}, amp: 1},
	})

	view := viewMatrix(&s)
	proj := projectionMatrix(&s, 1.5)
	require.NoError(t, v.update(&mask, &s, arr, view, proj))
	require.True(t, mask.empty())
	return v, eval, &s
}

func TestCPUFieldEvaluate(t *testing.T) {
	v, _, s := buildCPUPipeline(t)

	w, h := v.geom.texWidth(), v.geom.texHeight()
	require.Equal(t, 20, w)
	require.Equal(t, 20, h)
	dst := make([]uint8, w*h*4)
	require.NoError(t, v.evaluate(s, dst))

	// Every texel carries the baked (premultiplied) slice alpha.
	a := quantizeAmp(s.SliceAlpha)
	for i := 3; i < len(dst); i += 4 {
		require.Equal(t, a, dst[i])
	}

	// The center of the quad is the constructive-interference peak, so its
	// ramp color must sit above the edge texel's.
	centerIdx := rampIndexOfTexel(t, v, s, w/2, h/2)
	edgeIdx := rampIndexOfTexel(t, v, s, 0, 0)
	assert.Greater(t, centerIdx, edgeIdx)
}

// rampIndexOfTexel recomputes the ramp index the evaluator should have used
// for one texel of the current job.
func rampIndexOfTexel(t *testing.T, v *sliceViewer, s *viewerSettings, x, y int) int {
	t.Helper()
	eval, ok := v.eval.(*cpuFieldEvaluator)
	require.True(t, ok)
	job := v.job(s)
	p := job.origin.Add(job.du.Mul(float32(x))).Add(job.dv.Mul(float32(y)))
	re, im := eval.fieldAt(p, job)
	return rampIndex(fieldScalar(re, im, job.mode), job.colorScale, colorRampSamples)
}

// A drive encoding left over from before an array growth must bound the
// summation; the evaluator reads only sources present in both encodings.
func TestCPUFieldStaleDriveBounded(t *testing.T) {
	eval := newCPUFieldEvaluator(isotropicDirectivity)

	pos := make([]float32, 6*4)
	axis := make([]float32, 6*4)
	for i := 0; i < 6; i++ {
		pos[i*4] = float32(i) * transSpacing
		axis[i*4+2] = 1
	}
	require.NoError(t, eval.SetPositions(pos, axis, 6))

	// Drive still holds the previous, smaller array.
	drive := make([]uint8, 4*4)
	for i := 0; i < 4; i++ {
		drive[i*4+1] = 255
	}
	require.NoError(t, eval.SetDrive(drive))

	re, im := eval.fieldAt(mgl32.Vec3{5, 5, 5}, fieldJob{wavenum: 1, count: 6})
	assert.False(t, math32.IsNaN(re) || math32.IsNaN(im))

	// Only the four driven sources contribute.
	reWant, imWant := eval.fieldAt(mgl32.Vec3{5, 5, 5}, fieldJob{wavenum: 1, count: 4})
	assert.Equal(t, reWant, re)
	assert.Equal(t, imWant, im)
}

// With no sources at all, the slice renders the ramp's zero-pressure color
// with the baked alpha, not a transparent hole.
func TestCPUFieldEmptyArrayRendersZeroColor(t *testing.T) {
	eval := newCPUFieldEvaluator(isotropicDirectivity)
	v := newSliceViewer(eval)
	s := defaultSettings()
	s.SliceWidth, s.SliceHeight = 4, 4

	mask := updateAll
	arr := newSourceArray(&mask)
	view := viewMatrix(&s)
	proj := projectionMatrix(&s, 1.5)
	require.NoError(t, v.update(&mask, &s, arr, view, proj))

	dst := make([]uint8, 4*4*4)
	require.NoError(t, v.evaluate(&s, dst))

	want := make([]uint8, len(dst))
	fillRampZero(want, v.ramp.encode(s.SliceAlpha))
	assert.Equal(t, want, dst)
}

func TestCPUFieldBufferSizeMismatch(t *testing.T) {
	v, _, s := buildCPUPipeline(t)
	err := v.evaluate(s, make([]uint8, 7))
	require.Error(t, err)
}

func TestCPUFieldMatchesProbe(t *testing.T) {
	v, eval, s := buildCPUPipeline(t)
	job := v.job(s)

	var mask updateFlag
	arr := newSourceArray(&mask)
	arr.Reset([]soundSource{
		{pos: mgl32.Vec3{0, 0, 0}, dir: mgl32.Vec3{0, 0, 1}, amp: 1},
		{pos: mgl32.Vec3{10, 0, 0}, dir: mgl32.Vec3{0, 0, 1}, amp: 1},
		{pos: mgl32.Vec3{0, 10, 0}, dir: mgl32.Vec3{0, 0, 1}, amp: 1},
		{pos: mgl32.Vec3{10, 10, 0}, dir: mgl32.Vec3{0, 0, 1}, amp: 1},
	})

	p := mgl32.Vec3{5, 5, 0}
	re, im := eval.fieldAt(p, job)
	want := probeFieldSample(arr, p, job.wavenum, isotropicDirectivity, fieldModeMagnitude)
	assert.InDelta(t, want, fieldScalar(re, im, fieldModeMagnitude), 1e-5)
}

func TestCPUFieldRealModeSigned(t *testing.T) {
	v, eval, s := buildCPUPipeline(t)
	s.FieldMode = fieldModeReal
	job := v.job(s)

	// Somewhere on the slice the real part must go negative; magnitude
	// never does.
	sawNegative := false
	for y := 0; y < job.height && !sawNegative; y++ {
		for x := 0; x < job.width; x++ {
			p := job.origin.Add(job.du.Mul(float32(x))).Add(job.dv.Mul(float32(y)))
			re, _ := eval.fieldAt(p, job)
			if re < 0 {
				sawNegative = true
				break
			}
		}
	}
	assert.True(t, sawNegative)
}
