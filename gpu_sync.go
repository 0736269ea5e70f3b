package main

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
)

// fieldJob carries the uniforms for one evaluation pass over the slice
// texels: the world position of texel (0,0) and the world step per texel
// along each slice axis, plus the scalar uniforms.
type fieldJob struct {
	width, height int
	origin        mgl32.Vec3
	du, dv        mgl32.Vec3
	wavenum       float32
	colorScale    float32
	mode          fieldMode
	count         int
}

// fieldEvaluator owns the device-side encodings of the source state and
// evaluates the pressure field over the slice texels. Set calls replace the
// previous encoding wholesale; a failed call must leave the prior encoding
// usable so drawing can continue with stale data until the retry succeeds.
type fieldEvaluator interface {
	// SetPositions uploads the position encoding (x, y, z, unused per
	// source) and the matching orientation encoding.
	SetPositions(pos, axis []float32, count int) error
	// SetDrive uploads the 8-bit drive encoding (phase, amp, 0, 0 per
	// source).
	SetDrive(texels []uint8) error
	// SetColorRamp uploads the RGBA ramp with baked alpha.
	SetColorRamp(texels []uint8) error
	// Evaluate renders one RGBA texel per slice sample into dst
	// (premultiplied alpha, len = width*height*4).
	Evaluate(job fieldJob, dst []uint8) error
	Close()
}

// sliceGeometry is the centered slice quad in model space, with half extents
// clamped into the signed 16-bit vertex coordinate range.
type sliceGeometry struct {
	left, right int16
	bottom, top int16
}

// buildSliceGeometry clamps the requested extents; out-of-range sizes clamp
// silently rather than fail.
func buildSliceGeometry(width, height int32) sliceGeometry {
	clampI16 := func(v int32, lo, hi int32) int16 {
		if v < lo {
			v = lo
		} else if v > hi {
			v = hi
		}
		return int16(v)
	}
	return sliceGeometry{
		left:   clampI16(-width/2, vertexCoordMin, 0),
		right:  clampI16((width+1)/2, 0, vertexCoordMax),
		bottom: clampI16(-height/2, vertexCoordMin, 0),
		top:    clampI16((height+1)/2, 0, vertexCoordMax),
	}
}

// extentW returns the quad width in model-space units.
func (g sliceGeometry) extentW() int { return int(int32(g.right) - int32(g.left)) }

// extentH returns the quad height in model-space units.
func (g sliceGeometry) extentH() int { return int(int32(g.top) - int32(g.bottom)) }

func capTexDim(v int) int {
	if v > maxFieldTexDim {
		return maxFieldTexDim
	}
	return v
}

// texWidth returns the field texture width: one texel per model-space unit,
// capped at maxFieldTexDim. The vertex clamp admits extents far beyond what
// a GPU will allocate as a texture, so oversized slices are sampled more
// coarsely instead.
func (g sliceGeometry) texWidth() int { return capTexDim(g.extentW()) }

// texHeight returns the field texture height, capped like texWidth.
func (g sliceGeometry) texHeight() int { return capTexDim(g.extentH()) }

// corners lists the quad vertices in model space, wound to match quadIndices.
func (g sliceGeometry) corners() [4]mgl32.Vec3 {
	l, r := float32(g.left), float32(g.right)
	b, t := float32(g.bottom), float32(g.top)
	return [4]mgl32.Vec3{{l, b, 0}, {r, b, 0}, {r, t, 0}, {l, t, 0}}
}

// quadIndices splits the slice quad into its two triangles.
var quadIndices = [6]uint16{0, 1, 2, 2, 3, 0}

// boundedSourceCount limits an evaluation pass to the sources present in
// every encoding. After a partially failed rebuild the position and drive
// encodings can hold different source counts until the retry lands, and
// reading past the shorter one is never safe.
func boundedSourceCount(jobCount, posCount, driveCount int) int {
	n := jobCount
	if posCount < n {
		n = posCount
	}
	if driveCount < n {
		n = driveCount
	}
	return n
}

// fillRampZero paints every texel with the ramp's zero-pressure sample in
// premultiplied form, the color an evaluation pass produces when no source
// contributes.
func fillRampZero(dst, ramp []uint8) {
	r, g, b, a := premultiply(ramp[0], ramp[1], ramp[2], ramp[3])
	for i := 0; i+3 < len(dst); i += 4 {
		dst[i], dst[i+1], dst[i+2], dst[i+3] = r, g, b, a
	}
}

// sliceViewer synchronizes the evaluator's device resources with the source
// array and settings, driven by the update-flag protocol, and holds the
// uniforms consumed each draw.
type sliceViewer struct {
	eval fieldEvaluator
	ramp *colorRamp

	geom    sliceGeometry
	geomGen int

	model      mgl32.Mat4
	mvp        mgl32.Mat4
	wavenum    float32
	colorScale float32
	count      int

	markerColors []color.RGBA

	// Rebuild counters, used by the debug overlay.
	geomRebuilds, posRebuilds, driveRebuilds, rampRebuilds int

	posScratch   []float32
	axisScratch  []float32
	driveScratch []uint8
}

// newSliceViewer wires the synchronizer to an evaluator backend.
func newSliceViewer(eval fieldEvaluator) *sliceViewer {
	return &sliceViewer{
		eval:  eval,
		ramp:  newColorRamp(colorRampSamples),
		model: mgl32.Ident4(),
		mvp:   mgl32.Ident4(),
	}
}

// update rebuilds exactly the resources implicated by the set bits, clearing
// each bit after its category rebuilt successfully. Bits whose rebuild
// failed stay set so the next tick retries; the previous resource keeps
// serving draws in the interim. Geometry is handled before the combined
// matrix so the projection sees the current slice extents.
func (v *sliceViewer) update(mask *updateFlag, s *viewerSettings, arr *sourceArray, view, projection mgl32.Mat4) error {
	requested := *mask
	var firstErr error

	if requested.contains(updateSliceSize) {
		v.geom = buildSliceGeometry(s.SliceWidth, s.SliceHeight)
		v.geomGen++
		v.geomRebuilds++
		mask.clear(updateSliceSize)
	}

	if requested.contains(updateSourcePos) {
		if err := v.rebuildPositions(arr); err != nil {
			firstErr = err
		} else {
			v.count = arr.Len()
			v.posRebuilds++
			mask.clear(updateSourcePos)
		}
	}

	if requested.contains(updateSourceDrive) {
		if err := v.rebuildDrive(arr, s); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			v.driveRebuilds++
			mask.clear(updateSourceDrive)
		}
	}

	if requested.contains(updateColorMap) {
		if err := v.eval.SetColorRamp(v.ramp.encode(s.SliceAlpha)); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			v.colorScale = s.ColorScale
			v.rampRebuilds++
			v.refreshMarkerColors(arr, s)
			mask.clear(updateColorMap)
		}
	}

	if requested.contains(updateWavenum) {
		v.wavenum = wavenumberOf(s.WaveLength)
		mask.clear(updateWavenum)
	}

	if requested.contains(updateSourceAlpha) {
		v.refreshMarkerColors(arr, s)
		mask.clear(updateSourceAlpha)
	}

	if requested.containsAny(updateCameraPos | updateSlicePos | updateSliceSize) {
		v.model = sliceModelMatrix(s)
		v.mvp = modelViewProjection(v.model, view, projection)
		mask.clear(updateCameraPos | updateSlicePos)
	}

	return firstErr
}

// rebuildPositions re-encodes every source position and orientation, one
// texel per source, channel layout (x, y, z, unused).
func (v *sliceViewer) rebuildPositions(arr *sourceArray) error {
	sources := arr.Sources()
	v.posScratch = v.posScratch[:0]
	v.axisScratch = v.axisScratch[:0]
	for i := range sources {
		p, d := sources[i].pos, sources[i].dir
		v.posScratch = append(v.posScratch, p.X(), p.Y(), p.Z(), 0)
		v.axisScratch = append(v.axisScratch, d.X(), d.Y(), d.Z(), 0)
	}
	return v.eval.SetPositions(v.posScratch, v.axisScratch, len(sources))
}

// rebuildDrive re-encodes every source's (phase, amplitude) pair into 8-bit
// texels. An empty array is a no-op, not an error; the prior encoding stays.
func (v *sliceViewer) rebuildDrive(arr *sourceArray, s *viewerSettings) error {
	sources := arr.Sources()
	if len(sources) == 0 {
		return nil
	}
	v.driveScratch = v.driveScratch[:0]
	for i := range sources {
		v.driveScratch = append(v.driveScratch,
			quantizePhase(sources[i].phase), quantizeAmp(sources[i].amp), 0, 0)
	}
	if err := v.eval.SetDrive(v.driveScratch); err != nil {
		return err
	}
	v.refreshMarkerColors(arr, s)
	return nil
}

// refreshMarkerColors recomputes the per-source marker tint: hue from the
// drive phase, brightness from the amplitude, alpha from the source-alpha
// setting.
func (v *sliceViewer) refreshMarkerColors(arr *sourceArray, s *viewerSettings) {
	sources := arr.Sources()
	if cap(v.markerColors) < len(sources) {
		v.markerColors = make([]color.RGBA, len(sources))
	}
	v.markerColors = v.markerColors[:len(sources)]
	a := quantizeAmp(s.SourceAlpha)
	for i := range sources {
		c := v.ramp.at(sources[i].phase / twoPi)
		rb, gb, bb := c.Clamped().RGB255()
		pr, pg, pb, pa := premultiply(rb, gb, bb, a)
		v.markerColors[i] = color.RGBA{R: pr, G: pg, B: pb, A: pa}
	}
}

// job assembles the evaluation uniforms for the current frame. Texel (0,0)
// sits at the quad's bottom-left corner, offset half a texel inward, and the
// per-texel steps are the model matrix's basis vectors scaled so the capped
// texture still spans the full quad.
func (v *sliceViewer) job(s *viewerSettings) fieldJob {
	w, h := v.geom.texWidth(), v.geom.texHeight()
	stepU, stepV := float32(1), float32(1)
	if w > 0 {
		stepU = float32(v.geom.extentW()) / float32(w)
	}
	if h > 0 {
		stepV = float32(v.geom.extentH()) / float32(h)
	}
	bx := v.model.Col(0).Vec3().Mul(stepU)
	by := v.model.Col(1).Vec3().Mul(stepV)
	corner := mgl32.Vec3{float32(v.geom.left) + 0.5*stepU, float32(v.geom.bottom) + 0.5*stepV, 0}
	origin := mgl32.TransformCoordinate(corner, v.model)
	return fieldJob{
		width:      w,
		height:     h,
		origin:     origin,
		du:         bx,
		dv:         by,
		wavenum:    v.wavenum,
		colorScale: v.colorScale,
		mode:       s.FieldMode,
		count:      v.count,
	}
}

// evaluate runs one field pass into dst (premultiplied RGBA, one texel per
// slice sample).
func (v *sliceViewer) evaluate(s *viewerSettings, dst []uint8) error {
	return v.eval.Evaluate(v.job(s), dst)
}
