package main

import "github.com/lucasb-eyer/go-colorful"

// colorRamp is the fixed-size sampled color map used to translate normalized
// pressure into a color. The samples are computed once; only the GPU ramp
// encoding (with baked alpha) is regenerated when color settings change.
type colorRamp struct {
	samples []colorful.Color
}

// newColorRamp samples an HSV sweep from blue (zero pressure) to red (full
// scale) at n points.
func newColorRamp(n int) *colorRamp {
	samples := make([]colorful.Color, n)
	for i := range samples {
		t := float64(i) / float64(n)
		samples[i] = colorful.Hsv(240*(1-t), 1, 1)
	}
	return &colorRamp{samples: samples}
}

// Len returns the sample count.
func (r *colorRamp) Len() int { return len(r.samples) }

// encode writes the ramp as RGBA texels with alpha baked in from the slice
// alpha setting, one texel per sample.
func (r *colorRamp) encode(alpha float32) []uint8 {
	texels := make([]uint8, 0, len(r.samples)*4)
	a := quantizeAmp(alpha)
	for _, c := range r.samples {
		rb, gb, bb := c.Clamped().RGB255()
		texels = append(texels, rb, gb, bb, a)
	}
	return texels
}

// at returns the sample for a normalized value, clamping out-of-range input.
func (r *colorRamp) at(t float32) colorful.Color {
	i := int(t * float32(len(r.samples)))
	if i < 0 {
		i = 0
	} else if i >= len(r.samples) {
		i = len(r.samples) - 1
	}
	return r.samples[i]
}
