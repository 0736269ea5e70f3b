package main

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// This file is the single definition of the superposition math. The CPU
// evaluator calls these functions directly and the OpenCL kernel source is
// assembled from the snippet constants below, so both paths compute the same
// contribution per source:
//
//	c_i = (a_i * d_i / r_i) * exp(j * (k * r_i - phase_i))
//
// with d_i a directivity weight of the angle between the source axis and the
// propagation direction.

const twoPi = 2 * math32.Pi

// directivity weights a source's emission by the cosine of the angle between
// its forward axis and the direction to the sample point. The exact curve is
// a hardware-fit characteristic, so it stays pluggable; clExpr is the same
// weighting as OpenCL source, substituted into the kernel.
type directivity struct {
	name   string
	weight func(cosTheta float32) float32
	clExpr string
}

// isotropicDirectivity ignores the emission angle.
var isotropicDirectivity = directivity{
	name:   "isotropic",
	weight: func(float32) float32 { return 1 },
	clExpr: "1.0f",
}

// cosDirectivity attenuates emission away from the forward axis and blocks
// the back half-space.
var cosDirectivity = directivity{
	name: "cos",
	weight: func(cosTheta float32) float32 {
		if cosTheta < 0 {
			return 0
		}
		return cosTheta
	},
	clExpr: "fmax(cos_theta, 0.0f)",
}

// directivityByName resolves the -directivity flag value.
func directivityByName(name string) (directivity, bool) {
	switch name {
	case isotropicDirectivity.name:
		return isotropicDirectivity, true
	case cosDirectivity.name:
		return cosDirectivity, true
	}
	return directivity{}, false
}

// Kernel-source snippets kept next to the Go implementations they mirror.
// fieldContributionCL accumulates one source into (re, im); it reads the
// same dequantized drive values and the same contribution formula as
// fieldContribution below. The directivity expression is substituted for
// %DIRECTIVITY% when the kernel is assembled.
const fieldContributionCL = `
        float3 d = p - pos;
        float r = fmax(length(d), 1e-6f);
        float cos_theta = dot(axis, d) / r;
        float w = %DIRECTIVITY%;
        float amp = (float)(drive.y) * (1.0f / 255.0f);
        float phase = (float)(drive.x) * (2.0f * M_PI_F / 255.0f);
        float arg = wavenum * r - phase;
        float g = amp * w / r;
        re += g * cos(arg);
        im += g * sin(arg);`

// quantizePhase encodes a phase in [0, 2π) into one byte.
func quantizePhase(phase float32) uint8 {
	v := math32.Round(phase / twoPi * 255)
	if v < 0 {
		v = 0
	} else if v > 255 {
		v = 255
	}
	return uint8(v)
}

// quantizeAmp encodes an amplitude in [0, 1] into one byte.
func quantizeAmp(amp float32) uint8 {
	v := math32.Round(amp * 255)
	if v < 0 {
		v = 0
	} else if v > 255 {
		v = 255
	}
	return uint8(v)
}

// dequantizePhase is the inverse used by both evaluation paths.
func dequantizePhase(b uint8) float32 {
	return float32(b) * (twoPi / 255)
}

// dequantizeAmp is the inverse used by both evaluation paths.
func dequantizeAmp(b uint8) float32 {
	return float32(b) * (1.0 / 255)
}

// fieldContribution accumulates one source's complex contribution at p.
// pos and axis come from the position encoding; phaseByte and ampByte from
// the 8-bit drive encoding, so CPU results match the GPU texel inputs.
func fieldContribution(p, pos, axis mgl32.Vec3, phaseByte, ampByte uint8, wavenum float32, dir directivity) (re, im float32) {
	d := p.Sub(pos)
	r := d.Len()
	if r < 1e-6 {
		r = 1e-6
	}
	cosTheta := axis.Dot(d) / r
	g := dequantizeAmp(ampByte) * dir.weight(cosTheta) / r
	arg := wavenum*r - dequantizePhase(phaseByte)
	return g * math32.Cos(arg), g * math32.Sin(arg)
}

// fieldScalar reduces the summed complex pressure to the rendered scalar.
func fieldScalar(re, im float32, mode fieldMode) float32 {
	if mode == fieldModeReal {
		return re
	}
	return math32.Hypot(re, im)
}

// wavenumberOf converts a wavelength to the spatial frequency uniform.
func wavenumberOf(waveLength float32) float32 {
	return twoPi / waveLength
}

// rampIndex maps a field scalar through the color scale into a ramp sample
// index, clamping to the valid range. The kernel mirrors this exactly.
const rampIndexCL = `
    float v = clamp(value * color_scale, 0.0f, 1.0f);
    int ci = clamp((int)(v * (float)ramp_len), 0, ramp_len - 1);`

func rampIndex(value, colorScale float32, rampLen int) int {
	v := value * colorScale
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	i := int(v * float32(rampLen))
	if i >= rampLen {
		i = rampLen - 1
	}
	return i
}

// premultiply converts a straight-alpha RGBA texel into the premultiplied
// form the final image upload expects.
func premultiply(r, g, b, a uint8) (uint8, uint8, uint8, uint8) {
	m := func(c uint8) uint8 { return uint8((uint16(c)*uint16(a) + 127) / 255) }
	return m(r), m(g), m(b), a
}
