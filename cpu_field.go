package main

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// cpuFieldEvaluator evaluates the pressure field on the host using the same
// formulas and the same 8-bit encodings as the OpenCL kernel. It serves as
// the fallback when no OpenCL device is present and as the test oracle.
type cpuFieldEvaluator struct {
	pos   []float32
	axis  []float32
	drive []uint8
	ramp  []uint8
	count int
	dir   directivity
}

// newCPUFieldEvaluator builds an evaluator with the given directivity.
func newCPUFieldEvaluator(dir directivity) *cpuFieldEvaluator {
	if dir.weight == nil {
		dir = isotropicDirectivity
	}
	return &cpuFieldEvaluator{dir: dir}
}

func (e *cpuFieldEvaluator) SetPositions(pos, axis []float32, count int) error {
	e.pos = append(e.pos[:0], pos...)
	e.axis = append(e.axis[:0], axis...)
	e.count = count
	return nil
}

func (e *cpuFieldEvaluator) SetDrive(texels []uint8) error {
	e.drive = append(e.drive[:0], texels...)
	return nil
}

func (e *cpuFieldEvaluator) SetColorRamp(texels []uint8) error {
	e.ramp = append(e.ramp[:0], texels...)
	return nil
}

// fieldAt sums every encoded source's contribution at the world point p.
func (e *cpuFieldEvaluator) fieldAt(p mgl32.Vec3, job fieldJob) (re, im float32) {
	n := boundedSourceCount(job.count, e.count, len(e.drive)/4)
	for i := 0; i < n; i++ {
		pos := mgl32.Vec3{e.pos[i*4], e.pos[i*4+1], e.pos[i*4+2]}
		axis := mgl32.Vec3{e.axis[i*4], e.axis[i*4+1], e.axis[i*4+2]}
		cr, ci := fieldContribution(p, pos, axis, e.drive[i*4], e.drive[i*4+1], job.wavenum, e.dir)
		re += cr
		im += ci
	}
	return re, im
}

// Evaluate renders the slice texels in parallel row bands, the same
// splitting the CPU wave solver uses.
func (e *cpuFieldEvaluator) Evaluate(job fieldJob, dst []uint8) error {
	if len(dst) != job.width*job.height*4 {
		return fmt.Errorf("field buffer size %d does not match %dx%d texels", len(dst), job.width, job.height)
	}
	if len(e.ramp) < 4 {
		return fmt.Errorf("color ramp not encoded")
	}
	rampLen := len(e.ramp) / 4

	workers := runtime.NumCPU()
	rowsPer := (job.height + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < job.height; start += rowsPer {
		end := start + rowsPer
		if end > job.height {
			end = job.height
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			for y := y0; y < y1; y++ {
				rowOrigin := job.origin.Add(job.dv.Mul(float32(y)))
				base := y * job.width * 4
				for x := 0; x < job.width; x++ {
					p := rowOrigin.Add(job.du.Mul(float32(x)))
					re, im := e.fieldAt(p, job)
					ci := rampIndex(fieldScalar(re, im, job.mode), job.colorScale, rampLen)
					r, g, b, a := premultiply(e.ramp[ci*4], e.ramp[ci*4+1], e.ramp[ci*4+2], e.ramp[ci*4+3])
					dst[base+x*4] = r
					dst[base+x*4+1] = g
					dst[base+x*4+2] = b
					dst[base+x*4+3] = a
				}
			}
		}(start, end)
	}
	wg.Wait()
	return nil
}

func (e *cpuFieldEvaluator) Close() {}
