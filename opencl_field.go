//go:build opencl

package main

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"
)

// openCLFieldEvaluator keeps the source encodings resident on an OpenCL
// device and evaluates the superposed field with one work item per slice
// texel.
type openCLFieldEvaluator struct {
	context *cl.Context
	queue   *cl.CommandQueue
	program *cl.Program
	kernel  *cl.Kernel

	posBuf   *cl.MemObject
	axisBuf  *cl.MemObject
	driveBuf *cl.MemObject
	rampBuf  *cl.MemObject
	outBuf   *cl.MemObject

	count      int
	driveCount int
	ramp       []uint8
	outTexels  int
	outScratch []float32
	deviceName string
}

// fieldKernelSource assembles the kernel from the shared formula snippets so
// the device computes exactly what the CPU reference computes.
func fieldKernelSource(dir directivity) string {
	expr := dir.clExpr
	if expr == "" {
		expr = isotropicDirectivity.clExpr
	}
	contrib := strings.ReplaceAll(fieldContributionCL, "%DIRECTIVITY%", expr)
	return `__kernel void field_slice(
    const int width,
    const int height,
    const int num_trans,
    const float wavenum,
    const float color_scale,
    const int real_mode,
    const int ramp_len,
    const float ox, const float oy, const float oz,
    const float ux, const float uy, const float uz,
    const float vx, const float vy, const float vz,
    __global const float4* trans_pos,
    __global const float4* trans_axis,
    __global const uchar4* trans_drive,
    __global const uchar4* color_map,
    __global float4* out_color)
{
    int idx = get_global_id(0);
    if (idx >= width * height) {
        return;
    }
    int tx = idx % width;
    int ty = idx / width;
    float3 p = (float3)(ox, oy, oz)
        + (float)tx * (float3)(ux, uy, uz)
        + (float)ty * (float3)(vx, vy, vz);
    float re = 0.0f;
    float im = 0.0f;
    for (int i = 0; i < num_trans; i++) {
        float3 pos = trans_pos[i].xyz;
        float3 axis = trans_axis[i].xyz;
        uchar4 drive = trans_drive[i];
` + contrib + `
    }
    float value = real_mode != 0 ? re : sqrt(re * re + im * im);
` + rampIndexCL + `
    out_color[idx] = convert_float4(color_map[ci]) * (1.0f / 255.0f);
}`
}

// newOpenCLFieldEvaluator picks a GPU device (falling back to CPU devices)
// and compiles the field kernel for the given directivity.
func newOpenCLFieldEvaluator(dir directivity) (*openCLFieldEvaluator, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		msg := "querying OpenCL platforms"
		if strings.Contains(err.Error(), "-1001") {
			msg += ": no ICD loader reported any platforms; install OpenCL drivers and verify with `clinfo`"
		}
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	if len(platforms) == 0 {
		return nil, errors.New("no OpenCL platforms available")
	}
	var device *cl.Device
	for _, p := range platforms {
		devices, derr := p.GetDevices(cl.DeviceTypeGPU)
		if derr != nil && derr != cl.ErrDeviceNotFound {
			continue
		}
		if len(devices) > 0 {
			device = devices[0]
			break
		}
	}
	if device == nil {
		for _, p := range platforms {
			devices, derr := p.GetDevices(cl.DeviceTypeCPU)
			if derr != nil && derr != cl.ErrDeviceNotFound {
				continue
			}
			if len(devices) > 0 {
				device = devices[0]
				break
			}
		}
	}
	if device == nil {
		return nil, errors.New("no suitable OpenCL devices found")
	}

	context, err := cl.CreateContext([]*cl.Device{device})
	if err != nil {
		return nil, fmt.Errorf("creating OpenCL context: %w", err)
	}
	queue, err := context.CreateCommandQueue(device, 0)
	if err != nil {
		context.Release()
		return nil, fmt.Errorf("creating OpenCL command queue: %w", err)
	}
	program, err := context.CreateProgramWithSource([]string{fieldKernelSource(dir)})
	if err != nil {
		queue.Release()
		context.Release()
		return nil, fmt.Errorf("creating OpenCL program: %w", err)
	}
	if err := program.BuildProgram([]*cl.Device{device}, ""); err != nil {
		program.Release()
		queue.Release()
		context.Release()
		if buildErr, ok := err.(cl.BuildError); ok {
			return nil, fmt.Errorf("building OpenCL program: %s", string(buildErr))
		}
		return nil, fmt.Errorf("building OpenCL program: %w", err)
	}
	kernel, err := program.CreateKernel("field_slice")
	if err != nil {
		program.Release()
		queue.Release()
		context.Release()
		return nil, fmt.Errorf("creating field kernel: %w", err)
	}

	return &openCLFieldEvaluator{
		context:    context,
		queue:      queue,
		program:    program,
		kernel:     kernel,
		deviceName: device.Name(),
	}, nil
}

// replaceBuffer allocates and fills a device buffer, releasing the previous
// one only after the new allocation succeeded so a failed rebuild leaves the
// stale encoding usable.
func (e *openCLFieldEvaluator) replaceBuffer(old *cl.MemObject, data unsafe.Pointer, byteLen int) (*cl.MemObject, error) {
	buf, err := e.context.CreateEmptyBuffer(cl.MemReadOnly, byteLen)
	if err != nil {
		return old, fmt.Errorf("allocating device buffer: %w", err)
	}
	if _, err := e.queue.EnqueueWriteBuffer(buf, true, 0, byteLen, data, nil); err != nil {
		buf.Release()
		return old, fmt.Errorf("writing device buffer: %w", err)
	}
	if old != nil {
		old.Release()
	}
	return buf, nil
}

func (e *openCLFieldEvaluator) SetPositions(pos, axis []float32, count int) error {
	if count == 0 {
		e.count = 0
		return nil
	}
	buf, err := e.replaceBuffer(e.posBuf, unsafe.Pointer(&pos[0]), len(pos)*4)
	if err != nil {
		return fmt.Errorf("position encoding: %w", err)
	}
	e.posBuf = buf
	buf, err = e.replaceBuffer(e.axisBuf, unsafe.Pointer(&axis[0]), len(axis)*4)
	if err != nil {
		return fmt.Errorf("orientation encoding: %w", err)
	}
	e.axisBuf = buf
	e.count = count
	return nil
}

func (e *openCLFieldEvaluator) SetDrive(texels []uint8) error {
	if len(texels) == 0 {
		return nil
	}
	buf, err := e.replaceBuffer(e.driveBuf, unsafe.Pointer(&texels[0]), len(texels))
	if err != nil {
		return fmt.Errorf("drive encoding: %w", err)
	}
	e.driveBuf = buf
	e.driveCount = len(texels) / 4
	return nil
}

func (e *openCLFieldEvaluator) SetColorRamp(texels []uint8) error {
	if len(texels) == 0 {
		return errors.New("empty color ramp")
	}
	buf, err := e.replaceBuffer(e.rampBuf, unsafe.Pointer(&texels[0]), len(texels))
	if err != nil {
		return fmt.Errorf("color ramp encoding: %w", err)
	}
	e.rampBuf = buf
	// Host copy for frames that never reach the kernel.
	e.ramp = append(e.ramp[:0], texels...)
	return nil
}

// ensureOutBuffer sizes the output color buffer to the current texel count.
func (e *openCLFieldEvaluator) ensureOutBuffer(texels int) error {
	if e.outBuf != nil && e.outTexels == texels {
		return nil
	}
	buf, err := e.context.CreateEmptyBuffer(cl.MemWriteOnly, texels*4*4)
	if err != nil {
		return fmt.Errorf("allocating output buffer: %w", err)
	}
	if e.outBuf != nil {
		e.outBuf.Release()
	}
	e.outBuf = buf
	e.outTexels = texels
	if cap(e.outScratch) < texels*4 {
		e.outScratch = make([]float32, texels*4)
	}
	return nil
}

func (e *openCLFieldEvaluator) Evaluate(job fieldJob, dst []uint8) error {
	texels := job.width * job.height
	if len(dst) != texels*4 {
		return fmt.Errorf("field buffer size %d does not match %dx%d texels", len(dst), job.width, job.height)
	}
	if e.rampBuf == nil || len(e.ramp) < 4 {
		return errors.New("color ramp not encoded")
	}
	// The position and drive encodings are rebuilt independently and one
	// rebuild can fail while the other lands, so the kernel loop must not
	// trust job.count alone: reading trans_drive past a stale, shorter
	// buffer is an out-of-bounds device access.
	count := boundedSourceCount(job.count, e.count, e.driveCount)
	if count == 0 || e.posBuf == nil || e.driveBuf == nil {
		fillRampZero(dst, e.ramp)
		return nil
	}
	if err := e.ensureOutBuffer(texels); err != nil {
		return err
	}
	realMode := int32(0)
	if job.mode == fieldModeReal {
		realMode = 1
	}
	if err := e.kernel.SetArgs(
		int32(job.width),
		int32(job.height),
		int32(count),
		job.wavenum,
		job.colorScale,
		realMode,
		int32(colorRampSamples),
		job.origin.X(), job.origin.Y(), job.origin.Z(),
		job.du.X(), job.du.Y(), job.du.Z(),
		job.dv.X(), job.dv.Y(), job.dv.Z(),
		e.posBuf,
		e.axisBuf,
		e.driveBuf,
		e.rampBuf,
		e.outBuf,
	); err != nil {
		return fmt.Errorf("setting kernel arguments: %w", err)
	}
	if _, err := e.queue.EnqueueNDRangeKernel(e.kernel, nil, []int{texels}, nil, nil); err != nil {
		return fmt.Errorf("enqueueing field kernel: %w", err)
	}
	scratch := e.outScratch[:texels*4]
	if _, err := e.queue.EnqueueReadBufferFloat32(e.outBuf, true, 0, scratch, nil); err != nil {
		return fmt.Errorf("reading field output: %w", err)
	}
	for i := 0; i < texels; i++ {
		r := uint8(scratch[i*4]*255 + 0.5)
		g := uint8(scratch[i*4+1]*255 + 0.5)
		b := uint8(scratch[i*4+2]*255 + 0.5)
		a := uint8(scratch[i*4+3]*255 + 0.5)
		pr, pg, pb, pa := premultiply(r, g, b, a)
		dst[i*4] = pr
		dst[i*4+1] = pg
		dst[i*4+2] = pb
		dst[i*4+3] = pa
	}
	return nil
}

func (e *openCLFieldEvaluator) Close() {
	for _, buf := range []**cl.MemObject{&e.outBuf, &e.rampBuf, &e.driveBuf, &e.axisBuf, &e.posBuf} {
		if *buf != nil {
			(*buf).Release()
			*buf = nil
		}
	}
	if e.kernel != nil {
		e.kernel.Release()
		e.kernel = nil
	}
	if e.program != nil {
		e.program.Release()
		e.program = nil
	}
	if e.queue != nil {
		e.queue.Release()
		e.queue = nil
	}
	if e.context != nil {
		e.context.Release()
		e.context = nil
	}
}

func (e *openCLFieldEvaluator) DeviceName() string {
	return e.deviceName
}
