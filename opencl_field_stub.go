//go:build !opencl

package main

import "errors"

type openCLFieldEvaluator struct{}

func newOpenCLFieldEvaluator(_ directivity) (*openCLFieldEvaluator, error) {
	return nil, errors.New("OpenCL support is not enabled; rebuild with -tags opencl")
}

func (e *openCLFieldEvaluator) SetPositions(_, _ []float32, _ int) error {
	return errors.New("OpenCL evaluator unavailable")
}

func (e *openCLFieldEvaluator) SetDrive(_ []uint8) error {
	return errors.New("OpenCL evaluator unavailable")
}

func (e *openCLFieldEvaluator) SetColorRamp(_ []uint8) error {
	return errors.New("OpenCL evaluator unavailable")
}

func (e *openCLFieldEvaluator) Evaluate(_ fieldJob, _ []uint8) error {
	return errors.New("OpenCL evaluator unavailable")
}

func (e *openCLFieldEvaluator) Close() {}

func (e *openCLFieldEvaluator) DeviceName() string { return "" }
