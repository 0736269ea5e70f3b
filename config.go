package main

// Hardware and rendering configuration constants. The transducer grid values
// mirror the AUTD device layout; distances are in millimeters throughout.
const (
	numTransX    = 18
	numTransY    = 14
	transSpacing = 10.16

	defaultWindowWidth  = 960
	defaultWindowHeight = 640

	defaultSliceWidth  = 300
	defaultSliceHeight = 300

	colorRampSamples = 100

	// 40 kHz ultrasound in air.
	defaultWaveLength = 8.5

	defaultColorScale = 0.6
	defaultSliceAlpha = 0.95

	defaultPort = 50632

	// Upper bound on feed events applied per tick so a flooding sender
	// cannot starve the render loop.
	maxFeedEventsPerTick = 64

	feedQueueDepth = 256

	cameraMoveSpeed   = 2.0
	cameraRotateSpeed = 0.01
	sliceMoveSpeed    = 1.0
	colorScaleStep    = 0.05

	// Slice vertex coordinates are encoded as signed 16-bit components.
	vertexCoordMin = -32768
	vertexCoordMax = 32767

	// Per-axis cap on the field texture resolution. The vertex clamp alone
	// admits 65535-unit extents, which no common GPU accepts as a texture
	// dimension; oversized slices sample more coarsely instead.
	maxFieldTexDim = 4096

	sourceMarkerRadius = 2.5

	audioProbeSampleRate = 48000
)
