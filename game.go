package main

import (
	"log"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Game drives one tick per presented frame: drain the command feed, apply
// input, synchronize GPU resources, evaluate the field, draw. All mutation
// of the source array and settings happens here, on the render goroutine.
type Game struct {
	settings viewerSettings
	pending  updateFlag
	sources  *sourceArray
	viewer   *sliceViewer
	feed     *feedServer
	dir      directivity

	savedAmps []float32

	view mgl32.Mat4
	proj mgl32.Mat4
	vp   mgl32.Mat4

	fieldImg *ebiten.Image
	fieldPix []uint8
	fieldGen int

	lastSyncErr error
	lastEvalErr error
	backendName string

	audioCtx    *audio.Context
	audioStream *probeAudioStream
	audioPlayer *audio.Player
}

// newGame wires the viewer core to its collaborators. A fresh game starts
// with every update bit set so the first tick builds all resources before
// the first draw.
func newGame(settings viewerSettings, eval fieldEvaluator, feed *feedServer, dir directivity, backendName string) *Game {
	g := &Game{
		settings:    settings,
		pending:     updateAll,
		viewer:      newSliceViewer(eval),
		feed:        feed,
		dir:         dir,
		backendName: backendName,
	}
	g.sources = newSourceArray(&g.pending)
	if *enableAudioFlag {
		g.audioCtx = audio.NewContext(audioProbeSampleRate)
		g.audioStream = newProbeAudioStream()
		player, err := g.audioCtx.NewPlayer(g.audioStream)
		if err != nil {
			log.Printf("audio player creation failed: %v", err)
		} else {
			g.audioPlayer = player
			g.audioPlayer.SetBufferSize(80 * time.Millisecond)
			g.audioPlayer.Play()
		}
	}
	return g
}

// Update runs one tick.
func (g *Game) Update() error {
	g.savedAmps = g.feed.drain(g.sources, g.savedAmps)
	g.handleInput()

	aspect := float32(g.settings.WindowWidth) / float32(g.settings.WindowHeight)
	g.view = viewMatrix(&g.settings)
	g.proj = projectionMatrix(&g.settings, aspect)
	g.vp = g.proj.Mul4(g.view)

	if err := g.viewer.update(&g.pending, &g.settings, g.sources, g.view, g.proj); err != nil {
		// The failed categories keep their bits set; next tick retries
		// while drawing continues with the stale resources.
		g.lastSyncErr = err
		log.Printf("resource sync: %v", err)
	} else {
		g.lastSyncErr = nil
	}

	g.refreshFieldTexture()

	if g.audioStream != nil {
		center := mgl32.Vec3{g.settings.SlicePos[0], g.settings.SlicePos[1], g.settings.SlicePos[2]}
		v := probeFieldSample(g.sources, center, g.viewer.wavenum, g.dir, fieldModeReal)
		g.audioStream.SetSample(v * g.viewer.colorScale)
	}
	return nil
}

// refreshFieldTexture re-evaluates the field into the slice texture,
// recreating it when the geometry generation changed.
func (g *Game) refreshFieldTexture() {
	w, h := g.viewer.geom.texWidth(), g.viewer.geom.texHeight()
	if w <= 0 || h <= 0 {
		return
	}
	if g.fieldImg == nil || g.fieldGen != g.viewer.geomGen {
		if g.fieldImg != nil {
			g.fieldImg.Deallocate()
		}
		g.fieldImg = ebiten.NewImage(w, h)
		g.fieldPix = make([]uint8, w*h*4)
		g.fieldGen = g.viewer.geomGen
	}
	if err := g.viewer.evaluate(&g.settings, g.fieldPix); err != nil {
		// Keep showing the last good texture.
		g.lastEvalErr = err
		log.Printf("field evaluation: %v", err)
		return
	}
	g.lastEvalErr = nil
	g.fieldImg.WritePixels(g.fieldPix)
}

// handleInput maps keyboard controls onto settings mutations, raising the
// matching update bits for the synchronizer.
func (g *Game) handleInput() {
	camStep := func(axis int, delta float32) {
		g.settings.CameraPos[axis] += delta
		g.pending.raise(updateCameraPos)
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) {
		camStep(0, -cameraMoveSpeed)
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) {
		camStep(0, cameraMoveSpeed)
	}
	if ebiten.IsKeyPressed(ebiten.KeyW) {
		camStep(1, cameraMoveSpeed)
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) {
		camStep(1, -cameraMoveSpeed)
	}
	if ebiten.IsKeyPressed(ebiten.KeyE) {
		camStep(2, cameraMoveSpeed)
	}
	if ebiten.IsKeyPressed(ebiten.KeyQ) {
		camStep(2, -cameraMoveSpeed)
	}

	if ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		g.settings.CameraRot[0] += cameraRotateSpeed
		g.pending.raise(updateCameraPos)
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		g.settings.CameraRot[0] -= cameraRotateSpeed
		g.pending.raise(updateCameraPos)
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		g.settings.CameraRot[2] += cameraRotateSpeed
		g.pending.raise(updateCameraPos)
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		g.settings.CameraRot[2] -= cameraRotateSpeed
		g.pending.raise(updateCameraPos)
	}

	sliceStep := func(axis int, delta float32) {
		g.settings.SlicePos[axis] += delta
		g.pending.raise(updateSlicePos)
	}
	if ebiten.IsKeyPressed(ebiten.KeyJ) {
		sliceStep(0, -sliceMoveSpeed)
	}
	if ebiten.IsKeyPressed(ebiten.KeyL) {
		sliceStep(0, sliceMoveSpeed)
	}
	if ebiten.IsKeyPressed(ebiten.KeyI) {
		sliceStep(2, sliceMoveSpeed)
	}
	if ebiten.IsKeyPressed(ebiten.KeyK) {
		sliceStep(2, -sliceMoveSpeed)
	}
	if ebiten.IsKeyPressed(ebiten.KeyZ) {
		g.settings.SliceRot[0] += cameraRotateSpeed
		g.pending.raise(updateSlicePos)
	}
	if ebiten.IsKeyPressed(ebiten.KeyX) {
		g.settings.SliceRot[0] -= cameraRotateSpeed
		g.pending.raise(updateSlicePos)
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) || inpututil.IsKeyJustPressed(ebiten.KeyKPAdd) {
		g.settings.ColorScale += colorScaleStep
		g.pending.raise(updateColorMap)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) || inpututil.IsKeyJustPressed(ebiten.KeyKPSubtract) {
		if g.settings.ColorScale > colorScaleStep {
			g.settings.ColorScale -= colorScaleStep
		}
		g.pending.raise(updateColorMap)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyM) {
		if g.settings.FieldMode == fieldModeMagnitude {
			g.settings.FieldMode = fieldModeReal
		} else {
			g.settings.FieldMode = fieldModeMagnitude
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		port := g.settings.Port
		winW, winH := g.settings.WindowWidth, g.settings.WindowHeight
		g.settings = defaultSettings()
		g.settings.Port = port
		g.settings.WindowWidth, g.settings.WindowHeight = winW, winH
		g.pending.raise(updateAll)
	}
}

// Layout tracks the window size; an aspect change invalidates the
// projection on the next tick.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth < 1 {
		outsideWidth = 1
	}
	if outsideHeight < 1 {
		outsideHeight = 1
	}
	if outsideWidth != g.settings.WindowWidth || outsideHeight != g.settings.WindowHeight {
		g.settings.WindowWidth = outsideWidth
		g.settings.WindowHeight = outsideHeight
		g.pending.raise(updateCameraPos)
	}
	return outsideWidth, outsideHeight
}
