package main

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Draw renders the source markers and then composites the field slice over
// them with source-over blending. Ebiten has no depth buffer, so painter's
// ordering stands in for the depth test.
func (g *Game) Draw(screen *ebiten.Image) {
	w := float32(g.settings.WindowWidth)
	h := float32(g.settings.WindowHeight)

	g.drawSourceMarkers(screen, w, h)
	g.drawSlice(screen, w, h)

	if *debugFlag {
		v := g.viewer
		msg := fmt.Sprintf("FPS: %.1f\nBackend: %s\nSources: %d\nRebuilds geom/pos/drive/ramp: %d/%d/%d/%d",
			ebiten.ActualFPS(), g.backendName, g.sources.Len(),
			v.geomRebuilds, v.posRebuilds, v.driveRebuilds, v.rampRebuilds)
		if g.lastSyncErr != nil {
			msg += fmt.Sprintf("\nSync: %v", g.lastSyncErr)
		}
		if g.lastEvalErr != nil {
			msg += fmt.Sprintf("\nEval: %v", g.lastEvalErr)
		}
		ebitenutil.DebugPrint(screen, msg)
	}
}

// drawSourceMarkers paints one dot per transducer, tinted by drive phase.
func (g *Game) drawSourceMarkers(screen *ebiten.Image, w, h float32) {
	sources := g.sources.Sources()
	colors := g.viewer.markerColors
	for i := range sources {
		x, y, ok := projectToScreen(g.vp, sources[i].pos, w, h)
		if !ok || i >= len(colors) {
			continue
		}
		vector.DrawFilledCircle(screen, x, y, sourceMarkerRadius, colors[i], true)
	}
}

// drawSlice issues the single field draw call: the two slice triangles with
// the field texture bound, corners projected through the model-view-
// projection uniform.
func (g *Game) drawSlice(screen *ebiten.Image, w, h float32) {
	if g.fieldImg == nil {
		return
	}
	texW := float32(g.fieldImg.Bounds().Dx())
	texH := float32(g.fieldImg.Bounds().Dy())
	srcFor := [4]mgl32.Vec2{{0, 0}, {texW, 0}, {texW, texH}, {0, texH}}

	corners := g.viewer.geom.corners()
	var vertices [4]ebiten.Vertex
	for i, c := range corners {
		x, y, ok := projectToScreen(g.viewer.mvp, c, w, h)
		if !ok {
			// Quad crosses the near plane; skip the draw rather than
			// render a broken projection.
			return
		}
		vertices[i] = ebiten.Vertex{
			DstX: x, DstY: y,
			SrcX: srcFor[i].X(), SrcY: srcFor[i].Y(),
			ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1,
		}
	}
	op := &ebiten.DrawTrianglesOptions{Filter: ebiten.FilterLinear}
	screen.DrawTriangles(vertices[:], quadIndices[:], g.fieldImg, op)
}
