package main

import "github.com/go-gl/mathgl/mgl32"

// poseMatrix builds a rigid transform from a translation and XYZ Euler
// angles in radians.
func poseMatrix(pos, rot [3]float32) mgl32.Mat4 {
	t := mgl32.Translate3D(pos[0], pos[1], pos[2])
	r := mgl32.AnglesToQuat(rot[0], rot[1], rot[2], mgl32.XYZ).Mat4()
	return t.Mul4(r)
}

// sliceModelMatrix places the slice quad in the world.
func sliceModelMatrix(s *viewerSettings) mgl32.Mat4 {
	return poseMatrix(s.SlicePos, s.SliceRot)
}

// viewMatrix is the inverse of the camera pose.
func viewMatrix(s *viewerSettings) mgl32.Mat4 {
	return poseMatrix(s.CameraPos, s.CameraRot).Inv()
}

// projectionMatrix builds the perspective projection for the given output
// aspect ratio.
func projectionMatrix(s *viewerSettings, aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(s.Fov), aspect, s.NearClip, s.FarClip)
}

// modelViewProjection composes the combined matrix bound as a uniform.
func modelViewProjection(model, view, projection mgl32.Mat4) mgl32.Mat4 {
	return projection.Mul4(view).Mul4(model)
}

// projectToScreen maps a world-space point through an MVP into pixel
// coordinates of a w×h output. ok is false when the point lies behind the
// near plane.
func projectToScreen(mvp mgl32.Mat4, p mgl32.Vec3, w, h float32) (x, y float32, ok bool) {
	clip := mvp.Mul4x1(p.Vec4(1))
	if clip.W() <= 0 {
		return 0, 0, false
	}
	inv := 1 / clip.W()
	ndcX := clip.X() * inv
	ndcY := clip.Y() * inv
	return (ndcX + 1) * 0.5 * w, (1 - ndcY) * 0.5 * h, true
}
