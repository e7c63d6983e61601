package geom

// ProjectInsideGuardian clamps each axis of p into
// [guardian, size-guardian-1] for a grid of width w and height h.
func ProjectInsideGuardian(p Vec2, w, h, guardian int) Vec2 {
	g := float32(guardian)
	lo := Vec2{X: g, Y: g}
	hi := Vec2{X: float32(w) - g - 1, Y: float32(h) - g - 1}
	return p.Clamp(lo, hi)
}
