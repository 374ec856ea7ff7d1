package sign

// ScreenPoint is a position in rendering-surface pixels, top-left origin.
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ScreenRect is an axis-aligned rectangle in rendering-surface pixels,
// top-left origin, non-negative width and height.
type ScreenRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DocumentRect is an axis-aligned rectangle in document space (points),
// bottom-left origin. Derived from a ScreenRect; never mutated directly.
type DocumentRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsZero reports whether the rectangle has no area.
func (r ScreenRect) IsZero() bool {
	return r.Width <= 0 || r.Height <= 0
}

// IsZero reports whether the rectangle has no area.
func (r DocumentRect) IsZero() bool {
	return r.Width <= 0 || r.Height <= 0
}

// ToDocumentRect maps a screen-pixel rectangle on a rendered page to
// document space. The scale factor is derived from the rendered width
// alone and applied to both axes; pages rendered with a non-square
// aspect mismatch are not corrected. The vertical axis is flipped from
// top-left (screen) to bottom-left (document) origin.
//
// renderedHpx is accepted for contract symmetry with ToScreenRect but
// does not participate in the uniform-scale mapping.
func ToDocumentRect(r ScreenRect, renderedWpx, renderedHpx, pageWpts, pageHpts float64) DocumentRect {
	_ = renderedHpx
	s := pageWpts / renderedWpx
	w := r.Width * s
	h := r.Height * s
	return DocumentRect{
		X:      r.X * s,
		Y:      pageHpts - r.Y*s - h,
		Width:  w,
		Height: h,
	}
}

// ToScreenRect is the inverse of ToDocumentRect under the same uniform
// scale. Used to re-project a committed selection after a re-render and
// by the round-trip tests.
func ToScreenRect(r DocumentRect, renderedWpx, renderedHpx, pageWpts, pageHpts float64) ScreenRect {
	_ = renderedHpx
	s := pageWpts / renderedWpx
	return ScreenRect{
		X:      r.X / s,
		Y:      (pageHpts - r.Y - r.Height) / s,
		Width:  r.Width / s,
		Height: r.Height / s,
	}
}
