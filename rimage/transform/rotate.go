package transform

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// ErrInvalidRotation is returned for any rotation that is not a quarter turn.
var ErrInvalidRotation = errors.New("rotation must be one of 0, 90, 180 or 270 degrees")

// quarter-turn cos/sin pairs, indexed by rotation/90. Exact values keep mapped coordinates free
// of float noise.
var quarterTurns = [4][2]float64{
	{1, 0},
	{0, 1},
	{-1, 0},
	{0, -1},
}

// ValidRotation reports whether deg is one of 0, 90, 180 or 270.
func ValidRotation(deg int) bool {
	return deg == 0 || deg == 90 || deg == 180 || deg == 270
}

// RotatedSize returns the dimensions of a w x h canvas after it has been rotated by deg degrees.
func RotatedSize(w, h, deg int) (int, int, error) {
	switch deg {
	case 0, 180:
		return w, h, nil
	case 90, 270:
		return h, w, nil
	default:
		return 0, 0, errors.Wrapf(ErrInvalidRotation, "got %d", deg)
	}
}

// RotatePoint maps a point on a w x h canvas onto the same canvas rotated clockwise by deg
// degrees. Image coordinates are y-down, so a clockwise turn sends (x, y) to (h-y, x) for 90.
func RotatePoint(p r2.Point, deg int, w, h float64) (r2.Point, error) {
	if !ValidRotation(deg) {
		return r2.Point{}, errors.Wrapf(ErrInvalidRotation, "got %d", deg)
	}
	cs := quarterTurns[deg/90]
	cos, sin := cs[0], cs[1]

	cx, cy := p.X-w/2, p.Y-h/2
	rx := cx*cos - cy*sin
	ry := cx*sin + cy*cos

	outW, outH := w, h
	if deg == 90 || deg == 270 {
		outW, outH = h, w
	}
	return r2.Point{X: rx + outW/2, Y: ry + outH/2}, nil
}

// RotateRect maps r from a w x h canvas onto the canvas rotated clockwise by deg degrees and
// returns the bounding rectangle of the mapped corners.
func RotateRect(r r2.Rect, deg int, w, h float64) (r2.Rect, error) {
	corners := r.Vertices()
	mapped := make([]r2.Point, 0, len(corners))
	for _, c := range corners {
		p, err := RotatePoint(c, deg, w, h)
		if err != nil {
			return r2.EmptyRect(), err
		}
		mapped = append(mapped, p)
	}
	return r2.RectFromPoints(mapped...), nil
}

// UnrotateRect is the inverse of RotateRect: r lives on the canvas that resulted from rotating a
// w x h canvas by deg, and is mapped back onto the original w x h canvas.
func UnrotateRect(r r2.Rect, deg int, w, h float64) (r2.Rect, error) {
	if !ValidRotation(deg) {
		return r2.EmptyRect(), errors.Wrapf(ErrInvalidRotation, "got %d", deg)
	}
	rotW, rotH := w, h
	if deg == 90 || deg == 270 {
		rotW, rotH = h, w
	}
	return RotateRect(r, (360-deg)%360, rotW, rotH)
}
