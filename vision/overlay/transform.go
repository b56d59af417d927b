// Package overlay maps detection boxes from source image space onto a drawing surface and draws
// them with their labels.
package overlay

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/aidas-vision/aidas/rimage/transform"
	"github.com/aidas-vision/aidas/vision/objectdetection"
	"github.com/aidas-vision/aidas/vision/results"
)

// ErrInvalidRotation is returned when an envelope carries a rotation that is not a quarter turn.
var ErrInvalidRotation = transform.ErrInvalidRotation

// Transform maps source image coordinates onto a surface. It is derived from a single envelope
// and is only valid for that envelope.
type Transform struct {
	ScaleFactor     float64
	RotationDegrees int
	// SourceWidth and SourceHeight are the un-rotated source dimensions.
	SourceWidth  int
	SourceHeight int
	// EffectiveWidth and EffectiveHeight are the source dimensions after rotation.
	EffectiveWidth  int
	EffectiveHeight int
}

// ComputeTransform derives the transform for env on a surfaceW x surfaceH surface. Still images
// are scaled to fit the surface; video and live frames are scaled to fill it.
func ComputeTransform(env results.Envelope, surfaceW, surfaceH int, mode objectdetection.RunningMode) (Transform, error) {
	effW, effH, err := transform.RotatedSize(env.SourceWidth, env.SourceHeight, env.SourceRotation)
	if err != nil {
		return Transform{}, err
	}
	if effW <= 0 || effH <= 0 {
		return Transform{}, errors.Errorf("invalid source size %dx%d", env.SourceWidth, env.SourceHeight)
	}
	if surfaceW <= 0 || surfaceH <= 0 {
		return Transform{}, errors.Errorf("invalid surface size %dx%d", surfaceW, surfaceH)
	}

	sx := float64(surfaceW) / float64(effW)
	sy := float64(surfaceH) / float64(effH)
	scale := math.Max(sx, sy)
	if mode == objectdetection.SingleImage {
		scale = math.Min(sx, sy)
	}
	return Transform{
		ScaleFactor:     scale,
		RotationDegrees: env.SourceRotation,
		SourceWidth:     env.SourceWidth,
		SourceHeight:    env.SourceHeight,
		EffectiveWidth:  effW,
		EffectiveHeight: effH,
	}, nil
}

// MapRect maps a source-space box onto the surface: rotate about the source center, re-center
// on the rotated canvas, then scale.
func (t Transform) MapRect(box objectdetection.Rect) (r2.Rect, error) {
	rotated, err := transform.RotateRect(box.R2(), t.RotationDegrees,
		float64(t.SourceWidth), float64(t.SourceHeight))
	if err != nil {
		return r2.EmptyRect(), err
	}
	return r2.RectFromPoints(rotated.Lo().Mul(t.ScaleFactor), rotated.Hi().Mul(t.ScaleFactor)), nil
}
