package overlay

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/aidas-vision/aidas/vision/objectdetection"
	"github.com/aidas-vision/aidas/vision/results"
)

func TestComputeTransformRotatedFit(t *testing.T) {
	env := results.Envelope{SourceWidth: 800, SourceHeight: 600, SourceRotation: 90}
	tr, err := ComputeTransform(env, 600, 800, objectdetection.SingleImage)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tr.EffectiveWidth, test.ShouldEqual, 600)
	test.That(t, tr.EffectiveHeight, test.ShouldEqual, 800)
	test.That(t, tr.ScaleFactor, test.ShouldEqual, 1.0)
}

func TestComputeTransformFitAndFill(t *testing.T) {
	env := results.Envelope{SourceWidth: 800, SourceHeight: 600}

	fit, err := ComputeTransform(env, 400, 400, objectdetection.SingleImage)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fit.ScaleFactor, test.ShouldEqual, 0.5)

	for _, mode := range []objectdetection.RunningMode{objectdetection.Video, objectdetection.LiveStream} {
		fill, err := ComputeTransform(env, 400, 400, mode)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, fill.ScaleFactor, test.ShouldAlmostEqual, 400.0/600.0)
	}
}

func TestComputeTransformAlwaysPositive(t *testing.T) {
	modes := []objectdetection.RunningMode{objectdetection.SingleImage, objectdetection.Video, objectdetection.LiveStream}
	for _, rot := range []int{0, 90, 180, 270} {
		for _, mode := range modes {
			for _, surface := range [][2]int{{1, 1}, {600, 800}, {1920, 1080}, {3, 4000}} {
				env := results.Envelope{SourceWidth: 640, SourceHeight: 480, SourceRotation: rot}
				tr, err := ComputeTransform(env, surface[0], surface[1], mode)
				test.That(t, err, test.ShouldBeNil)
				test.That(t, tr.ScaleFactor, test.ShouldBeGreaterThan, 0)
				test.That(t, math.IsInf(tr.ScaleFactor, 0), test.ShouldBeFalse)
				if rot == 90 || rot == 270 {
					test.That(t, tr.EffectiveWidth, test.ShouldEqual, 480)
					test.That(t, tr.EffectiveHeight, test.ShouldEqual, 640)
				} else {
					test.That(t, tr.EffectiveWidth, test.ShouldEqual, 640)
					test.That(t, tr.EffectiveHeight, test.ShouldEqual, 480)
				}
			}
		}
	}
}

func TestComputeTransformErrors(t *testing.T) {
	_, err := ComputeTransform(results.Envelope{SourceWidth: 10, SourceHeight: 10, SourceRotation: 45},
		10, 10, objectdetection.SingleImage)
	test.That(t, errors.Is(err, ErrInvalidRotation), test.ShouldBeTrue)

	_, err = ComputeTransform(results.Envelope{}, 10, 10, objectdetection.SingleImage)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ComputeTransform(results.Envelope{SourceWidth: 10, SourceHeight: 10}, 0, 10, objectdetection.Video)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMapRect(t *testing.T) {
	box := objectdetection.Rect{Left: 10, Top: 20, Right: 110, Bottom: 70}

	tr, err := ComputeTransform(results.Envelope{SourceWidth: 800, SourceHeight: 600, SourceRotation: 90},
		600, 800, objectdetection.SingleImage)
	test.That(t, err, test.ShouldBeNil)
	got, err := tr.MapRect(box)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, r2.RectFromPoints(r2.Point{X: 530, Y: 10}, r2.Point{X: 580, Y: 110}))

	tr, err = ComputeTransform(results.Envelope{SourceWidth: 800, SourceHeight: 600},
		400, 300, objectdetection.SingleImage)
	test.That(t, err, test.ShouldBeNil)
	got, err = tr.MapRect(box)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, r2.RectFromPoints(r2.Point{X: 5, Y: 10}, r2.Point{X: 55, Y: 35}))
}
