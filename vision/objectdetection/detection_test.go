package objectdetection

import (
	"context"
	"image"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestBuildFunc(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 400))
	_, err := Build(nil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "must have a Detector")
	// detector that creates an error
	det := func(context.Context, image.Image) (DetectionSet, error) {
		return nil, errors.New("detector error")
	}
	ctx := context.Background()
	pipeline, err := Build(det)
	test.That(t, err, test.ShouldBeNil)
	_, err = pipeline(ctx, img)
	test.That(t, err.Error(), test.ShouldEqual, "detector error")
	// make simple detector
	det = func(context.Context, image.Image) (DetectionSet, error) {
		return DetectionSet{{}}, nil
	}
	pipeline, err = Build(det)
	test.That(t, err, test.ShouldBeNil)
	res, err := pipeline(ctx, img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res, test.ShouldHaveLength, 1)
	// make simple filter
	filt := func(d DetectionSet) DetectionSet {
		return DetectionSet{}
	}
	pipeline, err = Build(det, filt)
	test.That(t, err, test.ShouldBeNil)
	res, err = pipeline(ctx, img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res, test.ShouldHaveLength, 0)
}

func TestEmptyDetection(t *testing.T) {
	d := Detection{}
	top, ok := d.Top()
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, top, test.ShouldResemble, Category{})
	test.That(t, d.Score(), test.ShouldEqual, 0.0)
	test.That(t, d.Label(), test.ShouldEqual, "")
	test.That(t, d.BoundingBox, test.ShouldResemble, Rect{})
}

func TestRect(t *testing.T) {
	r := RectFromImage(image.Rect(10, 20, 110, 70))
	test.That(t, r, test.ShouldResemble, Rect{10, 20, 110, 70})
	test.That(t, r.Width(), test.ShouldEqual, 100.)
	test.That(t, r.Height(), test.ShouldEqual, 50.)
	test.That(t, r.Area(), test.ShouldEqual, 5000.)
	test.That(t, RectFromR2(r.R2()), test.ShouldResemble, r)
	test.That(t, r.Scale(2), test.ShouldResemble, Rect{20, 40, 220, 140})

	test.That(t, r.IoU(r), test.ShouldEqual, 1.)
	test.That(t, r.IoU(Rect{200, 200, 300, 300}), test.ShouldEqual, 0.)
	// half overlap: intersection 2500, union 7500
	test.That(t, r.IoU(Rect{60, 20, 160, 70}), test.ShouldAlmostEqual, 1./3)
	test.That(t, Rect{5, 5, 1, 1}.Area(), test.ShouldEqual, 0.)
}
