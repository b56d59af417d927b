package objectdetection

import (
	"context"
	"image"
	"testing"

	"go.viam.com/test"
)

func TestSimpleDetector(t *testing.T) {
	img := darkSquare(100, 80, image.Rect(10, 10, 30, 20))
	// second blob, touching the image edge
	for y := 60; y < 80; y++ {
		for x := 90; x < 100; x++ {
			img.Pix[img.PixOffset(x, y)] = 0
			img.Pix[img.PixOffset(x, y)+1] = 0
			img.Pix[img.PixOffset(x, y)+2] = 0
		}
	}
	dets, err := NewSimpleDetector(128)(context.Background(), img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dets, test.ShouldHaveLength, 2)
	test.That(t, dets[0].BoundingBox, test.ShouldResemble, Rect{10, 10, 30, 20})
	test.That(t, dets[1].BoundingBox, test.ShouldResemble, Rect{90, 60, 100, 80})
	for _, d := range dets {
		test.That(t, d.Label(), test.ShouldEqual, SimpleLabel)
		test.That(t, d.Score(), test.ShouldEqual, 1.0)
	}
}

func TestSimpleDetectorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSimpleDetector(128)(ctx, darkSquare(10, 10, image.Rectangle{}))
	test.That(t, err, test.ShouldEqual, context.Canceled)
}
