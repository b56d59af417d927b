package objectdetection

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"github.com/aidas-vision/aidas/rimage/transform"
	"github.com/aidas-vision/aidas/utils"
)

// ErrHandleClosed is returned by a handle that has been closed.
var ErrHandleClosed = errors.New("detector handle is closed")

// Detector returns the raw detections found in an image. Boxes are in the pixel space of the
// image it was given.
type Detector func(context.Context, image.Image) (DetectionSet, error)

// Build assembles a Detector followed by optional postprocessors into a single Detector.
func Build(det Detector, filters ...Postprocessor) (Detector, error) {
	if det == nil {
		return nil, errors.New("must have a Detector to build a detection pipeline")
	}
	post := Chain(filters...)
	return func(ctx context.Context, img image.Image) (DetectionSet, error) {
		dets, err := det(ctx, img)
		if err != nil {
			return nil, err
		}
		return post(dets), nil
	}, nil
}

// WithRotation wraps det so that the image is rotated clockwise by deg before detection and the
// resulting boxes are mapped back onto the un-rotated image.
func WithRotation(det Detector, deg int) (Detector, error) {
	if !transform.ValidRotation(deg) {
		return nil, errors.Wrapf(transform.ErrInvalidRotation, "got %d", deg)
	}
	if deg == 0 {
		return det, nil
	}
	return func(ctx context.Context, img image.Image) (DetectionSet, error) {
		w, h := float64(img.Bounds().Dx()), float64(img.Bounds().Dy())
		dets, err := det(ctx, RotateClockwise(img, deg))
		if err != nil {
			return nil, err
		}
		out := make(DetectionSet, 0, len(dets))
		for _, d := range dets {
			box, err := transform.UnrotateRect(d.BoundingBox.R2(), deg, w, h)
			if err != nil {
				return nil, err
			}
			out = append(out, Detection{BoundingBox: RectFromR2(box), Categories: d.Categories})
		}
		return out, nil
	}, nil
}

// RotateClockwise rotates img by a quarter turn multiple. imaging rotates counter-clockwise.
func RotateClockwise(img image.Image, deg int) image.Image {
	switch deg {
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// BuildOptions carry everything a Builder needs. Config is a private copy.
type BuildOptions struct {
	Config          Config
	RotationDegrees int
}

// CompletionFunc receives the outcome of an asynchronous detection along with the timestamp the
// frame was submitted with.
type CompletionFunc func(dets DetectionSet, timestamp time.Time, err error)

// Handle is a built detector instance. It owns its model resources until Close.
type Handle interface {
	// Detect runs detection and blocks until it finishes.
	Detect(ctx context.Context, img image.Image) (DetectionSet, error)
	// DetectAsync submits img and returns immediately. onComplete is called exactly once, possibly
	// on another goroutine.
	DetectAsync(img image.Image, timestamp time.Time, onComplete CompletionFunc)
	// Close releases the instance. Pending asynchronous detections are cancelled.
	Close() error
}

// Builder creates detector instances.
type Builder interface {
	Build(ctx context.Context, opts BuildOptions) (Handle, error)
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(ctx context.Context, opts BuildOptions) (Handle, error)

// Build calls f.
func (f BuilderFunc) Build(ctx context.Context, opts BuildOptions) (Handle, error) {
	return f(ctx, opts)
}

// NewHandle turns a raw Detector into a Handle. The rotation hint from opts is applied, results
// go through Postprocess with opts.Config, and closer (if any) runs on Close after pending
// detections have stopped.
func NewHandle(det Detector, opts BuildOptions, closer func() error) (Handle, error) {
	if det == nil {
		return nil, errors.New("must have a Detector to build a handle")
	}
	rotated, err := WithRotation(det, opts.RotationDegrees)
	if err != nil {
		return nil, err
	}
	cfg := opts.Config.Clone()
	built, err := Build(rotated, func(in DetectionSet) DetectionSet { return Postprocess(in, cfg) })
	if err != nil {
		return nil, err
	}
	return &funcHandle{
		detect:  built,
		closer:  closer,
		workers: utils.NewStoppableWorkers(),
	}, nil
}

type funcHandle struct {
	detect  Detector
	closer  func() error
	workers utils.StoppableWorkers

	closeOnce sync.Once
	closeErr  error
}

func (h *funcHandle) Detect(ctx context.Context, img image.Image) (DetectionSet, error) {
	ctx, span := trace.StartSpan(ctx, "objectdetection::handle::Detect")
	defer span.End()

	if h.workers.Context().Err() != nil {
		return nil, ErrHandleClosed
	}
	return h.detect(ctx, img)
}

func (h *funcHandle) DetectAsync(img image.Image, timestamp time.Time, onComplete CompletionFunc) {
	started := h.workers.AddWorkers(func(ctx context.Context) {
		ctx, span := trace.StartSpan(ctx, "objectdetection::handle::DetectAsync")
		defer span.End()

		dets, err := h.detect(ctx, img)
		if err == nil && ctx.Err() != nil {
			err = ErrHandleClosed
		}
		onComplete(dets, timestamp, err)
	})
	if !started {
		onComplete(nil, timestamp, ErrHandleClosed)
	}
}

func (h *funcHandle) Close() error {
	h.closeOnce.Do(func() {
		h.workers.Stop()
		if h.closer != nil {
			h.closeErr = h.closer()
		}
	})
	return h.closeErr
}
