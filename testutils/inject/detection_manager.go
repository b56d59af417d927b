package inject

import (
	"context"
	"image"

	"github.com/aidas-vision/aidas/services/detection"
	"github.com/aidas-vision/aidas/vision/results"
)

// StreamDetector is an injected live-stream detector.
type StreamDetector struct {
	DetectStreamFrameFunc func(frame detection.StreamFrame) error
}

// DetectStreamFrame calls the injected DetectStreamFrame, or releases the frame and accepts it.
func (d *StreamDetector) DetectStreamFrame(frame detection.StreamFrame) error {
	if d.DetectStreamFrameFunc == nil {
		if frame.Release != nil {
			frame.Release()
		}
		return nil
	}
	return d.DetectStreamFrameFunc(frame)
}

// SyncDetector is an injected single-image detector.
type SyncDetector struct {
	DetectSyncFunc func(ctx context.Context, img image.Image, rotation int) (results.Envelope, error)
}

// DetectSync calls the injected DetectSync, or returns an empty envelope sized to img.
func (d *SyncDetector) DetectSync(ctx context.Context, img image.Image, rotation int) (results.Envelope, error) {
	if d.DetectSyncFunc == nil {
		b := img.Bounds()
		return results.Envelope{SourceWidth: b.Dx(), SourceHeight: b.Dy(), SourceRotation: rotation}, nil
	}
	return d.DetectSyncFunc(ctx, img, rotation)
}
