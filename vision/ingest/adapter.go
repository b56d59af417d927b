// Package ingest turns raw camera frames into detector input for the live-stream path.
package ingest

import (
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/aidas-vision/aidas/logging"
	"github.com/aidas-vision/aidas/rimage"
	"github.com/aidas-vision/aidas/services/detection"
	"github.com/aidas-vision/aidas/vision/objectdetection"
)

// StreamDetector accepts live-stream frames. *detection.Manager implements it.
type StreamDetector interface {
	DetectStreamFrame(frame detection.StreamFrame) error
}

// Adapter copies each raw frame into a pooled RGBA buffer and forwards it. The buffer goes back
// to the pool once the detector releases the frame.
type Adapter struct {
	detector StreamDetector
	logger   logging.Logger
	pool     rimage.FramePool

	ingested atomic.Uint64
	rejected atomic.Uint64
}

// NewAdapter returns an adapter that feeds detector.
func NewAdapter(detector StreamDetector, logger logging.Logger) *Adapter {
	return &Adapter{detector: detector, logger: logger}
}

// Ingest snapshots frame and hands it to the detector. The raw planes are not referenced after
// Ingest returns, so the caller may reuse them immediately.
func (a *Adapter) Ingest(frame rimage.RawFrame) error {
	if err := frame.Validate(); err != nil {
		a.rejected.Inc()
		return errors.Wrap(err, "rejecting camera frame")
	}

	buf := a.pool.Get(frame.Width, frame.Height)
	if err := frame.CopyInto(buf); err != nil {
		a.pool.Put(buf)
		a.rejected.Inc()
		return errors.Wrap(err, "copying camera frame")
	}

	sf := detection.StreamFrame{
		Image: buf,
		Metadata: objectdetection.FrameMetadata{
			Width:           frame.Width,
			Height:          frame.Height,
			RotationDegrees: frame.RotationDegrees,
			Timestamp:       frame.Timestamp,
		},
		Release: func() { a.pool.Put(buf) },
	}
	if err := a.detector.DetectStreamFrame(sf); err != nil {
		a.logger.Debugw("frame not accepted", "format", frame.Format, "error", err)
		return err
	}
	a.ingested.Inc()
	return nil
}

// Ingested is how many frames the detector accepted.
func (a *Adapter) Ingested() uint64 {
	return a.ingested.Load()
}

// Rejected is how many frames failed validation or conversion.
func (a *Adapter) Rejected() uint64 {
	return a.rejected.Load()
}
