// Package results carries detection results from the detection manager to whoever consumes them.
package results

import (
	"context"
	"time"

	"github.com/aidas-vision/aidas/utils"
	"github.com/aidas-vision/aidas/vision/objectdetection"
)

// Envelope is one detection result together with the geometry of the image it was computed on.
type Envelope struct {
	Detections     objectdetection.DetectionSet
	InferenceTime  time.Duration
	SourceWidth    int
	SourceHeight   int
	SourceRotation int
	// Timestamp is the capture time of the source frame, zero for still images.
	Timestamp time.Time
}

// InferenceTimeMs is the inference time in whole milliseconds.
func (e Envelope) InferenceTimeMs() int64 {
	return e.InferenceTime.Milliseconds()
}

// Sink receives envelopes. Deliver may be called from a goroutine other than the one that
// submitted the frame, and must not call back into the manager's Configure or Teardown.
type Sink interface {
	Deliver(Envelope)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Envelope)

// Deliver calls f.
func (f SinkFunc) Deliver(env Envelope) {
	f(env)
}

// Slot is a Sink that holds only the most recent undelivered envelope. Consumers pull with Next.
type Slot struct {
	mb *utils.Mailbox[Envelope]
}

// NewSlot returns an empty slot.
func NewSlot() *Slot {
	return &Slot{mb: utils.NewMailbox[Envelope]()}
}

// Deliver stores env, replacing any envelope that has not been read yet.
func (s *Slot) Deliver(env Envelope) {
	s.mb.Put(env)
}

// Next blocks until an envelope is available. ok is false once the slot is closed or ctx is done.
func (s *Slot) Next(ctx context.Context) (env Envelope, ok bool) {
	return s.mb.Take(ctx)
}

// Overwritten is the number of envelopes replaced before anyone read them.
func (s *Slot) Overwritten() uint64 {
	return s.mb.Drops()
}

// Close wakes any blocked Next. Envelopes delivered afterwards are discarded.
func (s *Slot) Close() {
	s.mb.Close()
}
