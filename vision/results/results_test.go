package results

import (
	"context"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/aidas-vision/aidas/vision/objectdetection"
)

func TestEnvelopeInferenceTime(t *testing.T) {
	env := Envelope{InferenceTime: 42*time.Millisecond + 900*time.Microsecond}
	test.That(t, env.InferenceTimeMs(), test.ShouldEqual, int64(42))
}

func TestSinkFunc(t *testing.T) {
	var got []Envelope
	var sink Sink = SinkFunc(func(env Envelope) { got = append(got, env) })
	sink.Deliver(Envelope{SourceWidth: 10})
	test.That(t, got, test.ShouldHaveLength, 1)
	test.That(t, got[0].SourceWidth, test.ShouldEqual, 10)
}

func TestSlotKeepsLatest(t *testing.T) {
	slot := NewSlot()
	slot.Deliver(Envelope{SourceRotation: 0})
	slot.Deliver(Envelope{
		SourceRotation: 90,
		Detections:     objectdetection.DetectionSet{objectdetection.NewDetection(objectdetection.Rect{}, 0.9, "person")},
	})
	test.That(t, slot.Overwritten(), test.ShouldEqual, uint64(1))

	env, ok := slot.Next(context.Background())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, env.SourceRotation, test.ShouldEqual, 90)
	test.That(t, env.Detections, test.ShouldHaveLength, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, ok = slot.Next(ctx)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestSlotClose(t *testing.T) {
	slot := NewSlot()
	done := make(chan bool)
	go func() {
		_, ok := slot.Next(context.Background())
		done <- ok
	}()
	slot.Close()
	test.That(t, <-done, test.ShouldBeFalse)
	slot.Deliver(Envelope{})
	_, ok := slot.Next(context.Background())
	test.That(t, ok, test.ShouldBeFalse)
}
