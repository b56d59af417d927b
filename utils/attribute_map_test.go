package utils

import (
	"testing"
	"time"

	"go.viam.com/test"
)

type attrs struct {
	Threshold float64       `json:"threshold"`
	Labels    string        `json:"labels_path"`
	Interval  time.Duration `json:"interval"`
}

func TestTransformAttributeMap(t *testing.T) {
	am := AttributeMap{"threshold": 0.25, "labels_path": "/tmp/labels.txt", "interval": "150ms"}
	test.That(t, am.Has("threshold"), test.ShouldBeTrue)
	test.That(t, am.String("labels_path"), test.ShouldEqual, "/tmp/labels.txt")
	test.That(t, am.Float64("threshold", 1), test.ShouldEqual, 0.25)
	test.That(t, am.Float64("missing", 1), test.ShouldEqual, 1.)

	out, err := TransformAttributeMap[*attrs](am)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldResemble, &attrs{0.25, "/tmp/labels.txt", 150 * time.Millisecond})

	val, err := TransformAttributeMap[attrs](am)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, val.Threshold, test.ShouldEqual, 0.25)

	_, err = TransformAttributeMap[*attrs](AttributeMap{"thresh": 1})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "thresh")
}

func TestDecodeAttributeMapKeepsDefaults(t *testing.T) {
	out := attrs{Threshold: 0.5, Interval: time.Second}
	test.That(t, DecodeAttributeMap(AttributeMap{"labels_path": "l.txt"}, &out), test.ShouldBeNil)
	test.That(t, out, test.ShouldResemble, attrs{0.5, "l.txt", time.Second})
}
