package utils

import (
	"testing"

	"go.viam.com/test"
)

func TestNewUnsupportedValueError(t *testing.T) {
	err := NewUnsupportedValueError("rotation", 45)
	test.That(t, err.Error(), test.ShouldEqual, "unsupported rotation 45")
	err = NewUnsupportedValueError("running mode", `"batch"`)
	test.That(t, err.Error(), test.ShouldEqual, `unsupported running mode "batch"`)
}
