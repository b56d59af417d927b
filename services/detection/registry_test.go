package detection

import (
	"context"
	"image"
	"testing"

	"go.viam.com/test"

	"github.com/aidas-vision/aidas/logging"
	"github.com/aidas-vision/aidas/utils"
	"github.com/aidas-vision/aidas/vision/objectdetection"
)

func TestBackendRegistry(t *testing.T) {
	fn := func(utils.AttributeMap, logging.Logger) (objectdetection.Builder, error) {
		return objectdetection.NewSimpleBuilder(1), nil
	}
	fnName := "x"
	t.Cleanup(func() {
		backendRegistryMu.Lock()
		delete(backendRegistry, fnName)
		backendRegistryMu.Unlock()
	})
	// no constructor
	test.That(t, func() { RegisterBackend(fnName, BackendRegistration{}) }, test.ShouldPanic)
	// success
	RegisterBackend(fnName, BackendRegistration{Constructor: fn})
	// backend names
	names := BackendNames()
	test.That(t, names, test.ShouldContain, fnName)
	test.That(t, names, test.ShouldContain, SimpleBackend)
	// look up
	reg, err := BackendLookup(fnName)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, reg.Constructor, test.ShouldNotBeNil)
	reg, err = BackendLookup("z")
	test.That(t, err.Error(), test.ShouldContainSubstring, "no detector backend with name")
	test.That(t, reg, test.ShouldBeNil)
	// duplicate
	test.That(t, func() { RegisterBackend(fnName, BackendRegistration{Constructor: fn}) }, test.ShouldPanic)
}

func TestBackendRegistryRepeatable(t *testing.T) {
	for i := 0; i < 2; i++ {
		t.Run("register", TestBackendRegistry)
	}
	_, err := BackendLookup("x")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSimpleBackend(t *testing.T) {
	logger := logging.NewTestLogger(t)
	builder, err := NewBuilder(SimpleBackend, utils.AttributeMap{"luminance_threshold": 128.0}, logger)
	test.That(t, err, test.ShouldBeNil)

	h, err := builder.Build(context.Background(), objectdetection.BuildOptions{
		Config: objectdetection.NewConfig(objectdetection.ModelTrafficSignV1, objectdetection.SingleImage),
	})
	test.That(t, err, test.ShouldBeNil)
	defer h.Close()
	dets, err := h.Detect(context.Background(), image.NewGray(image.Rect(0, 0, 5, 5)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dets, test.ShouldHaveLength, 1)

	_, err = NewBuilder(SimpleBackend, utils.AttributeMap{"bogus": 1}, logger)
	test.That(t, err, test.ShouldNotBeNil)
}
