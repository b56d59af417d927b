package objectdetection

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestParseModelID(t *testing.T) {
	for _, m := range Models() {
		parsed, err := ParseModelID(string(m))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parsed, test.ShouldEqual, m)

		parsed, err = ParseModelID(m.AssetName())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parsed, test.ShouldEqual, m)
	}
	parsed, err := ParseModelID("EfficientDet_Lite0")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, parsed, test.ShouldEqual, ModelEfficientDetLite0)

	_, err = ParseModelID("yolo")
	test.That(t, errors.Is(err, ErrUnknownModel), test.ShouldBeTrue)
}

func TestAssetNames(t *testing.T) {
	test.That(t, ModelTrafficSignV3.AssetName(), test.ShouldEqual, "traffic_sign_detection_model_v3.tflite")
	test.That(t, ModelEfficientDetLite0.AssetName(), test.ShouldEqual, "efficientdet-lite0.tflite")
	test.That(t, ModelMobileNetV1.AssetName(), test.ShouldEqual, "mobilenetv1.tflite")
	test.That(t, ModelSSDMobileNetV1.AssetName(), test.ShouldEqual, "ssd_mobilenet_v1.tflite")
	test.That(t, ModelID("nope").AssetName(), test.ShouldEqual, "")
	test.That(t, ModelTrafficSignV1.DefaultAllowlist(), test.ShouldBeNil)
}

func TestParseModes(t *testing.T) {
	mode, err := ParseRunningMode("LIVE-STREAM")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mode, test.ShouldEqual, LiveStream)
	_, err = ParseRunningMode("batch")
	test.That(t, err.Error(), test.ShouldContainSubstring, `unsupported running mode "batch"`)

	d, err := ParseDelegate("GPU")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, DelegateGPU)
	_, err = ParseDelegate("npu")
	test.That(t, err.Error(), test.ShouldContainSubstring, `unsupported delegate "npu"`)
}

func TestConfigValidate(t *testing.T) {
	cfg := NewConfig(ModelSSDMobileNetV1, SingleImage)
	test.That(t, cfg.Validate("detector"), test.ShouldBeNil)
	test.That(t, cfg.ScoreThreshold, test.ShouldEqual, 0.5)
	test.That(t, cfg.MaxResults, test.ShouldEqual, 5)
	test.That(t, cfg.Delegate, test.ShouldEqual, DelegateCPU)

	bad := cfg
	bad.ScoreThreshold = 1.5
	test.That(t, bad.Validate("detector").Error(), test.ShouldContainSubstring, "score_threshold")

	bad = cfg
	bad.MaxResults = 0
	test.That(t, bad.Validate("detector").Error(), test.ShouldContainSubstring, "max_results")

	bad = cfg
	bad.Model = ""
	test.That(t, bad.Validate("detector").Error(), test.ShouldContainSubstring, "model")

	bad = cfg
	bad.Model = "yolo"
	test.That(t, errors.Is(bad.Validate("detector"), ErrUnknownModel), test.ShouldBeTrue)

	bad = Config{}
	err := bad.Validate("detector")
	test.That(t, err.Error(), test.ShouldContainSubstring, "running_mode")
	test.That(t, err.Error(), test.ShouldContainSubstring, "delegate")
}

func TestConfigClone(t *testing.T) {
	cfg := NewConfig(ModelMobileNetV1, LiveStream)
	clone := cfg.Clone()
	clone.CategoryAllowlist[0] = "car"
	test.That(t, cfg.CategoryAllowlist[0], test.ShouldEqual, "person")
}
