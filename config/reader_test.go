package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/aidas-vision/aidas/logging"
	"github.com/aidas-vision/aidas/services/detection"
	"github.com/aidas-vision/aidas/vision/objectdetection"
	"github.com/aidas-vision/aidas/vision/overlay"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "aidas.json")
	test.That(t, os.WriteFile(path, []byte(body), 0o600), test.ShouldBeNil)
	return path
}

func TestReadFullConfig(t *testing.T) {
	t.Setenv("AIDAS_ASSETS", "/opt/models")
	path := writeConfig(t, t.TempDir(), `{
		"detector": {
			"model": "efficientdet_lite0",
			"running_mode": "live-stream",
			"delegate": "gpu",
			"score_threshold": 0.4,
			"max_results": 3,
			"category_allowlist": ["person", "car"]
		},
		"backend": {"name": "simple", "attributes": {"luminance_threshold": 64, "assets": "${AIDAS_ASSETS}"}},
		"surface": {"width": 600, "height": 800},
		"overlay": {"text_size": 24, "box_color": "#ff0000"},
		"logging": {"level": "warn"}
	}`)

	cfg, err := Read(context.Background(), path, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, cfg.Detector, test.ShouldResemble, objectdetection.Config{
		ScoreThreshold:    0.4,
		MaxResults:        3,
		Delegate:          objectdetection.DelegateGPU,
		Model:             objectdetection.ModelEfficientDetLite0,
		RunningMode:       objectdetection.LiveStream,
		CategoryAllowlist: []string{"person", "car"},
	})
	test.That(t, cfg.Backend.Name, test.ShouldEqual, detection.SimpleBackend)
	test.That(t, cfg.Backend.Attributes.String("assets"), test.ShouldEqual, "/opt/models")
	test.That(t, cfg.Surface, test.ShouldResemble, Surface{Width: 600, Height: 800})
	test.That(t, cfg.Logging.Level, test.ShouldEqual, "warn")

	style := cfg.Overlay.Style()
	test.That(t, style.TextSize, test.ShouldEqual, 24.0)
	test.That(t, style.StrokeWidth, test.ShouldEqual, overlay.DefaultStyle().StrokeWidth)
	r, g, b, _ := style.BoxColor.RGBA()
	test.That(t, []uint32{r >> 8, g >> 8, b >> 8}, test.ShouldResemble, []uint32{255, 0, 0})
}

func TestReadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `{"detector": {"model": "ssd_mobilenet_v1"}}`)
	cfg, err := Read(context.Background(), path, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Detector, test.ShouldResemble,
		objectdetection.NewConfig(objectdetection.ModelSSDMobileNetV1, objectdetection.SingleImage))
	test.That(t, cfg.Detector.CategoryAllowlist, test.ShouldResemble, []string{"person"})
	test.That(t, cfg.Backend.Name, test.ShouldEqual, detection.SimpleBackend)

	// an explicit empty allowlist turns the model default off
	path = writeConfig(t, t.TempDir(), `{"detector": {"model": "ssd_mobilenet_v1", "category_allowlist": []}}`)
	cfg, err = Read(context.Background(), path, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Detector.CategoryAllowlist, test.ShouldBeEmpty)
}

func TestReadRejectsBadConfigs(t *testing.T) {
	logger := logging.NewTestLogger(t)
	for _, tc := range []struct {
		name string
		body string
		want string
	}{
		{"unknown model", `{"detector": {"model": "yolo_v9"}}`, "unknown model"},
		{"missing model", `{"detector": {}}`, "model"},
		{"unknown key", `{"detector": {"model": "mobilenet_v1"}, "detectr": {}}`, "detectr"},
		{"bad threshold", `{"detector": {"model": "mobilenet_v1", "score_threshold": 2}}`, "score_threshold"},
		{"unknown backend", `{"detector": {"model": "mobilenet_v1"}, "backend": {"name": "tpu"}}`, "no detector backend"},
		{"bad color", `{"detector": {"model": "mobilenet_v1"}, "overlay": {"box_color": "red"}}`, "invalid color"},
		{"bad level", `{"detector": {"model": "mobilenet_v1"}, "logging": {"level": "loud"}}`, "unknown log level"},
		{"negative surface", `{"detector": {"model": "mobilenet_v1"}, "surface": {"width": -1}}`, "must not be negative"},
		{"not json", `detector: mobilenet_v1`, "cannot parse config"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Read(context.Background(), writeConfig(t, t.TempDir(), tc.body), logger)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.want)
		})
	}

	_, err := Read(context.Background(), filepath.Join(t.TempDir(), "missing.json"), logger)
	test.That(t, errors.Is(err, os.ErrNotExist), test.ShouldBeTrue)
}

func TestSchema(t *testing.T) {
	out, err := json.Marshal(Schema())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldContainSubstring, "score_threshold")
	test.That(t, string(out), test.ShouldContainSubstring, "running_mode")

	var doc struct {
		Defs map[string]struct {
			Properties map[string]struct {
				Ref string `json:"$ref"`
			} `json:"properties"`
		} `json:"$defs"`
	}
	test.That(t, json.Unmarshal(out, &doc), test.ShouldBeNil)
	top, ok := doc.Defs["Config"]
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, top.Properties["detector"].Ref, test.ShouldEqual, "#/$defs/ObjectdetectionConfig")
	detector, ok := doc.Defs["ObjectdetectionConfig"]
	test.That(t, ok, test.ShouldBeTrue)
	for _, field := range []string{"score_threshold", "max_results", "running_mode", "model"} {
		_, ok := detector.Properties[field]
		test.That(t, ok, test.ShouldBeTrue)
	}

	backends := BackendSchemas()
	simple, ok := backends[detection.SimpleBackend]
	test.That(t, ok, test.ShouldBeTrue)
	out, err = json.Marshal(simple)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, strings.Contains(string(out), "luminance_threshold"), test.ShouldBeTrue)
}

func TestUpdateFileConfigLevel(t *testing.T) {
	logger := logging.NewTestLogger(t)
	InitLoggingSettings(logger, false)
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.INFO)

	UpdateFileConfigLevel("error")
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.ERROR)
	UpdateFileConfigLevel("")
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.INFO)

	InitLoggingSettings(logger, true)
	UpdateFileConfigLevel("error")
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.DEBUG)
}
