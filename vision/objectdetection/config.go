package objectdetection

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/aidas-vision/aidas/utils"
)

// ModelID names one of the detection models the system knows how to load.
type ModelID string

// The known models.
const (
	ModelTrafficSignV1     ModelID = "traffic_sign_v1"
	ModelTrafficSignV2     ModelID = "traffic_sign_v2"
	ModelTrafficSignV3     ModelID = "traffic_sign_v3"
	ModelTrafficSignV4     ModelID = "traffic_sign_v4"
	ModelEfficientDetLite0 ModelID = "efficientdet_lite0"
	ModelMobileNetV1       ModelID = "mobilenet_v1"
	ModelSSDMobileNetV1    ModelID = "ssd_mobilenet_v1"
)

// ErrUnknownModel is returned for model ids outside the known set.
var ErrUnknownModel = errors.New("unknown model")

var modelAssets = map[ModelID]string{
	ModelTrafficSignV1:     "traffic_sign_detection_model_v1.tflite",
	ModelTrafficSignV2:     "traffic_sign_detection_model_v2.tflite",
	ModelTrafficSignV3:     "traffic_sign_detection_model_v3.tflite",
	ModelTrafficSignV4:     "traffic_sign_detection_model_v4.tflite",
	ModelEfficientDetLite0: "efficientdet-lite0.tflite",
	ModelMobileNetV1:       "mobilenetv1.tflite",
	ModelSSDMobileNetV1:    "ssd_mobilenet_v1.tflite",
}

// Models returns every known model id in a stable order.
func Models() []ModelID {
	return []ModelID{
		ModelTrafficSignV1, ModelTrafficSignV2, ModelTrafficSignV3, ModelTrafficSignV4,
		ModelEfficientDetLite0, ModelMobileNetV1, ModelSSDMobileNetV1,
	}
}

// ParseModelID accepts either a model id or its asset file name, case-insensitively.
func ParseModelID(s string) (ModelID, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for id, asset := range modelAssets {
		if needle == string(id) || needle == asset {
			return id, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownModel, "%q", s)
}

// Valid reports whether m is a known model.
func (m ModelID) Valid() bool {
	_, ok := modelAssets[m]
	return ok
}

// AssetName is the model file that backs m, or the empty string for unknown ids.
func (m ModelID) AssetName() string {
	return modelAssets[m]
}

// DefaultAllowlist is the category allowlist a model is configured with when none is given.
// The general purpose COCO models are narrowed to people; the traffic sign models report
// everything they know.
func (m ModelID) DefaultAllowlist() []string {
	switch m {
	case ModelEfficientDetLite0, ModelMobileNetV1, ModelSSDMobileNetV1:
		return []string{"person"}
	default:
		return nil
	}
}

// RunningMode selects synchronous single-image/video detection or asynchronous streaming.
type RunningMode string

// The running modes.
const (
	SingleImage RunningMode = "single_image"
	Video       RunningMode = "video"
	LiveStream  RunningMode = "live_stream"
)

// ParseRunningMode parses a running mode case-insensitively. Dashes are treated as underscores.
func ParseRunningMode(s string) (RunningMode, error) {
	m := RunningMode(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !m.Valid() {
		return "", goutils.NewConfigValidationError("running_mode", utils.NewUnsupportedValueError("running mode", strconv.Quote(s)))
	}
	return m, nil
}

// Valid reports whether m is a known running mode.
func (m RunningMode) Valid() bool {
	return m == SingleImage || m == Video || m == LiveStream
}

// Delegate is the hardware backend a model runs on.
type Delegate string

// The delegates.
const (
	DelegateCPU Delegate = "cpu"
	DelegateGPU Delegate = "gpu"
)

// ParseDelegate parses a delegate case-insensitively.
func ParseDelegate(s string) (Delegate, error) {
	d := Delegate(strings.ToLower(strings.TrimSpace(s)))
	if d != DelegateCPU && d != DelegateGPU {
		return "", goutils.NewConfigValidationError("delegate", utils.NewUnsupportedValueError("delegate", strconv.Quote(s)))
	}
	return d, nil
}

// Defaults used by NewConfig.
const (
	DefaultScoreThreshold = 0.5
	DefaultMaxResults     = 5
)

// Config describes how a detector is built. A built detector keeps its own copy; changing any
// field requires a rebuild.
type Config struct {
	ScoreThreshold    float64     `json:"score_threshold"`
	MaxResults        int         `json:"max_results"`
	Delegate          Delegate    `json:"delegate"`
	Model             ModelID     `json:"model"`
	RunningMode       RunningMode `json:"running_mode"`
	CategoryAllowlist []string    `json:"category_allowlist,omitempty"`
}

// NewConfig returns the default configuration for a model.
func NewConfig(model ModelID, mode RunningMode) Config {
	return Config{
		ScoreThreshold:    DefaultScoreThreshold,
		MaxResults:        DefaultMaxResults,
		Delegate:          DelegateCPU,
		Model:             model,
		RunningMode:       mode,
		CategoryAllowlist: model.DefaultAllowlist(),
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var errs error
	if cfg.Model == "" {
		errs = multierr.Append(errs, goutils.NewConfigValidationFieldRequiredError(path, "model"))
	} else if !cfg.Model.Valid() {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path, errors.Wrapf(ErrUnknownModel, "%q", cfg.Model)))
	}
	if cfg.ScoreThreshold < 0 || cfg.ScoreThreshold > 1 {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
			errors.Errorf("score_threshold must be between 0 and 1, got %v", cfg.ScoreThreshold)))
	}
	if cfg.MaxResults < 1 {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
			errors.Errorf("max_results must be at least 1, got %d", cfg.MaxResults)))
	}
	if cfg.Delegate != DelegateCPU && cfg.Delegate != DelegateGPU {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
			errors.Errorf("unknown delegate %q", cfg.Delegate)))
	}
	if !cfg.RunningMode.Valid() {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
			errors.Errorf("unknown running_mode %q", cfg.RunningMode)))
	}
	for i, label := range cfg.CategoryAllowlist {
		if strings.TrimSpace(label) == "" {
			errs = multierr.Append(errs, goutils.NewConfigValidationFieldRequiredError(
				fmt.Sprintf("%s.category_allowlist.%d", path, i), "label"))
		}
	}
	return errs
}

// Clone returns a deep copy of the config.
func (cfg Config) Clone() Config {
	if cfg.CategoryAllowlist != nil {
		cfg.CategoryAllowlist = append([]string(nil), cfg.CategoryAllowlist...)
	}
	return cfg
}

// UnmarshalText parses a model id from config text.
func (m *ModelID) UnmarshalText(text []byte) error {
	id, err := ParseModelID(string(text))
	if err != nil {
		return err
	}
	*m = id
	return nil
}

// UnmarshalText parses a running mode from config text.
func (m *RunningMode) UnmarshalText(text []byte) error {
	mode, err := ParseRunningMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// UnmarshalText parses a delegate from config text.
func (d *Delegate) UnmarshalText(text []byte) error {
	parsed, err := ParseDelegate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
