// Package config defines the on-disk configuration of the detection pipeline and how it is read,
// validated and watched for changes.
package config

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/aidas-vision/aidas/logging"
	"github.com/aidas-vision/aidas/services/detection"
	"github.com/aidas-vision/aidas/utils"
	"github.com/aidas-vision/aidas/vision/objectdetection"
	"github.com/aidas-vision/aidas/vision/overlay"
)

// Config is the whole pipeline configuration.
type Config struct {
	Detector objectdetection.Config `json:"detector"`
	Backend  Backend                `json:"backend"`
	Surface  Surface                `json:"surface,omitempty"`
	Overlay  Overlay                `json:"overlay,omitempty"`
	Logging  Logging                `json:"logging,omitempty"`

	// ConfigFilePath is where the config was read from, if anywhere.
	ConfigFilePath string `json:"-"`
}

// Backend selects and configures the registered detector backend.
type Backend struct {
	Name       string             `json:"name"`
	Attributes utils.AttributeMap `json:"attributes,omitempty"`
}

// Surface is the size of the drawing surface overlays are rendered onto. Zero means the size of
// the (rotated) source image.
type Surface struct {
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// Overlay tweaks how detections are drawn. Zero values fall back to overlay.DefaultStyle.
type Overlay struct {
	TextSize    float64 `json:"text_size,omitempty"`
	Padding     float64 `json:"padding,omitempty"`
	StrokeWidth float64 `json:"stroke_width,omitempty"`
	// BoxColor is a hex color such as "#6200ee".
	BoxColor string `json:"box_color,omitempty"`
}

// Logging configures the log level and an optional rotated log file.
type Logging struct {
	Level string `json:"level,omitempty"`
	File  string `json:"file,omitempty"`
}

// Default returns the configuration used for anything a file leaves out.
func Default() *Config {
	return &Config{
		Detector: objectdetection.NewConfig("", objectdetection.SingleImage),
		Backend:  Backend{Name: detection.SimpleBackend},
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate() error {
	var errs error
	errs = multierr.Append(errs, c.Detector.Validate("detector"))
	if c.Backend.Name == "" {
		errs = multierr.Append(errs, goutils.NewConfigValidationFieldRequiredError("backend", "name"))
	} else if _, err := detection.BackendLookup(c.Backend.Name); err != nil {
		errs = multierr.Append(errs, goutils.NewConfigValidationError("backend", err))
	}
	if c.Surface.Width < 0 || c.Surface.Height < 0 {
		errs = multierr.Append(errs, goutils.NewConfigValidationError("surface",
			errors.Errorf("size must not be negative, got %dx%d", c.Surface.Width, c.Surface.Height)))
	}
	if c.Overlay.BoxColor != "" {
		if _, err := parseHexColor(c.Overlay.BoxColor); err != nil {
			errs = multierr.Append(errs, goutils.NewConfigValidationError("overlay", err))
		}
	}
	if c.Logging.Level != "" {
		if _, err := logging.LevelFromString(c.Logging.Level); err != nil {
			errs = multierr.Append(errs, goutils.NewConfigValidationError("logging", err))
		}
	}
	return errs
}

// Style returns the overlay style described by the config.
func (o Overlay) Style() overlay.Style {
	style := overlay.DefaultStyle()
	if o.TextSize > 0 {
		style.TextSize = o.TextSize
	}
	if o.Padding > 0 {
		style.Padding = o.Padding
	}
	if o.StrokeWidth > 0 {
		style.StrokeWidth = o.StrokeWidth
	}
	if c, err := parseHexColor(o.BoxColor); err == nil {
		style.BoxColor = c
	}
	return style
}

func parseHexColor(s string) (color.RGBA, error) {
	c := color.RGBA{A: 0xff}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return c, errors.Errorf("invalid color %q, want #rrggbb", s)
	}
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return c, errors.Wrapf(err, "invalid color %q", s)
	}
	return c, nil
}
