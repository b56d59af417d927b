package cli

import (
	"context"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/disintegration/imaging"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/aidas-vision/aidas/config"
	"github.com/aidas-vision/aidas/logging"
	"github.com/aidas-vision/aidas/rimage"
	"github.com/aidas-vision/aidas/rimage/transform"
	"github.com/aidas-vision/aidas/services/detection"
	"github.com/aidas-vision/aidas/utils"
	"github.com/aidas-vision/aidas/vision/objectdetection"
	"github.com/aidas-vision/aidas/vision/overlay"
	"github.com/aidas-vision/aidas/vision/results"
)

// readConfig reads the --config file and forces the running mode the command needs.
func readConfig(c *cli.Context, logger logging.Logger, mode objectdetection.RunningMode) (*config.Config, error) {
	cfg, err := config.Read(c.Context, c.String(generalFlagConfig), logger)
	if err != nil {
		return nil, err
	}
	config.UpdateFileConfigLevel(cfg.Logging.Level)
	if cfg.Logging.File != "" && c.String(generalFlagLogFile) == "" {
		addFileAppender(c, logger, cfg.Logging.File)
	}
	if cfg.Detector.RunningMode != mode {
		logger.Infow("overriding configured running mode", "configured", cfg.Detector.RunningMode, "using", mode)
		cfg.Detector.RunningMode = mode
	}
	return cfg, nil
}

// newManager builds the configured backend and a ready manager around it.
func newManager(
	ctx context.Context,
	cfg *config.Config,
	logger logging.Logger,
	sink results.Sink,
	opts ...detection.Option,
) (*detection.Manager, error) {
	builder, err := detection.NewBuilder(cfg.Backend.Name, cfg.Backend.Attributes, logger.Sublogger("backend"))
	if err != nil {
		return nil, err
	}
	m := detection.NewManager(builder, logger.Sublogger("detection"), opts...)
	if err := m.Configure(ctx, cfg.Detector, sink); err != nil {
		return nil, multierr.Combine(err, m.Close())
	}
	return m, nil
}

// surfaceSize is the configured surface, or the rotated source size when none is configured.
func surfaceSize(cfg *config.Config, env results.Envelope) (int, int, error) {
	if cfg.Surface.Width > 0 && cfg.Surface.Height > 0 {
		return cfg.Surface.Width, cfg.Surface.Height, nil
	}
	return transform.RotatedSize(env.SourceWidth, env.SourceHeight, env.SourceRotation)
}

// renderToFile draws env over src (which may be nil for a transparent overlay) and writes the
// result to path.
func renderToFile(
	path string,
	src image.Image,
	env results.Envelope,
	cfg *config.Config,
	logger logging.Logger,
) error {
	w, h, err := surfaceSize(cfg, env)
	if err != nil {
		return err
	}
	t, err := overlay.ComputeTransform(env, w, h, cfg.Detector.RunningMode)
	if err != nil {
		return err
	}

	var background image.Image
	if src != nil {
		rotated := objectdetection.RotateClockwise(src, env.SourceRotation)
		background = imaging.Resize(rotated,
			int(math.Round(float64(t.EffectiveWidth)*t.ScaleFactor)),
			int(math.Round(float64(t.EffectiveHeight)*t.ScaleFactor)),
			imaging.Linear)
	}
	surface := overlay.NewImageSurface(w, h, background)
	r := overlay.NewRenderer(surface, cfg.Detector.RunningMode, logger, overlay.WithStyle(cfg.Overlay.Style()))
	if err := r.Render(env); err != nil {
		return errors.Wrap(err, "rendering overlay")
	}
	return rimage.WriteImageToFile(path, surface.Image())
}

// rotationDegrees reads --rotation, wrapping it into [0, 360) so that -90 means 270.
func rotationDegrees(c *cli.Context) int {
	return int(utils.ModAngDeg(float64(c.Int(detectFlagRotation))))
}

func printDetections(out io.Writer, env results.Envelope) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Label", "Score", "Box"})
	for i, d := range env.Detections {
		t.AppendRow([]interface{}{i + 1, d.Label(), fmt.Sprintf("%.2f", d.Score()), d.BoundingBox})
	}
	t.AppendFooter(table.Row{"", "", "inference", fmt.Sprintf("%dms", env.InferenceTimeMs())})
	printf(out, "%s", t.Render())
}

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}
