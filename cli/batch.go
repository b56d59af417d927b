package cli

import (
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"github.com/aidas-vision/aidas/services/batchtest"
	"github.com/aidas-vision/aidas/vision/objectdetection"
	"github.com/aidas-vision/aidas/vision/results"
)

// BatchAction scores the configured detector against a test manifest and prints the report.
func BatchAction(c *cli.Context) error {
	logger := appLogger(c)
	cfg, err := readConfig(c, logger, objectdetection.SingleImage)
	if err != nil {
		return err
	}
	images, err := batchtest.LoadManifest(c.String(batchFlagManifest))
	if err != nil {
		return err
	}

	m, err := newManager(c.Context, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(m.Close)

	opts := []batchtest.Option{batchtest.WithModelName(string(cfg.Detector.Model))}
	if outDir := c.String(detectFlagOut); outDir != "" {
		if err := os.MkdirAll(outDir, 0o750); err != nil {
			return err
		}
		opts = append(opts, batchtest.WithResultHook(func(ti batchtest.TestImage, img image.Image, env results.Envelope) {
			base := strings.TrimSuffix(filepath.Base(ti.ImagePath), filepath.Ext(ti.ImagePath))
			if err := renderToFile(filepath.Join(outDir, base+".png"), img, env, cfg, logger); err != nil {
				logger.Warnw("cannot render test image", "path", ti.ImagePath, "error", err)
			}
		}))
	}

	report, err := batchtest.Run(c.Context, m, images, logger, opts...)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", report.Table())
	return nil
}
