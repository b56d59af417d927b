package cli

import (
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"github.com/aidas-vision/aidas/rimage"
	"github.com/aidas-vision/aidas/vision/objectdetection"
)

// DetectAction runs single image detection and prints the detections.
func DetectAction(c *cli.Context) error {
	logger := appLogger(c)
	cfg, err := readConfig(c, logger, objectdetection.SingleImage)
	if err != nil {
		return err
	}
	img, err := rimage.ReadImageFromFile(c.String(detectFlagImage))
	if err != nil {
		return err
	}

	m, err := newManager(c.Context, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(m.Close)

	env, err := m.DetectSync(c.Context, img, rotationDegrees(c))
	if err != nil {
		return err
	}
	printDetections(c.App.Writer, env)

	if out := c.String(detectFlagOut); out != "" {
		if err := renderToFile(out, img, env, cfg, logger); err != nil {
			return err
		}
		printf(c.App.Writer, "wrote %s", out)
	}
	return nil
}
