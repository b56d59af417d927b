// Package cli contains the actions of the aidas command line tool.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"github.com/aidas-vision/aidas/config"
	"github.com/aidas-vision/aidas/logging"
)

const (
	// Flags.
	generalFlagConfig  = "config"
	generalFlagDebug   = "debug"
	generalFlagLogFile = "log-file"

	detectFlagImage    = "image"
	detectFlagRotation = "rotation"
	detectFlagOut      = "out"

	streamFlagFrames = "frames"
	streamFlagFPS    = "fps"

	batchFlagManifest = "manifest"

	metadataLogger  = "logger"
	metadataClosers = "closers"
)

// NewApp returns the aidas command line app writing to out. If logger is nil one is created from
// the global flags.
func NewApp(out io.Writer, logger logging.Logger) *cli.App {
	configFlag := &cli.StringFlag{
		Name:     generalFlagConfig,
		Aliases:  []string{"c"},
		Usage:    "load configuration from `FILE`",
		Required: true,
	}
	outFlag := &cli.StringFlag{
		Name:  detectFlagOut,
		Usage: "write rendered overlays to `PATH`",
	}
	rotationFlag := &cli.IntFlag{
		Name:  detectFlagRotation,
		Usage: "clockwise rotation of the source in degrees (0, 90, 180 or 270)",
	}

	return &cli.App{
		Name:      "aidas",
		Usage:     "detect traffic signs and objects in images and camera streams",
		Writer:    out,
		ErrWriter: out,
		Metadata:  map[string]interface{}{},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    generalFlagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  generalFlagLogFile,
				Usage: "also write logs to a rotated `FILE`",
			},
		},
		Before: func(c *cli.Context) error {
			l := logger
			if l == nil {
				l = logging.NewLogger("aidas")
			}
			if path := c.String(generalFlagLogFile); path != "" {
				addFileAppender(c, l, path)
			}
			config.InitLoggingSettings(l, c.Bool(generalFlagDebug))
			if c.Bool(generalFlagDebug) {
				c.Context = logging.EnableDebugMode(c.Context, "")
			}
			c.App.Metadata[metadataLogger] = l
			return nil
		},
		After: func(c *cli.Context) error {
			goutils.UncheckedError(appLogger(c).Sync())
			closers, _ := c.App.Metadata[metadataClosers].([]io.Closer)
			for _, closer := range closers {
				goutils.UncheckedError(closer.Close())
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "detect",
				Usage:     "detect objects in a single image",
				UsageText: "aidas detect --config <file> --image <file> [--rotation <deg>] [--out <file>]",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:     detectFlagImage,
						Usage:    "image `FILE` to run detection on",
						Required: true,
					},
					rotationFlag,
					outFlag,
				},
				Action: DetectAction,
			},
			{
				Name:      "stream",
				Usage:     "replay a directory of frames as a live camera stream",
				UsageText: "aidas stream --config <file> --frames <dir> [--fps <n>] [--rotation <deg>] [--out <dir>]",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:     streamFlagFrames,
						Usage:    "`DIR` of frames, replayed in file name order",
						Required: true,
					},
					&cli.Float64Flag{
						Name:  streamFlagFPS,
						Usage: "frames per second to replay at",
						Value: 15,
					},
					rotationFlag,
					outFlag,
				},
				Action: StreamAction,
			},
			{
				Name:      "batch",
				Usage:     "score a detector against a labeled test manifest",
				UsageText: "aidas batch --config <file> --manifest <file> [--out <dir>]",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:     batchFlagManifest,
						Usage:    "JSON test manifest `FILE`",
						Required: true,
					},
					outFlag,
				},
				Action: BatchAction,
			},
			{
				Name:   "schema",
				Usage:  "print the JSON schema of the config file and of every backend",
				Action: SchemaAction,
			},
		},
	}
}

func appLogger(c *cli.Context) logging.Logger {
	if l, ok := c.App.Metadata[metadataLogger].(logging.Logger); ok {
		return l
	}
	return logging.Global()
}

func addFileAppender(c *cli.Context, logger logging.Logger, path string) {
	appender, closer := logging.NewFileAppender(path)
	logger.AddAppender(appender)
	closers, _ := c.App.Metadata[metadataClosers].([]io.Closer)
	c.App.Metadata[metadataClosers] = append(closers, closer)
}
