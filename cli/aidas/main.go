// Package main is the aidas command line tool.
package main

import (
	"os"

	"github.com/aidas-vision/aidas/cli"
	"github.com/aidas-vision/aidas/logging"

	// register the OpenCV DNN backend.
	_ "github.com/aidas-vision/aidas/vision/objectdetection/ssd"
)

func main() {
	app := cli.NewApp(os.Stdout, nil)
	if err := app.Run(os.Args); err != nil {
		logging.Global().Errorw("aidas failed", "error", err)
		os.Exit(1)
	}
}
