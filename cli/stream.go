package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"
	"golang.org/x/sync/errgroup"

	"github.com/aidas-vision/aidas/config"
	"github.com/aidas-vision/aidas/logging"
	"github.com/aidas-vision/aidas/rimage"
	"github.com/aidas-vision/aidas/services/detection"
	"github.com/aidas-vision/aidas/vision/ingest"
	"github.com/aidas-vision/aidas/vision/objectdetection"
	"github.com/aidas-vision/aidas/vision/results"
)

// drainTimeout bounds how long the stream waits for the last frames to finish after replay ends.
const drainTimeout = 5 * time.Second

var frameExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".tif": true, ".tiff": true, ".ppm": true, ".qoi": true,
}

// StreamAction replays a directory of frames through the live-stream path, as a camera would.
// The config file is watched and changes are applied without restarting.
func StreamAction(c *cli.Context) error {
	logger := appLogger(c)
	cfg, err := readConfig(c, logger, objectdetection.LiveStream)
	if err != nil {
		return err
	}
	frames, err := listFrames(c.String(streamFlagFrames))
	if err != nil {
		return err
	}
	fps := c.Float64(streamFlagFPS)
	if fps <= 0 {
		return errors.Errorf("fps must be positive, got %v", fps)
	}
	outDir := c.String(detectFlagOut)
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o750); err != nil {
			return err
		}
	}

	slot := results.NewSlot()
	m, err := newManager(c.Context, cfg, logger, slot, detection.WithErrorListener(func(msg string) {
		printf(c.App.ErrWriter, "error: %s", msg)
	}))
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(m.Close)

	watcher, err := config.NewWatcher(cfg.ConfigFilePath, 0, logger, func(ctx context.Context, next *config.Config) {
		config.UpdateFileConfigLevel(next.Logging.Level)
		if next.Backend.Name != cfg.Backend.Name {
			logger.Warnw("backend changes need a restart", "running", cfg.Backend.Name, "configured", next.Backend.Name)
		}
		next.Detector.RunningMode = objectdetection.LiveStream
		if err := m.Configure(ctx, next.Detector, slot); err != nil {
			logger.Errorw("cannot apply config change", "error", err)
		}
	})
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(watcher.Close)

	adapter := ingest.NewAdapter(m, logger.Sublogger("ingest"))
	rotation := rotationDegrees(c)
	interval := time.Duration(float64(time.Second) / fps)

	g, ctx := errgroup.WithContext(c.Context)
	g.Go(func() error {
		defer slot.Close()
		if err := replay(ctx, adapter, frames, rotation, interval, logger); err != nil {
			return err
		}
		drain(ctx, m, adapter)
		return nil
	})
	var rendered int
	g.Go(func() error {
		for {
			env, ok := slot.Next(ctx)
			if !ok {
				return nil
			}
			logger.Infow("detections", "count", len(env.Detections), "inference_ms", env.InferenceTimeMs())
			if outDir == "" {
				continue
			}
			path := filepath.Join(outDir, fmt.Sprintf("overlay_%05d.png", rendered))
			if err := renderToFile(path, nil, env, cfg, logger); err != nil {
				logger.Warnw("cannot render overlay", "error", err)
				continue
			}
			rendered++
		}
	})
	if err := g.Wait(); err != nil {
		return err
	}

	stats := m.Stats()
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Frames", "Accepted", "Rejected", "Submitted", "Dropped", "Delivered", "Failed", "Rebuilds"})
	t.AppendRow(table.Row{
		len(frames), adapter.Ingested(), adapter.Rejected(),
		stats.Submitted, stats.Dropped, stats.Delivered, stats.Failed, stats.Rebuilds,
	})
	printf(c.App.Writer, "%s", t.Render())
	return nil
}

func listFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "cannot list frames")
	}
	var frames []string
	for _, e := range entries {
		if e.IsDir() || !frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		frames = append(frames, filepath.Join(dir, e.Name()))
	}
	if len(frames) == 0 {
		return nil, errors.Errorf("no frames found in %s", dir)
	}
	sort.Strings(frames)
	return frames, nil
}

// replay feeds one frame per tick, like a camera delivering frames on its own schedule.
func replay(
	ctx context.Context,
	adapter *ingest.Adapter,
	frames []string,
	rotation int,
	interval time.Duration,
	logger logging.Logger,
) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for _, path := range frames {
		img, err := rimage.ReadImageFromFile(path)
		if err != nil {
			logger.Warnw("skipping unreadable frame", "path", path, "error", err)
			continue
		}
		rgba := rimage.CloneToRGBA(img)
		frame := rimage.RawFrame{
			Format:          rimage.FormatRGBA8888,
			Width:           rgba.Bounds().Dx(),
			Height:          rgba.Bounds().Dy(),
			RotationDegrees: rotation,
			Timestamp:       time.Now(),
			Planes:          []rimage.Plane{{Data: rgba.Pix, RowStride: rgba.Stride, PixelStride: 4}},
		}
		if err := adapter.Ingest(frame); err != nil {
			logger.Debugw("frame not ingested", "path", path, "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// drain waits until every accepted frame was either dropped or came out of the detector.
func drain(ctx context.Context, m *detection.Manager, adapter *ingest.Adapter) {
	deadline := time.Now().Add(drainTimeout)
	for time.Now().Before(deadline) {
		s := m.Stats()
		if s.Dropped+s.Delivered+s.Discarded+s.Failed >= adapter.Ingested() {
			return
		}
		if !goutils.SelectContextOrWait(ctx, 10*time.Millisecond) {
			return
		}
	}
}
