// Package ssd runs single-shot detector models through the OpenCV DNN module.
package ssd

import (
	"bufio"
	"context"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
	"gocv.io/x/gocv"

	"github.com/aidas-vision/aidas/logging"
	"github.com/aidas-vision/aidas/services/detection"
	"github.com/aidas-vision/aidas/utils"
	"github.com/aidas-vision/aidas/vision/objectdetection"
)

// BackendName is the name the backend is registered under.
const BackendName = "ssd"

// Attributes configure the SSD backend.
type Attributes struct {
	// AssetsDir holds the model files, named after each model's asset name.
	AssetsDir string `json:"assets_dir"`
	// ConfigPath is an optional network description for formats that need one.
	ConfigPath string `json:"config_path,omitempty"`
	// LabelsPath is a text file with one label per line, indexed by class id.
	LabelsPath string `json:"labels_path,omitempty"`
	// InputSize is the square input edge of the network. Defaults to 300.
	InputSize int `json:"input_size,omitempty"`
}

func init() {
	detection.RegisterBackend(BackendName, detection.BackendRegistration{
		Constructor: func(attrs utils.AttributeMap, logger logging.Logger) (objectdetection.Builder, error) {
			conf, err := utils.TransformAttributeMap[*Attributes](attrs)
			if err != nil {
				return nil, errors.Wrap(err, "ssd backend attributes")
			}
			return NewBuilder(*conf, logger)
		},
		Attributes: &Attributes{},
	})
}

// Builder loads SSD networks from disk.
type Builder struct {
	attrs  Attributes
	labels []string
	logger logging.Logger
}

// NewBuilder validates attrs and reads the label file, if any.
func NewBuilder(attrs Attributes, logger logging.Logger) (*Builder, error) {
	if attrs.AssetsDir == "" {
		return nil, errors.New("ssd backend needs an assets_dir")
	}
	if attrs.InputSize == 0 {
		attrs.InputSize = 300
	}
	b := &Builder{attrs: attrs, logger: logger}
	if attrs.LabelsPath != "" {
		labels, err := loadLabels(attrs.LabelsPath)
		if err != nil {
			return nil, errors.Wrapf(err, "reading labels from %s", attrs.LabelsPath)
		}
		b.labels = labels
	}
	return b, nil
}

// Build loads the model named by the config and prepares it for the configured delegate.
func (b *Builder) Build(ctx context.Context, opts objectdetection.BuildOptions) (objectdetection.Handle, error) {
	if err := opts.Config.Validate("detector"); err != nil {
		return nil, err
	}
	modelPath := filepath.Join(b.attrs.AssetsDir, opts.Config.Model.AssetName())
	if _, err := os.Stat(modelPath); err != nil {
		return nil, errors.Wrapf(err, "model file for %s", opts.Config.Model)
	}

	net := gocv.ReadNet(modelPath, b.attrs.ConfigPath)
	if net.Empty() {
		return nil, errors.Errorf("failed to load network from %s", modelPath)
	}
	if err := setDelegate(&net, opts.Config.Delegate); err != nil {
		goutils.UncheckedError(net.Close())
		return nil, err
	}
	b.logger.Infow("loaded ssd network", "model", modelPath, "delegate", opts.Config.Delegate)

	d := &detector{net: net, inputSize: b.attrs.InputSize, labels: b.labels}
	return objectdetection.NewHandle(d.detect, opts, d.close)
}

func setDelegate(net *gocv.Net, delegate objectdetection.Delegate) error {
	backend, target := gocv.NetBackendDefault, gocv.NetTargetCPU
	if delegate == objectdetection.DelegateGPU {
		backend, target = gocv.NetBackendCUDA, gocv.NetTargetCUDA
	}
	if err := net.SetPreferableBackend(backend); err != nil {
		return errors.Wrapf(err, "setting backend for %s delegate", delegate)
	}
	if err := net.SetPreferableTarget(target); err != nil {
		return errors.Wrapf(err, "setting target for %s delegate", delegate)
	}
	return nil
}

// detector serializes access to the network, which is not safe for concurrent use.
type detector struct {
	mu        sync.Mutex
	net       gocv.Net
	inputSize int
	labels    []string
}

func (d *detector) detect(ctx context.Context, img image.Image) (objectdetection.DetectionSet, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, errors.Wrap(err, "converting image")
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, errors.New("image is empty")
	}

	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(d.inputSize, d.inputSize),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	rows := output.Reshape(1, output.Total()/rowLen)
	defer rows.Close()
	raw := make([][rowLen]float32, rows.Rows())
	for i := range raw {
		for j := 0; j < rowLen; j++ {
			raw[i][j] = rows.GetFloatAt(i, j)
		}
	}
	return parseRows(raw, img.Bounds().Dx(), img.Bounds().Dy(), d.labels), nil
}

func (d *detector) close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// rowLen is the width of one SSD output row: batch, class, score, x1, y1, x2, y2.
const rowLen = 7

// parseRows converts SSD output rows with normalized corners into detections on a w x h image.
// Rows with a non-positive score are padding and are skipped.
func parseRows(rows [][rowLen]float32, w, h int, labels []string) objectdetection.DetectionSet {
	out := make(objectdetection.DetectionSet, 0, len(rows))
	for _, row := range rows {
		score := float64(row[2])
		if score <= 0 {
			continue
		}
		x1 := utils.Clamp(float64(row[3]), 0, 1) * float64(w)
		y1 := utils.Clamp(float64(row[4]), 0, 1) * float64(h)
		x2 := utils.Clamp(float64(row[5]), 0, 1) * float64(w)
		y2 := utils.Clamp(float64(row[6]), 0, 1) * float64(h)
		box := objectdetection.Rect{Left: x1, Top: y1, Right: x2, Bottom: y2}
		out = append(out, objectdetection.NewDetection(box, score, labelFor(int(row[1]), labels)))
	}
	return out
}

func labelFor(class int, labels []string) string {
	if class >= 0 && class < len(labels) && labels[class] != "" {
		return labels[class]
	}
	return strconv.Itoa(class)
}

// loadLabels reads a labelmap.txt file from filename and returns a slice of the labels.
func loadLabels(filename string) ([]string, error) {
	labels := []string{}
	//nolint:gosec
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	return labels, scanner.Err()
}
