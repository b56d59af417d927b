package batchtest

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"github.com/aidas-vision/aidas/logging"
	"github.com/aidas-vision/aidas/rimage"
	"github.com/aidas-vision/aidas/vision/results"
)

// DefaultIoUThreshold is the minimum overlap between the detected and annotated boxes for a
// correctly labeled detection to count as correct.
const DefaultIoUThreshold = 0.5

// Correctness grades a single image.
type Correctness int

// The possible grades.
const (
	Correct Correctness = iota
	IncorrectLabel
	MissingLabel
	IncorrectAnnotation
)

func (c Correctness) String() string {
	switch c {
	case Correct:
		return "CORRECT"
	case IncorrectLabel:
		return "INCORRECT_LABEL"
	case MissingLabel:
		return "MISSING_LABEL"
	case IncorrectAnnotation:
		return "INCORRECT_ANNOTATION"
	default:
		return fmt.Sprintf("Correctness(%d)", int(c))
	}
}

// SyncDetector runs single-image detection. *detection.Manager implements it.
type SyncDetector interface {
	DetectSync(ctx context.Context, img image.Image, rotation int) (results.Envelope, error)
}

// Result is the outcome for one image.
type Result struct {
	ImagePath     string
	Expected      string
	Got           string
	Correctness   Correctness
	InferenceTime time.Duration
	IoU           float64
	Err           error
}

// Report aggregates a run.
type Report struct {
	ModelName            string
	Results              []Result
	Tally                map[Correctness]int
	AverageInferenceTime time.Duration
	P95InferenceTime     time.Duration
	// Accuracy is the percentage of graded images that were Correct.
	Accuracy float64
	// Skipped counts images that could not be loaded.
	Skipped int
}

type options struct {
	modelName    string
	iouThreshold float64
	onResult     func(TestImage, image.Image, results.Envelope)
	loadImage    func(path string) (image.Image, error)
}

// Option configures Run.
type Option func(*options)

// WithModelName sets the name shown in the report.
func WithModelName(name string) Option {
	return func(o *options) {
		o.modelName = name
	}
}

// WithIoUThreshold overrides DefaultIoUThreshold.
func WithIoUThreshold(threshold float64) Option {
	return func(o *options) {
		o.iouThreshold = threshold
	}
}

// WithResultHook calls fn with every successful detection, for example to render it.
func WithResultHook(fn func(TestImage, image.Image, results.Envelope)) Option {
	return func(o *options) {
		o.onResult = fn
	}
}

// WithImageLoader replaces rimage.ReadImageFromFile.
func WithImageLoader(fn func(path string) (image.Image, error)) Option {
	return func(o *options) {
		o.loadImage = fn
	}
}

// Run detects on every image in order and grades the top detection against the expected label.
// Images that cannot be loaded are skipped. Run stops early only if ctx is done.
func Run(ctx context.Context, det SyncDetector, images []TestImage, logger logging.Logger, opts ...Option) (*Report, error) {
	ctx, span := trace.StartSpan(ctx, "batchtest::Run")
	defer span.End()

	o := options{iouThreshold: DefaultIoUThreshold, loadImage: rimage.ReadImageFromFile}
	for _, opt := range opts {
		opt(&o)
	}

	report := &Report{ModelName: o.modelName, Tally: map[Correctness]int{}}
	for _, ti := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := o.loadImage(ti.ImagePath)
		if err != nil {
			logger.Warnw("skipping test image", "path", ti.ImagePath, "error", err)
			report.Skipped++
			continue
		}

		res := Result{ImagePath: ti.ImagePath, Expected: ti.Label, Correctness: MissingLabel}
		env, err := det.DetectSync(ctx, img, 0)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warnw("detection failed", "path", ti.ImagePath, "error", err)
			res.Err = err
		} else {
			res.InferenceTime = env.InferenceTime
			grade(&res, ti, env, o.iouThreshold)
			if o.onResult != nil {
				o.onResult(ti, img, env)
			}
		}
		logger.Debugw("graded test image", "path", ti.ImagePath, "result", res.Correctness)
		report.Results = append(report.Results, res)
		report.Tally[res.Correctness]++
	}

	if err := report.summarize(); err != nil {
		return nil, err
	}
	return report, nil
}

func grade(res *Result, ti TestImage, env results.Envelope, iouThreshold float64) {
	if len(env.Detections) == 0 {
		return
	}
	top := env.Detections[0]
	cat, ok := top.Top()
	if !ok {
		return
	}
	res.Got = cat.Label
	if !strings.EqualFold(cat.Label, ti.Label) {
		res.Correctness = IncorrectLabel
		return
	}
	res.Correctness = Correct
	if want, ok := ti.ExpectedBox(); ok {
		res.IoU = top.BoundingBox.IoU(want)
		if res.IoU < iouThreshold {
			res.Correctness = IncorrectAnnotation
		}
	}
}

func (r *Report) summarize() error {
	if len(r.Results) == 0 {
		return nil
	}
	var times stats.Float64Data
	for _, res := range r.Results {
		if res.Err == nil {
			times = append(times, float64(res.InferenceTime))
		}
	}
	if len(times) > 0 {
		mean, err := times.Mean()
		if err != nil {
			return errors.Wrap(err, "averaging inference times")
		}
		p95, err := times.Percentile(95)
		if err != nil {
			return errors.Wrap(err, "computing inference time percentile")
		}
		r.AverageInferenceTime = time.Duration(mean)
		r.P95InferenceTime = time.Duration(p95)
	}
	r.Accuracy = 100 * float64(r.Tally[Correct]) / float64(len(r.Results))
	return nil
}

// Table renders the per-image results and the summary as a text table.
func (r *Report) Table() string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("Model: %s", r.ModelName))
	t.AppendHeader(table.Row{"#", "Image", "Expected", "Detected", "Result", "Inference"})
	for i, res := range r.Results {
		t.AppendRow([]interface{}{
			i + 1,
			res.ImagePath,
			res.Expected,
			res.Got,
			res.Correctness,
			res.InferenceTime.Round(time.Millisecond),
		})
	}
	t.AppendFooter(table.Row{
		"",
		fmt.Sprintf("skipped %d", r.Skipped),
		"",
		fmt.Sprintf("accuracy %.1f%%", r.Accuracy),
		fmt.Sprintf("avg %v", r.AverageInferenceTime.Round(time.Millisecond)),
		fmt.Sprintf("p95 %v", r.P95InferenceTime.Round(time.Millisecond)),
	})
	return t.Render()
}
