package overlay

import (
	"fmt"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/aidas-vision/aidas/logging"
	"github.com/aidas-vision/aidas/rimage"
	"github.com/aidas-vision/aidas/vision/objectdetection"
	"github.com/aidas-vision/aidas/vision/results"
)

// Placement is where one detection is drawn on the surface.
type Placement struct {
	Box   r2.Rect
	Label string
	// Plate is the filled background behind the label, anchored at the box's top-left corner.
	Plate r2.Rect
	// Baseline is the origin of the label text.
	Baseline r2.Point
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithStyle overrides DefaultStyle.
func WithStyle(style Style) RendererOption {
	return func(r *Renderer) {
		r.style = style
	}
}

// Renderer draws envelopes onto a Surface. Render and Clear may be called from any goroutine;
// the renderer serializes access to the surface.
type Renderer struct {
	surface Surface
	logger  logging.Logger
	style   Style

	mu         sync.Mutex
	mode       objectdetection.RunningMode
	placements []Placement
	transform  *Transform
}

// NewRenderer returns a renderer drawing onto surface.
func NewRenderer(
	surface Surface,
	mode objectdetection.RunningMode,
	logger logging.Logger,
	opts ...RendererOption,
) *Renderer {
	r := &Renderer{surface: surface, mode: mode, logger: logger, style: DefaultStyle()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetRunningMode changes the scaling policy used by later renders.
func (r *Renderer) SetRunningMode(mode objectdetection.RunningMode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = mode
}

// Render replaces whatever is drawn with the detections in env. On error the surface is left
// cleared so that no stale boxes remain.
func (r *Renderer) Render(env results.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, h := r.surface.Size()
	t, err := ComputeTransform(env, w, h, r.mode)
	if err != nil {
		r.clearLocked()
		r.logger.Warnw("skipping overlay frame", "rotation", env.SourceRotation,
			"source_width", env.SourceWidth, "source_height", env.SourceHeight, "error", err)
		return err
	}

	placements := make([]Placement, 0, len(env.Detections))
	for _, d := range env.Detections {
		p, err := r.place(t, d)
		if err != nil {
			r.clearLocked()
			return errors.Wrap(err, "placing detection")
		}
		placements = append(placements, p)
	}

	r.surface.Clear()
	for _, p := range placements {
		r.surface.Draw(p, r.style)
	}
	r.surface.Invalidate()
	r.placements = placements
	r.transform = &t
	return nil
}

func (r *Renderer) place(t Transform, d objectdetection.Detection) (Placement, error) {
	box, err := t.MapRect(d.BoundingBox)
	if err != nil {
		return Placement{}, err
	}
	var label string
	if top, ok := d.Top(); ok {
		label = fmt.Sprintf("%s %.2f", top.Label, top.Score)
	}
	textW, textH := rimage.MeasureString(label, r.style.TextSize)
	left, top := box.X.Lo, box.Y.Lo
	return Placement{
		Box:   box,
		Label: label,
		Plate: r2.RectFromPoints(
			r2.Point{X: left, Y: top},
			r2.Point{X: left + textW + r.style.Padding, Y: top + textH + r.style.Padding},
		),
		Baseline: r2.Point{X: left, Y: top + textH},
	}, nil
}

// Clear removes every placement and redraws the empty surface.
func (r *Renderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked()
}

func (r *Renderer) clearLocked() {
	r.placements = nil
	r.transform = nil
	r.surface.Clear()
	r.surface.Invalidate()
}

// Placements returns what the last successful render drew, in detection order.
func (r *Renderer) Placements() []Placement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Placement(nil), r.placements...)
}

// Transform returns the transform of the last successful render.
func (r *Renderer) Transform() (Transform, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.transform == nil {
		return Transform{}, false
	}
	return *r.transform, true
}
