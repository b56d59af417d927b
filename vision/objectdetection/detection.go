package objectdetection

import (
	"fmt"
	"image"
	"math"
	"time"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
)

// Rect is an axis aligned box in source-image pixel space.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// RectFromImage converts an integer image rectangle.
func RectFromImage(r image.Rectangle) Rect {
	return Rect{float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y)}
}

// RectFromR2 converts a geo rectangle.
func RectFromR2(r r2.Rect) Rect {
	return Rect{r.X.Lo, r.Y.Lo, r.X.Hi, r.Y.Hi}
}

// R2 returns the rectangle as an r2.Rect.
func (r Rect) R2() r2.Rect {
	return r2.Rect{X: r1.Interval{Lo: r.Left, Hi: r.Right}, Y: r1.Interval{Lo: r.Top, Hi: r.Bottom}}
}

// Width of the rectangle.
func (r Rect) Width() float64 {
	return r.Right - r.Left
}

// Height of the rectangle.
func (r Rect) Height() float64 {
	return r.Bottom - r.Top
}

// Area of the rectangle, zero for degenerate rectangles.
func (r Rect) Area() float64 {
	if r.Width() <= 0 || r.Height() <= 0 {
		return 0
	}
	return r.Width() * r.Height()
}

// IoU returns the intersection over union of two rectangles.
func (r Rect) IoU(o Rect) float64 {
	inter := Rect{
		Left:   math.Max(r.Left, o.Left),
		Top:    math.Max(r.Top, o.Top),
		Right:  math.Min(r.Right, o.Right),
		Bottom: math.Min(r.Bottom, o.Bottom),
	}.Area()
	union := r.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Scale multiplies every coordinate by s.
func (r Rect) Scale(s float64) Rect {
	return Rect{r.Left * s, r.Top * s, r.Right * s, r.Bottom * s}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.1f, %.1f)-(%.1f, %.1f)", r.Left, r.Top, r.Right, r.Bottom)
}

// Category is one label a detector assigned to a box, with its confidence.
type Category struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Detection is a single found object. Categories are sorted by descending score.
type Detection struct {
	BoundingBox Rect       `json:"bounding_box"`
	Categories  []Category `json:"categories"`
}

// NewDetection creates a simple detection with a single category.
func NewDetection(box Rect, score float64, label string) Detection {
	return Detection{BoundingBox: box, Categories: []Category{{Label: label, Score: score}}}
}

// Top returns the highest scoring category. ok is false when the detection has no categories.
func (d Detection) Top() (cat Category, ok bool) {
	if len(d.Categories) == 0 {
		return Category{}, false
	}
	return d.Categories[0], true
}

// Score is the score of the top category, or 0.
func (d Detection) Score() float64 {
	top, _ := d.Top()
	return top.Score
}

// Label is the label of the top category, or the empty string.
func (d Detection) Label() string {
	top, _ := d.Top()
	return top.Label
}

// DetectionSet is an ordered list of detections, highest score first. An empty set is valid.
type DetectionSet []Detection

// FrameMetadata describes the camera frame a detection was run on.
type FrameMetadata struct {
	Width           int
	Height          int
	RotationDegrees int
	Timestamp       time.Time
}
