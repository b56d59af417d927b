package overlay

import (
	"image"
	"image/color"
	"sync"

	"github.com/fogleman/gg"

	"github.com/aidas-vision/aidas/rimage"
)

// Style controls how placements are drawn.
type Style struct {
	TextSize    float64
	Padding     float64
	StrokeWidth float64
	BoxColor    color.Color
	PlateColor  color.Color
	TextColor   color.Color
}

// DefaultStyle is a thick colored box with white text on a black plate.
func DefaultStyle() Style {
	return Style{
		TextSize:    50,
		Padding:     8,
		StrokeWidth: 8,
		BoxColor:    color.RGBA{R: 0x62, G: 0x00, B: 0xEE, A: 0xFF},
		PlateColor:  color.Black,
		TextColor:   color.White,
	}
}

// Surface is something placements can be drawn onto.
type Surface interface {
	// Size is the drawable area in pixels.
	Size() (width, height int)
	// Clear removes everything drawn since the last Clear.
	Clear()
	// Draw draws one placement.
	Draw(p Placement, style Style)
	// Invalidate signals that the drawing is complete and should be shown.
	Invalidate()
}

// ImageSurface is an in-memory Surface backed by a gg context.
type ImageSurface struct {
	mu          sync.Mutex
	dc          *gg.Context
	background  image.Image
	invalidated int
}

// NewImageSurface returns a w x h surface. If background is not nil it is drawn at the origin
// whenever the surface is cleared.
func NewImageSurface(w, h int, background image.Image) *ImageSurface {
	s := &ImageSurface{dc: gg.NewContext(w, h), background: background}
	s.Clear()
	return s
}

// Size returns the surface dimensions.
func (s *ImageSurface) Size() (int, int) {
	return s.dc.Width(), s.dc.Height()
}

// Clear paints the background, or transparent black without one.
func (s *ImageSurface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dc.SetColor(color.Transparent)
	s.dc.Clear()
	if s.background != nil {
		s.dc.DrawImage(s.background, 0, 0)
	}
}

// Draw draws the box outline, the label plate and the label.
func (s *ImageSurface) Draw(p Placement, style Style) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rimage.DrawRectangleEmpty(s.dc, p.Box, style.BoxColor, style.StrokeWidth)
	rimage.DrawRectangleFilled(s.dc, p.Plate, style.PlateColor)
	rimage.DrawString(s.dc, p.Label, p.Baseline.X, p.Baseline.Y, style.TextColor, style.TextSize)
}

// Invalidate counts the redraw.
func (s *ImageSurface) Invalidate() {
	s.mu.Lock()
	s.invalidated++
	s.mu.Unlock()
}

// Invalidations is how many times the surface was invalidated.
func (s *ImageSurface) Invalidations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invalidated
}

// Image returns the current drawing.
func (s *ImageSurface) Image() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return rimage.CloneToRGBA(s.dc.Image())
}

// SavePNG writes the current drawing to path.
func (s *ImageSurface) SavePNG(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dc.SavePNG(path)
}
