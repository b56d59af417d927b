package rimage

import (
	"image/color"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/golang/geo/r2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	ttf *truetype.Font

	facesMu sync.Mutex
	faces   = map[float64]font.Face{}
)

// init sets up the fonts we want to use.
func init() {
	var err error
	ttf, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Font returns the font we use for drawing.
func Font() *truetype.Font {
	return ttf
}

// FontFace returns a cached face of the drawing font at the given point size.
func FontFace(size float64) font.Face {
	facesMu.Lock()
	defer facesMu.Unlock()
	if f, ok := faces[size]; ok {
		return f
	}
	f := truetype.NewFace(Font(), &truetype.Options{Size: size})
	faces[size] = f
	return f
}

// MeasureString returns the advance width of text and the line height at the given size.
func MeasureString(text string, size float64) (w, h float64) {
	dc := gg.NewContext(1, 1)
	dc.SetFontFace(FontFace(size))
	return dc.MeasureString(text)
}

// DrawString writes a string to the given context with its baseline starting at (x, y).
func DrawString(dc *gg.Context, text string, x, y float64, c color.Color, size float64) {
	dc.SetFontFace(FontFace(size))
	dc.SetColor(c)
	dc.DrawString(text, x, y)
}

// DrawRectangleEmpty draws the outline of the given rectangle into the context.
func DrawRectangleEmpty(dc *gg.Context, r r2.Rect, c color.Color, width float64) {
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.DrawRectangle(r.X.Lo, r.Y.Lo, r.X.Length(), r.Y.Length())
	dc.Stroke()
}

// DrawRectangleFilled fills the given rectangle.
func DrawRectangleFilled(dc *gg.Context, r r2.Rect, c color.Color) {
	dc.SetColor(c)
	dc.DrawRectangle(r.X.Lo, r.Y.Lo, r.X.Length(), r.Y.Length())
	dc.Fill()
}
