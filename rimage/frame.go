package rimage

import (
	"fmt"
	"image"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"github.com/aidas-vision/aidas/rimage/transform"
	"github.com/aidas-vision/aidas/utils"
)

// PixelFormat is the memory layout of a raw camera frame.
type PixelFormat int

// The supported raw formats.
const (
	// FormatRGBA8888 is a single plane of 4 bytes per pixel.
	FormatRGBA8888 PixelFormat = iota
	// FormatYUV420 is a full resolution Y plane followed by quarter resolution U and V planes.
	// Chroma planes may be planar (pixel stride 1) or interleaved (pixel stride 2).
	FormatYUV420
)

func (f PixelFormat) String() string {
	switch f {
	case FormatRGBA8888:
		return "RGBA_8888"
	case FormatYUV420:
		return "YUV_420_888"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(f))
	}
}

// Plane is one plane of a raw frame.
type Plane struct {
	Data        []byte
	RowStride   int
	PixelStride int
}

// RawFrame is a frame as handed over by a camera: pixel planes plus metadata.
type RawFrame struct {
	Format          PixelFormat
	Width           int
	Height          int
	RotationDegrees int
	Timestamp       time.Time
	Planes          []Plane
}

// Validate checks that the planes are large enough for the frame's dimensions.
func (f *RawFrame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return errors.Errorf("invalid frame size %dx%d", f.Width, f.Height)
	}
	if !transform.ValidRotation(f.RotationDegrees) {
		return errors.Wrapf(transform.ErrInvalidRotation, "got %d", f.RotationDegrees)
	}
	switch f.Format {
	case FormatRGBA8888:
		if len(f.Planes) != 1 {
			return errors.Errorf("%s frame needs 1 plane, got %d", f.Format, len(f.Planes))
		}
		return checkPlane(f.Planes[0], f.Width, f.Height, 4, "rgba")
	case FormatYUV420:
		if len(f.Planes) != 3 {
			return errors.Errorf("%s frame needs 3 planes, got %d", f.Format, len(f.Planes))
		}
		if err := checkPlane(f.Planes[0], f.Width, f.Height, 1, "y"); err != nil {
			return err
		}
		cw, ch := (f.Width+1)/2, (f.Height+1)/2
		if err := checkPlane(f.Planes[1], cw, ch, 1, "u"); err != nil {
			return err
		}
		return checkPlane(f.Planes[2], cw, ch, 1, "v")
	default:
		return utils.NewUnsupportedValueError("pixel format", f.Format)
	}
}

func checkPlane(p Plane, w, h, minPixelStride int, name string) error {
	if p.PixelStride < minPixelStride {
		return errors.Errorf("%s plane pixel stride %d is below %d", name, p.PixelStride, minPixelStride)
	}
	if p.RowStride < (w-1)*p.PixelStride+minPixelStride {
		return errors.Errorf("%s plane row stride %d is too small for width %d", name, p.RowStride, w)
	}
	need := (h-1)*p.RowStride + (w-1)*p.PixelStride + minPixelStride
	if len(p.Data) < need {
		return errors.Errorf("%s plane has %d bytes, needs %d", name, len(p.Data), need)
	}
	return nil
}

// CopyInto converts the frame into dst, which must be exactly Width x Height. Every pixel of dst
// is written.
func (f *RawFrame) CopyInto(dst *image.RGBA) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if dst.Bounds().Dx() != f.Width || dst.Bounds().Dy() != f.Height {
		return errors.Errorf("destination is %v, frame is %dx%d", dst.Bounds().Size(), f.Width, f.Height)
	}

	switch f.Format {
	case FormatRGBA8888:
		f.copyRGBA(dst)
	case FormatYUV420:
		draw.Draw(dst, dst.Bounds(), f.toYCbCr(), image.Point{}, draw.Src)
	}
	return nil
}

func (f *RawFrame) copyRGBA(dst *image.RGBA) {
	src := f.Planes[0]
	rowBytes := f.Width * 4
	for y := 0; y < f.Height; y++ {
		dstRow := dst.Pix[y*dst.Stride : y*dst.Stride+rowBytes]
		if src.PixelStride == 4 {
			copy(dstRow, src.Data[y*src.RowStride:y*src.RowStride+rowBytes])
			continue
		}
		for x := 0; x < f.Width; x++ {
			off := y*src.RowStride + x*src.PixelStride
			copy(dstRow[x*4:x*4+4], src.Data[off:off+4])
		}
	}
}

func (f *RawFrame) toYCbCr() *image.YCbCr {
	ycc := image.NewYCbCr(image.Rect(0, 0, f.Width, f.Height), image.YCbCrSubsampleRatio420)
	yp, up, vp := f.Planes[0], f.Planes[1], f.Planes[2]
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			ycc.Y[y*ycc.YStride+x] = yp.Data[y*yp.RowStride+x*yp.PixelStride]
		}
	}
	cw, ch := (f.Width+1)/2, (f.Height+1)/2
	for y := 0; y < ch; y++ {
		for x := 0; x < cw; x++ {
			ycc.Cb[y*ycc.CStride+x] = up.Data[y*up.RowStride+x*up.PixelStride]
			ycc.Cr[y*ycc.CStride+x] = vp.Data[y*vp.RowStride+x*vp.PixelStride]
		}
	}
	return ycc
}
