package rimage

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	"golang.org/x/image/draw"
)

// ReadImageFromFile decodes an image file, applying any EXIF orientation. PNG, JPEG, GIF,
// BMP, TIFF, PPM and QOI files are understood.
func ReadImageFromFile(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read image %s", path)
	}
	return img, nil
}

// WriteImageToFile encodes img into a file, choosing the format from the file extension.
func WriteImageToFile(path string, img image.Image) (err error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".qoi", ".ppm":
	default:
		return imaging.Save(img, path)
	}

	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	if strings.EqualFold(filepath.Ext(path), ".qoi") {
		return qoi.Encode(f, img)
	}
	// ppm only encodes the RGBA color model
	if img.ColorModel() != color.RGBAModel {
		img = CloneToRGBA(img)
	}
	return ppm.Encode(f, img)
}

// CloneToRGBA returns a copy of img as an *image.RGBA with bounds starting at the origin.
func CloneToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
