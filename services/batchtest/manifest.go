// Package batchtest runs a detector over a labeled set of still images and scores it.
package batchtest

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/aidas-vision/aidas/vision/objectdetection"
)

// TestImage is one labeled image of a manifest. BoundingBox, when present, is
// [left, top, right, bottom] in source pixels.
type TestImage struct {
	ImagePath   string `json:"imgPath"`
	Label       string `json:"label"`
	BoundingBox []int  `json:"boundingBox,omitempty"`
}

// ExpectedBox returns the annotated box, if the image has a complete one.
func (ti TestImage) ExpectedBox() (objectdetection.Rect, bool) {
	if len(ti.BoundingBox) != 4 {
		return objectdetection.Rect{}, false
	}
	b := ti.BoundingBox
	return objectdetection.Rect{
		Left:   float64(b[0]),
		Top:    float64(b[1]),
		Right:  float64(b[2]),
		Bottom: float64(b[3]),
	}, true
}

// LoadManifest reads a JSON array of test images. Relative image paths are resolved against
// the manifest's directory.
func LoadManifest(path string) ([]TestImage, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read test manifest")
	}
	var images []TestImage
	if err := json.Unmarshal(data, &images); err != nil {
		return nil, errors.Wrapf(err, "cannot parse test manifest %s", path)
	}
	dir := filepath.Dir(path)
	for i, img := range images {
		if img.ImagePath == "" {
			return nil, errors.Errorf("test manifest entry %d has no imgPath", i)
		}
		if !filepath.IsAbs(img.ImagePath) {
			images[i].ImagePath = filepath.Join(dir, img.ImagePath)
		}
	}
	return images, nil
}
