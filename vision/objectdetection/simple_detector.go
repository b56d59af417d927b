package objectdetection

import (
	"context"
	"image"
	"image/color"
)

// SimpleLabel is the label the simple detector gives every blob it finds.
const SimpleLabel = "object"

// simpleDetector converts an image to gray and then finds the connected components with values below a certain
// luminance threshold. threshold is between 0.0 and 256.0, with 256.0 being white, and 0.0 being black.
type simpleDetector struct {
	threshold float64
}

// NewSimpleDetector creates a detector useful for local testing purposes. Looks for dark objects in the image.
// It finds pixels below the set threshold, and returns bounding box around the connected components.
func NewSimpleDetector(threshold float64) Detector {
	sd := simpleDetector{threshold}
	return sd.Inference
}

// NewSimpleBuilder returns a Builder whose handles run the simple detector. The model in the
// config is not loaded; every blob is reported as SimpleLabel with score 1.
func NewSimpleBuilder(threshold float64) Builder {
	return BuilderFunc(func(ctx context.Context, opts BuildOptions) (Handle, error) {
		if err := opts.Config.Validate("detector"); err != nil {
			return nil, err
		}
		return NewHandle(NewSimpleDetector(threshold), opts, nil)
	})
}

// Inference takes in an image frame and returns the detection bounding boxes found in the image.
func (sd *simpleDetector) Inference(ctx context.Context, img image.Image) (DetectionSet, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	gray := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g, _ := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			gray[y*width+x] = float64(g.Y)
		}
	}

	seen := make([]bool, width*height)
	queue := []image.Point{}
	detections := DetectionSet{}
	for i := 0; i < width; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := 0; j < height; j++ {
			pt := image.Point{i, j}
			indx := pt.Y*width + pt.X
			if seen[indx] {
				continue
			}
			if !sd.pass(gray[indx]) {
				seen[indx] = true
				continue
			}
			queue = append(queue, pt)
			seen[indx] = true
			x0, y0, x1, y1 := pt.X, pt.Y, pt.X, pt.Y // the bounding box of the segment
			for len(queue) != 0 {
				newPt := queue[0]
				queue = queue[1:]
				if newPt.X < x0 {
					x0 = newPt.X
				}
				if newPt.X > x1 {
					x1 = newPt.X
				}
				if newPt.Y < y0 {
					y0 = newPt.Y
				}
				if newPt.Y > y1 {
					y1 = newPt.Y
				}
				neighbors := sd.getNeighbors(newPt, width, height, gray, seen)
				queue = append(queue, neighbors...)
			}
			box := image.Rect(x0, y0, x1+1, y1+1).Add(bounds.Min)
			detections = append(detections, NewDetection(RectFromImage(box), 1.0, SimpleLabel))
		}
	}
	return detections, nil
}

func (sd *simpleDetector) pass(lum float64) bool {
	return lum < sd.threshold
}

func (sd *simpleDetector) getNeighbors(pt image.Point, width, height int, gray []float64, seen []bool) []image.Point {
	bounds := image.Rect(0, 0, width, height)
	neighbors := make([]image.Point, 0, 4)
	fourPoints := []image.Point{{pt.X, pt.Y - 1}, {pt.X, pt.Y + 1}, {pt.X - 1, pt.Y}, {pt.X + 1, pt.Y}}
	for _, p := range fourPoints {
		if !p.In(bounds) {
			continue
		}
		indx := p.Y*width + p.X
		if seen[indx] {
			continue
		}
		if sd.pass(gray[indx]) {
			neighbors = append(neighbors, p)
		}
		seen[indx] = true
	}
	return neighbors
}
