package rimage

import (
	"image"
	"sync"
)

// FramePool hands out reusable RGBA buffers so that a stream of same-sized frames does not
// allocate a new backing slice per frame.
type FramePool struct {
	pool sync.Pool // stores *image.RGBA
}

// Get returns an RGBA image sized w x h. Its pixels are not cleared.
func (fp *FramePool) Get(w, h int) *image.RGBA {
	rect := image.Rect(0, 0, w, h)
	if w <= 0 || h <= 0 {
		return &image.RGBA{Rect: rect}
	}
	needed := w * h * 4
	var img *image.RGBA
	if v := fp.pool.Get(); v != nil {
		img, _ = v.(*image.RGBA)
	}
	if img == nil || cap(img.Pix) < needed {
		return &image.RGBA{Pix: make([]byte, needed), Stride: w * 4, Rect: rect}
	}
	img.Stride = w * 4
	img.Rect = rect
	img.Pix = img.Pix[:needed]
	return img
}

// Put returns img to the pool. The caller must not touch img afterwards.
func (fp *FramePool) Put(img *image.RGBA) {
	if img == nil || img.Pix == nil {
		return
	}
	fp.pool.Put(img)
}
