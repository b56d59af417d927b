package inject

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/aidas-vision/aidas/vision/objectdetection"
)

// DetectorBuilder is an injected detector builder. It records every BuildOptions it is called with.
type DetectorBuilder struct {
	objectdetection.Builder
	BuildFunc func(ctx context.Context, opts objectdetection.BuildOptions) (objectdetection.Handle, error)

	mu    sync.Mutex
	calls []objectdetection.BuildOptions
}

// Build calls the injected Build or the real version.
func (b *DetectorBuilder) Build(ctx context.Context, opts objectdetection.BuildOptions) (objectdetection.Handle, error) {
	b.mu.Lock()
	b.calls = append(b.calls, opts)
	b.mu.Unlock()
	if b.BuildFunc == nil {
		return b.Builder.Build(ctx, opts)
	}
	return b.BuildFunc(ctx, opts)
}

// BuildCalls returns the options of every Build call so far.
func (b *DetectorBuilder) BuildCalls() []objectdetection.BuildOptions {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]objectdetection.BuildOptions(nil), b.calls...)
}

// DetectorHandle is an injected detector handle.
type DetectorHandle struct {
	objectdetection.Handle
	DetectFunc      func(ctx context.Context, img image.Image) (objectdetection.DetectionSet, error)
	DetectAsyncFunc func(img image.Image, timestamp time.Time, onComplete objectdetection.CompletionFunc)
	CloseFunc       func() error
}

// Detect calls the injected Detect or the real version.
func (h *DetectorHandle) Detect(ctx context.Context, img image.Image) (objectdetection.DetectionSet, error) {
	if h.DetectFunc == nil {
		return h.Handle.Detect(ctx, img)
	}
	return h.DetectFunc(ctx, img)
}

// DetectAsync calls the injected DetectAsync or the real version.
func (h *DetectorHandle) DetectAsync(img image.Image, timestamp time.Time, onComplete objectdetection.CompletionFunc) {
	if h.DetectAsyncFunc == nil {
		h.Handle.DetectAsync(img, timestamp, onComplete)
		return
	}
	h.DetectAsyncFunc(img, timestamp, onComplete)
}

// Close calls the injected Close or the real version.
func (h *DetectorHandle) Close() error {
	if h.CloseFunc == nil {
		if h.Handle == nil {
			return nil
		}
		return h.Handle.Close()
	}
	return h.CloseFunc()
}
