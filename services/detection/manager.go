// Package detection owns the lifecycle of a detector: configuration, the running-mode state
// machine, synchronous single-image detection and asynchronous live-stream detection.
package detection

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.uber.org/atomic"
	goutils "go.viam.com/utils"

	"github.com/aidas-vision/aidas/logging"
	"github.com/aidas-vision/aidas/rimage/transform"
	"github.com/aidas-vision/aidas/utils"
	"github.com/aidas-vision/aidas/vision/objectdetection"
	"github.com/aidas-vision/aidas/vision/results"
)

// State is the lifecycle state of the manager's detector.
type State int

// The lifecycle states.
const (
	Uninitialized State = iota
	Ready
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// StreamFrame is one camera frame handed to the live-stream path. Release, if set, is called
// exactly once when the manager no longer needs Image.
type StreamFrame struct {
	Image    image.Image
	Metadata objectdetection.FrameMetadata
	Release  func()
}

func (f StreamFrame) release() {
	if f.Release != nil {
		f.Release()
	}
}

// Stats are running counters for the live-stream path.
type Stats struct {
	Submitted uint64
	Dropped   uint64
	Delivered uint64
	Discarded uint64
	Failed    uint64
	Rebuilds  uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used to measure inference time.
func WithClock(clk clock.Clock) Option {
	return func(m *Manager) {
		m.clock = clk
	}
}

// WithErrorListener registers fn to be told about every initialization and detection failure.
// fn must not call back into the manager.
func WithErrorListener(fn func(message string)) Option {
	return func(m *Manager) {
		m.onError = fn
	}
}

// A Manager owns at most one live detector instance and rebuilds it whenever its configuration
// or the stream's rotation changes.
type Manager struct {
	builder objectdetection.Builder
	logger  logging.Logger
	clock   clock.Clock
	onError func(string)

	// mu is held for writing by every state change and for reading by DetectSync. The stream
	// worker never takes it.
	mu           sync.RWMutex
	state        State
	configured   bool
	cfg          objectdetection.Config
	sink         results.Sink
	handle       objectdetection.Handle
	instanceID   string
	lastRotation int
	stream       *streamWorker

	submitted atomic.Uint64
	dropped   atomic.Uint64
	delivered atomic.Uint64
	discarded atomic.Uint64
	failed    atomic.Uint64
	rebuilds  atomic.Uint64
}

type streamWorker struct {
	pending *utils.Mailbox[StreamFrame]
	workers utils.StoppableWorkers
}

// NewManager returns an uninitialized manager that builds detectors with builder.
func NewManager(builder objectdetection.Builder, logger logging.Logger, opts ...Option) *Manager {
	m := &Manager{
		builder: builder,
		logger:  logger,
		clock:   clock.New(),
		state:   Uninitialized,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Configure replaces the current detector with one built from cfg. A live stream config needs a
// sink. Any failure leaves the manager Uninitialized and is also reported to the error listener.
func (m *Manager) Configure(ctx context.Context, cfg objectdetection.Config, sink results.Sink) error {
	ctx, span := trace.StartSpan(ctx, "detection::Manager::Configure")
	defer span.End()

	m.mu.Lock()
	err := m.configureLocked(ctx, cfg, sink)
	m.mu.Unlock()

	if err != nil {
		m.reportError(err)
	}
	return err
}

func (m *Manager) configureLocked(ctx context.Context, cfg objectdetection.Config, sink results.Sink) error {
	if m.state == Closed {
		return ErrClosed
	}

	var cfgErr error
	if err := cfg.Validate("detector"); err != nil {
		cfgErr = &ConfigError{Kind: ErrInvalidConfig, Model: cfg.Model, Err: err}
	} else if cfg.RunningMode == objectdetection.LiveStream && sink == nil {
		cfgErr = &ConfigError{Kind: ErrMissingSink, Model: cfg.Model}
	}

	m.teardownLocked()
	if cfgErr != nil {
		m.configured = false
		return cfgErr
	}

	m.cfg = cfg.Clone()
	m.sink = sink
	m.configured = true
	return m.buildLocked(ctx)
}

func (m *Manager) buildLocked(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "detection::Manager::build")
	defer span.End()

	handle, err := m.builder.Build(ctx, objectdetection.BuildOptions{
		Config:          m.cfg.Clone(),
		RotationDegrees: m.lastRotation,
	})
	if err != nil {
		m.state = Uninitialized
		return &ConfigError{Kind: ErrInitFailed, Model: m.cfg.Model, Err: err}
	}
	if handle == nil {
		m.state = Uninitialized
		return &ConfigError{Kind: ErrInitFailed, Model: m.cfg.Model, Err: errors.New("builder returned no detector")}
	}

	m.handle = handle
	m.instanceID = uuid.NewString()
	m.state = Ready
	if m.cfg.RunningMode == objectdetection.LiveStream {
		m.startStreamLocked()
	}
	m.logger.Debugw("detector built",
		"instance", m.instanceID,
		"model", m.cfg.Model,
		"mode", m.cfg.RunningMode,
		"delegate", m.cfg.Delegate,
		"rotation", m.lastRotation)
	return nil
}

func (m *Manager) startStreamLocked() {
	pending := utils.NewMailbox[StreamFrame]()
	handle, sink, instance := m.handle, m.sink, m.instanceID
	m.stream = &streamWorker{
		pending: pending,
		workers: utils.NewStoppableWorkers(func(ctx context.Context) {
			m.runStream(ctx, instance, handle, sink, pending)
		}),
	}
}

// IsReady reports whether a detector is built and usable.
func (m *Manager) IsReady() bool {
	return m.State() == Ready
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Config returns the last accepted configuration. ok is false if there is none.
func (m *Manager) Config() (cfg objectdetection.Config, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.configured {
		return objectdetection.Config{}, false
	}
	return m.cfg.Clone(), true
}

// Teardown stops the stream worker, discards any in-flight result and releases the detector. It
// is safe to call any number of times.
func (m *Manager) Teardown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked()
}

// Close tears down the detector for good. Later calls to Configure fail with ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked()
	m.state = Closed
	return nil
}

func (m *Manager) teardownLocked() {
	if m.stream != nil {
		m.stream.workers.Stop()
		if leftover, ok := m.stream.pending.Close(); ok {
			leftover.release()
			m.dropped.Inc()
		}
		m.stream = nil
	}
	if m.handle != nil {
		if err := m.handle.Close(); err != nil {
			m.logger.Warnw("error closing detector", "instance", m.instanceID, "error", err)
		}
		m.handle = nil
		m.logger.Debugw("detector released", "instance", m.instanceID)
	}
	if m.state != Closed {
		m.state = Uninitialized
	}
}

// DetectSync runs detection on a still image and blocks until it finishes. rotation is the
// rotation the image should be displayed with and is carried in the envelope. The returned
// envelope is the only delivery; nothing is sent to the sink.
func (m *Manager) DetectSync(ctx context.Context, img image.Image, rotation int) (results.Envelope, error) {
	ctx, span := trace.StartSpan(ctx, "detection::Manager::DetectSync")
	defer span.End()

	env, err := m.detectSync(ctx, img, rotation)
	if err != nil {
		m.reportError(err)
	}
	return env, err
}

func (m *Manager) detectSync(ctx context.Context, img image.Image, rotation int) (results.Envelope, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch {
	case m.state == Closed:
		return results.Envelope{}, ErrClosed
	case m.configured && m.cfg.RunningMode == objectdetection.LiveStream:
		return results.Envelope{}, wrongModeError("DetectSync", m.cfg.RunningMode)
	case m.state != Ready:
		return results.Envelope{}, ErrNotReady
	case img == nil:
		return results.Envelope{}, errors.New("cannot detect on a nil image")
	case !transform.ValidRotation(rotation):
		return results.Envelope{}, errors.Wrapf(transform.ErrInvalidRotation, "got %d", rotation)
	}

	start := m.clock.Now()
	dets, err := m.handle.Detect(ctx, img)
	elapsed := m.clock.Since(start)
	if err != nil {
		return results.Envelope{}, errors.Wrap(err, "detection failed")
	}
	m.logger.CDebugw(ctx, "image detected", "detections", len(dets), "inference_time", elapsed)
	bounds := img.Bounds()
	return results.Envelope{
		Detections:     dets,
		InferenceTime:  elapsed,
		SourceWidth:    bounds.Dx(),
		SourceHeight:   bounds.Dy(),
		SourceRotation: rotation,
	}, nil
}

// DetectStreamFrame submits a live-stream frame and returns without waiting for inference. The
// result, if any, is delivered to the configured sink. When the frame's rotation differs from
// the last one seen the detector is rebuilt and the frame is dropped. If a frame is still
// waiting to be submitted it is replaced by this one.
//
// Errors are reported to the error listener as well as returned. The frame is always released.
func (m *Manager) DetectStreamFrame(frame StreamFrame) error {
	m.mu.Lock()
	err := m.detectStreamFrameLocked(frame)
	m.mu.Unlock()

	if err != nil {
		m.reportError(err)
	}
	return err
}

func (m *Manager) detectStreamFrameLocked(frame StreamFrame) error {
	switch {
	case m.state == Closed:
		frame.release()
		return ErrClosed
	case m.configured && m.cfg.RunningMode != objectdetection.LiveStream:
		frame.release()
		return wrongModeError("DetectStreamFrame", m.cfg.RunningMode)
	case m.state != Ready:
		frame.release()
		return ErrNotReady
	case frame.Image == nil:
		frame.release()
		return errors.New("cannot detect on a nil frame")
	case !transform.ValidRotation(frame.Metadata.RotationDegrees):
		frame.release()
		return errors.Wrapf(transform.ErrInvalidRotation, "got %d", frame.Metadata.RotationDegrees)
	}

	if rotation := frame.Metadata.RotationDegrees; rotation != m.lastRotation {
		frame.release()
		m.dropped.Inc()
		m.rebuilds.Inc()
		m.logger.Infow("frame rotation changed, rebuilding detector",
			"from", m.lastRotation, "to", rotation, "instance", m.instanceID)
		m.lastRotation = rotation
		m.teardownLocked()
		return m.buildLocked(context.Background())
	}

	if old, evicted := m.stream.pending.Put(frame); evicted {
		old.release()
		m.dropped.Inc()
	}
	return nil
}

type completion struct {
	dets objectdetection.DetectionSet
	at   time.Time
	err  error
}

func (m *Manager) runStream(
	ctx context.Context,
	instance string,
	handle objectdetection.Handle,
	sink results.Sink,
	pending *utils.Mailbox[StreamFrame],
) {
	for {
		frame, ok := pending.Take(ctx)
		if !ok {
			return
		}
		m.processFrame(ctx, instance, handle, sink, frame)
	}
}

// processFrame runs one frame through the detector. At most one frame is in flight, so
// envelopes reach the sink in submission order.
func (m *Manager) processFrame(
	ctx context.Context,
	instance string,
	handle objectdetection.Handle,
	sink results.Sink,
	frame StreamFrame,
) {
	ctx, span := trace.StartSpan(ctx, "detection::Manager::processFrame")
	defer span.End()

	done := make(chan completion, 1)
	submitted := m.clock.Now()
	m.submitted.Inc()
	handle.DetectAsync(frame.Image, frame.Metadata.Timestamp, func(dets objectdetection.DetectionSet, _ time.Time, err error) {
		done <- completion{dets: dets, at: m.clock.Now(), err: err}
	})

	var c completion
	select {
	case <-ctx.Done():
		// the detector may still be reading the frame
		m.discarded.Inc()
		goutils.PanicCapturingGo(func() {
			<-done
			frame.release()
		})
		return
	case c = <-done:
	}
	frame.release()

	if ctx.Err() != nil {
		m.discarded.Inc()
		return
	}
	if c.err != nil {
		m.failed.Inc()
		m.reportError(errors.Wrapf(c.err, "detection failed on instance %s", instance))
		return
	}
	m.delivered.Inc()
	sink.Deliver(results.Envelope{
		Detections:     c.dets,
		InferenceTime:  c.at.Sub(submitted),
		SourceWidth:    frame.Metadata.Width,
		SourceHeight:   frame.Metadata.Height,
		SourceRotation: frame.Metadata.RotationDegrees,
		Timestamp:      frame.Metadata.Timestamp,
	})
}

// Stats returns a snapshot of the stream counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Submitted: m.submitted.Load(),
		Dropped:   m.dropped.Load(),
		Delivered: m.delivered.Load(),
		Discarded: m.discarded.Load(),
		Failed:    m.failed.Load(),
		Rebuilds:  m.rebuilds.Load(),
	}
}

func (m *Manager) reportError(err error) {
	if errors.Is(err, ErrWrongMode) {
		m.logger.Errorw("detection manager misused", "error", err)
	} else {
		m.logger.Warnw("detection error", "error", err)
	}
	if m.onError != nil {
		m.onError(err.Error())
	}
}
