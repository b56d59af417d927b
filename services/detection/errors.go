package detection

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/aidas-vision/aidas/vision/objectdetection"
)

// Configuration errors.
var (
	// ErrInvalidConfig is returned when a detector config fails validation.
	ErrInvalidConfig = errors.New("invalid detector config")
	// ErrMissingSink is returned when a live stream is configured without a result sink.
	ErrMissingSink = errors.New("live stream mode requires a result sink")
	// ErrInitFailed is returned when the detector could not be built.
	ErrInitFailed = errors.New("detector failed to initialize")
	// ErrClosed is returned by every operation on a closed manager.
	ErrClosed = errors.New("detection manager is closed")
)

// Detection errors.
var (
	// ErrWrongMode means an operation was called in a running mode that does not support it. It
	// is a programming error in the caller.
	ErrWrongMode = errors.New("operation not valid in the current running mode")
	// ErrNotReady is returned when no detector is built.
	ErrNotReady = errors.New("detector is not ready")
)

// ConfigError is returned from Configure. Kind is one of ErrInvalidConfig, ErrMissingSink or
// ErrInitFailed, so callers can match with errors.Is.
type ConfigError struct {
	Kind  error
	Model objectdetection.ModelID
	Err   error
}

func (e *ConfigError) Error() string {
	msg := e.Kind.Error()
	if e.Model != "" {
		msg = fmt.Sprintf("%s (model %s)", msg, e.Model)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause.
func (e *ConfigError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func wrongModeError(op string, mode objectdetection.RunningMode) error {
	return errors.Wrapf(ErrWrongMode, "%s called in %s mode", op, mode)
}
