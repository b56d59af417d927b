package utils

import (
	"github.com/pkg/errors"
)

// NewUnsupportedValueError is used when a closed enumeration receives a value it does not know.
func NewUnsupportedValueError(kind string, value interface{}) error {
	return errors.Errorf("unsupported %s %v", kind, value)
}
