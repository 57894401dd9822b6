package platform

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	ErrDeviceNotFound      = errors.New("device not found")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrParse               = errors.New("parse error")
	ErrInvalidName         = errors.New("invalid interface name")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// ReadError describes a failed platform operation. Err is always one of the
// package sentinels so callers can classify with errors.Is.
type ReadError struct {
	Op        string
	Interface string
	Detail    string
	Err       error
}

func (e *ReadError) Error() string {
	msg := e.Op
	if e.Interface != "" {
		msg += " " + e.Interface
	}
	msg += ": " + e.Err.Error()
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *ReadError) Unwrap() error { return e.Err }

// classify maps an OS error onto the package taxonomy.
func classify(op, name string, err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return &ReadError{Op: op, Interface: name, Err: ErrPermissionDenied, Detail: err.Error()}
	case errors.Is(err, fs.ErrNotExist):
		return &ReadError{Op: op, Interface: name, Err: ErrDeviceNotFound, Detail: err.Error()}
	default:
		return fmt.Errorf("%s %s: %w", op, name, err)
	}
}

// Kind returns a short label for an error from this package, used for
// metrics and status lines.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrDeviceNotFound):
		return "not_found"
	case errors.Is(err, ErrPermissionDenied):
		return "permission"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrInvalidName):
		return "invalid_name"
	default:
		return "other"
	}
}
