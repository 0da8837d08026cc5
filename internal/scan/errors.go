package scan

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceUnavailable indicates the camera could not be used.
	ErrDeviceUnavailable = errors.New("device unavailable")
	// ErrIllegalState indicates an operation not allowed in the session's state.
	ErrIllegalState = errors.New("illegal scan state")
	// ErrSessionClosed indicates the session was closed.
	ErrSessionClosed = errors.New("scan session closed")
	// ErrNoCode indicates a frame contained no readable code.
	ErrNoCode = errors.New("no code in frame")
	// ErrInvalidImage indicates an uploaded image could not be decoded or is too large.
	ErrInvalidImage = errors.New("invalid image")
)

// FailureReason classifies why acquisition failed, for user-facing messages.
type FailureReason string

const (
	ReasonPermissionDenied FailureReason = "permission_denied"
	ReasonNoDevice         FailureReason = "no_device"
	ReasonDeviceBusy       FailureReason = "device_busy"
	ReasonUnsupported      FailureReason = "unsupported"
	ReasonTimeout          FailureReason = "timeout"
)

// DeviceError is an acquisition or streaming failure. It matches
// ErrDeviceUnavailable with errors.Is.
type DeviceError struct {
	Reason FailureReason
	Err    error
}

func (e *DeviceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrDeviceUnavailable, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", ErrDeviceUnavailable, e.Reason, e.Err)
}

func (e *DeviceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDeviceUnavailable}
	}
	return []error{ErrDeviceUnavailable, e.Err}
}

// ReasonOf extracts the failure reason from err, or "" when err is not a DeviceError.
func ReasonOf(err error) FailureReason {
	var de *DeviceError
	if errors.As(err, &de) {
		return de.Reason
	}
	return ""
}
