package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
)

var (
	// ErrDeviceUnavailable is returned when permission is denied or no
	// matching camera exists.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrNoActiveStream is returned when an operation needs a live stream.
	ErrNoActiveStream = errors.New("no active stream")
	// ErrInvalidState is returned when Start is called on a session that is
	// already starting or live.
	ErrInvalidState = errors.New("invalid capture state")
	// ErrStopped is returned by Start when Stop was called while the device
	// was still being acquired.
	ErrStopped = errors.New("capture session stopped")
)

// Facing selects the front or back camera.
type Facing string

const (
	// FacingUser is the front camera.
	FacingUser Facing = "user"
	// FacingEnvironment is the back camera.
	FacingEnvironment Facing = "environment"
)

// Toggle returns the opposite facing mode.
func (f Facing) Toggle() Facing {
	if f == FacingUser {
		return FacingEnvironment
	}
	return FacingUser
}

// ParseFacing accepts "user"/"front" and "environment"/"back". An empty
// string selects the back camera.
func ParseFacing(s string) (Facing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "environment", "back", "rear":
		return FacingEnvironment, nil
	case "user", "front":
		return FacingUser, nil
	}
	return "", fmt.Errorf("unknown facing mode %q", s)
}

// Device acquires live video streams.
type Device interface {
	// Open acquires a stream for the given facing mode. Failures should
	// wrap ErrDeviceUnavailable.
	Open(ctx context.Context, facing Facing) (Stream, error)
}

// Stream is a live video stream. The session that opened it owns it.
type Stream interface {
	// Frame returns the current video frame.
	Frame(ctx context.Context) (image.Image, error)
	// Close releases the underlying device.
	Close() error
}
