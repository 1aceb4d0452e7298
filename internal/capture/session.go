// Package capture manages a live camera stream and grabs still images from it.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"log/slog"
	"sync"
	"time"
)

// JPEGQuality is the fixed quality factor used for captured stills.
const JPEGQuality = 80

// State is the lifecycle state of a Session.
type State int

const (
	Idle State = iota
	Starting
	Live
	Stopped
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Live:
		return "live"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Still is an encoded frame grabbed from a live stream.
type Still struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
	Facing      Facing
	CapturedAt  time.Time
}

// Session owns at most one live stream from a Device. Every transition out
// of Live or Starting releases the stream exactly once.
type Session struct {
	device Device
	now    func() time.Time

	mu      sync.Mutex
	state   State
	facing  Facing
	stream  Stream
	err     error
	attempt uint64
}

// New creates an idle session for device.
func New(device Device) *Session {
	return &Session{
		device: device,
		now:    time.Now,
		facing: FacingEnvironment,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Facing returns the facing mode of the current or last stream.
func (s *Session) Facing() Facing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.facing
}

// Err returns the failure reason when the session is Failed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Start acquires a stream with the given facing mode. It is valid from Idle,
// Stopped and Failed.
func (s *Session) Start(ctx context.Context, facing Facing) error {
	s.mu.Lock()
	if s.state == Starting || s.state == Live {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: start while %s", ErrInvalidState, state)
	}
	attempt := s.begin(facing)
	s.mu.Unlock()

	return s.acquire(ctx, facing, attempt)
}

// SwitchFacing releases the live stream and acquires one with the opposite
// facing mode. On failure the session is left Failed.
func (s *Session) SwitchFacing(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Live {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: switch while %s", ErrNoActiveStream, state)
	}
	next := s.facing.Toggle()
	s.release()
	attempt := s.begin(next)
	s.mu.Unlock()

	slog.Info("Switching camera", "facing", next)
	return s.acquire(ctx, next, attempt)
}

// Stop releases the stream if one is held. It is safe to call in any state;
// from Idle, Stopped and Failed it does nothing.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Starting:
		// The pending acquire sees the new attempt number and releases
		// whatever it gets back.
		s.attempt++
		s.state = Stopped
	case Live:
		s.release()
		s.state = Stopped
	}
}

// CaptureStill encodes the current frame as a JPEG at the stream's native
// resolution.
func (s *Session) CaptureStill(ctx context.Context) (*Still, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Live || s.stream == nil {
		return nil, ErrNoActiveStream
	}

	img, err := s.stream.Frame(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading frame: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding still: %w", err)
	}

	bounds := img.Bounds()
	return &Still{
		Data:        buf.Bytes(),
		ContentType: "image/jpeg",
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Facing:      s.facing,
		CapturedAt:  s.now(),
	}, nil
}

// begin moves to Starting. Callers hold mu.
func (s *Session) begin(facing Facing) uint64 {
	s.state = Starting
	s.facing = facing
	s.err = nil
	s.attempt++
	return s.attempt
}

// acquire opens the device without holding mu, then installs the stream if
// the attempt is still current.
func (s *Session) acquire(ctx context.Context, facing Facing, attempt uint64) error {
	stream, openErr := s.open(ctx, facing)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempt != attempt || s.state != Starting {
		closeStream(stream)
		return ErrStopped
	}

	if openErr == nil && stream == nil {
		openErr = errors.New("device returned no stream")
	}
	if openErr != nil {
		closeStream(stream)
		if !errors.Is(openErr, ErrDeviceUnavailable) {
			openErr = fmt.Errorf("%w: %w", ErrDeviceUnavailable, openErr)
		}
		s.state = Failed
		s.err = openErr
		slog.Warn("Camera unavailable", "facing", facing, "error", openErr)
		return openErr
	}

	s.stream = stream
	s.state = Live
	return nil
}

// open calls the device, turning a panic into an error so the session does
// not stay Starting.
func (s *Session) open(ctx context.Context, facing Facing) (stream Stream, err error) {
	defer func() {
		if r := recover(); r != nil {
			stream = nil
			err = fmt.Errorf("device panicked: %v", r)
		}
	}()
	return s.device.Open(ctx, facing)
}

// release closes the held stream once. Callers hold mu.
func (s *Session) release() {
	stream := s.stream
	s.stream = nil
	closeStream(stream)
}

func closeStream(stream Stream) {
	if stream == nil {
		return
	}
	if err := stream.Close(); err != nil {
		slog.Warn("Failed to close camera stream", "error", err)
	}
}
