package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

var (
	errPermissionDenied = errors.New("camera permission denied")
	errNoDevice         = errors.New("no matching camera")
)

// HTTPCamera is a Device backed by network cameras that serve a JPEG
// snapshot per request, one URL per facing mode.
type HTTPCamera struct {
	urls   map[Facing]string
	client *http.Client
}

// NewHTTPCamera creates a camera from front and back snapshot URLs. Either
// may be empty when that camera does not exist.
func NewHTTPCamera(frontURL, backURL string) *HTTPCamera {
	return NewHTTPCameraWithClient(frontURL, backURL, &http.Client{Timeout: 10 * time.Second})
}

// NewHTTPCameraWithClient creates a camera using a custom HTTP client.
func NewHTTPCameraWithClient(frontURL, backURL string, client *http.Client) *HTTPCamera {
	urls := make(map[Facing]string, 2)
	if frontURL != "" {
		urls[FacingUser] = frontURL
	}
	if backURL != "" {
		urls[FacingEnvironment] = backURL
	}
	return &HTTPCamera{urls: urls, client: client}
}

// Configured reports whether at least one snapshot URL is set.
func (c *HTTPCamera) Configured() bool {
	return len(c.urls) > 0
}

// Open checks that the camera answers with a decodable frame.
func (c *HTTPCamera) Open(ctx context.Context, facing Facing) (Stream, error) {
	url, ok := c.urls[facing]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s", ErrDeviceUnavailable, errNoDevice, facing)
	}

	stream := &httpStream{client: c.client, url: url}
	if _, err := stream.Frame(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	return stream, nil
}

type httpStream struct {
	client *http.Client
	url    string
	closed atomic.Bool
}

func (s *httpStream) Frame(ctx context.Context) (image.Image, error) {
	if s.closed.Load() {
		return nil, ErrNoActiveStream
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching snapshot: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errPermissionDenied
	case resp.StatusCode == http.StatusNotFound:
		return nil, errNoDevice
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("camera returned status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return img, nil
}

// Close marks the stream released. A second call is a no-op.
func (s *httpStream) Close() error {
	s.closed.Store(true)
	return nil
}
