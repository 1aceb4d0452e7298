package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zombor/nutriscan/internal/capture"
	"github.com/zombor/nutriscan/internal/scanning"
)

// ErrReportNotFound is returned for unknown or expired report IDs
var ErrReportNotFound = errors.New("report not found")

// clientIdleTimeout is how long an idle client keeps its orchestrator and camera
const clientIdleTimeout = 30 * time.Minute

// Config holds the optional parts of a Service
type Config struct {
	// Camera backs the camera endpoints; nil disables them
	Camera capture.Device
	// ReportTTL is how long finished reports stay retrievable by ID
	ReportTTL time.Duration
}

// client is the per-caller state: one orchestrator and one capture session
type client struct {
	orchestrator *Orchestrator
	session      *capture.Session
}

// CameraStatus describes a client's capture session
type CameraStatus struct {
	State  string `json:"state"`
	Facing string `json:"facing"`
	Error  string `json:"error,omitempty"`
}

// Service handles scan operations for many clients
type Service struct {
	analyzer    scanning.Analyzer
	cache       AnalysisCache
	storage     Storage
	camera      capture.Device
	idGenerator IDGenerator
	timeSource  TimeSource

	mu      sync.Mutex
	clients *gocache.Cache
	reports *gocache.Cache
}

// NewService creates a new Service with default ID generator and time source
func NewService(analyzer scanning.Analyzer, cache AnalysisCache, storage Storage, cfg Config) *Service {
	return NewServiceWithDeps(analyzer, cache, storage, cfg, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(analyzer scanning.Analyzer, cache AnalysisCache, storage Storage, cfg Config, idGen IDGenerator, timeSrc TimeSource) *Service {
	ttl := cfg.ReportTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	s := &Service{
		analyzer:    analyzer,
		cache:       cache,
		storage:     storage,
		camera:      cfg.Camera,
		idGenerator: idGen,
		timeSource:  timeSrc,
		clients:     gocache.New(clientIdleTimeout, 0),
		reports:     gocache.New(ttl, 0),
	}

	// Idle clients give up the camera
	s.clients.OnEvicted(func(id string, v interface{}) {
		if c, ok := v.(*client); ok {
			c.session.Stop()
			slog.Info("Released idle client", "client", id)
		}
	})
	// Stored images live as long as their report
	s.reports.OnEvicted(func(id string, v interface{}) {
		report, ok := v.(*ScanReport)
		if !ok || s.storage == nil {
			return
		}
		if err := s.storage.Delete(report.Image.Name); err != nil {
			slog.Warn("Failed to delete image", "image", report.Image.Name, "error", err)
		}
	})
	return s
}

// sweep evicts expired clients and reports. Neither cache runs a janitor,
// so expiry only takes effect here.
func (s *Service) sweep() {
	s.clients.DeleteExpired()
	s.reports.DeleteExpired()
}

// client returns the state for a client, creating it on first use
func (s *Service) client(id string) *client {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	if v, ok := s.clients.Get(id); ok {
		c := v.(*client)
		s.clients.SetDefault(id, c)
		return c
	}

	var session *capture.Session
	if s.camera != nil {
		session = capture.New(s.camera)
	} else {
		session = capture.New(noCamera{})
	}
	c := &client{
		orchestrator: NewOrchestratorWithDeps(s.analyzer, s.cache, s.storage, s.idGenerator, s.timeSource),
		session:      session,
	}
	s.clients.SetDefault(id, c)
	return c
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	// Remove special characters, keep only alphanumeric, spaces, hyphens, and underscores
	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "photo"
	}

	return base + ext
}

// ScanUpload scans an uploaded photo
func (s *Service) ScanUpload(ctx context.Context, clientID, filename string, data []byte, contentType string) (*ScanReport, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = ContentTypeFor(filename)
	}

	src := FileSource{
		Name:        sanitizeFilename(filename),
		ContentType: contentType,
		Data:        data,
	}
	return s.run(ctx, clientID, src)
}

// ScanCamera captures a still from the client's live camera and scans it
func (s *Service) ScanCamera(ctx context.Context, clientID string) (*ScanReport, error) {
	c := s.client(clientID)
	return s.run(ctx, clientID, CameraSource{Camera: c.session})
}

func (s *Service) run(ctx context.Context, clientID string, src ImageSource) (*ScanReport, error) {
	report, err := s.client(clientID).orchestrator.RunScan(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("running scan: %w", err)
	}
	s.reports.SetDefault(report.ID, report)
	return report, nil
}

// GetReport retrieves a recently produced report by ID
func (s *Service) GetReport(id string) (*ScanReport, error) {
	s.reports.DeleteExpired()
	v, ok := s.reports.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	return v.(*ScanReport), nil
}

// GetImage retrieves a stored image and its content type
func (s *Service) GetImage(name string) ([]byte, string, error) {
	if s.storage == nil {
		return nil, "", ErrImageNotFound
	}
	data, err := s.storage.Get(name)
	if err != nil {
		return nil, "", fmt.Errorf("getting image: %w", err)
	}
	return data, ContentTypeFor(name), nil
}

// CameraEnabled reports whether a camera device is configured
func (s *Service) CameraEnabled() bool {
	return s.camera != nil
}

// StartCamera opens the client's camera with the given facing mode
func (s *Service) StartCamera(ctx context.Context, clientID string, facing capture.Facing) (CameraStatus, error) {
	c := s.client(clientID)
	if err := c.session.Start(ctx, facing); err != nil {
		return cameraStatus(c.session), fmt.Errorf("starting camera: %w", err)
	}
	return cameraStatus(c.session), nil
}

// SwitchCamera toggles the client's camera between front and back
func (s *Service) SwitchCamera(ctx context.Context, clientID string) (CameraStatus, error) {
	c := s.client(clientID)
	if err := c.session.SwitchFacing(ctx); err != nil {
		return cameraStatus(c.session), fmt.Errorf("switching camera: %w", err)
	}
	return cameraStatus(c.session), nil
}

// StopCamera releases the client's camera
func (s *Service) StopCamera(clientID string) CameraStatus {
	c := s.client(clientID)
	c.session.Stop()
	return cameraStatus(c.session)
}

// CameraStatus reports the state of the client's camera
func (s *Service) CameraStatus(clientID string) CameraStatus {
	return cameraStatus(s.client(clientID).session)
}

func cameraStatus(session *capture.Session) CameraStatus {
	status := CameraStatus{
		State:  session.State().String(),
		Facing: string(session.Facing()),
	}
	if err := session.Err(); err != nil {
		status.Error = err.Error()
	}
	return status
}

// Close releases every client's camera
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.clients.Items() {
		if c, ok := item.Object.(*client); ok {
			c.session.Stop()
		}
	}
	s.clients.Flush()
}

// noCamera is the device used when no camera is configured
type noCamera struct{}

func (noCamera) Open(ctx context.Context, facing capture.Facing) (capture.Stream, error) {
	return nil, errors.New("no camera configured")
}
