package scan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/nutriscan/internal/capture"
	"github.com/zombor/nutriscan/internal/nutrition"
	"github.com/zombor/nutriscan/internal/scanning"
)

// ErrSuperseded is returned by a scan whose result was discarded because a
// newer scan started on the same orchestrator
var ErrSuperseded = errors.New("scan superseded by a newer request")

// AnalysisError means the analysis service failed or could not be reached
type AnalysisError struct {
	StatusCode int
	Message    string
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed (status %d): %s", e.StatusCode, e.Message)
}

// Image is a still image handed to a scan
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// ImageSource supplies the image for one scan
type ImageSource interface {
	Image(ctx context.Context) (*Image, error)
}

// FileSource is an image supplied by the caller, such as an upload
type FileSource Image

// Image returns the file as-is
func (f FileSource) Image(ctx context.Context) (*Image, error) {
	img := Image(f)
	return &img, nil
}

// StillCapturer grabs a still from a live camera
type StillCapturer interface {
	CaptureStill(ctx context.Context) (*capture.Still, error)
}

// CameraSource captures the image from a live capture session
type CameraSource struct {
	Camera StillCapturer
}

// Image captures a still from the camera
func (c CameraSource) Image(ctx context.Context) (*Image, error) {
	still, err := c.Camera.CaptureStill(ctx)
	if err != nil {
		return nil, err
	}
	return &Image{
		Name:        fmt.Sprintf("capture-%s.jpg", still.Facing),
		ContentType: still.ContentType,
		Data:        still.Data,
	}, nil
}

// IDGenerator generates unique IDs for reports
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Orchestrator runs scans for one client. At most one scan result is ever
// surfaced at a time: starting a scan supersedes any scan still in flight.
type Orchestrator struct {
	analyzer    scanning.Analyzer
	cache       AnalysisCache
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource

	mu         sync.Mutex
	generation uint64
}

// NewOrchestrator creates an Orchestrator with default ID generator and time
// source. cache and storage may be nil.
func NewOrchestrator(analyzer scanning.Analyzer, cache AnalysisCache, storage Storage) *Orchestrator {
	return NewOrchestratorWithDeps(analyzer, cache, storage, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewOrchestratorWithDeps creates an Orchestrator with custom dependencies for testing
func NewOrchestratorWithDeps(analyzer scanning.Analyzer, cache AnalysisCache, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Orchestrator {
	return &Orchestrator{
		analyzer:    analyzer,
		cache:       cache,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// RunScan obtains an image, analyzes it and renders the report. Failures of
// the analysis service come back as *AnalysisError; nothing is extracted or
// rendered in that case.
func (o *Orchestrator) RunScan(ctx context.Context, src ImageSource) (*ScanReport, error) {
	gen := o.begin()

	img, err := src.Image(ctx)
	if err != nil {
		return nil, fmt.Errorf("obtaining image: %w", err)
	}
	capturedAt := o.timeSource.Now()

	key := imageKey(img.Data)
	doc, err := o.analyze(ctx, key, img)

	if !o.current(gen) {
		slog.Info("Discarding superseded scan", "image", img.Name)
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}

	payload := nutrition.ParsePayload(doc)
	if payload.Missing() {
		return nil, &AnalysisError{StatusCode: http.StatusBadGateway, Message: "analysis service returned no document"}
	}
	o.remember(key, doc)

	variant := nutrition.Classify(payload)
	facts := nutrition.Extract(payload, variant)

	report := &ScanReport{
		ID:           o.idGenerator.Generate(),
		Variant:      variant,
		Sections:     nutrition.Render(facts, variant),
		HasAllergens: facts.HasAllergens(),
		CapturedAt:   capturedAt,
		Image: ImageRef{
			Name:        img.Name,
			ContentType: img.ContentType,
			Size:        len(img.Data),
		},
	}

	if o.storage != nil {
		name, err := o.storage.Save(report.ID+extensionFor(img.ContentType), img.Data)
		if err != nil {
			return nil, fmt.Errorf("saving image: %w", err)
		}
		report.Image.Name = name
	}

	slog.Info("Scan complete",
		"id", report.ID,
		"variant", variant,
		"sections", len(report.Sections),
		"image_size", len(img.Data),
	)
	return report, nil
}

// begin marks a new scan as the only one whose result may be surfaced
func (o *Orchestrator) begin() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.generation++
	return o.generation
}

func (o *Orchestrator) current(gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generation == gen
}

// analyze returns the analysis document for an image, from the cache when possible
func (o *Orchestrator) analyze(ctx context.Context, key string, img *Image) ([]byte, error) {
	if o.cache != nil {
		cached, err := o.cache.GetAnalysis(key)
		switch {
		case err == nil && !nutrition.ParsePayload(cached.Document).Missing():
			slog.Debug("Analysis cache hit", "key", key)
			return cached.Document, nil
		case err == nil:
			if err := o.cache.DeleteAnalysis(key); err != nil {
				slog.Warn("Failed to drop unusable cached analysis", "key", key, "error", err)
			}
		case !errors.Is(err, ErrAnalysisNotFound):
			slog.Warn("Analysis cache lookup failed", "key", key, "error", err)
		}
	}

	doc, err := o.analyzer.AnalyzeFood(ctx, img.Data, img.ContentType)
	if err != nil {
		slog.Error("Failed to analyze image",
			"image", img.Name,
			"content_type", img.ContentType,
			"file_size", len(img.Data),
			"error", err,
		)
		return nil, analysisError(ctx, err)
	}
	return doc, nil
}

// remember stores a usable analysis document in the cache
func (o *Orchestrator) remember(key string, doc []byte) {
	if o.cache == nil {
		return
	}
	err := o.cache.SaveAnalysis(&Analysis{
		Key:       key,
		Document:  doc,
		CreatedAt: o.timeSource.Now(),
	})
	if err != nil {
		slog.Warn("Failed to cache analysis", "key", key, "error", err)
	}
}

// analysisError maps analyzer failures onto AnalysisError. Caller input
// errors and caller cancellation pass through unchanged.
func analysisError(ctx context.Context, err error) error {
	if errors.Is(err, scanning.ErrUnsupportedImage) {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var statusErr *scanning.StatusError
	if errors.As(err, &statusErr) {
		return &AnalysisError{StatusCode: statusErr.StatusCode, Message: statusErr.Message}
	}
	return &AnalysisError{StatusCode: http.StatusBadGateway, Message: err.Error()}
}

// imageKey identifies image content for the analysis cache
func imageKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
