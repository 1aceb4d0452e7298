package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/nutriscan/internal/capture"
	"github.com/zombor/nutriscan/internal/nutrition"
	"github.com/zombor/nutriscan/internal/scan"
	"github.com/zombor/nutriscan/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("nutriscan")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		dbPath         = fs.StringLong("db", "nutriscan.db", "Analysis cache database path (empty disables the cache)")
		storagePath    = fs.StringLong("storage", "./images", "Image storage directory path")
		analyzerType   = fs.StringLong("analyzer", "gemini", "Analyzer type: 'gemini', 'ollama' or 'remote'")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, qwen2-vl)")
		remoteURL      = fs.StringLong("remote-url", "", "Base URL of a remote food analysis service")
		cameraFrontURL = fs.StringLong("camera-front-url", "", "Snapshot URL of the front (user-facing) camera")
		cameraBackURL  = fs.StringLong("camera-back-url", "", "Snapshot URL of the back (environment-facing) camera")
		reportTTL      = fs.DurationLong("report-ttl", time.Hour, "How long finished reports stay retrievable")
		authUser       = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		scanFile       = fs.StringLong("scan", "", "Scan a single photo, print the report and exit")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("NUTRISCAN"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	analyzer, err := newAnalyzer(*analyzerType, *geminiKey, *geminiModel, *ollamaURL, *ollamaModel, *remoteURL)
	if err != nil {
		slog.Error("Failed to initialize analyzer", "type", *analyzerType, "error", err)
		os.Exit(1)
	}
	defer analyzer.Close()

	var cache scan.AnalysisCache
	if *dbPath != "" {
		slog.Info("Initializing analysis cache...", "path", *dbPath)
		db, err := scan.NewBoltCache(*dbPath)
		if err != nil {
			slog.Error("Failed to initialize analysis cache", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		cache = db
	}

	if *scanFile != "" {
		if err := scanOnce(analyzer, cache, *scanFile); err != nil {
			slog.Error("Scan failed", "file", *scanFile, "error", err)
			os.Exit(1)
		}
		return
	}

	slog.Info("Initializing storage...")
	store, err := scan.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	cfg := scan.Config{ReportTTL: *reportTTL}
	camera := capture.NewHTTPCamera(*cameraFrontURL, *cameraBackURL)
	if camera.Configured() {
		slog.Info("Camera enabled", "front", *cameraFrontURL, "back", *cameraBackURL)
		cfg.Camera = camera
	}

	service := scan.NewService(analyzer, cache, store, cfg)
	defer service.Close()

	basicAuth := scan.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := scan.NewServer(service, basicAuth, version)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

// newAnalyzer builds the configured analysis backend
func newAnalyzer(kind, geminiKey, geminiModel, ollamaURL, ollamaModel, remoteURL string) (scanning.Analyzer, error) {
	switch kind {
	case "gemini":
		apiKey := geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		slog.Info("Initializing Gemini analyzer...", "model", geminiModel)
		return scanning.NewGemini(apiKey, geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama analyzer...", "url", ollamaURL, "model", ollamaModel)
		return scanning.NewOllama(ollamaURL, ollamaModel)
	case "remote":
		slog.Info("Initializing remote analyzer...", "url", remoteURL)
		return scanning.NewRemote(remoteURL)
	default:
		return nil, fmt.Errorf("invalid analyzer type %q: use gemini, ollama or remote", kind)
	}
}

// scanOnce analyzes one photo and prints the text report to stdout
func scanOnce(analyzer scanning.Analyzer, cache scan.AnalysisCache, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading photo: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchestrator := scan.NewOrchestrator(analyzer, cache, nil)
	report, err := orchestrator.RunScan(ctx, scan.FileSource{
		Name:        filepath.Base(path),
		ContentType: scan.ContentTypeFor(path),
		Data:        data,
	})
	if err != nil {
		return err
	}

	return nutrition.WriteText(os.Stdout, report.Variant, report.Sections)
}
