package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/docsight/mcp-pdf-highlighter/internal/config"
	"github.com/docsight/mcp-pdf-highlighter/internal/document"
	"github.com/docsight/mcp-pdf-highlighter/internal/library"
	"github.com/docsight/mcp-pdf-highlighter/internal/mcp"
	"github.com/docsight/mcp-pdf-highlighter/internal/store"
	"github.com/docsight/mcp-pdf-highlighter/internal/viewer"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the server mode and returns the
// structured logger shared by the document and storage layers.
func setupLogging(cfg *config.Config) *slog.Logger {
	var out io.Writer
	if cfg.IsStdioMode() {
		// In stdio mode, log to stderr to avoid interfering with the MCP protocol
		out = os.Stderr
		if !cfg.IsDebug() {
			out = io.Discard
		}
		log.SetOutput(out)
	} else {
		out = os.Stdout
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	level := slog.LevelInfo
	if cfg.IsDebug() {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

// runServerMode handles server mode execution with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server) {
	// Set up signal handling for graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	// Start server in a goroutine
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-signalCh:
		log.Printf("Received signal: %s", sig)
		log.Println("Initiating graceful shutdown...")
		cancel()

		// Wait for server to shutdown
		if err := <-serverErrCh; err != nil {
			log.Printf("Server shutdown with error: %v", err)
			os.Exit(1)
		}

	case err := <-serverErrCh:
		if err != nil {
			log.Printf("Server error: %v", err)
			os.Exit(1)
		}
	}

	log.Println("Server stopped successfully")
}

// runStdioMode handles stdio mode execution
func runStdioMode(ctx context.Context, _ context.CancelFunc, server *mcp.Server) {
	// In stdio mode, the parent process controls our lifecycle
	// We should exit cleanly when stdin is closed or we get an error
	if err := server.Run(ctx); err != nil {
		// Only log to stderr in debug mode to avoid protocol interference
		if os.Getenv("DEBUG") != "" {
			log.Printf("Server error: %v", err)
		}
		os.Exit(1)
	}
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	// Load configuration from flags first
	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := setupLogging(cfg)

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() && cfg.IsServerMode() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	// Optional on-disk cache for extracted text runs
	var loaderOpts []document.Option
	loaderOpts = append(loaderOpts, document.WithLogger(logger))
	if cfg.CacheDirectory != "" {
		cache, err := store.Open(cfg.CacheDirectory, logger)
		if err != nil {
			log.Fatalf("Failed to open run cache: %v", err)
		}
		defer cache.Close()
		loaderOpts = append(loaderOpts, document.WithCache(cache))
	}

	loader, err := document.NewLoader(cfg.MaxFileSize, loaderOpts...)
	if err != nil {
		log.Fatalf("Failed to create document loader: %v", err)
	}
	defer loader.Close()

	lib, err := library.New(cfg.PDFDirectory, cfg.MaxFileSize, logger)
	if err != nil {
		log.Fatalf("Failed to open PDF library: %v", err)
	}

	highlightColor, emphasis := cfg.Colors()
	controller := viewer.NewController(loader,
		viewer.WithColors(highlightColor, emphasis),
		viewer.WithOpacity(cfg.HighlightOpacity),
		viewer.WithViewportScale(cfg.RenderScale, cfg.DevicePixelRatio),
		viewer.WithControllerLogger(logger),
	)

	// Create MCP server
	server, err := mcp.NewServer(cfg, lib, controller)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle different modes
	if cfg.IsServerMode() {
		runServerMode(ctx, cancel, server)
	} else {
		runStdioMode(ctx, cancel, server)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("MCP PDF Highlighter\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
