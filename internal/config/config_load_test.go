package config

import (
	"os"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Helper function to reset pflag.CommandLine for testing
func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	viper.Reset()
}

// Helper function to set os.Args for testing
func setArgs(args []string) {
	os.Args = args
}

// Helper function to clear environment variables
func clearEnvVars() {
	os.Unsetenv("MCP_HIGHLIGHT_MODE")
	os.Unsetenv("MCP_HIGHLIGHT_HOST")
	os.Unsetenv("MCP_HIGHLIGHT_PORT")
	os.Unsetenv("MCP_HIGHLIGHT_DIR")
	os.Unsetenv("MCP_HIGHLIGHT_CACHEDIR")
	os.Unsetenv("MCP_HIGHLIGHT_COLOR")
	os.Unsetenv("MCP_HIGHLIGHT_EMPHASIS")
	os.Unsetenv("MCP_HIGHLIGHT_OPACITY")
	os.Unsetenv("MCP_HIGHLIGHT_SCALE")
	os.Unsetenv("MCP_HIGHLIGHT_PIXELRATIO")
	os.Unsetenv("MCP_HIGHLIGHT_LOGLEVEL")
	os.Unsetenv("MCP_HIGHLIGHT_MAXFILESIZE")
}

func TestLoadFromFlags_DefaultConfig(t *testing.T) {
	// Save original args and environment
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	// Set minimal args (just program name)
	setArgs([]string{"mcp-pdf-highlighter"})
	resetFlags()
	clearEnvVars()

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	// Verify default values
	if cfg.Mode != "stdio" {
		t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, "stdio")
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("LoadFromFlags() Host = %v, want %v", cfg.Host, "127.0.0.1")
	}
	if cfg.Port != 8080 {
		t.Errorf("LoadFromFlags() Port = %v, want %v", cfg.Port, 8080)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LoadFromFlags() LogLevel = %v, want %v", cfg.LogLevel, "info")
	}
	if cfg.MaxFileSize != 100*1024*1024 {
		t.Errorf("LoadFromFlags() MaxFileSize = %v, want %v", cfg.MaxFileSize, 100*1024*1024)
	}
	if cfg.HighlightColor != DefaultHighlightColor {
		t.Errorf("LoadFromFlags() HighlightColor = %v, want %v", cfg.HighlightColor, DefaultHighlightColor)
	}
	// PDFDirectory should be current working directory
	if cfg.PDFDirectory == "" {
		t.Error("LoadFromFlags() PDFDirectory should not be empty")
	}
}

func TestLoadFromFlags_ValidFlags(t *testing.T) {
	tests := []struct {
		name         string
		argsTemplate []string
		wantMode     string
		wantHost     string
		wantPort     int
		wantColor    string
		wantOpacity  float64
		wantScale    float64
		wantLogLevel string
	}{
		{
			name:         "stdio mode with custom directory",
			argsTemplate: []string{"mcp-pdf-highlighter", "--dir=%s"},
			wantMode:     "stdio",
			wantHost:     "127.0.0.1",
			wantPort:     8080,
			wantColor:    DefaultHighlightColor,
			wantOpacity:  DefaultHighlightOpacity,
			wantScale:    1.0,
			wantLogLevel: "info",
		},
		{
			name:         "server mode with custom host and port",
			argsTemplate: []string{"mcp-pdf-highlighter", "--mode=server", "--host=0.0.0.0", "--port=9090", "--dir=%s"},
			wantMode:     "server",
			wantHost:     "0.0.0.0",
			wantPort:     9090,
			wantColor:    DefaultHighlightColor,
			wantOpacity:  DefaultHighlightOpacity,
			wantScale:    1.0,
			wantLogLevel: "info",
		},
		{
			name:         "custom highlight style",
			argsTemplate: []string{"mcp-pdf-highlighter", "--color=#00FF00", "--opacity=0.5", "--scale=1.5", "--dir=%s"},
			wantMode:     "stdio",
			wantHost:     "127.0.0.1",
			wantPort:     8080,
			wantColor:    "#00FF00",
			wantOpacity:  0.5,
			wantScale:    1.5,
			wantLogLevel: "info",
		},
		{
			name:         "debug logging",
			argsTemplate: []string{"mcp-pdf-highlighter", "--loglevel=debug", "--dir=%s"},
			wantMode:     "stdio",
			wantHost:     "127.0.0.1",
			wantPort:     8080,
			wantColor:    DefaultHighlightColor,
			wantOpacity:  DefaultHighlightOpacity,
			wantScale:    1.0,
			wantLogLevel: "debug",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Save original args and environment
			originalArgs := os.Args
			defer func() {
				os.Args = originalArgs
				resetFlags()
				clearEnvVars()
			}()

			// Create temp directory for this test
			tempDir := t.TempDir()

			// Build args with temp directory
			args := make([]string, len(tt.argsTemplate))
			for i, arg := range tt.argsTemplate {
				if arg == "--dir=%s" {
					args[i] = "--dir=" + tempDir
				} else {
					args[i] = arg
				}
			}

			setArgs(args)
			resetFlags()
			clearEnvVars()

			cfg, err := LoadFromFlags()
			if err != nil {
				t.Fatalf("LoadFromFlags() unexpected error: %v", err)
			}

			if cfg.Mode != tt.wantMode {
				t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, tt.wantMode)
			}
			if cfg.Host != tt.wantHost {
				t.Errorf("LoadFromFlags() Host = %v, want %v", cfg.Host, tt.wantHost)
			}
			if cfg.Port != tt.wantPort {
				t.Errorf("LoadFromFlags() Port = %v, want %v", cfg.Port, tt.wantPort)
			}
			if cfg.HighlightColor != tt.wantColor {
				t.Errorf("LoadFromFlags() HighlightColor = %v, want %v", cfg.HighlightColor, tt.wantColor)
			}
			if cfg.HighlightOpacity != tt.wantOpacity {
				t.Errorf("LoadFromFlags() HighlightOpacity = %v, want %v", cfg.HighlightOpacity, tt.wantOpacity)
			}
			if cfg.RenderScale != tt.wantScale {
				t.Errorf("LoadFromFlags() RenderScale = %v, want %v", cfg.RenderScale, tt.wantScale)
			}
			if cfg.LogLevel != tt.wantLogLevel {
				t.Errorf("LoadFromFlags() LogLevel = %v, want %v", cfg.LogLevel, tt.wantLogLevel)
			}
			// PDFDirectory should be expanded to absolute path
			if cfg.PDFDirectory == "" {
				t.Error("LoadFromFlags() PDFDirectory should not be empty")
			}
		})
	}
}

func TestLoadFromFlags_EnvironmentVariables(t *testing.T) {
	// Save original args and environment
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	// Create temp directory for testing
	tempDir := t.TempDir()

	// Set environment variables
	os.Setenv("MCP_HIGHLIGHT_MODE", "server")
	os.Setenv("MCP_HIGHLIGHT_HOST", "192.168.1.1")
	os.Setenv("MCP_HIGHLIGHT_PORT", "3000")
	os.Setenv("MCP_HIGHLIGHT_DIR", tempDir)
	os.Setenv("MCP_HIGHLIGHT_COLOR", "#112233")
	os.Setenv("MCP_HIGHLIGHT_LOGLEVEL", "warn")

	setArgs([]string{"mcp-pdf-highlighter"})
	resetFlags()

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "server" {
		t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, "server")
	}
	if cfg.Host != "192.168.1.1" {
		t.Errorf("LoadFromFlags() Host = %v, want %v", cfg.Host, "192.168.1.1")
	}
	if cfg.Port != 3000 {
		t.Errorf("LoadFromFlags() Port = %v, want %v", cfg.Port, 3000)
	}
	if cfg.HighlightColor != "#112233" {
		t.Errorf("LoadFromFlags() HighlightColor = %v, want %v", cfg.HighlightColor, "#112233")
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LoadFromFlags() LogLevel = %v, want %v", cfg.LogLevel, "warn")
	}
}

func TestLoadFromFlags_FlagOverridesEnvironment(t *testing.T) {
	// Save original args and environment
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	tempDir := t.TempDir()

	// Set environment variables
	os.Setenv("MCP_HIGHLIGHT_MODE", "server")
	os.Setenv("MCP_HIGHLIGHT_HOST", "192.168.1.1")
	os.Setenv("MCP_HIGHLIGHT_PORT", "3000")

	// Set args that should override environment
	setArgs([]string{"mcp-pdf-highlighter", "--mode=stdio", "--host=localhost", "--port=8888", "--dir=" + tempDir})
	resetFlags()

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	// Flags should override environment variables
	if cfg.Mode != "stdio" {
		t.Errorf("LoadFromFlags() Mode = %v, want %v (should override env)", cfg.Mode, "stdio")
	}
	if cfg.Host != "localhost" {
		t.Errorf("LoadFromFlags() Host = %v, want %v (should override env)", cfg.Host, "localhost")
	}
	if cfg.Port != 8888 {
		t.Errorf("LoadFromFlags() Port = %v, want %v (should override env)", cfg.Port, 8888)
	}
}

func TestLoadFromFlags_InvalidMode(t *testing.T) {
	// Save original args
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	tempDir := t.TempDir()
	setArgs([]string{"mcp-pdf-highlighter", "--mode=invalid", "--dir=" + tempDir})
	resetFlags()
	clearEnvVars()

	_, err := LoadFromFlags()
	if err == nil {
		t.Error("LoadFromFlags() expected error for invalid mode")
	}
	if err != nil && !strings.Contains(err.Error(), "mode must be either 'stdio' or 'server'") {
		t.Errorf("LoadFromFlags() error = %v, want error about invalid mode", err)
	}
}

func TestLoadFromFlags_InvalidColor(t *testing.T) {
	// Save original args
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	tempDir := t.TempDir()
	setArgs([]string{"mcp-pdf-highlighter", "--color=chartreuse", "--dir=" + tempDir})
	resetFlags()
	clearEnvVars()

	_, err := LoadFromFlags()
	if err == nil {
		t.Error("LoadFromFlags() expected error for invalid color")
	}
	if err != nil && !strings.Contains(err.Error(), "invalid highlight color") {
		t.Errorf("LoadFromFlags() error = %v, want error about invalid color", err)
	}
}

func TestLoadFromFlags_InvalidOpacity(t *testing.T) {
	// Save original args
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	tempDir := t.TempDir()
	setArgs([]string{"mcp-pdf-highlighter", "--opacity=2", "--dir=" + tempDir})
	resetFlags()
	clearEnvVars()

	_, err := LoadFromFlags()
	if err == nil {
		t.Error("LoadFromFlags() expected error for invalid opacity")
	}
	if err != nil && !strings.Contains(err.Error(), "opacity") {
		t.Errorf("LoadFromFlags() error = %v, want error about opacity", err)
	}
}

func TestLoadFromFlags_InvalidLogLevel(t *testing.T) {
	// Save original args
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	tempDir := t.TempDir()
	setArgs([]string{"mcp-pdf-highlighter", "--loglevel=invalid", "--dir=" + tempDir})
	resetFlags()
	clearEnvVars()

	_, err := LoadFromFlags()
	if err == nil {
		t.Error("LoadFromFlags() expected error for invalid log level")
	}
	if err != nil && !strings.Contains(err.Error(), "invalid log level") {
		t.Errorf("LoadFromFlags() error = %v, want error about invalid log level", err)
	}
}

func TestLoadFromFlags_VersionFlag(t *testing.T) {
	// Save original args
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	setArgs([]string{"mcp-pdf-highlighter", "--version"})
	resetFlags()
	clearEnvVars()

	_, err := LoadFromFlags()
	if err == nil {
		t.Error("LoadFromFlags() expected version error")
	}
	if err != nil && err.Error() != "version requested" {
		t.Errorf("LoadFromFlags() error = %v, want 'version requested'", err)
	}
}
