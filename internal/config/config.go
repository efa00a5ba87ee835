// Package config provides file-based configuration for the upscaler service.
// XML is the default on-disk format; YAML is accepted for .yaml/.yml files.
package config

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/gommon/bytes"
	"gopkg.in/yaml.v3"
)

// AppConfig represents the root configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"ImageUpscaler" yaml:"-"`

	// Server configuration
	Server ServerConfig `xml:"Server" yaml:"server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage" yaml:"storage"`

	// Processing configuration
	Processing ProcessingConfig `xml:"Processing" yaml:"processing"`

	// Security configuration
	Security SecurityConfig `xml:"Security" yaml:"security"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced" yaml:"advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port" yaml:"port"`
	BindAddress  string `xml:"BindAddress" yaml:"bind_address"`
	EnableCORS   bool   `xml:"EnableCORS" yaml:"enable_cors"`
	AllowOrigins string `xml:"AllowOrigins" yaml:"allow_origins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds" yaml:"read_timeout_seconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds" yaml:"write_timeout_seconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds" yaml:"idle_timeout_seconds"`
}

// StorageConfig contains workspace settings
type StorageConfig struct {
	DataDirectory      string `xml:"DataDirectory" yaml:"data_directory"`
	WorkspaceDirectory string `xml:"WorkspaceDirectory" yaml:"workspace_directory"`
	MaxUploadSize      string `xml:"MaxUploadSize" yaml:"max_upload_size"`
	// HistoryDatabase is a DuckDB file recording finished jobs. Empty disables history.
	HistoryDatabase string `xml:"HistoryDatabase" yaml:"history_database"`
}

// ProcessingConfig contains upscaling settings
type ProcessingConfig struct {
	ScaleFactor            int    `xml:"ScaleFactor" yaml:"scale_factor"`
	Kernel                 string `xml:"Kernel" yaml:"kernel"`
	MaxOutputPixels        int64  `xml:"MaxOutputPixels" yaml:"max_output_pixels"`
	MaxConcurrentJobs      int    `xml:"MaxConcurrentJobs" yaml:"max_concurrent_jobs"`
	JobRetentionMinutes    int    `xml:"JobRetentionMinutes" yaml:"job_retention_minutes"`
	CleanupIntervalMinutes int    `xml:"CleanupIntervalMinutes" yaml:"cleanup_interval_minutes"`
}

// SecurityConfig contains upload validation settings
type SecurityConfig struct {
	AllowedExtensions string `xml:"AllowedExtensions" yaml:"allowed_extensions"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel" yaml:"log_level"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging" yaml:"enable_request_logging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         5000,
			BindAddress:  "127.0.0.1",
			EnableCORS:   false,
			AllowOrigins: "*",
			ReadTimeout:  60,
			WriteTimeout: 300,
			IdleTimeout:  120,
		},
		Storage: StorageConfig{
			DataDirectory:      "./data",
			WorkspaceDirectory: "./data/work",
			MaxUploadSize:      "20M",
			HistoryDatabase:    "",
		},
		Processing: ProcessingConfig{
			ScaleFactor:            4,
			Kernel:                 "catmull-rom",
			MaxOutputPixels:        64 * 1024 * 1024,
			MaxConcurrentJobs:      2,
			JobRetentionMinutes:    60,
			CleanupIntervalMinutes: 5,
		},
		Security: SecurityConfig{
			AllowedExtensions: "png,jpg,jpeg,webp,bmp",
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from an XML or YAML file.
// A missing file is created with defaults.
func LoadConfig(configPath string) (*AppConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		config.resolvePaths(filepath.Dir(configPath))
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if isYAML(configPath) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = xml.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Save saves the configuration, picking the format from the file extension
func (c *AppConfig) Save(configPath string) error {
	var content []byte
	if isYAML(configPath) {
		output, err := yaml.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		content = append([]byte("# Image Upscaler Configuration\n"), output...)
	} else {
		output, err := xml.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		header := []byte(xml.Header + "\n<!-- Image Upscaler Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
		content = append(header, output...)
	}

	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that would otherwise fail later at runtime
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port out of range: %d", c.Server.Port))
	}
	if c.Processing.ScaleFactor < 1 {
		errs = append(errs, fmt.Errorf("scale factor must be at least 1, got %d", c.Processing.ScaleFactor))
	}
	if c.Processing.MaxConcurrentJobs < 1 {
		errs = append(errs, fmt.Errorf("max concurrent jobs must be at least 1, got %d", c.Processing.MaxConcurrentJobs))
	}
	if _, err := c.MaxUploadBytes(); err != nil {
		errs = append(errs, err)
	}
	if len(c.AllowedExtensions()) == 0 {
		errs = append(errs, errors.New("no allowed file extensions configured"))
	}
	return errors.Join(errs...)
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	// PORT override
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// DATA_DIR override moves the workspace along with it
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.WorkspaceDirectory = filepath.Join(dataDir, "work")
	}

	if scale := os.Getenv("UPSCALE_SCALE"); scale != "" {
		if s, err := strconv.Atoi(scale); err == nil {
			c.Processing.ScaleFactor = s
		}
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if !filepath.IsAbs(c.Storage.WorkspaceDirectory) {
		c.Storage.WorkspaceDirectory = filepath.Join(configDir, c.Storage.WorkspaceDirectory)
	}
	if c.Storage.HistoryDatabase != "" && !filepath.IsAbs(c.Storage.HistoryDatabase) {
		c.Storage.HistoryDatabase = filepath.Join(configDir, c.Storage.HistoryDatabase)
	}
}

// GetDataDir returns the absolute data directory path
func (c *AppConfig) GetDataDir() string {
	return c.Storage.DataDirectory
}

// GetWorkspaceDir returns the absolute workspace directory path
func (c *AppConfig) GetWorkspaceDir() string {
	return c.Storage.WorkspaceDirectory
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// MaxUploadBytes parses Storage.MaxUploadSize ("20M", "2G", "512K").
func (c *AppConfig) MaxUploadBytes() (int64, error) {
	n, err := bytes.Parse(c.Storage.MaxUploadSize)
	if err != nil {
		return 0, fmt.Errorf("invalid max upload size %q: %w", c.Storage.MaxUploadSize, err)
	}
	return n, nil
}

// AllowedExtensions returns the configured extensions, lower-cased and without dots.
func (c *AppConfig) AllowedExtensions() []string {
	var exts []string
	for _, ext := range strings.Split(c.Security.AllowedExtensions, ",") {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			exts = append(exts, ext)
		}
	}
	return exts
}

// Origins returns the CORS origins list, defaulting to "*".
func (c *AppConfig) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.Server.AllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return origins
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.WorkspaceDirectory,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
