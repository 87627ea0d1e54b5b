package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cast"
)

const (
	// EnvModelPath overrides the model artifact location.
	EnvModelPath = "MODEL_PATH"

	// EnvModelLibraryPath overrides the onnxruntime shared library location.
	EnvModelLibraryPath = "ONNXRUNTIME_LIB"

	// EnvModelEager overrides whether the model is loaded at startup.
	EnvModelEager = "MODEL_EAGER"

	// EnvModelMaxPixels overrides the largest accepted image area.
	EnvModelMaxPixels = "MODEL_MAX_PIXELS"

	// EnvInferenceTimeout overrides the per-request pipeline timeout.
	EnvInferenceTimeout = "INFERENCE_TIMEOUT"
)

// ModelConfig describes the model artifact and the tensor it expects.
type ModelConfig struct {
	// Path is resolved relative to the process working directory.
	Path        string `toml:"path"`
	LibraryPath string `toml:"library_path"`
	ImageSize   int    `toml:"image_size"`

	// Layout is "nhwc" (1,H,W,C) or "nchw" (1,C,H,W).
	Layout string `toml:"layout"`

	// PixelScale is "raw" for 0-255 intensities or "unit" for 0-1.
	PixelScale string `toml:"pixel_scale"`

	// MaxPixels bounds width×height of a request image, checked from the
	// image header before decoding.
	MaxPixels int `toml:"max_pixels"`

	// Eager loads the model during startup instead of on the first request.
	Eager *bool `toml:"eager"`
}

// EagerLoad reports whether the model should be loaded at startup. Defaults to true.
func (c *ModelConfig) EagerLoad() bool {
	return c.Eager == nil || *c.Eager
}

// Finalize applies defaults, loads environment overrides, and validates the model configuration.
func (c *ModelConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *ModelConfig) Merge(overlay *ModelConfig) {
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
	if overlay.LibraryPath != "" {
		c.LibraryPath = overlay.LibraryPath
	}
	if overlay.ImageSize != 0 {
		c.ImageSize = overlay.ImageSize
	}
	if overlay.Layout != "" {
		c.Layout = overlay.Layout
	}
	if overlay.PixelScale != "" {
		c.PixelScale = overlay.PixelScale
	}
	if overlay.MaxPixels != 0 {
		c.MaxPixels = overlay.MaxPixels
	}
	if overlay.Eager != nil {
		c.Eager = overlay.Eager
	}
}

func (c *ModelConfig) loadDefaults() {
	if c.Path == "" {
		c.Path = "model.onnx"
	}
	if c.ImageSize == 0 {
		c.ImageSize = 256
	}
	if c.Layout == "" {
		c.Layout = "nhwc"
	}
	if c.PixelScale == "" {
		c.PixelScale = "raw"
	}
	if c.MaxPixels == 0 {
		c.MaxPixels = 50_000_000
	}
}

func (c *ModelConfig) loadEnv() {
	if v := os.Getenv(EnvModelPath); v != "" {
		c.Path = v
	}
	if v := os.Getenv(EnvModelLibraryPath); v != "" {
		c.LibraryPath = v
	}
	if v := os.Getenv(EnvModelMaxPixels); v != "" {
		if n, err := cast.ToIntE(v); err == nil {
			c.MaxPixels = n
		}
	}
	if v := os.Getenv(EnvModelEager); v != "" {
		if eager, err := cast.ToBoolE(v); err == nil {
			c.Eager = &eager
		}
	}
}

func (c *ModelConfig) validate() error {
	if c.ImageSize <= 0 {
		return fmt.Errorf("image_size must be positive, got %d", c.ImageSize)
	}
	if c.MaxPixels <= 0 {
		return fmt.Errorf("max_pixels must be positive, got %d", c.MaxPixels)
	}
	switch c.Layout {
	case "nhwc", "nchw":
	default:
		return fmt.Errorf("invalid layout: %s (must be nhwc or nchw)", c.Layout)
	}
	switch c.PixelScale {
	case "raw", "unit":
	default:
		return fmt.Errorf("invalid pixel_scale: %s (must be raw or unit)", c.PixelScale)
	}
	return nil
}

// InferenceConfig bounds the request pipeline.
type InferenceConfig struct {
	Timeout string `toml:"timeout"`
}

func (c *InferenceConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, loads environment overrides, and validates the inference configuration.
func (c *InferenceConfig) Finalize() error {
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if v := os.Getenv(EnvInferenceTimeout); v != "" {
		c.Timeout = v
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *InferenceConfig) Merge(overlay *InferenceConfig) {
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}
