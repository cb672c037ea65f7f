package framegrab

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/kevmo314/go-framegrab/pkg/media"
	"github.com/kevmo314/go-framegrab/pkg/yuv"
)

const maxDimension = 16384

// Config describes one capture. The zero value is not usable, start from
// DefaultConfig.
type Config struct {
	Backend       string              `yaml:"backend"`
	Device        string              `yaml:"device"`
	InputFormat   string              `yaml:"input_format"`
	Output        string              `yaml:"output"`
	Width         int                 `yaml:"width"`
	Height        int                 `yaml:"height"`
	PixelFormat   media.PixelFormat   `yaml:"pixel_format"`
	Interpolation media.Interpolation `yaml:"interpolation"`

	// RetryOnNeedMoreInput makes the capture loop go back to reading when
	// the decoder needs more input instead of failing.
	RetryOnNeedMoreInput bool `yaml:"retry_on_need_more_input"`
	// KeepPartialOutput leaves the output file in place when the capture
	// fails after it was created.
	KeepPartialOutput bool `yaml:"keep_partial_output"`

	LogLevel string `yaml:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		Backend:       "libav",
		Device:        "/dev/video0",
		InputFormat:   "video4linux2",
		Output:        "output.yuv",
		Width:         640,
		Height:        480,
		PixelFormat:   media.PixelFormatYUV420P,
		Interpolation: media.InterpolationBicubic,
		LogLevel:      "info",
	}
}

// LoadConfig reads a YAML file over DefaultConfig. Unknown keys are rejected.
// An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Device == "" {
		return errors.New("device is required")
	}
	if c.InputFormat == "" {
		return errors.New("input_format is required")
	}
	if c.Output == "" {
		return errors.New("output is required")
	}
	if c.Width <= 0 || c.Height <= 0 || c.Width > maxDimension || c.Height > maxDimension {
		return fmt.Errorf("invalid output size %dx%d", c.Width, c.Height)
	}
	if _, err := yuv.Layout(c.Picture()); err != nil {
		return fmt.Errorf("pixel_format: %w", err)
	}
	if !c.Interpolation.Valid() {
		return fmt.Errorf("unknown interpolation %q", c.Interpolation)
	}
	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	return nil
}

// Picture is the destination picture format.
func (c Config) Picture() media.PictureFormat {
	return media.PictureFormat{Width: c.Width, Height: c.Height, PixelFormat: c.PixelFormat}
}
