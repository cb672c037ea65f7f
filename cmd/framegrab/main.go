package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kevmo314/go-framegrab"
	"github.com/kevmo314/go-framegrab/pkg/libav"
	"github.com/kevmo314/go-framegrab/pkg/media"
	"github.com/kevmo314/go-framegrab/pkg/native"
)

var backends = map[string]func() (media.Backend, error){
	"libav": func() (media.Backend, error) {
		b, err := libav.New()
		if err != nil {
			return nil, err
		}
		return b, nil
	},
	"native": func() (media.Backend, error) {
		return native.New(), nil
	},
}

func backendNames() string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func main() {
	configPath := flag.String("config", "", "path to a yaml config file (defaults are used when empty)")
	backend := flag.String("backend", "", "media backend: "+backendNames())
	device := flag.String("device", "", "capture device, overrides the config")
	format := flag.String("format", "", "input format, overrides the config")
	output := flag.String("output", "", "output file, overrides the config")
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)

	err := run(log, *configPath, func(cfg *framegrab.Config) {
		if *backend != "" {
			cfg.Backend = *backend
		}
		if *device != "" {
			cfg.Device = *device
		}
		if *format != "" {
			cfg.InputFormat = *format
		}
		if *output != "" {
			cfg.Output = *output
		}
	})
	if err != nil {
		log.WithError(err).Error("capture failed")
	}
	os.Exit(framegrab.ExitCode(err))
}

func run(log *logrus.Logger, configPath string, override func(*framegrab.Config)) error {
	cfg, err := framegrab.LoadConfig(configPath)
	if err != nil {
		return err
	}
	override(&cfg)

	if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
		log.SetLevel(level)
	}

	open, ok := backends[cfg.Backend]
	if !ok {
		return fmt.Errorf("unknown backend %q (want one of %s)", cfg.Backend, backendNames())
	}
	be, err := open()
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"backend": be.Name(), "device": cfg.Device, "format": cfg.InputFormat}).Debug("starting capture")

	return framegrab.NewSession(be, cfg, log).Run()
}
