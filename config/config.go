// Package config loads the dashboard server configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jsremote/dashboard/route"
)

// deviceParam names the device in the device view route below the base path.
const deviceParam = "device"

// EnvPrefix is the prefix of the environment variables overriding the config file.
const EnvPrefix = "DASHBOARD_"

// Device is a remote target listed in the Header navigation.
type Device struct {
	// Name is the URL path segment of the device view, e.g. "rpi2".
	Name string `yaml:"name" expr:"name"`

	// Label is the display name. Defaults to Name.
	Label string `yaml:"label" expr:"label"`
}

// Config is the dashboard server configuration.
type Config struct {
	// Addr is the TCP address to listen on.
	Addr string `yaml:"addr"`

	// BasePath is the route pattern the shell is mounted at.
	BasePath string `yaml:"base_path"`

	// Title is shown in the Header.
	Title string `yaml:"title"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// ViewsDir, if set, replaces the embedded templates with the .chtml files of this directory.
	ViewsDir string `yaml:"views_dir"`

	Devices []Device `yaml:"devices"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Addr:     ":8080",
		BasePath: "/",
		Title:    "Devices",
		LogLevel: "info",
		Devices: []Device{
			{Name: "rpi2", Label: "Raspberry Pi 2"},
			{Name: "artik530", Label: "ARTIK 530"},
			{Name: "stm32f4dis", Label: "STM32F4 Discovery"},
			{Name: "artik053", Label: "ARTIK 053"},
		},
	}
}

// Load reads the YAML file at path over the defaults and applies the DASHBOARD_* environment
// overrides. An empty path skips the file. Variables missing from the process environment are
// looked up in envFiles, files that do not exist are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	env := map[string]string{}
	for _, f := range envFiles {
		vars, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read env file %s: %w", f, err)
		}
		for k, v := range vars {
			if _, ok := env[k]; !ok {
				env[k] = v
			}
		}
	}

	cfg.applyEnv(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := env[key]
		return v, ok
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	for name, dst := range map[string]*string{
		"ADDR":      &c.Addr,
		"BASE_PATH": &c.BasePath,
		"TITLE":     &c.Title,
		"LOG_LEVEL": &c.LogLevel,
		"VIEWS_DIR": &c.ViewsDir,
	} {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	// DASHBOARD_DEVICES=rpi2,artik530:ARTIK 530
	if v, ok := lookup(EnvPrefix + "DEVICES"); ok {
		c.Devices = nil
		for _, item := range strings.Split(v, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			name, label, _ := strings.Cut(item, ":")
			c.Devices = append(c.Devices, Device{Name: name, Label: label})
		}
	}
}

// Validate checks that the base path is a valid route pattern without a device parameter of
// its own and that every device name is a unique single path segment. Empty labels are set to
// the device name.
func (c *Config) Validate() error {
	base, err := route.Compile(c.BasePath)
	if err != nil {
		return fmt.Errorf("base_path: %w", err)
	}
	if slices.Contains(base.ParamNames(), deviceParam) {
		return fmt.Errorf("base_path: parameter %q is reserved for the device view", deviceParam)
	}
	if _, err := c.Level(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Devices))
	for i := range c.Devices {
		d := &c.Devices[i]
		if d.Name == "" || strings.ContainsAny(d.Name, "/?#") || strings.HasPrefix(d.Name, ":") {
			return fmt.Errorf("devices[%d]: invalid name %q", i, d.Name)
		}
		if seen[d.Name] {
			return fmt.Errorf("devices[%d]: duplicate name %q", i, d.Name)
		}
		seen[d.Name] = true
		if d.Label == "" {
			d.Label = d.Name
		}
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}
