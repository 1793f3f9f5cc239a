package miniptm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BeatGlow/miniptm/bitbang"
	"github.com/BeatGlow/miniptm/pci"
)

// Config is the on-disk configuration.
type Config struct {
	// AllowList holds the accepted MAC addresses.
	AllowList []string `yaml:"allow_list"`

	// Vendor and Device select the controllers.
	Vendor uint16 `yaml:"vendor"`
	Device uint16 `yaml:"device"`

	// BAR is the register window.
	BAR int `yaml:"bar"`

	// Delay, Timeout and Retries are the I²C bus timing.
	Delay   time.Duration `yaml:"delay"`
	Timeout time.Duration `yaml:"timeout"`
	Retries int           `yaml:"retries"`

	// Sysfs is the PCI device directory.
	Sysfs string `yaml:"sysfs"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig matches the MiniPTM V4 board.
var DefaultConfig = Config{
	AllowList: DefaultAllowList.Strings(),
	Vendor:    DefaultID.Vendor,
	Device:    DefaultID.Device,
	BAR:       0,
	Delay:     bitbang.DefaultConfig.Delay,
	Timeout:   bitbang.DefaultConfig.Timeout,
	Sysfs:     pci.DefaultRoot,
	LogLevel:  "info",
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(name string) (*Config, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

// ParseConfig parses YAML on top of DefaultConfig. Unknown keys are errors.
func ParseConfig(b []byte) (*Config, error) {
	config := new(Config)
	*config = DefaultConfig
	config.AllowList = append([]string(nil), DefaultConfig.AllowList...)

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("miniptm: config: %w", err)
	}
	if config.Delay < 0 || config.Timeout <= 0 {
		return nil, fmt.Errorf("miniptm: config: invalid bus timing delay=%s timeout=%s", config.Delay, config.Timeout)
	}
	if _, err := config.Level(); err != nil {
		return nil, err
	}
	return config, nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("miniptm: config: %w", err)
	}
	return l, nil
}

// ManagerConfig converts c for NewManager.
func (c *Config) ManagerConfig(logger *slog.Logger) (*ManagerConfig, error) {
	allow, err := ParseAllowList(c.AllowList)
	if err != nil {
		return nil, fmt.Errorf("miniptm: config: %w", err)
	}
	return &ManagerConfig{
		ID:    pci.ID{Vendor: c.Vendor, Device: c.Device},
		BAR:   c.BAR,
		Allow: allow,
		I2C: bitbang.Config{
			Delay:   c.Delay,
			Timeout: c.Timeout,
			Retries: c.Retries,
		},
		Logger: logger,
	}, nil
}
