package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/itohio/flashlog/pkg/options"
)

// Environment variables that override the configuration file.
const (
	EnvPort  = "FLASHLOG_PORT"
	EnvImage = "FLASHLOG_IMAGE"
)

// Config represents the configuration of the host tools.
type Config struct {
	Serial    SerialConfig    `yaml:"serial"`
	Flash     FlashConfig     `yaml:"flash"`
	EEPROM    EEPROMConfig    `yaml:"eeprom"`
	Reference ReferenceConfig `yaml:"reference"`
	Download  DownloadConfig  `yaml:"download"`
	Sim       SimConfig       `yaml:"sim"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// FlashConfig describes the simulated program storage.
type FlashConfig struct {
	Image    string `yaml:"image"`     // Path of the flash image file
	PageSize uint32 `yaml:"page_size"` // Erase granularity in bytes
	Boundary uint32 `yaml:"boundary"`  // Bootloader start address; the log never reaches it
}

// EEPROMConfig describes the simulated configuration area.
type EEPROMConfig struct {
	Path string `yaml:"path"`
	Size int    `yaml:"size"`
}

// ReferenceConfig contains the voltages of the two ADC references.
type ReferenceConfig struct {
	Internal float32 `yaml:"internal"` // Bandgap reference (V)
	Supply   float32 `yaml:"supply"`   // Supply voltage (V)
}

// DownloadConfig contains options of the download tool.
type DownloadConfig struct {
	Sentinel       bool          `yaml:"sentinel"`        // Stop at two consecutive full-scale readings
	AverageSamples int           `yaml:"average_samples"` // Moving average window (0 = disabled)
	MaxPoints      int           `yaml:"max_points"`      // Decimate output to this many records (0 = all)
	Timeout        time.Duration `yaml:"timeout"`         // Time without data before a download is abandoned
}

// SimConfig contains the behavior of the simulated hardware.
type SimConfig struct {
	TickPeriod time.Duration  `yaml:"tick_period"` // Real time per simulated second
	NoiseLevel float32        `yaml:"noise_level"` // Noise amplitude (V)
	Signals    []SignalConfig `yaml:"signals"`     // One per ADC channel
}

// SignalConfig describes the synthetic voltage on one ADC channel.
type SignalConfig struct {
	Offset    float32       `yaml:"offset"`    // DC level (V)
	Amplitude float32       `yaml:"amplitude"` // Sine amplitude (V)
	Period    time.Duration `yaml:"period"`    // Sine period
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyUSB0",
			BaudRate: 19200,
		},
		Flash: FlashConfig{
			Image:    "flash.img",
			PageSize: 128,
			Boundary: 0x7000,
		},
		EEPROM: EEPROMConfig{
			Path: "eeprom.db",
			Size: 1024,
		},
		Reference: ReferenceConfig{
			Internal: 1.1,
			Supply:   5.0,
		},
		Download: DownloadConfig{
			Sentinel:       false,
			AverageSamples: 0,
			MaxPoints:      0,
			Timeout:        5 * time.Second,
		},
		Sim: SimConfig{
			TickPeriod: time.Second,
			NoiseLevel: 0.002,
			Signals: []SignalConfig{
				{Offset: 0.5, Amplitude: 0.3, Period: 10 * time.Minute},
				{Offset: 2.5, Amplitude: 1.0, Period: time.Hour},
				{Offset: 0.8, Amplitude: 0.1, Period: 90 * time.Second},
				{Offset: 3.3, Amplitude: 0.0, Period: time.Minute},
			},
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values. Variables from a .env file in the
// working directory or the environment override the serial port and flash image.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	_ = godotenv.Load()
	cfg.applyEnv()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Voltage returns the reference voltage for the internal (true) or supply reference.
func (c *Config) Voltage(internal bool) float32 {
	if internal {
		return c.Reference.Internal
	}
	return c.Reference.Supply
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvPort); v != "" {
		c.Serial.Port = v
	}
	if v := os.Getenv(EnvImage); v != "" {
		c.Flash.Image = v
	}
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Flash.Image == "" {
		c.Flash.Image = def.Flash.Image
	}
	if c.Flash.PageSize == 0 {
		c.Flash.PageSize = def.Flash.PageSize
	}
	if c.Flash.Boundary == 0 {
		c.Flash.Boundary = def.Flash.Boundary
	}

	if c.EEPROM.Path == "" {
		c.EEPROM.Path = def.EEPROM.Path
	}
	if c.EEPROM.Size == 0 {
		c.EEPROM.Size = def.EEPROM.Size
	}
	if c.EEPROM.Size < options.RecordSize {
		c.EEPROM.Size = options.RecordSize
	}

	if c.Reference.Internal == 0 {
		c.Reference.Internal = def.Reference.Internal
	}
	if c.Reference.Supply == 0 {
		c.Reference.Supply = def.Reference.Supply
	}

	if c.Download.Timeout == 0 {
		c.Download.Timeout = def.Download.Timeout
	}

	if c.Sim.TickPeriod == 0 {
		c.Sim.TickPeriod = def.Sim.TickPeriod
	}
	if len(c.Sim.Signals) == 0 {
		c.Sim.Signals = def.Sim.Signals
	}
}
