package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AxisConfig holds the hardware wiring of one rotary axis.
type AxisConfig struct {
	StepPin       int  `yaml:"step_pin"`
	DirPin        int  `yaml:"dir_pin"`
	EnablePin     int  `yaml:"enable_pin"` // A4988 ENABLE pin (BCM). 0 = not used. Active LOW.
	SwitchPin     int  `yaml:"switch_pin"` // end-switch input
	SwitchHigh    bool `yaml:"switch_high"` // true if the switch drives the line HIGH when engaged
	HomeDir       int  `yaml:"home_dir"`    // rotation sense toward the end switch: 1 or -1
	StepDelayUs   int  `yaml:"step_delay_us"`
}

// ADCConfig selects and tunes the analog front-end converter.
type ADCConfig struct {
	Mock       bool `yaml:"mock"`
	SPISpeedHz int  `yaml:"spi_speed_hz"`
	ChipSelect int  `yaml:"chip_select"`
}

// Config aggregates all controller configuration.
type Config struct {
	Listen     string     `yaml:"listen"`      // command endpoint, e.g. ":1033"
	Monitor    string     `yaml:"monitor"`     // optional HTTP status endpoint; empty = disabled
	LogLevel   string     `yaml:"log_level"`   // trace|debug|info|warn|error
	MockGPIO   bool       `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
	AxisA      AxisConfig `yaml:"axis_a"`
	AxisB      AxisConfig `yaml:"axis_b"`
	TriggerPin int        `yaml:"trigger_pin"` // coincidence discriminator input
	AlarmPin   int        `yaml:"alarm_pin"`   // visual alarm LED
	ADC        ADCConfig  `yaml:"adc"`
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Basic validation and defaults
	if cfg.Listen == "" {
		cfg.Listen = ":1033"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	for name, ax := range map[string]*AxisConfig{"axis_a": &cfg.AxisA, "axis_b": &cfg.AxisB} {
		if ax.StepPin <= 0 || ax.DirPin <= 0 {
			return nil, fmt.Errorf("%s: step_pin and dir_pin are required", name)
		}
		if ax.SwitchPin <= 0 {
			return nil, fmt.Errorf("%s: switch_pin is required", name)
		}
		if ax.HomeDir == 0 {
			ax.HomeDir = 1
		}
		if ax.HomeDir != 1 && ax.HomeDir != -1 {
			return nil, fmt.Errorf("%s: home_dir must be 1 or -1, got %d", name, ax.HomeDir)
		}
		if ax.StepDelayUs <= 0 {
			ax.StepDelayUs = 500 // reasonable default: 1ms per full step
		}
	}
	if cfg.TriggerPin <= 0 {
		return nil, fmt.Errorf("trigger_pin is required")
	}
	if cfg.AlarmPin <= 0 {
		return nil, fmt.Errorf("alarm_pin is required")
	}
	if cfg.ADC.SPISpeedHz <= 0 {
		cfg.ADC.SPISpeedHz = 1_000_000
	}

	return &cfg, nil
}

// StepDelay returns the STEP pulse half-cycle duration for an axis.
func (a AxisConfig) StepDelay() time.Duration {
	return time.Duration(a.StepDelayUs) * time.Microsecond
}
