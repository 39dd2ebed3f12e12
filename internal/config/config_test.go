package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
listen: ":1033"
log_level: "debug"
mock_gpio: true
axis_a:
  step_pin: 17
  dir_pin: 27
  enable_pin: 5
  switch_pin: 22
  home_dir: 1
axis_b:
  step_pin: 23
  dir_pin: 24
  switch_pin: 25
  home_dir: -1
trigger_pin: 26
alarm_pin: 16
adc:
  mock: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Listen != ":1033" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if !cfg.MockGPIO {
		t.Error("MockGPIO should be true")
	}
	if cfg.AxisA.StepPin != 17 || cfg.AxisB.HomeDir != -1 {
		t.Errorf("axis config not parsed: %+v %+v", cfg.AxisA, cfg.AxisB)
	}
	// Defaults
	if cfg.AxisA.StepDelayUs != 500 {
		t.Errorf("StepDelayUs default = %d, want 500", cfg.AxisA.StepDelayUs)
	}
	if got := cfg.AxisA.StepDelay(); got != 500*time.Microsecond {
		t.Errorf("StepDelay = %v", got)
	}
	if cfg.ADC.SPISpeedHz != 1_000_000 {
		t.Errorf("SPISpeedHz default = %d", cfg.ADC.SPISpeedHz)
	}
}

func TestLoad_DefaultsListenAndLevel(t *testing.T) {
	yaml := strings.ReplaceAll(validYAML, `listen: ":1033"`, "")
	yaml = strings.ReplaceAll(yaml, `log_level: "debug"`, "")
	cfg, err := Load(writeConfig(t, yaml))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":1033" {
		t.Errorf("Listen default = %q, want :1033", cfg.Listen)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel default = %q, want info", cfg.LogLevel)
	}
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	cases := []struct {
		name   string
		mangle func(string) string
	}{
		{"missing axis pins", func(s string) string { return strings.ReplaceAll(s, "step_pin: 17", "step_pin: 0") }},
		{"missing switch pin", func(s string) string { return strings.ReplaceAll(s, "switch_pin: 22", "switch_pin: 0") }},
		{"missing trigger pin", func(s string) string { return strings.ReplaceAll(s, "trigger_pin: 26", "trigger_pin: 0") }},
		{"missing alarm pin", func(s string) string { return strings.ReplaceAll(s, "alarm_pin: 16", "alarm_pin: 0") }},
		{"bad home dir", func(s string) string { return strings.ReplaceAll(s, "home_dir: 1", "home_dir: 2") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.mangle(validYAML))); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestLoad_FileMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLoad_BadYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "listen: [unclosed")); err == nil {
		t.Error("expected an unmarshal error")
	}
}
