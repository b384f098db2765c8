package config

import (
	"log/slog"
	"testing"
)

func TestParseDeviceListIncludeAndExclude(t *testing.T) {
	include, exclude := ParseDeviceList("/dev/dri/card0:!/dev/dri/card1")
	if len(include) != 1 || include[0] != "/dev/dri/card0" {
		t.Errorf("include = %v, want [/dev/dri/card0]", include)
	}
	if len(exclude) != 1 || exclude[0] != "/dev/dri/card1" {
		t.Errorf("exclude = %v, want [/dev/dri/card1]", exclude)
	}
}

func TestParseDeviceListEmpty(t *testing.T) {
	include, exclude := ParseDeviceList("")
	if include != nil || exclude != nil {
		t.Errorf("expected nil/nil for an empty value, got %v/%v", include, exclude)
	}
}

func TestParseLogLevelMapping(t *testing.T) {
	cases := map[string]slog.Level{
		"1": slog.LevelDebug,
		"2": slog.LevelInfo,
		"3": slog.LevelWarn,
		"4": slog.LevelError,
		"":  slog.LevelInfo,
	}
	for value, want := range cases {
		got, err := parseLogLevel(value)
		if err != nil {
			t.Errorf("parseLogLevel(%q): %v", value, err)
			continue
		}
		if got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", value, got, want)
		}
	}
}

func TestParseLogLevelRejectsOutOfRange(t *testing.T) {
	if _, err := parseLogLevel("5"); err == nil {
		t.Errorf("expected an error for an out-of-range log level")
	}
	if _, err := parseLogLevel("not-a-number"); err == nil {
		t.Errorf("expected an error for a non-numeric log level")
	}
}

func TestLoadFromEnvDefaults(t *testing.T) {
	t.Setenv("MLAND_DRM_DEVICES", "")
	t.Setenv("MLAND_LOG_LEVEL", "")
	t.Setenv("MLAND_VALIDATION_LAYERS", "")
	t.Setenv("MLAND_SDL_MAX_WINDOWS", "")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("default LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.ValidationLayers {
		t.Errorf("default ValidationLayers = true, want false")
	}
	if cfg.SDLMaxWindows != 1 {
		t.Errorf("default SDLMaxWindows = %d, want 1", cfg.SDLMaxWindows)
	}
}

func TestLoadFromEnvRejectsZeroWindows(t *testing.T) {
	t.Setenv("MLAND_DRM_DEVICES", "")
	t.Setenv("MLAND_LOG_LEVEL", "")
	t.Setenv("MLAND_VALIDATION_LAYERS", "")
	t.Setenv("MLAND_SDL_MAX_WINDOWS", "0")

	if _, err := LoadFromEnv(); err == nil {
		t.Errorf("expected an error for MLAND_SDL_MAX_WINDOWS=0")
	}
}
