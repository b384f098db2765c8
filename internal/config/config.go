// Package config resolves the four environment variables that govern
// startup: device selection, log verbosity, validation layers, and the
// windowed-backend fallback window count.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds every environment-derived setting cmd/mephland needs before
// it can build a vk.Instance or pick a surface backend.
type Config struct {
	// DRMInclude/DRMExclude are the parsed halves of MLAND_DRM_DEVICES. A
	// non-empty DRMInclude overrides entirely; otherwise DRMExclude applies.
	DRMInclude []string
	DRMExclude []string

	LogLevel slog.Level

	ValidationLayers bool

	SDLMaxWindows int
}

// LoadFromEnv reads MLAND_DRM_DEVICES, MLAND_LOG_LEVEL,
// MLAND_VALIDATION_LAYERS, and MLAND_SDL_MAX_WINDOWS, applying the defaults
// and bounds every variable carries. A malformed integer value is a
// configuration error.
func LoadFromEnv() (Config, error) {
	include, exclude := ParseDeviceList(os.Getenv("MLAND_DRM_DEVICES"))

	level, err := parseLogLevel(os.Getenv("MLAND_LOG_LEVEL"))
	if err != nil {
		return Config{}, err
	}

	validation, err := parseBoolInt("MLAND_VALIDATION_LAYERS", os.Getenv("MLAND_VALIDATION_LAYERS"), false)
	if err != nil {
		return Config{}, err
	}

	maxWindows, err := parseIntDefault("MLAND_SDL_MAX_WINDOWS", os.Getenv("MLAND_SDL_MAX_WINDOWS"), 1)
	if err != nil {
		return Config{}, err
	}
	if maxWindows < 1 {
		return Config{}, fmt.Errorf("MLAND_SDL_MAX_WINDOWS must be at least 1, got %d", maxWindows)
	}

	return Config{
		DRMInclude:       include,
		DRMExclude:       exclude,
		LogLevel:         level,
		ValidationLayers: validation,
		SDLMaxWindows:    maxWindows,
	}, nil
}

// ParseDeviceList splits the ':'-separated MLAND_DRM_DEVICES value into
// explicit include and exclude paths; a leading '!' marks exclusion.
// internal/surface/drm.ParseDeviceList delegates here, so config has no
// import dependency on the DRM backend.
func ParseDeviceList(value string) (include, exclude []string) {
	if value == "" {
		return nil, nil
	}
	for _, entry := range strings.Split(value, ":") {
		if entry == "" {
			continue
		}
		if strings.HasPrefix(entry, "!") {
			exclude = append(exclude, entry[1:])
		} else {
			include = append(include, entry)
		}
	}
	return include, exclude
}

// parseLogLevel maps the four-level MLAND_LOG_LEVEL scheme onto slog.Level:
// 1=debug, 2=info, 3=warn, 4=error. Empty defaults to 2 (info).
func parseLogLevel(value string) (slog.Level, error) {
	if value == "" {
		return slog.LevelInfo, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("MLAND_LOG_LEVEL: %w", err)
	}
	switch n {
	case 1:
		return slog.LevelDebug, nil
	case 2:
		return slog.LevelInfo, nil
	case 3:
		return slog.LevelWarn, nil
	case 4:
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("MLAND_LOG_LEVEL must be one of 1,2,3,4, got %d", n)
	}
}

func parseBoolInt(name, value string, def bool) (bool, error) {
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", name, err)
	}
	return n != 0, nil
}

func parseIntDefault(name, value string, def int) (int, error) {
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}
