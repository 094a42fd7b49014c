package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/sergev/imdtool/imd"
)

//go:embed imdtool.toml
var defaultConfigData []byte

// Package-level state populated by Initialize, mirroring the teacher's
// DriveName/Cyls/Heads/... globals.
var (
	DefaultFillByte byte
	DefaultVersion  string
	Geometries      map[string]imd.Geometry
)

// Config is the top-level TOML document shape.
type Config struct {
	DefaultFillByte int              `toml:"default_fill_byte"`
	DefaultVersion  string           `toml:"default_version"`
	Geometry        []GeometryPreset `toml:"geometry"`
}

// GeometryPreset names one soft-geometry limit set, selectable from the
// CLI with --preset.
type GeometryPreset struct {
	Name    string `toml:"name"`
	MaxCyl  int    `toml:"max_cyl"`
	MaxHead int    `toml:"max_head"`
	MaxSpt  int    `toml:"max_spt"`
}

// configPath determines the config file path based on the operating
// system, exactly as the teacher's configPath does.
func configPath() (string, error) {
	var configDir string
	var err error

	switch runtime.GOOS {
	case "windows":
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "imdtool")
		return filepath.Join(configDir, "imdtool.toml"), nil
	default:
		configDir, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user home directory: %w", err)
		}
		return filepath.Join(configDir, ".imdtool.toml"), nil
	}
}

// Initialize loads and validates the configuration file. If it doesn't
// exist yet, it is created from the embedded default first.
func Initialize() error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		configDir := filepath.Dir(path)
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
		}
		if err := os.WriteFile(path, defaultConfigData, 0644); err != nil {
			return fmt.Errorf("failed to create default config file at %s: %w", path, err)
		}
	}

	var conf Config
	if _, err := toml.DecodeFile(path, &conf); err != nil {
		return fmt.Errorf("failed to parse TOML config at %s: %w", path, err)
	}

	if conf.DefaultFillByte < 0 || conf.DefaultFillByte > 0xFF {
		return fmt.Errorf("default_fill_byte %d out of byte range", conf.DefaultFillByte)
	}
	if conf.DefaultVersion == "" {
		return fmt.Errorf("default_version key is missing or empty in config")
	}

	DefaultFillByte = byte(conf.DefaultFillByte)
	DefaultVersion = conf.DefaultVersion

	Geometries = make(map[string]imd.Geometry, len(conf.Geometry))
	for _, g := range conf.Geometry {
		if g.Name == "" {
			return fmt.Errorf("geometry preset with empty name")
		}
		Geometries[g.Name] = imd.Geometry{MaxCyl: g.MaxCyl, MaxHead: g.MaxHead, MaxSpt: g.MaxSpt}
	}

	return nil
}

// ResolvePreset looks up a named geometry preset.
func ResolvePreset(name string) (imd.Geometry, error) {
	g, ok := Geometries[name]
	if !ok {
		return imd.Geometry{}, fmt.Errorf("geometry preset %q not found in configuration", name)
	}
	return g, nil
}
