// Package config loads the TOML config file and resolves XDG paths.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
	Race     RaceConfig     `toml:"race"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	Lang     *string  `toml:"lang"`
	Mode     *string  `toml:"mode"`
	Words    *int     `toml:"words"`
	Time     *int     `toml:"time"`
	CapsPct  *float64 `toml:"caps"`
	PunctPct *float64 `toml:"punct"`
	PunctSet *string  `toml:"punct-set"`
	Ghost    *bool    `toml:"ghost"`
	Bot      *string  `toml:"bot"`
}

// RaceConfig maps multiplayer client settings.
type RaceConfig struct {
	Server *string `toml:"server"`
	Room   *string `toml:"room"`
	Name   *string `toml:"name"`
}

// ServerConfig maps room server settings.
type ServerConfig struct {
	Addr      *string `toml:"addr"`
	RoomSize  *int    `toml:"room-size"`
	TextWords *int    `toml:"text-words"`
	APILimit  *int    `toml:"api-limit"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	File  *string `toml:"file"`
	Level *string `toml:"level"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
