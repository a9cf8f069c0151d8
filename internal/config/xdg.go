package config

import (
	"os"
	"path/filepath"
)

const appDir = "typerace"

// XDGConfigHome is $XDG_CONFIG_HOME, falling back to ~/.config.
func XDGConfigHome() string {
	return xdgHome("XDG_CONFIG_HOME", ".config")
}

// XDGDataHome is $XDG_DATA_HOME, falling back to ~/.local/share.
func XDGDataHome() string {
	return xdgHome("XDG_DATA_HOME", ".local", "share")
}

// xdgHome reads env, or joins rel onto the user's home. Without a home
// directory paths resolve against the working directory.
func xdgHome(env string, rel ...string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(append([]string{home}, rel...)...)
}

func configPath(elem ...string) string {
	return filepath.Join(append([]string{XDGConfigHome(), appDir}, elem...)...)
}

func dataPath(name string) string {
	return filepath.Join(XDGDataHome(), appDir, name)
}

// DefaultConfigPath is where config.toml is looked up.
func DefaultConfigPath() string { return configPath("config.toml") }

// DefaultWordListDir holds user supplied <lang>.txt word lists.
func DefaultWordListDir() string { return configPath("wordlists") }

// DefaultWordListPath is the word list file for lang.
func DefaultWordListPath(lang string) string { return configPath("wordlists", lang+".txt") }

// DefaultDBPath is the local results and replay database.
func DefaultDBPath() string { return dataPath("typerace.db") }

// DefaultServerDBPath is the database used by the room server.
func DefaultServerDBPath() string { return dataPath("server.db") }

// DefaultLogPath is the rotating client log file.
func DefaultLogPath() string { return dataPath("typerace.log") }
