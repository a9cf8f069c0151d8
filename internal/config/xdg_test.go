package config

import (
	"path/filepath"
	"testing"
)

func TestPathsFollowXDGEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")

	cases := map[string]string{
		DefaultConfigPath():       filepath.Join("/cfg", "typerace", "config.toml"),
		DefaultWordListPath("de"): filepath.Join("/cfg", "typerace", "wordlists", "de.txt"),
		DefaultDBPath():           filepath.Join("/data", "typerace", "typerace.db"),
		DefaultServerDBPath():     filepath.Join("/data", "typerace", "server.db"),
		DefaultLogPath():          filepath.Join("/data", "typerace", "typerace.log"),
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}

func TestXDGFallsBackToHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("HOME", "/home/alice")
	if got, want := XDGDataHome(), filepath.Join("/home/alice", ".local", "share"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
