// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Mode identifies which kind of run is being typed.
type Mode string

const (
	ModeSolo Mode = "solo"
	ModeCode Mode = "code"
	ModeRace Mode = "race"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSolo, "":
		return ModeSolo, nil
	case ModeCode:
		return ModeCode, nil
	case ModeRace:
		return ModeRace, nil
	}
	return "", fmt.Errorf("unknown mode %q (expected solo, code or race)", s)
}

// LimitKind selects how a run ends.
type LimitKind string

const (
	LimitTime  LimitKind = "time"
	LimitWords LimitKind = "words"
)

// Limit bounds a run. A time limit of 0 seconds never expires.
type Limit struct {
	Kind  LimitKind
	Value int
}

// Config defines practice settings.
type Config struct {
	Lang     string
	Mode     Mode
	Limit    Limit
	Words    int
	CapsPct  float64
	PunctPct float64
	PunctSet string
	Ghost    bool
}

// RaceConfig defines multiplayer settings.
type RaceConfig struct {
	Server string
	Room   string
	Player string
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Mode        Mode
	Since       *time.Time
	Last        int
	CurveWindow int
}

// Result captures a completed run as submitted to score persistence.
type Result struct {
	ID          string    `json:"id"`
	Player      string    `json:"player,omitempty"`
	Mode        Mode      `json:"mode"`
	WPM         float64   `json:"wpm"`
	RawWPM      float64   `json:"rawWpm"`
	Accuracy    float64   `json:"accuracy"`
	Consistency float64   `json:"consistency"`
	WordsTyped  int       `json:"wordsTyped"`
	DurationMs  int64     `json:"durationMs"`
	Correct     int       `json:"correct"`
	Incorrect   int       `json:"incorrect"`
	Missed      int       `json:"missed"`
	Extra       int       `json:"extra"`
	IsWin       *bool     `json:"isWin,omitempty"`
	CompletedAt time.Time `json:"completedAt"`
}

// TimelinePoint is one cursor transition of a recorded run.
type TimelinePoint struct {
	ElapsedMs   int64 `json:"elapsedMs"`
	CursorIndex int   `json:"cursorIndex"`
}

// RunRecord is the persisted replay of the last completed run for a mode.
type RunRecord struct {
	Fingerprint string          `json:"targetFingerprint"`
	Timeline    []TimelinePoint `json:"timeline"`
	Mode        Mode            `json:"mode"`
	LimitKind   LimitKind       `json:"limitKind"`
	LimitValue  int             `json:"limitValue"`
	CompletedAt time.Time       `json:"completedAt"`
}

// PlayerStatus is a participant's state within a race room.
type PlayerStatus string

const (
	StatusWaiting  PlayerStatus = "waiting"
	StatusActive   PlayerStatus = "active"
	StatusFinished PlayerStatus = "finished"
)

// RosterEntry is one participant in a room roster.
type RosterEntry struct {
	Player   string       `json:"player"`
	Progress int          `json:"progress"`
	WPM      float64      `json:"wpm"`
	Status   PlayerStatus `json:"status"`
}

// ResultAggregate summarizes stored results for reporting.
type ResultAggregate struct {
	Mode        Mode
	Count       int
	AvgWPM      float64
	BestWPM     float64
	AvgAccuracy float64
	Wins        int
}
