// Package race synchronizes a local run with a remote race room.
package race

import (
	"encoding/json"
	"fmt"

	"github.com/verte-zerg/typerace/internal/model"
)

// MessageType names an envelope kind on the wire.
type MessageType string

const (
	// Client to room.
	TypeJoin     MessageType = "join"
	TypeProgress MessageType = "progress"
	TypeFinish   MessageType = "finish"

	// Room to client. TypeFinish is shared and carries the winner.
	TypeStart        MessageType = "start"
	TypePlayerUpdate MessageType = "playerUpdate"
)

// Envelope is the single JSON record exchanged with a room.
type Envelope struct {
	Type       MessageType         `json:"type"`
	Room       string              `json:"room,omitempty"`
	Player     string              `json:"player,omitempty"`
	Text       string              `json:"text,omitempty"`
	Players    []model.RosterEntry `json:"players,omitempty"`
	Winner     string              `json:"winner,omitempty"`
	Progress   int                 `json:"progress,omitempty"`
	WPM        float64             `json:"wpm,omitempty"`
	Accuracy   float64             `json:"accuracy,omitempty"`
	WordsTyped int                 `json:"wordsTyped,omitempty"`
	DurationMs int64               `json:"durationMs,omitempty"`
	Timestamp  int64               `json:"timestamp,omitempty"`
}

// Encode serializes an envelope.
func Encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// Decode parses and validates an envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if err := env.Validate(); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// Validate checks the fields each message type requires.
func (e Envelope) Validate() error {
	switch e.Type {
	case TypeJoin:
		if e.Player == "" {
			return fmt.Errorf("join without player")
		}
	case TypeProgress:
		if e.Progress < 0 || e.Progress > 100 {
			return fmt.Errorf("progress %d out of range", e.Progress)
		}
	case TypeFinish:
		if e.Player == "" && e.Winner == "" {
			return fmt.Errorf("finish without player or winner")
		}
	case TypeStart:
		if e.Text == "" {
			return fmt.Errorf("start without text")
		}
	case TypePlayerUpdate:
	default:
		return fmt.Errorf("unknown message type %q", e.Type)
	}
	return nil
}
