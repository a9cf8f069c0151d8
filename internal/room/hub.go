// Package room implements the authoritative race room server.
package room

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/typerace/internal/logging"
	"github.com/verte-zerg/typerace/internal/model"
	"github.com/verte-zerg/typerace/internal/provider"
	"github.com/verte-zerg/typerace/internal/race"
)

const (
	// DefaultRoomSize is the number of joined players that starts a race.
	DefaultRoomSize = 2
	// DefaultTextWords is the length of the shared race text.
	DefaultTextWords = 50
)

// ErrDuplicatePlayer is returned when a name is already connected to a room.
var ErrDuplicatePlayer = errors.New("player already connected to room")

// Peer is one connected client.
type Peer interface {
	Send(data []byte) error
}

// Submitter persists race results.
type Submitter interface {
	SubmitResult(ctx context.Context, r model.Result) error
}

// HubOptions configures a Hub.
type HubOptions struct {
	RoomSize  int
	TextWords int
	Provider  provider.Provider
	Submitter Submitter
	Logger    *zap.Logger
	Metrics   *Metrics
	Clock     func() time.Time
}

// Hub tracks rooms by id. Each room processes one message at a time, so the
// first finisher it sees is the winner every member is told about.
type Hub struct {
	opts HubOptions
	log  *zap.Logger

	mu    sync.Mutex
	rooms map[string]*room
}

type member struct {
	peer   Peer
	joined bool
	entry  model.RosterEntry
}

type room struct {
	id      string
	mu      sync.Mutex
	members map[string]*member
	started bool
	text    string
	winner  string
}

// Snapshot is a read-only view of one room.
type Snapshot struct {
	ID      string
	Started bool
	Text    string
	Winner  string
	Roster  []model.RosterEntry
}

// NewHub creates an empty hub.
func NewHub(opts HubOptions) *Hub {
	if opts.RoomSize <= 0 {
		opts.RoomSize = DefaultRoomSize
	}
	if opts.TextWords <= 0 {
		opts.TextWords = DefaultTextWords
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Hub{opts: opts, log: logging.OrNop(opts.Logger), rooms: map[string]*room{}}
}

// Attach registers a connection for player in roomID. The player enters the
// roster once it sends join.
func (h *Hub) Attach(roomID, player string, peer Peer) error {
	h.mu.Lock()
	r, ok := h.rooms[roomID]
	if !ok {
		r = &room{id: roomID, members: map[string]*member{}}
		h.rooms[roomID] = r
		h.gaugeRooms(1)
	}
	r.mu.Lock()
	h.mu.Unlock()
	defer r.mu.Unlock()

	if _, exists := r.members[player]; exists {
		return ErrDuplicatePlayer
	}
	r.members[player] = &member{peer: peer, entry: model.RosterEntry{Player: player, Status: model.StatusWaiting}}
	if h.opts.Metrics != nil {
		h.opts.Metrics.Players.Inc()
	}
	h.log.Info("player connected", zap.String("room", roomID), zap.String("player", player))
	return nil
}

// Detach removes player. A room that empties is discarded, so the next
// arrival starts a fresh race.
func (h *Hub) Detach(roomID, player string) {
	h.mu.Lock()
	r, ok := h.rooms[roomID]
	if !ok {
		h.mu.Unlock()
		return
	}
	r.mu.Lock()
	if _, ok := r.members[player]; !ok {
		r.mu.Unlock()
		h.mu.Unlock()
		return
	}
	delete(r.members, player)
	if h.opts.Metrics != nil {
		h.opts.Metrics.Players.Dec()
	}
	empty := len(r.members) == 0
	if empty {
		delete(h.rooms, roomID)
		h.gaugeRooms(-1)
	}
	h.mu.Unlock()
	defer r.mu.Unlock()

	h.log.Info("player disconnected", zap.String("room", roomID), zap.String("player", player), zap.Bool("room_closed", empty))
	if !empty {
		h.broadcastRoster(r)
	}
}

func (h *Hub) gaugeRooms(delta float64) {
	if h.opts.Metrics != nil {
		h.opts.Metrics.Rooms.Add(delta)
	}
}

// Handle applies one inbound frame from player.
func (h *Hub) Handle(ctx context.Context, roomID, player string, data []byte) {
	env, err := race.Decode(data)
	if err != nil {
		if h.opts.Metrics != nil {
			h.opts.Metrics.Dropped.Inc()
		}
		h.log.Warn("dropping malformed message", zap.String("room", roomID), zap.String("player", player), zap.Error(err))
		return
	}

	h.mu.Lock()
	r, ok := h.rooms[roomID]
	h.mu.Unlock()
	if !ok {
		return
	}
	r.mu.Lock()
	var finished *model.Result
	if m, ok := r.members[player]; ok {
		switch env.Type {
		case race.TypeJoin:
			h.join(ctx, r, m)
		case race.TypeProgress:
			h.progress(r, m, env)
		case race.TypeFinish:
			finished = h.finish(r, m, env)
		default:
			h.log.Debug("ignoring server-bound message", zap.String("type", string(env.Type)))
		}
	}
	r.mu.Unlock()

	// Persisted outside the room lock.
	if finished != nil {
		h.store(ctx, roomID, *finished)
	}
}

func (h *Hub) join(ctx context.Context, r *room, m *member) {
	if m.joined {
		return
	}
	m.joined = true
	if r.started {
		m.entry.Status = model.StatusActive
		h.send(m, race.Envelope{Type: race.TypeStart, Room: r.id, Text: r.text, Timestamp: h.now()})
		if r.winner != "" {
			h.send(m, race.Envelope{Type: race.TypeFinish, Room: r.id, Winner: r.winner, Timestamp: h.now()})
		}
	}
	h.broadcastRoster(r)

	if r.started || r.joinedCount() < h.opts.RoomSize {
		return
	}
	r.text = provider.Fetch(ctx, h.opts.Provider, model.ModeRace, h.opts.TextWords, h.log)
	r.started = true
	r.winner = ""
	for _, other := range r.members {
		if other.joined {
			other.entry.Status = model.StatusActive
			other.entry.Progress = 0
			other.entry.WPM = 0
		}
	}
	h.log.Info("race started", zap.String("room", r.id), zap.Int("players", r.joinedCount()))
	h.broadcast(r, race.Envelope{Type: race.TypeStart, Room: r.id, Text: r.text, Timestamp: h.now()})
	h.broadcastRoster(r)
}

func (h *Hub) progress(r *room, m *member, env race.Envelope) {
	if !m.joined {
		return
	}
	m.entry.Progress = env.Progress
	m.entry.WPM = env.WPM
	if m.entry.Status != model.StatusFinished {
		m.entry.Status = model.StatusActive
	}
	if env.Progress >= 100 {
		m.entry.Status = model.StatusFinished
	}
	h.broadcastRoster(r)
	if env.Progress >= 100 {
		h.declareWinner(r, m.entry.Player)
	}
}

// finish records the finisher and returns the result to persist, or nil
// when the message is ignored.
func (h *Hub) finish(r *room, m *member, env race.Envelope) *model.Result {
	if !m.joined {
		return nil
	}
	m.entry.Progress = 100
	m.entry.Status = model.StatusFinished
	if env.WPM > 0 {
		m.entry.WPM = env.WPM
	}
	h.broadcastRoster(r)
	h.declareWinner(r, m.entry.Player)

	win := r.winner == m.entry.Player
	return &model.Result{
		Player:      m.entry.Player,
		Mode:        model.ModeRace,
		WPM:         env.WPM,
		Accuracy:    env.Accuracy,
		WordsTyped:  env.WordsTyped,
		DurationMs:  env.DurationMs,
		IsWin:       &win,
		CompletedAt: h.opts.Clock(),
	}
}

func (h *Hub) store(ctx context.Context, roomID string, res model.Result) {
	if h.opts.Submitter == nil {
		return
	}
	if err := h.opts.Submitter.SubmitResult(ctx, res); err != nil {
		h.log.Warn("failed to store race result", zap.String("room", roomID), zap.String("player", res.Player), zap.Error(err))
	}
}

// declareWinner sets the winner if absent and announces it.
func (h *Hub) declareWinner(r *room, player string) {
	if r.winner != "" || !r.started {
		return
	}
	r.winner = player
	if h.opts.Metrics != nil {
		h.opts.Metrics.Finishes.Inc()
	}
	h.log.Info("race decided", zap.String("room", r.id), zap.String("winner", player))
	h.broadcast(r, race.Envelope{Type: race.TypeFinish, Room: r.id, Winner: player, Timestamp: h.now()})
}

func (h *Hub) broadcastRoster(r *room) {
	h.broadcast(r, race.Envelope{Type: race.TypePlayerUpdate, Room: r.id, Players: r.roster(), Timestamp: h.now()})
}

func (h *Hub) broadcast(r *room, env race.Envelope) {
	data, err := race.Encode(env)
	if err != nil {
		h.log.Error("failed to encode broadcast", zap.Error(err))
		return
	}
	for name, m := range r.members {
		if !m.joined {
			continue
		}
		if err := m.peer.Send(data); err != nil {
			h.log.Warn("failed to send to player", zap.String("room", r.id), zap.String("player", name), zap.Error(err))
		}
	}
	if h.opts.Metrics != nil {
		h.opts.Metrics.Broadcasts.WithLabelValues(string(env.Type)).Inc()
	}
}

func (h *Hub) send(m *member, env race.Envelope) {
	data, err := race.Encode(env)
	if err != nil {
		return
	}
	if err := m.peer.Send(data); err != nil {
		h.log.Warn("failed to send to player", zap.String("player", m.entry.Player), zap.Error(err))
	}
}

func (h *Hub) now() int64 {
	return h.opts.Clock().UnixMilli()
}

func (r *room) joinedCount() int {
	n := 0
	for _, m := range r.members {
		if m.joined {
			n++
		}
	}
	return n
}

// roster returns joined members sorted by name.
func (r *room) roster() []model.RosterEntry {
	out := make([]model.RosterEntry, 0, len(r.members))
	for _, m := range r.members {
		if m.joined {
			out = append(out, m.entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Player < out[j].Player })
	return out
}

// Room returns a snapshot of roomID.
func (h *Hub) Room(roomID string) (Snapshot, bool) {
	h.mu.Lock()
	r, ok := h.rooms[roomID]
	h.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{ID: r.id, Started: r.started, Text: r.text, Winner: r.winner, Roster: r.roster()}, true
}

// RoomCount returns the number of live rooms.
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}
