package race

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/typerace/internal/logging"
	"github.com/verte-zerg/typerace/internal/model"
)

// ErrNotJoined is returned when an operation needs a joined room.
var ErrNotJoined = errors.New("not joined to a room")

// State is the membership state of a client in its room.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateJoined       State = "joined"
	StateRacing       State = "racing"
	StateFinished     State = "finished"
)

// Final is the terminal result published once on local completion.
type Final struct {
	WPM        float64
	Accuracy   float64
	WordsTyped int
	Duration   time.Duration
}

// Event is what an inbound message changed, for the caller to react to.
type Event struct {
	Type   MessageType
	Text   string
	Roster []model.RosterEntry
	Winner string
}

const inboxSize = 64

// Client is one participant's view of a race room. Inbound frames are queued
// on Inbox by the transport and applied with HandleMessage on the caller's
// event loop.
type Client struct {
	transport Transport
	room      string
	player    string
	log       *zap.Logger
	throttle  *Throttle
	clock     func() time.Time

	mu         sync.Mutex
	state      State
	text       string
	roster     []model.RosterEntry
	winner     string
	finishSent bool

	inbox chan []byte
	done  chan struct{}
	once  sync.Once
}

// Options configures a Client.
type Options struct {
	Room     string
	Player   string
	Interval time.Duration
	Logger   *zap.Logger
	Clock    func() time.Time
}

// NewClient creates a disconnected client over t.
func NewClient(t Transport, opts Options) *Client {
	log := logging.OrNop(opts.Logger)
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Client{
		transport: t,
		room:      opts.Room,
		player:    opts.Player,
		log:       log.With(zap.String("room", opts.Room), zap.String("player", opts.Player)),
		throttle:  NewThrottle(opts.Interval),
		clock:     clock,
		state:     StateDisconnected,
		inbox:     make(chan []byte, inboxSize),
		done:      make(chan struct{}),
	}
}

// Connect joins the room and announces the player's identity.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return fmt.Errorf("connect from state %s", c.state)
	}
	c.state = StateConnecting
	c.mu.Unlock()

	c.transport.Subscribe(c.enqueue)
	if err := c.transport.Join(ctx, c.room, c.player); err != nil {
		c.setState(StateDisconnected)
		return fmt.Errorf("failed to join room %s: %w", c.room, err)
	}
	c.setState(StateJoined)
	if err := c.publish(ctx, Envelope{Type: TypeJoin, Room: c.room, Player: c.player}); err != nil {
		c.setState(StateDisconnected)
		return fmt.Errorf("failed to announce player: %w", err)
	}
	return nil
}

func (c *Client) enqueue(data []byte) {
	select {
	case c.inbox <- data:
	case <-c.done:
	}
}

// Inbox yields raw frames received from the room. Stop reading once Done is
// closed.
func (c *Client) Inbox() <-chan []byte { return c.inbox }

// Done is closed by Close.
func (c *Client) Done() <-chan struct{} { return c.done }

// HandleMessage applies one inbound frame. Malformed frames are dropped and
// leave all state untouched.
func (c *Client) HandleMessage(data []byte) (Event, error) {
	env, err := Decode(data)
	if err != nil {
		c.log.Warn("dropping malformed room message", zap.Error(err), zap.Int("bytes", len(data)))
		return Event{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch env.Type {
	case TypeStart:
		c.text = env.Text
		c.winner = ""
		c.finishSent = false
		c.throttle.Flush()
		c.state = StateRacing
		return Event{Type: TypeStart, Text: env.Text}, nil
	case TypePlayerUpdate:
		roster := make([]model.RosterEntry, len(env.Players))
		copy(roster, env.Players)
		c.roster = roster
		return Event{Type: TypePlayerUpdate, Roster: c.rosterLocked()}, nil
	case TypeFinish:
		winner := env.Winner
		if winner == "" {
			winner = env.Player
		}
		if c.winner == "" {
			c.winner = winner
		}
		return Event{Type: TypeFinish, Winner: c.winner}, nil
	}
	// Echoes of client-originated types carry nothing to apply.
	return Event{Type: env.Type}, nil
}

// Progress offers a progress update. It is sent now if the throttle allows,
// otherwise it replaces any pending update.
func (c *Client) Progress(ctx context.Context, progress int, wpm float64) error {
	c.mu.Lock()
	if c.state != StateRacing {
		c.mu.Unlock()
		return nil
	}
	u, ok := c.throttle.Offer(c.clock(), Update{Progress: progress, WPM: wpm})
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return c.sendProgress(ctx, u)
}

// Tick sends the pending progress update once the interval has elapsed.
func (c *Client) Tick(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateRacing {
		c.mu.Unlock()
		return nil
	}
	u, ok := c.throttle.Drain(c.clock())
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return c.sendProgress(ctx, u)
}

func (c *Client) sendProgress(ctx context.Context, u Update) error {
	return c.publish(ctx, Envelope{
		Type:      TypeProgress,
		Room:      c.room,
		Player:    c.player,
		Progress:  u.Progress,
		WPM:       u.WPM,
		Timestamp: c.clock().UnixMilli(),
	})
}

// Finish publishes 100% progress and the terminal finish event exactly once.
// Later calls are no-ops.
func (c *Client) Finish(ctx context.Context, f Final) error {
	c.mu.Lock()
	switch c.state {
	case StateRacing:
	case StateJoined, StateFinished:
		c.mu.Unlock()
		return nil
	default:
		c.mu.Unlock()
		return ErrNotJoined
	}
	if c.finishSent {
		c.mu.Unlock()
		return nil
	}
	c.finishSent = true
	c.state = StateFinished
	c.throttle.Flush()
	c.mu.Unlock()

	if err := c.sendProgress(ctx, Update{Progress: 100, WPM: f.WPM}); err != nil {
		c.log.Warn("failed to publish final progress", zap.Error(err))
	}
	return c.publish(ctx, Envelope{
		Type:       TypeFinish,
		Room:       c.room,
		Player:     c.player,
		WPM:        f.WPM,
		Accuracy:   f.Accuracy,
		WordsTyped: f.WordsTyped,
		DurationMs: f.Duration.Milliseconds(),
		Timestamp:  c.clock().UnixMilli(),
	})
}

func (c *Client) publish(ctx context.Context, env Envelope) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	return c.transport.Publish(ctx, env)
}

// Close leaves the room.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		c.setState(StateDisconnected)
		err = c.transport.Close()
	})
	return err
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// State returns the membership state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Roster returns a copy of the latest authoritative roster.
func (c *Client) Roster() []model.RosterEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rosterLocked()
}

func (c *Client) rosterLocked() []model.RosterEntry {
	out := make([]model.RosterEntry, len(c.roster))
	copy(out, c.roster)
	return out
}

// Winner returns the first finisher received, or "".
func (c *Client) Winner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.winner
}

// Decided reports whether a winner is known.
func (c *Client) Decided() bool { return c.Winner() != "" }

// Text returns the shared target of the current race.
func (c *Client) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// Room returns the room identifier.
func (c *Client) Room() string { return c.room }

// Player returns the local participant identifier.
func (c *Client) Player() string { return c.player }
