package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/typerace/internal/config"
	"github.com/verte-zerg/typerace/internal/generator"
	"github.com/verte-zerg/typerace/internal/logging"
	"github.com/verte-zerg/typerace/internal/model"
	"github.com/verte-zerg/typerace/internal/provider"
	"github.com/verte-zerg/typerace/internal/race"
	"github.com/verte-zerg/typerace/internal/room"
	"github.com/verte-zerg/typerace/internal/session"
	"github.com/verte-zerg/typerace/internal/store"
	"github.com/verte-zerg/typerace/internal/wordlist"
)

const (
	defaultRaceServer = "ws://localhost:8080"
	defaultRoom       = "lobby"
	defaultAddr       = ":8080"
	defaultRoomSize   = room.DefaultRoomSize
	defaultTextWords  = room.DefaultTextWords
	defaultAPILimit   = room.DefaultAPILimit
)

var (
	raceServer string
	raceRoom   string
	raceName   string

	serveAddr      string
	serveRoomSize  int
	serveTextWords int
	serveDB        string
	serveAPILimit  int
)

func newRaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "race",
		Short: "Join a multiplayer race room",
		Args:  cobra.NoArgs,
		RunE:  runRaceCmd,
	}
	cmd.Flags().StringVar(&raceServer, "server", defaultRaceServer, "room server address")
	cmd.Flags().StringVar(&raceRoom, "room", defaultRoom, "room id")
	cmd.Flags().StringVar(&raceName, "name", "", "player name (default: random)")
	return cmd
}

func runRaceCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "server", &raceServer, fileCfg.Race.Server)
	applyStringConfig(cmd, "room", &raceRoom, fileCfg.Race.Room)
	applyStringConfig(cmd, "name", &raceName, fileCfg.Race.Name)
	applyLogConfig(cmd, fileCfg)

	cfg := model.RaceConfig{Server: raceServer, Room: raceRoom, Player: raceName}
	if cfg.Player == "" {
		cfg.Player = "player-" + uuid.NewString()[:8]
	}
	if cfg.Room == "" {
		return fmt.Errorf("--room must not be empty")
	}

	log, err := logging.New(logging.Options{File: logFile, Level: logLevel})
	if err != nil {
		return fmt.Errorf("failed to init logging: %w", err)
	}
	defer syncLogger(log)
	log = log.With(zap.String("room", cfg.Room), zap.String("player", cfg.Player))

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	client := race.NewClient(race.NewWSTransport(cfg.Server, log), race.Options{
		Room:   cfg.Room,
		Player: cfg.Player,
		Logger: log,
	})
	ctx, cancel := newTimeoutContext()
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.Server, err)
	}
	log.Info("joined race room", zap.String("server", cfg.Server))

	sess := session.New(session.Options{
		Mode:      model.ModeRace,
		Player:    cfg.Player,
		Race:      client,
		Submitter: st,
		Logger:    log,
	})
	return runTUI(sess, log)
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the race room server",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultAddr, "listen address")
	cmd.Flags().IntVar(&serveRoomSize, "room-size", defaultRoomSize, "players needed to start a race")
	cmd.Flags().IntVar(&serveTextWords, "text-words", defaultTextWords, "words in each race text")
	cmd.Flags().StringVar(&serveDB, "db", config.DefaultServerDBPath(), "score database path")
	cmd.Flags().IntVar(&serveAPILimit, "api-limit", defaultAPILimit, "/api requests per client per minute (negative disables)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "addr", &serveAddr, fileCfg.Server.Addr)
	applyIntConfig(cmd, "room-size", &serveRoomSize, fileCfg.Server.RoomSize)
	applyIntConfig(cmd, "text-words", &serveTextWords, fileCfg.Server.TextWords)
	applyIntConfig(cmd, "api-limit", &serveAPILimit, fileCfg.Server.APILimit)
	applyLogConfig(cmd, fileCfg)
	if serveRoomSize < 1 {
		return fmt.Errorf("--room-size must be >= 1")
	}
	if serveTextWords < 1 {
		return fmt.Errorf("--text-words must be >= 1")
	}

	log, err := logging.New(logging.Options{File: logFile, Level: logLevel, Console: true})
	if err != nil {
		return fmt.Errorf("failed to init logging: %w", err)
	}
	defer syncLogger(log)

	st, err := store.Open(serveDB)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	words := wordlist.Builtin()
	srv := room.NewServer(room.ServerOptions{
		Hub: room.HubOptions{
			RoomSize:  serveRoomSize,
			TextWords: serveTextWords,
			Provider:  provider.NewLocal(generator.New(), words, generator.Options{}),
			Submitter: st,
		},
		Logger:   log,
		APILimit: serveAPILimit,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.Run(ctx, serveAddr); err != nil {
		return fmt.Errorf("room server failed: %w", err)
	}
	log.Info("room server stopped")
	return nil
}
