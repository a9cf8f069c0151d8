// Package main provides the CLI entrypoint for typerace.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/typerace/internal/config"
	"github.com/verte-zerg/typerace/internal/generator"
	"github.com/verte-zerg/typerace/internal/logging"
	"github.com/verte-zerg/typerace/internal/model"
	"github.com/verte-zerg/typerace/internal/provider"
	"github.com/verte-zerg/typerace/internal/replay"
	"github.com/verte-zerg/typerace/internal/session"
	"github.com/verte-zerg/typerace/internal/store"
	"github.com/verte-zerg/typerace/internal/tui"
	"github.com/verte-zerg/typerace/internal/wordlist"
)

const (
	defaultLang        = "en"
	defaultMode        = "solo"
	defaultTime        = 30
	defaultCaps        = 0.0
	defaultPunct       = 0.0
	defaultCurveWindow = 20
	defaultLogLevel    = "info"
	httpTimeout        = 5 * time.Second
)

const defaultPunctSet = ".,!?;:"

var (
	practiceLang     string
	practiceMode     string
	practiceWords    int
	practiceTime     int
	practiceCaps     float64
	practicePunct    float64
	practicePunctSet string
	practiceGhost    bool
	practiceBot      string
	practiceServer   string

	logFile  string
	logLevel string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "typerace",
		Short:         "Terminal typing speed test with ghost replays and races",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().StringVar(&practiceLang, "lang", defaultLang, "language code (default: en)")
	rootCmd.Flags().StringVar(&practiceMode, "mode", defaultMode, "run mode: solo or code")
	rootCmd.Flags().IntVar(&practiceWords, "words", 0, "end the run after N words (overrides --time)")
	rootCmd.Flags().IntVar(&practiceTime, "time", defaultTime, "run length in seconds (0 = until the text ends)")
	rootCmd.Flags().Float64Var(&practiceCaps, "caps", defaultCaps, "probability of capitalized first letter (0-1)")
	rootCmd.Flags().Float64Var(&practicePunct, "punct", defaultPunct, "punctuation probability per word (0-1)")
	rootCmd.Flags().StringVar(&practicePunctSet, "punct-set", defaultPunctSet, "punctuation set")
	rootCmd.Flags().BoolVar(&practiceGhost, "ghost", false, "race against your last run on the same text")
	rootCmd.Flags().StringVar(&practiceBot, "bot", "", "race a bot: easy, medium, hard or expert")
	rootCmd.Flags().StringVar(&practiceServer, "server", "", "room server for texts and score upload (optional)")

	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", config.DefaultLogPath(), "log file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newLangsCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newRaceCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "lang", &practiceLang, fileCfg.Practice.Lang)
	applyStringConfig(cmd, "mode", &practiceMode, fileCfg.Practice.Mode)
	applyIntConfig(cmd, "words", &practiceWords, fileCfg.Practice.Words)
	applyIntConfig(cmd, "time", &practiceTime, fileCfg.Practice.Time)
	applyFloatConfig(cmd, "caps", &practiceCaps, fileCfg.Practice.CapsPct)
	applyFloatConfig(cmd, "punct", &practicePunct, fileCfg.Practice.PunctPct)
	applyStringConfig(cmd, "punct-set", &practicePunctSet, fileCfg.Practice.PunctSet)
	applyBoolConfig(cmd, "ghost", &practiceGhost, fileCfg.Practice.Ghost)
	applyStringConfig(cmd, "bot", &practiceBot, fileCfg.Practice.Bot)
	applyLogConfig(cmd, fileCfg)

	mode, err := model.ParseMode(practiceMode)
	if err != nil {
		return err
	}
	bot, err := replay.ParseDifficulty(practiceBot)
	if err != nil {
		return err
	}
	cfg := model.Config{
		Lang:     practiceLang,
		Mode:     mode,
		Limit:    resolveLimit(practiceWords, practiceTime),
		Words:    practiceWords,
		CapsPct:  practiceCaps,
		PunctPct: practicePunct,
		PunctSet: practicePunctSet,
		Ghost:    practiceGhost,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	log, err := logging.New(logging.Options{File: logFile, Level: logLevel})
	if err != nil {
		return fmt.Errorf("failed to init logging: %w", err)
	}
	defer syncLogger(log)

	wordPath := config.DefaultWordListPath(cfg.Lang)
	words, err := wordlist.Load(cfg.Lang, wordPath)
	if err != nil {
		return wordListLoadError(cfg.Lang, wordPath, err)
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	local := provider.NewLocal(generator.New(), words, generator.Options{
		CapsPct:  cfg.CapsPct,
		PunctPct: cfg.PunctPct,
		PunctSet: []rune(cfg.PunctSet),
	})
	var texts provider.Provider = local
	var submitter store.Submitter = st
	if practiceServer != "" {
		client := &http.Client{Timeout: httpTimeout}
		base := provider.HTTPBase(practiceServer)
		texts = provider.Chain{provider.NewHTTP(base, client), texts}
		submitter = store.Multi{st, store.NewRemote(base, client)}
	}

	sess := session.New(session.Options{
		Mode:      cfg.Mode,
		Limit:     cfg.Limit,
		Ghost:     cfg.Ghost,
		Bot:       bot,
		Provider:  texts,
		Records:   st,
		Submitter: submitter,
		Logger:    log,
	})
	log.Info("practice started",
		zap.String("mode", string(cfg.Mode)),
		zap.String("limit", string(cfg.Limit.Kind)),
		zap.Int("value", cfg.Limit.Value),
		zap.Bool("ghost", cfg.Ghost),
		zap.String("bot", string(bot)))
	return runTUI(sess, log)
}

func runTUI(sess *session.Session, log *zap.Logger) error {
	program := tea.NewProgram(tui.NewModel(sess, log), tea.WithAltScreen())
	_, runErr := program.Run()
	if err := sess.Close(); err != nil {
		log.Warn("failed to close session", zap.Error(err))
	}
	if runErr != nil {
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}
	return nil
}

func resolveLimit(words, seconds int) model.Limit {
	if words > 0 {
		return model.Limit{Kind: model.LimitWords, Value: words}
	}
	return model.Limit{Kind: model.LimitTime, Value: seconds}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newLangsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "langs",
		Short: "List available wordlist languages",
		Args:  cobra.NoArgs,
		RunE:  runLangsCmd,
	}
}

func runLangsCmd(cmd *cobra.Command, _ []string) error {
	langs, err := wordlist.Languages(config.DefaultWordListDir())
	if err != nil {
		return err
	}
	for _, lang := range langs {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), lang); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyLogConfig(cmd *cobra.Command, fileCfg config.FileConfig) {
	applyStringConfig(cmd, "log-file", &logFile, fileCfg.Log.File)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
}

func syncLogger(log *zap.Logger) {
	if err := log.Sync(); err != nil {
		// Best-effort flush; stderr syncs fail on some terminals.
		_ = err
	}
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# typerace configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# lang = "en"             # Language code (default %q)
# mode = %q            # solo or code
# time = %d               # Run length in seconds (0 = until the text ends)
# words = 0               # End after N words instead of a timer
# caps = %.2f             # Probability of capitalized first letter (0-1)
# punct = %.2f            # Punctuation probability per word (0-1)
# punct-set = %q      # Punctuation set
# ghost = false           # Show a ghost of your last run on the same text
# bot = ""                # Race a bot: easy, medium, hard or expert

[race]
# server = %q
# room = %q
# name = "your-name"

[server]
# addr = %q
# room-size = %d
# text-words = %d
# api-limit = %d          # /api requests per client per minute (negative disables)

[log]
# file = %q
# level = %q
`,
		defaultLang,
		defaultMode,
		defaultTime,
		defaultCaps,
		defaultPunct,
		defaultPunctSet,
		defaultRaceServer,
		defaultRoom,
		defaultAddr,
		defaultRoomSize,
		defaultTextWords,
		defaultAPILimit,
		config.DefaultLogPath(),
		defaultLogLevel,
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.Mode == model.ModeRace {
		return fmt.Errorf("use `typerace race` to join a race room")
	}
	if cfg.Words < 0 {
		return fmt.Errorf("--words must be >= 0")
	}
	if cfg.Limit.Kind == model.LimitTime && cfg.Limit.Value < 0 {
		return fmt.Errorf("--time must be >= 0")
	}
	if cfg.CapsPct < 0 || cfg.CapsPct > 1 {
		return fmt.Errorf("--caps must be between 0 and 1")
	}
	if cfg.PunctPct < 0 || cfg.PunctPct > 1 {
		return fmt.Errorf("--punct must be between 0 and 1")
	}
	if cfg.PunctPct > 0 && cfg.PunctSet == "" {
		return fmt.Errorf("--punct-set must not be empty")
	}
	return nil
}

func wordListLoadError(lang, path string, err error) error {
	lines := []string{
		fmt.Sprintf("failed to load word list: %v", err),
		fmt.Sprintf("expected word list at: %s", path),
		fmt.Sprintf("language %q not found", lang),
		"Run: typerace langs",
		fmt.Sprintf("Add one word per line to %s", path),
	}
	return fmt.Errorf("%s", strings.Join(lines, "\n"))
}

func newTimeoutContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), httpTimeout)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
