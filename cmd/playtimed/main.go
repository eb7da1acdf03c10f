// Package main is the CLI entry point for playtimed.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"playtimed/internal/backend"
	"playtimed/internal/config"
	"playtimed/internal/daemon"
	"playtimed/internal/domain"
	"playtimed/internal/infra"
	"playtimed/internal/ledger"
	"playtimed/internal/matcher"
	"playtimed/internal/policy"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "playtimed",
	Short: "Parental-control watchdog for graphical sessions",
	Long: `playtimed watches a user's graphical session for windows whose command
line or title matches configured patterns, accumulates their run-time
across restarts and reboots, warns before the daily budget runs out and
terminates matched processes once the budget or the allowed time-of-day
window is exceeded.`,
	Version: Version,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the watchdog daemon",
	Long: `Runs the polling loop: enumerate windows, account matched processes,
evaluate the budget and act. The ledger is persisted after every scan
and on shutdown, so a crash loses at most one interval of accounting.`,
	RunE: runRun,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's accumulated time and daemon liveness",
	RunE:  runStatus,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

var (
	flagConfig      string
	flagUser        string
	flagCmdPattern  string
	flagTitle       string
	flagLimit       int64
	flagWarnBefore  int64
	flagInterval    int
	flagWindowStart string
	flagWindowEnd   string
	flagBackend     string
	flagStorePath   string
	flagStoreDriver string
	flagAccrueAll   bool
	flagCmdTimeout  int
	flagLogFile     string
	jsonOutput      bool
)

func init() {
	for _, c := range []*cobra.Command{runCmd, statusCmd} {
		c.Flags().StringVar(&flagConfig, "config", "", "Path to YAML config file")
		c.Flags().StringVarP(&flagUser, "user", "u", "", "Username that owns the graphical session")
		c.Flags().Int64Var(&flagLimit, "limit", 0, "Hard time limit in seconds (default 7200)")
		c.Flags().StringVarP(&flagStorePath, "store", "f", "", "Path to the persistent ledger store")
		c.Flags().StringVar(&flagStoreDriver, "store-driver", "", "Ledger store driver: file or sqlcipher")
	}

	runCmd.Flags().StringVar(&flagCmdPattern, "cmd-pattern", "", "Regex matched against the process command line")
	runCmd.Flags().StringVar(&flagTitle, "title-pattern", "", "Regex matched against the window title")
	runCmd.Flags().Int64Var(&flagWarnBefore, "warn-before", 0, "Seconds before the limit to warn (default 900)")
	runCmd.Flags().IntVar(&flagInterval, "interval", 0, "Seconds between scans (default 10)")
	runCmd.Flags().StringVar(&flagWindowStart, "window-start", "", "Allowed window start, HH:MM (default 12:00)")
	runCmd.Flags().StringVar(&flagWindowEnd, "window-end", "", "Allowed window end, HH:MM (default 21:00)")
	runCmd.Flags().StringVarP(&flagBackend, "backend", "b", "", "Window backend: kdotool, xdotool or niri")
	runCmd.Flags().BoolVar(&flagAccrueAll, "accrue-all", false, "Account every matched window per tick, not just the first")
	runCmd.Flags().IntVar(&flagCmdTimeout, "command-timeout", 0, "Timeout in seconds for external session commands (default 5)")
	runCmd.Flags().StringVar(&flagLogFile, "log-file", "", "Log file path (default stderr)")

	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig builds the effective configuration: defaults, then the
// YAML file, then any flag the user set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	if flagConfig != "" {
		if err := cfg.LoadFile(flagConfig); err != nil {
			return nil, err
		}
	}

	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	set("user", func() { cfg.User = flagUser })
	set("cmd-pattern", func() { cfg.CommandPattern = flagCmdPattern })
	set("title-pattern", func() { cfg.TitlePattern = flagTitle })
	set("limit", func() { cfg.LimitSeconds = flagLimit })
	set("warn-before", func() { cfg.WarnBeforeSeconds = flagWarnBefore })
	set("interval", func() { cfg.IntervalSeconds = flagInterval })
	set("window-start", func() { cfg.WindowStart = flagWindowStart })
	set("window-end", func() { cfg.WindowEnd = flagWindowEnd })
	set("backend", func() { cfg.Backend = flagBackend })
	set("store", func() { cfg.Store.Path = flagStorePath })
	set("store-driver", func() { cfg.Store.Driver = flagStoreDriver })
	set("accrue-all", func() { cfg.AccrueAll = flagAccrueAll })
	set("command-timeout", func() { cfg.CommandTimeoutSeconds = flagCmdTimeout })
	set("log-file", func() { cfg.LogFile = flagLogFile })

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStore opens the configured ledger store.
func openStore(cfg *config.Config) (domain.LedgerStore, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLCipher:
		key, err := infra.EnsureStoreKey(cfg.StateDir())
		if err != nil {
			return nil, fmt.Errorf("failed to obtain store key: %w", err)
		}
		return infra.NewSQLLedgerStore(cfg.StorePath(), key)
	default:
		return infra.NewFileLedgerStore(cfg.StorePath()), nil
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := createLogger(cfg.LogFile)
	defer func() { _ = logger.Sync() }()

	m, err := matcher.New(cfg.CommandPattern, cfg.TitlePattern)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	runner, err := infra.NewUserSessionRunner(cfg.User, cfg.CommandTimeout())
	if err != nil {
		return err
	}
	be, err := backend.New(backend.Kind(cfg.Backend), runner, logger)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// Fatal on an unreadable store: discarding history would let the
	// user evade the budget by corrupting the file.
	l, err := ledger.Open(store, logger)
	if err != nil {
		return err
	}

	windowStart, windowEnd := cfg.Window()
	engine := policy.Engine{
		LimitSeconds:      cfg.LimitSeconds,
		WarnBeforeSeconds: cfg.WarnBeforeSeconds,
		WindowStart:       windowStart,
		WindowEnd:         windowEnd,
	}

	watcher := daemon.NewWatcher(
		daemon.Config{
			Interval:  cfg.Interval(),
			User:      cfg.User,
			AccrueAll: cfg.AccrueAll,
		},
		be,
		infra.NewProcessInspector(),
		m,
		l,
		engine,
		infra.NewSessionActionExecutor(runner),
		infra.NewFileRunState(cfg.RunStatePath()),
		logger,
	)

	// A termination signal cancels the context; the watcher persists
	// the ledger before returning and we exit 0.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return watcher.Run(ctx)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if flagConfig != "" {
		if err := cfg.LoadFile(flagConfig); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("user") {
		cfg.User = flagUser
	}
	if cmd.Flags().Changed("limit") {
		cfg.LimitSeconds = flagLimit
	}
	if cmd.Flags().Changed("store") {
		cfg.Store.Path = flagStorePath
	}
	if cmd.Flags().Changed("store-driver") {
		cfg.Store.Driver = flagStoreDriver
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Load()
	if err != nil {
		return err
	}

	fmt.Println("\n=== playtimed Status ===")

	state, err := infra.NewFileRunState(cfg.RunStatePath()).Get()
	if err == nil && state != nil && infra.IsRunning(int32(state.PID)) {
		fmt.Printf("Daemon: RUNNING (pid %d, user %s)\n", state.PID, state.User)
		if state.LastHeartbeat > 0 {
			lastBeat := time.Unix(state.LastHeartbeat, 0)
			fmt.Printf("Last heartbeat: %s ago\n", time.Since(lastBeat).Round(time.Second))
		}
	} else {
		fmt.Println("Daemon: NOT RUNNING")
	}

	today := domain.Today()
	var total int64
	var keys []domain.LedgerKey
	for k, v := range entries {
		if k.Day == today {
			total += v
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	fmt.Printf("\nStore: %s\n", store.Path())
	fmt.Printf("Today: %s used of %s\n",
		time.Duration(total)*time.Second,
		time.Duration(cfg.LimitSeconds)*time.Second)
	remaining := cfg.LimitSeconds - total
	if remaining < 0 {
		remaining = 0
	}
	fmt.Printf("Remaining: %s\n", time.Duration(remaining)*time.Second)

	if len(keys) > 0 {
		fmt.Println("\nToday's entries:")
		for _, k := range keys {
			fmt.Printf("  %-40s %s\n", k, time.Duration(entries[k])*time.Second)
		}
	}

	fmt.Println("========================")
	return nil
}

func createLogger(logFile string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if logFile != "" {
		cfg.OutputPaths = []string{logFile}
		cfg.ErrorOutputPaths = []string{logFile}
	}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("playtimed %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
