package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ibroadcast/ibsync/internal/config"
	"github.com/ibroadcast/ibsync/internal/ibsdk"
	"github.com/ibroadcast/ibsync/internal/utils"
	"github.com/ibroadcast/ibsync/internal/version"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var home, _ = os.UserHomeDir()

const (
	envPrefix = "IBSYNC"
	dotEnv    = ".env"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ibsync [username password]",
		Short:   "Upload a local music library to iBroadcast",
		Long:    "Scans a directory for supported media files and uploads the ones the library does not have yet.",
		Version: version.Detailed(),
		Args:    validateArgs,
		RunE:    runSync,
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringP("root", "r", ".", "Directory to scan")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers, "Files hashed and uploaded at once")
	cmd.Flags().StringSlice("ignore", nil, "Gitignore-style pattern to exclude (repeatable)")
	cmd.Flags().Bool("fold-case", false, "Match extensions case-insensitively")
	cmd.Flags().BoolP("yes", "y", false, "Upload without asking for confirmation")
	cmd.Flags().String("status-url", ibsdk.DefaultStatusURL, "Login endpoint")
	cmd.Flags().String("sync-url", ibsdk.DefaultSyncURL, "Library and upload endpoint")
	cmd.Flags().Duration("timeout", 0, "Timeout of a single request (0 for none)")
	cmd.Flags().String("log-file", config.DefaultLogFilePath, "Log file")
	cmd.Flags().BoolP("verbose", "v", false, "Show debug logs on the console")

	cmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "Config file")
	cmd.PersistentFlags().String("journal", config.DefaultJournalPath, "Upload history database")

	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func validateArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 0 && len(args) != 2 {
		return fmt.Errorf("expected <username> <password> or no arguments, got %d argument(s)", len(args))
	}
	return nil
}

func main() {
	level := slog.LevelWarn
	for _, arg := range os.Args[1:] {
		if arg == "-v" || arg == "--verbose" {
			level = slog.LevelDebug
		}
	}

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadConfig merges flags, IBSYNC_* env vars, a .env file and the config file.
// Positional credentials are applied by the caller.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if utils.FileExists(dotEnv) {
		if err := godotenv.Load(dotEnv); err != nil {
			return nil, fmt.Errorf("load %s: %w", dotEnv, err)
		}
	}

	v := viper.New()
	v.SetDefault("root_dir", ".")
	v.SetDefault("workers", config.DefaultWorkers)
	v.SetDefault("status_url", ibsdk.DefaultStatusURL)
	v.SetDefault("sync_url", ibsdk.DefaultSyncURL)
	v.SetDefault("journal_path", config.DefaultJournalPath)
	v.SetDefault("log_file", config.DefaultLogFilePath)

	configPath := resolveConfigPath(cmd)
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config read '%s': %w", configPath, err)
			}
		}
	}

	bindFlag(v, cmd, "root_dir", "root")
	bindFlag(v, cmd, "workers", "workers")
	bindFlag(v, cmd, "ignore", "ignore")
	bindFlag(v, cmd, "fold_case", "fold-case")
	bindFlag(v, cmd, "yes", "yes")
	bindFlag(v, cmd, "status_url", "status-url")
	bindFlag(v, cmd, "sync_url", "sync-url")
	bindFlag(v, cmd, "timeout", "timeout")
	bindFlag(v, cmd, "log_file", "log-file")
	bindFlag(v, cmd, "journal_path", "journal")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	return &config.Config{
		Path:        configPath,
		Username:    v.GetString("username"),
		Password:    v.GetString("password"),
		RootDir:     v.GetString("root_dir"),
		StatusURL:   v.GetString("status_url"),
		SyncURL:     v.GetString("sync_url"),
		Workers:     v.GetInt("workers"),
		Ignore:      v.GetStringSlice("ignore"),
		FoldCase:    v.GetBool("fold_case"),
		JournalPath: v.GetString("journal_path"),
		LogFile:     v.GetString("log_file"),
		AssumeYes:   v.GetBool("yes"),
		Timeout:     v.GetDuration("timeout"),
	}, nil
}

func bindFlag(v *viper.Viper, cmd *cobra.Command, key, name string) {
	if flag := cmd.Flags().Lookup(name); flag != nil {
		_ = v.BindPFlag(key, flag)
	}
}

// attachLogFile adds a file handler next to the current default logger. The
// returned func restores the previous logger and closes the file.
func attachLogFile(path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}

	if err := utils.EnsureParent(path); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	interceptor := utils.NewLogInterceptor(file)
	fileHandler := slog.NewTextHandler(interceptor, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		// the interceptor prefixes its own timestamp
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})

	previous := slog.Default()
	slog.SetDefault(slog.New(utils.NewMultiLogHandler(previous.Handler(), fileHandler)))

	return func() {
		slog.SetDefault(previous)
		closeQuietly(interceptor)
		closeQuietly(file)
	}, nil
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Debug("close", "error", err)
	}
}
