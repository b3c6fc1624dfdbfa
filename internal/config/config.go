package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ibroadcast/ibsync/internal/ibsdk"
	"github.com/ibroadcast/ibsync/internal/utils"
)

var (
	home, _            = os.UserHomeDir()
	DefaultConfigDir   = filepath.Join(home, ".ibsync")
	DefaultConfigPath  = filepath.Join(DefaultConfigDir, "config.json")
	DefaultJournalPath = filepath.Join(DefaultConfigDir, "journal.db")
	DefaultLogFilePath = filepath.Join(DefaultConfigDir, "logs", "ibsync.log")
	DefaultWorkers     = 1
)

var (
	ErrNoUsername     = errors.New("username is required")
	ErrNoPassword     = errors.New("password is required")
	ErrInvalidWorkers = errors.New("workers must be greater than zero")
	ErrInvalidTimeout = errors.New("timeout cannot be negative")
	ErrRootDir        = errors.New("root directory is not accessible")
)

type Config struct {
	Username    string        `json:"username"`
	Password    string        `json:"password,omitempty"`
	RootDir     string        `json:"root_dir"`
	StatusURL   string        `json:"status_url"`
	SyncURL     string        `json:"sync_url"`
	Workers     int           `json:"workers"`
	Ignore      []string      `json:"ignore,omitempty"`
	FoldCase    bool          `json:"fold_case"`
	JournalPath string        `json:"journal_path"`
	LogFile     string        `json:"log_file"`
	AssumeYes   bool          `json:"yes"`
	Timeout     time.Duration `json:"timeout"`
	Path        string        `json:"-"`
}

// Validate checks the config and resolves every path in it to an absolute one
func (c *Config) Validate() error {
	if c.Username == "" {
		return ErrNoUsername
	}
	if c.Password == "" {
		return ErrNoPassword
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}

	if err := c.SDKConfig().Validate(); err != nil {
		return err
	}

	rootDir, err := utils.ResolvePath(c.RootDir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRootDir, err)
	}
	if !utils.DirExists(rootDir) {
		return fmt.Errorf("%w: %s", ErrRootDir, rootDir)
	}
	c.RootDir = rootDir

	if c.JournalPath != "" {
		if c.JournalPath, err = utils.ResolvePath(c.JournalPath); err != nil {
			return fmt.Errorf("journal path: %w", err)
		}
	}
	if c.LogFile != "" {
		if c.LogFile, err = utils.ResolvePath(c.LogFile); err != nil {
			return fmt.Errorf("log file: %w", err)
		}
	}

	return nil
}

// SDKConfig derives the remote client configuration
func (c *Config) SDKConfig() *ibsdk.Config {
	cfg := ibsdk.DefaultConfig()
	if c.StatusURL != "" {
		cfg.StatusURL = c.StatusURL
	}
	if c.SyncURL != "" {
		cfg.SyncURL = c.SyncURL
	}
	cfg.Timeout = c.Timeout
	return cfg
}

func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.Bool("password_set", c.Password != ""),
		slog.String("root_dir", c.RootDir),
		slog.String("status_url", c.StatusURL),
		slog.String("sync_url", c.SyncURL),
		slog.Int("workers", c.Workers),
		slog.Any("ignore", c.Ignore),
		slog.Bool("fold_case", c.FoldCase),
		slog.String("journal_path", c.JournalPath),
		slog.String("config", c.Path),
	)
}
