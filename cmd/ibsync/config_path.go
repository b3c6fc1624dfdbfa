package main

import (
	"os"
	"path/filepath"

	"github.com/ibroadcast/ibsync/internal/config"
	"github.com/ibroadcast/ibsync/internal/utils"
	"github.com/spf13/cobra"
)

const configPathEnv = "IBSYNC_CONFIG_PATH"

// resolveConfigPath picks the config file, honoring (in order):
// 1) an explicitly set --config flag
// 2) IBSYNC_CONFIG_PATH
// 3) an existing file in ~/.ibsync or ~/.config/ibsync
//
// An empty result means no config file is read.
func resolveConfigPath(cmd *cobra.Command) string {
	if cfgFlag := cmd.Flag("config"); cfgFlag != nil && cfgFlag.Changed {
		return cfgFlag.Value.String()
	}

	if envPath := os.Getenv(configPathEnv); envPath != "" {
		return envPath
	}

	candidates := []string{
		config.DefaultConfigPath,
		filepath.Join(home, ".config", "ibsync", "config.json"),
	}
	for _, candidate := range candidates {
		if utils.FileExists(candidate) {
			return candidate
		}
	}

	return ""
}
