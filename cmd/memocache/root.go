package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/memocache/config"
)

// flagOrEnv returns the flag value, else the environment variable, else def.
func flagOrEnv(cmd *cobra.Command, flag, env, def string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	if v, ok := os.LookupEnv(env); ok {
		return v
	}
	return def
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "memocache",
		Short:         "TTL caching demos: memoized functions and cached HTTP requests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "YAML configuration file (env MEMOCACHE_CONFIG)")
	root.PersistentFlags().String("log-level", "", "log level override: debug|info|warn|error (env MEMOCACHE_LOG_LEVEL)")

	root.AddCommand(newMemoCommand(), newHTTPCommand(), newHealthCommand())
	return root
}

// loadConfig reads the configuration named by flags or environment, applying
// the log level override.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if path := flagOrEnv(cmd, "config", "MEMOCACHE_CONFIG", ""); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}
	if level := flagOrEnv(cmd, "log-level", "MEMOCACHE_LOG_LEVEL", ""); level != "" {
		cfg.Observe.Logging.Enabled = true
		cfg.Observe.Logging.Level = level
	}
	return cfg, cfg.Validate()
}

// openRuntime loads configuration and opens its runtime.
func openRuntime(cmd *cobra.Command) (*config.Runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return config.Open(cmd.Context(), cfg)
}

func closeRuntime(rt *config.Runtime) {
	_ = rt.Close(context.Background())
}
