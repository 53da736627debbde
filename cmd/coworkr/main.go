package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hrygo/coworkr/internal/profile"
)

var (
	version = "0.1.0"

	v = profile.NewViper()

	rootCmd = &cobra.Command{
		Use:   "coworkr",
		Short: "A voice-first workplace assistant for tasks, calendars and deals.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cfgFile := v.GetString("config"); cfgFile != "" {
				v.SetConfigFile(cfgFile)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("failed to read config %s: %w", cfgFile, err)
				}
			}
			setupLogger(v.GetString("log.level"), v.GetString("log.format"))
			return nil
		},
		SilenceUsage: true,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (yaml, toml or json)")
	flags.String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	flags.String("data", ".", "data directory")
	flags.String("driver", "sqlite", "database driver (sqlite or postgres)")
	flags.String("dsn", "", "database source name")
	flags.String("timezone", "Local", "IANA timezone used to read spoken dates")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text or json)")

	for key, name := range map[string]string{
		"config":     "config",
		"mode":       "mode",
		"data":       "data",
		"driver":     "driver",
		"dsn":        "dsn",
		"timezone":   "timezone",
		"log.level":  "log-level",
		"log.format": "log-format",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
	v.Set("version", version)

	rootCmd.AddCommand(serveCmd, chatCmd, mcpCmd, seedCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadProfile resolves and validates the runtime profile.
func loadProfile() (*profile.Profile, error) {
	p := profile.FromViper(v)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// setupLogger installs the default slog handler. Logs go to stderr so the
// MCP stdio transport keeps stdout to itself.
func setupLogger(level, format string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
