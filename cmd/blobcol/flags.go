package main

import (
	"flag"
	"fmt"
	"os"
)

// CLIConfig holds parsed command-line options.
type CLIConfig struct {
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	MetricsPort int
	ShowVersion bool
	ShowHelp    bool
	Validate    bool

	// Command is the subcommand (put, get, list, delete) and Args its
	// positional arguments.
	Command string
	Args    []string

	// List options
	Before string
	Limit  int
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config", "", "Path to YAML configuration file")
	flag.StringVar(&cfg.ConfigPath, "c", "", "Path to YAML configuration file (shorthand)")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFormat, "log-format", "text", "Log format (json, text)")
	flag.IntVar(&cfg.MetricsPort, "metrics-port", 0, "Prometheus metrics port (0 disables)")
	flag.StringVar(&cfg.Before, "before", "", "Exclusive upper bound for list (document id)")
	flag.IntVar(&cfg.Limit, "limit", 0, "Page size for list (0 uses the configured default)")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Usage = printHelp
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		cfg.Command = args[0]
		cfg.Args = args[1:]
	}
	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}
	if cfg.Limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	return nil
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `%s - date-partitioned document store over NATS JetStream ObjectStore

Usage:
  %s [flags] put [json]      store a document (reads stdin when no argument)
  %s [flags] get <id>        fetch a document by id
  %s [flags] list            list most recent documents
  %s [flags] delete <id>     delete a document by id

Flags:
`, appName, appName, appName, appName, appName)
	flag.PrintDefaults()
}
