package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	Capabilities    string
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("SEMBOOT_CONFIG", ""),
		"Path to YAML configuration file, empty for defaults only (env: SEMBOOT_CONFIG)")

	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("SEMBOOT_CONFIG", ""),
		"Path to YAML configuration file, empty for defaults only (env: SEMBOOT_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("SEMBOOT_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: SEMBOOT_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("SEMBOOT_LOG_FORMAT", "json"),
		"Log format: json, text (env: SEMBOOT_LOG_FORMAT)")

	flag.StringVar(&cfg.Capabilities, "capabilities",
		getEnv("SEMBOOT_CAPABILITIES", ""),
		"Comma-separated capability list the build carries (env: SEMBOOT_CAPABILITIES)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("SEMBOOT_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful shutdown timeout (env: SEMBOOT_SHUTDOWN_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Run selection only, print the result, and exit")

	flag.Usage = printDetailedHelp

	flag.Parse()

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	// Validate config file exists when one was named
	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %v", cfg.ShutdownTimeout)
	}

	return nil
}

// capabilityList splits the capabilities flag into names.
func (c *CLIConfig) capabilityList() []string {
	if c.Capabilities == "" {
		return nil
	}
	var names []string
	for _, name := range strings.Split(c.Capabilities, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Boot-time auto-configuration engine

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run with custom config
  %s --config=/etc/semboot/config.yaml

  # Run with debug logging and an explicit capability set
  %s --log-level=debug --log-format=text --capabilities=nats,cache

  # Run with environment variables
  export SEMBOOT_CONFIG=/etc/semboot/config.yaml
  export SEMBOOT_CAPABILITIES=nats
  %s

  # Inspect the selection without building anything
  %s --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
