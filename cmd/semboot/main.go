// Package main implements the entry point for the SemBoot runtime: a
// boot-time auto-configuration engine that selects, orders, and constructs
// the infrastructure a deployment needs from declarative candidate sets.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/semboot/builtin"
	"github.com/c360/semboot/builtin/httpserver"
	"github.com/c360/semboot/capability"
	"github.com/c360/semboot/condition"
	"github.com/c360/semboot/engine"
	"github.com/c360/semboot/factory"
	"github.com/c360/semboot/metric"
	"github.com/c360/semboot/property"
	"github.com/c360/semboot/registry"
	"github.com/c360/semboot/selector"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semboot"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting SemBoot",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	props, err := loadProperties(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	capabilities := buildCapabilities(cliCfg, props)

	factories := factory.NewRegistry()
	if err := builtin.Register(factories); err != nil {
		return fmt.Errorf("register built-in factories: %w", err)
	}

	if cliCfg.Validate {
		return printSelection(factories, props, capabilities)
	}

	eng, err := engine.New(factories,
		engine.WithProperties(props),
		engine.WithCapabilities(capabilities),
		engine.WithMetrics(metric.NewRegistry()),
		engine.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}

	// Wire the management surface once the boot report exists.
	if srv, ok, err := registry.As[*httpserver.Server](eng.Objects(), httpserver.Role); err != nil {
		return fmt.Errorf("resolve management server: %w", err)
	} else if ok {
		srv.SetReportSource(eng)
		if err := srv.Serve(); err != nil {
			return fmt.Errorf("serve management endpoints: %w", err)
		}
	}

	return waitForShutdown(ctx, eng, cliCfg.ShutdownTimeout)
}

// loadProperties assembles the layered property source: YAML file (when
// named) under SEMBOOT_* environment overrides.
func loadProperties(configPath string) (*property.Source, error) {
	loader := property.NewLoader()
	if configPath != "" {
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return nil, err
		}
		if err := loader.AddFile(os.DirFS(filepath.Dir(abs)), filepath.Base(abs)); err != nil {
			return nil, err
		}
	}
	return loader.Load(), nil
}

// buildCapabilities merges the CLI capability list with any declared under
// the semboot.capabilities property.
func buildCapabilities(cliCfg *CLIConfig, props *property.Source) *capability.Index {
	names := cliCfg.capabilityList()
	names = append(names, props.StringSlice("semboot.capabilities", nil)...)
	return capability.NewIndex(capability.NewStaticBackend(names...))
}

// printSelection runs selection without building anything and prints the
// result as JSON. Used by --validate.
func printSelection(factories *factory.Registry, props *property.Source, capabilities *capability.Index) error {
	m, err := factories.Manifest()
	if err != nil {
		return fmt.Errorf("derive manifest: %w", err)
	}

	sel := selector.New(m, selector.WithEvaluators(
		condition.NewCapabilityEvaluator(factories.Requirements()),
		condition.NewPropertyEvaluator(engine.PropertyEvaluatorPrefix)))

	env := condition.Environment{
		Capabilities: capabilities,
		Properties:   props,
		Registry:     registry.New(),
	}
	result, err := sel.Select([]selector.Entry{{Source: appName}}, env)
	if err != nil {
		return fmt.Errorf("selection failed: %w", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// waitForShutdown blocks until SIGINT/SIGTERM and stops the engine within
// the configured timeout.
func waitForShutdown(ctx context.Context, eng *engine.Engine, timeout time.Duration) error {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()
	slog.Info("Shutdown signal received", "timeout", timeout)

	stopCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := eng.Stop(stopCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
