// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/sustainable-computing-io/pmtime/internal/config"
	"github.com/sustainable-computing-io/pmtime/internal/exporter/stdout"
	"github.com/sustainable-computing-io/pmtime/internal/exporter/textfile"
	"github.com/sustainable-computing-io/pmtime/internal/logger"
	"github.com/sustainable-computing-io/pmtime/internal/measure"
	"github.com/sustainable-computing-io/pmtime/internal/version"
	"k8s.io/utils/ptr"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run measures one command and returns the process exit status
func run(ctx context.Context, args []string, stdin io.Reader, out, errOut io.Writer) int {
	// parse args and config and exit with error if there is an error
	cfg, command, err := parseArgsAndConfig(args, errOut)
	if err != nil {
		return measure.ExitStartFailure
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "pmtime: %v\n", err)
		return measure.ExitStartFailure
	}
	logVersionInfo(log)
	printConfigInfo(log, errOut, cfg)

	m := measure.New(cfg, command,
		measure.WithLogger(log),
		measure.WithStdio(stdin, out, errOut),
	)
	res := m.Run(ctx)

	if err := stdout.Write(out, cfg.Report.Format, res); err != nil {
		log.Error("Failed to write report", "error", err)
	}

	if ptr.Deref(cfg.Exporter.Textfile.Enabled, false) {
		if err := textfile.Write(cfg.Exporter.Textfile.Path, res); err != nil {
			log.Error("Failed to write metrics textfile", "error", err)
		} else {
			log.Debug("Wrote metrics textfile", "path", cfg.Exporter.Textfile.Path)
		}
	}

	return res.ExitCode
}

func logVersionInfo(logger *slog.Logger) {
	v := version.Info()
	logger.Debug("pmtime version information",
		"version", v.Version,
		"buildTime", v.BuildTime,
		"gitBranch", v.GitBranch,
		"gitCommit", v.GitCommit,
		"goVersion", v.GoVersion,
		"goOS", v.GoOS,
		"goArch", v.GoArch,
	)
}

func parseArgsAndConfig(args []string, errOut io.Writer) (*config.Config, []string, error) {
	const appName = "pmtime"
	app := kingpin.New(appName, "Measure the runtime and energy of a command on an HPC node.")
	app.Version(version.Info().String())
	app.UsageWriter(errOut)
	app.ErrorWriter(errOut)
	// everything after the command name belongs to the command
	app.Interspersed(false)

	configFile := app.Flag("config.file", "Path to YAML configuration file").String()
	updateConfig := config.RegisterFlags(app)
	command := app.Arg("command", "Command to run, followed by its arguments").Required().Strings()

	if _, err := app.Parse(args); err != nil {
		app.Errorf("%s, try --help", err)
		return nil, nil, err
	}

	logger, _ := logger.New("info", "text", errOut)
	cfg := config.DefaultConfig()
	if *configFile != "" {
		logger.Debug("Loading configuration file", "path", *configFile)
		loadedCfg, err := config.FromFile(*configFile)
		if err != nil {
			logger.Error("Error loading config file", "error", err.Error())
			return nil, nil, err
		}
		// Replace default config with loaded config
		cfg = loadedCfg
	}

	// Apply command line flags (these override config file settings)
	if err := updateConfig(cfg); err != nil {
		logger.Error("Error applying command line flags", "error", err.Error())
		return nil, nil, err
	}

	return cfg, *command, nil
}

func printConfigInfo(logger *slog.Logger, w io.Writer, cfg *config.Config) {
	if !logger.Enabled(context.Background(), slog.LevelDebug) || cfg.Log.Format == "json" {
		return
	}

	fmt.Fprintf(w, `
Configuration
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
%s
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
`, cfg)
}
