// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"gopkg.in/yaml.v3"
	"k8s.io/utils/ptr"
)

// Config represents the complete application configuration
type (
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	}

	Host struct {
		SysFS  string `yaml:"sysfs"`
		ProcFS string `yaml:"procfs"`
	}

	Report struct {
		Format string `yaml:"format"`
	}

	TextfileExporter struct {
		Enabled *bool  `yaml:"enabled"`
		Path    string `yaml:"path"`
	}

	Exporter struct {
		Textfile TextfileExporter `yaml:"textfile"`
	}

	Inventory struct {
		Enabled *bool `yaml:"enabled"`
	}

	Accelerator struct {
		Inventory Inventory `yaml:"inventory"`
	}

	Config struct {
		Log         Log         `yaml:"log"`
		Host        Host        `yaml:"host"`
		Report      Report      `yaml:"report"`
		Exporter    Exporter    `yaml:"exporter"`
		Accelerator Accelerator `yaml:"accelerator"`
	}
)

type SkipValidation int

const (
	SkipHostValidation SkipValidation = 1
)

const (
	// Flags
	LogLevelFlag  = "log.level"
	LogFormatFlag = "log.format"

	HostSysFSFlag  = "host.sysfs"
	HostProcFSFlag = "host.procfs"

	ReportFormatFlag = "report.format"

	ExporterTextfileEnabledFlag = "exporter.textfile"
	ExporterTextfilePathFlag    = "exporter.textfile.path"

	AcceleratorInventoryFlag = "accelerator.inventory"
)

// Report formats
const (
	ReportText  = "text"
	ReportTable = "table"
	ReportJSON  = "json"
)

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Host: Host{
			SysFS:  "/sys",
			ProcFS: "/proc",
		},
		Report: Report{
			Format: ReportText,
		},
		Exporter: Exporter{
			Textfile: TextfileExporter{
				Enabled: ptr.To(false),
				Path:    "pmtime.prom",
			},
		},
		Accelerator: Accelerator{
			Inventory: Inventory{
				Enabled: ptr.To(true),
			},
		},
	}
}

// Load loads configuration from an io.Reader
func Load(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.sanitize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromFile loads configuration from a file
func FromFile(filePath string) (*Config, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() {
		// read-only file
		_ = file.Close()
	}()

	return Load(file)
}

type ConfigUpdaterFn func(*Config) error

// RegisterFlags registers command-line flags with kingpin app
// and returns ConfigUpdaterFn that updates the config from parsed flags
// as command line arguments override config file settings
func RegisterFlags(app *kingpin.Application) ConfigUpdaterFn {
	// track flags that were explicitly set
	flagsSet := map[string]bool{}

	app.PreAction(func(ctx *kingpin.ParseContext) error {
		// Clear the map in case this function is called multiple times
		flagsSet = map[string]bool{}

		for _, element := range ctx.Elements {
			if flag, ok := element.Clause.(*kingpin.FlagClause); ok && element.Value != nil {
				flagsSet[flag.Model().Name] = true
			}
		}
		return nil
	})

	// Logging
	logLevel := app.Flag(LogLevelFlag, "Logging level: debug, info, warn, error").Default("info").Enum("debug", "info", "warn", "error")
	logFormat := app.Flag(LogFormatFlag, "Logging format: text or json").Default("text").Enum("text", "json")

	// host
	hostSysFS := app.Flag(HostSysFSFlag, "Host sysfs path").Default("/sys").String()
	hostProcFS := app.Flag(HostProcFSFlag, "Host procfs path").Default("/proc").String()

	reportFormat := app.Flag(ReportFormatFlag, "Report format: text, table or json").
		Default(ReportText).Enum(ReportText, ReportTable, ReportJSON)

	// exporters
	textfileEnabled := app.Flag(ExporterTextfileEnabledFlag, "Write a Prometheus textfile with the measurement").Default("false").Bool()
	textfilePath := app.Flag(ExporterTextfilePathFlag, "Path of the Prometheus textfile").Default("pmtime.prom").String()

	inventory := app.Flag(AcceleratorInventoryFlag, "Query NVML for the accelerators on this node").Default("true").Bool()

	return func(cfg *Config) error {
		if flagsSet[LogLevelFlag] {
			cfg.Log.Level = *logLevel
		}
		if flagsSet[LogFormatFlag] {
			cfg.Log.Format = *logFormat
		}

		if flagsSet[HostSysFSFlag] {
			cfg.Host.SysFS = *hostSysFS
		}
		if flagsSet[HostProcFSFlag] {
			cfg.Host.ProcFS = *hostProcFS
		}

		if flagsSet[ReportFormatFlag] {
			cfg.Report.Format = *reportFormat
		}

		if flagsSet[ExporterTextfileEnabledFlag] {
			cfg.Exporter.Textfile.Enabled = textfileEnabled
		}
		if flagsSet[ExporterTextfilePathFlag] {
			cfg.Exporter.Textfile.Path = *textfilePath
		}

		if flagsSet[AcceleratorInventoryFlag] {
			cfg.Accelerator.Inventory.Enabled = inventory
		}

		cfg.sanitize()
		return cfg.Validate()
	}
}

func (c *Config) sanitize() {
	c.Log.Level = strings.TrimSpace(c.Log.Level)
	c.Log.Format = strings.TrimSpace(c.Log.Format)
	c.Host.SysFS = strings.TrimSpace(c.Host.SysFS)
	c.Host.ProcFS = strings.TrimSpace(c.Host.ProcFS)
	c.Report.Format = strings.ToLower(strings.TrimSpace(c.Report.Format))
	c.Exporter.Textfile.Path = strings.TrimSpace(c.Exporter.Textfile.Path)
}

// Validate checks for configuration errors
func (c *Config) Validate(skips ...SkipValidation) error {
	validationSkipped := make(map[SkipValidation]bool, len(skips))
	for _, v := range skips {
		validationSkipped[v] = true
	}

	var errs []string
	{ // log level
		validLogLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if _, valid := validLogLevels[c.Log.Level]; !valid {
			errs = append(errs, fmt.Sprintf("invalid log level: %s", c.Log.Level))
		}
	}
	{ // log format
		validFormats := map[string]bool{
			"text": true,
			"json": true,
		}
		if _, valid := validFormats[c.Log.Format]; !valid {
			errs = append(errs, fmt.Sprintf("invalid log format: %s", c.Log.Format))
		}
	}
	{ // host
		// a node without pm_counters is valid; only the mount points must be readable
		if !validationSkipped[SkipHostValidation] {
			if err := canReadDir(c.Host.SysFS); err != nil {
				errs = append(errs, fmt.Sprintf("invalid sysfs path: %s: %s", c.Host.SysFS, err.Error()))
			}
			if err := canReadDir(c.Host.ProcFS); err != nil {
				errs = append(errs, fmt.Sprintf("invalid procfs path: %s: %s", c.Host.ProcFS, err.Error()))
			}
		}
	}
	{ // report
		switch c.Report.Format {
		case ReportText, ReportTable, ReportJSON:
		default:
			errs = append(errs, fmt.Sprintf("invalid report format: %s", c.Report.Format))
		}
	}
	{ // textfile exporter
		if ptr.Deref(c.Exporter.Textfile.Enabled, false) {
			if c.Exporter.Textfile.Path == "" {
				errs = append(errs, fmt.Sprintf("%s not supplied but %s set to true",
					ExporterTextfilePathFlag, ExporterTextfileEnabledFlag))
			} else if err := canWriteDir(filepath.Dir(c.Exporter.Textfile.Path)); err != nil {
				errs = append(errs, fmt.Sprintf("invalid textfile path: %s: %s", c.Exporter.Textfile.Path, err.Error()))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, ", "))
	}

	return nil
}

func canReadDir(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		// ignored on purpose
		_ = f.Close()
	}()

	_, err = f.ReadDir(1)
	if err == io.EOF {
		// empty directory
		return nil
	}
	return err
}

func canWriteDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory")
	}
	return nil
}

func (c *Config) String() string {
	bytes, err := yaml.Marshal(c)
	if err == nil {
		return string(bytes)
	}
	// NOTE: this code path should not happen but if it does (i.e if yaml marshal) fails
	// for some reason, manually build the string
	return c.manualString()
}

func (c *Config) manualString() string {
	cfgs := []struct {
		Name  string
		Value string
	}{
		{LogLevelFlag, c.Log.Level},
		{LogFormatFlag, c.Log.Format},
		{HostSysFSFlag, c.Host.SysFS},
		{HostProcFSFlag, c.Host.ProcFS},
		{ReportFormatFlag, c.Report.Format},
		{ExporterTextfileEnabledFlag, fmt.Sprintf("%v", ptr.Deref(c.Exporter.Textfile.Enabled, false))},
		{ExporterTextfilePathFlag, c.Exporter.Textfile.Path},
		{AcceleratorInventoryFlag, fmt.Sprintf("%v", ptr.Deref(c.Accelerator.Inventory.Enabled, false))},
	}
	sb := strings.Builder{}

	for _, cfg := range cfgs {
		sb.WriteString(cfg.Name)
		sb.WriteString(": ")
		sb.WriteString(cfg.Value)
		sb.WriteString("\n")
	}

	return sb.String()
}
