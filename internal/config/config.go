package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPrinterName is the spooler destination used when PRINTER_NAME is unset or empty.
const DefaultPrinterName = "DYMO_LabelWriter_450"

// Config is built once at startup and passed by value; nothing mutates it afterwards.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logger    LoggerConfig    `yaml:"logger"`
	Label     LabelConfig     `yaml:"label"`
	Redis     RedisConfig     `yaml:"redis"`
	Lock      LockConfig      `yaml:"lock"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    string `yaml:"port"`
	Prefork bool   `yaml:"prefork"`
	// BodyLimit caps request bodies in bytes.
	BodyLimit int `yaml:"body_limit"`
	// ExposeDiagnostics passes external tool output through to HTTP clients.
	ExposeDiagnostics bool `yaml:"expose_diagnostics"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

type LoggerConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// LabelConfig describes the render and print pipeline.
type LabelConfig struct {
	// BaseDir holds the template and the data file. The renderer runs with it as working directory.
	BaseDir string `yaml:"base_dir"`
	// Template is the template file name inside BaseDir.
	Template string `yaml:"template"`
	// DataFile is the data file name inside BaseDir; the template loads it by this name.
	DataFile string `yaml:"data_file"`
	// Output is the rendered document path. Empty means <BaseDir>/../<template stem>.pdf.
	Output string `yaml:"output"`

	PrinterName string `yaml:"printer_name"`
	RendererBin string `yaml:"renderer_bin"`
	SpoolerBin  string `yaml:"spooler_bin"`

	RenderTimeout time.Duration `yaml:"render_timeout"`
	PrintTimeout  time.Duration `yaml:"print_timeout"`

	// IsolateJobs renders every request in its own temporary directory.
	IsolateJobs bool `yaml:"isolate_jobs"`
	// AllowBlankText accepts an empty label_text and prints a blank label.
	AllowBlankText bool `yaml:"allow_blank_text"`
}

// WithAbsPaths returns l with BaseDir and Output resolved against the
// working directory. The renderer runs inside BaseDir, so derived paths
// must not stay relative.
func (l LabelConfig) WithAbsPaths() (LabelConfig, error) {
	base, err := filepath.Abs(l.BaseDir)
	if err != nil {
		return l, fmt.Errorf("resolve label base_dir: %w", err)
	}
	l.BaseDir = base
	if l.Output != "" {
		out, err := filepath.Abs(l.Output)
		if err != nil {
			return l, fmt.Errorf("resolve label output: %w", err)
		}
		l.Output = out
	}
	return l, nil
}

// TemplatePath returns the template path.
func (l LabelConfig) TemplatePath() string {
	return filepath.Join(l.BaseDir, l.Template)
}

// DataPath returns the path of the intermediate data file.
func (l LabelConfig) DataPath() string {
	return filepath.Join(l.BaseDir, l.DataFile)
}

// OutputPath returns the rendered document path.
func (l LabelConfig) OutputPath() string {
	if l.Output != "" {
		return l.Output
	}
	stem := strings.TrimSuffix(l.Template, filepath.Ext(l.Template))
	return filepath.Join(filepath.Dir(filepath.Clean(l.BaseDir)), stem+".pdf")
}

type RedisConfig struct {
	// Addr enables Redis for the job lock and rate limiter storage when non-empty.
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LockConfig struct {
	Key          string        `yaml:"key"`
	TTL          time.Duration `yaml:"ttl"`
	WaitTimeout  time.Duration `yaml:"wait_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type RateLimitConfig struct {
	// Max requests per Interval per client. Zero disables the limiter.
	Max      int           `yaml:"max"`
	Interval time.Duration `yaml:"interval"`
}

// Default returns the built-in configuration. BaseDir is the directory of
// the running executable, or the working directory when that is unknown.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			BodyLimit:         64 * 1024,
			ExposeDiagnostics: true,
		},
		Logger: LoggerConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Label: LabelConfig{
			BaseDir:       installDir(),
			Template:      "99012.typ",
			DataFile:      "data.yml",
			PrinterName:   DefaultPrinterName,
			RendererBin:   "typst",
			SpoolerBin:    "lp",
			RenderTimeout: 30 * time.Second,
			PrintTimeout:  15 * time.Second,
		},
		Lock: LockConfig{
			Key:          "labelprint:job",
			TTL:          2 * time.Minute,
			WaitTimeout:  20 * time.Second,
			PollInterval: 100 * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			Interval: time.Minute,
		},
	}
}

func installDir() string {
	if exe, err := os.Executable(); err == nil {
		return filepath.Dir(exe)
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// Load reads .env if present, then the YAML file named by CONFIG_PATH (if
// any), then environment overrides.
func Load() Config {
	_ = godotenv.Load()

	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return LoadFrom(p)
	}
	cfg := Default()
	applyEnv(&cfg)
	return finalize(cfg)
}

// LoadFrom reads the YAML file at path over the defaults and applies
// environment overrides. It panics on unreadable files or invalid values.
func LoadFrom(path string) Config {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("config: read %s: %v", path, err))
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		panic(fmt.Sprintf("config: parse %s: %v", path, err))
	}

	applyEnv(&cfg)
	return finalize(cfg)
}

// finalize validates cfg and resolves the label paths, panicking on failure.
func finalize(cfg Config) Config {
	if err := cfg.Validate(); err != nil {
		panic("config: " + err.Error())
	}
	label, err := cfg.Label.WithAbsPaths()
	if err != nil {
		panic("config: " + err.Error())
	}
	cfg.Label = label
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("PRINTER_NAME"); v != "" {
		cfg.Label.PrinterName = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("LABEL_BASE_DIR"); v != "" {
		cfg.Label.BaseDir = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if cfg.Label.PrinterName == "" {
		cfg.Label.PrinterName = DefaultPrinterName
	}
}

// Validate reports the first invalid value.
func (c Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 0 || port > 65535 {
		return fmt.Errorf("invalid server port %q", c.Server.Port)
	}
	if c.Server.BodyLimit < 0 {
		return fmt.Errorf("server body_limit must not be negative")
	}
	if c.Label.BaseDir == "" {
		return fmt.Errorf("label base_dir is empty")
	}
	if c.Label.Template == "" || c.Label.DataFile == "" {
		return fmt.Errorf("label template and data_file are required")
	}
	if c.Label.RendererBin == "" || c.Label.SpoolerBin == "" {
		return fmt.Errorf("label renderer_bin and spooler_bin are required")
	}
	if c.Label.RenderTimeout <= 0 || c.Label.PrintTimeout <= 0 {
		return fmt.Errorf("label render_timeout and print_timeout must be positive")
	}
	if c.Lock.TTL <= 0 || c.Lock.WaitTimeout <= 0 || c.Lock.PollInterval <= 0 {
		return fmt.Errorf("lock ttl, wait_timeout and poll_interval must be positive")
	}
	if c.Lock.TTL <= c.Label.RenderTimeout+c.Label.PrintTimeout {
		return fmt.Errorf("lock ttl %s must exceed render_timeout + print_timeout (%s)",
			c.Lock.TTL, c.Label.RenderTimeout+c.Label.PrintTimeout)
	}
	if c.RateLimit.Max < 0 {
		return fmt.Errorf("rate_limit max must not be negative")
	}
	if c.RateLimit.Max > 0 && c.RateLimit.Interval <= 0 {
		return fmt.Errorf("rate_limit interval must be positive")
	}
	return nil
}
