package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"HOST", "PORT", "PRINTER_NAME", "LOG_LEVEL", "LABEL_BASE_DIR", "REDIS_ADDR", "CONFIG_PATH"} {
		t.Setenv(k, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, DefaultPrinterName, cfg.Label.PrinterName)
	assert.Equal(t, "typst", cfg.Label.RendererBin)
	assert.Equal(t, "lp", cfg.Label.SpoolerBin)
	assert.NoError(t, cfg.Validate())

	exe, err := os.Executable()
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(exe), cfg.Label.BaseDir, "base_dir defaults to the executable's directory")
}

func TestLoadFrom_ResolvesRelativeLabelPaths(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	wd, wdErr := os.Getwd()
	require.NoError(t, wdErr)
	require.NoError(t, os.Chdir(root))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("PWD", root)

	p := writeConfig(t, "label:\n  base_dir: \"./templates\"\n  output: \"out/label.pdf\"\n")
	cfg := LoadFrom(p)
	assert.Equal(t, filepath.Join(root, "templates"), cfg.Label.BaseDir)
	assert.Equal(t, filepath.Join(root, "templates", "99012.typ"), cfg.Label.TemplatePath())
	assert.Equal(t, filepath.Join(root, "out", "label.pdf"), cfg.Label.OutputPath())

	t.Setenv("LABEL_BASE_DIR", "labels/server")
	cfg = Load()
	assert.Equal(t, filepath.Join(root, "labels", "server"), cfg.Label.BaseDir)
	assert.Equal(t, filepath.Join(root, "labels", "99012.pdf"), cfg.Label.OutputPath())
}

func TestLabelPaths(t *testing.T) {
	l := LabelConfig{BaseDir: "/opt/labels/server", Template: "99012.typ", DataFile: "data.yml"}
	assert.Equal(t, "/opt/labels/server/99012.typ", l.TemplatePath())
	assert.Equal(t, "/opt/labels/server/data.yml", l.DataPath())
	assert.Equal(t, "/opt/labels/99012.pdf", l.OutputPath())

	l.Output = "/tmp/out.pdf"
	assert.Equal(t, "/tmp/out.pdf", l.OutputPath())
}

func TestLoadFrom_Valid(t *testing.T) {
	clearEnv(t)
	p := writeConfig(t, `server:
  host: "127.0.0.1"
  port: "9000"
label:
  base_dir: "/srv/labels"
  printer_name: "Office_Zebra"
  render_timeout: 5s
  isolate_jobs: true
rate_limit:
  max: 10
  interval: 1m
`)
	cfg := LoadFrom(p)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr())
	assert.Equal(t, "/srv/labels", cfg.Label.BaseDir)
	assert.Equal(t, "Office_Zebra", cfg.Label.PrinterName)
	assert.Equal(t, 5*time.Second, cfg.Label.RenderTimeout)
	assert.Equal(t, 15*time.Second, cfg.Label.PrintTimeout, "unset keys keep defaults")
	assert.True(t, cfg.Label.IsolateJobs)
	assert.True(t, cfg.Server.ExposeDiagnostics)
	assert.Equal(t, 10, cfg.RateLimit.Max)
}

func TestLoadFrom_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOST", "10.0.0.5")
	t.Setenv("PORT", "9191")
	t.Setenv("PRINTER_NAME", "Kitchen_Printer")

	p := writeConfig(t, "server:\n  host: \"127.0.0.1\"\n  port: \"9000\"\nlabel:\n  printer_name: \"File_Printer\"\n")
	cfg := LoadFrom(p)
	assert.Equal(t, "10.0.0.5:9191", cfg.Server.Addr())
	assert.Equal(t, "Kitchen_Printer", cfg.Label.PrinterName)
}

func TestPrinterNameFallsBackWhenEmpty(t *testing.T) {
	clearEnv(t)
	p := writeConfig(t, "label:\n  printer_name: \"\"\n")
	cfg := LoadFrom(p)
	assert.Equal(t, DefaultPrinterName, cfg.Label.PrinterName)
}

func TestLoadFrom_PanicsOnInvalidValues(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		yml  string
	}{
		{name: "invalid port", yml: "server:\n  port: \"http\"\n"},
		{name: "port out of range", yml: "server:\n  port: \"70000\"\n"},
		{name: "zero render timeout", yml: "label:\n  render_timeout: 0s\n"},
		{name: "missing renderer", yml: "label:\n  renderer_bin: \"\"\n"},
		{name: "negative rate limit", yml: "rate_limit:\n  max: -1\n"},
		{name: "lock ttl shorter than a job", yml: "label:\n  render_timeout: 30s\n  print_timeout: 15s\nlock:\n  ttl: 40s\n"},
		{name: "malformed yaml", yml: "server: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := writeConfig(t, tc.yml)
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic")
				}
			}()
			_ = LoadFrom(p)
		})
	}
}

func TestLoadFrom_PanicsOnMissingFile(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	_ = LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
}

func TestLoad_UsesConfigPathEnv(t *testing.T) {
	clearEnv(t)
	p := writeConfig(t, "label:\n  printer_name: \"FromFile\"\n")
	t.Setenv("CONFIG_PATH", p)

	cfg := Load()
	assert.Equal(t, "FromFile", cfg.Label.PrinterName)
}

func TestLoad_WithoutConfigPath(t *testing.T) {
	clearEnv(t)
	t.Setenv("PRINTER_NAME", "EnvOnly")

	cfg := Load()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "EnvOnly", cfg.Label.PrinterName)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
}
