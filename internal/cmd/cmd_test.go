package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/moddirector/internal/config"
	"github.com/Iron-Ham/moddirector/internal/errors"
	"github.com/Iron-Ham/moddirector/internal/logging"
	"github.com/Iron-Ham/moddirector/internal/mod"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

// setupTestEnvironment points the config directory at a temp dir, writes
// config.yaml there and resets state left over from earlier commands.
func setupTestEnvironment(t *testing.T, configYAML string) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	dir := filepath.Join(home, "moddirector")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if configYAML != "" {
		if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(configYAML), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	viper.Reset()
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	t.Cleanup(viper.Reset)
	resetFlags(rootCmd)
	for _, c := range rootCmd.Commands() {
		resetFlags(c)
	}
	return dir
}

func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	want := map[string]bool{"install": false, "validate": false, "logs": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("root command missing %q", name)
		}
	}
}

func TestValidateCommand(t *testing.T) {
	t.Run("valid descriptors", func(t *testing.T) {
		setupTestEnvironment(t, "")
		descDir := t.TempDir()
		writeFile(t, filepath.Join(descDir, "client.yaml"), `mods:
  - name: jei
    source: https://cdn.example.com/jei-1.0.jar
    directory: client
`)

		output, err := executeCommand(rootCmd, "validate", descDir)
		if err != nil {
			t.Fatalf("validate error = %v\n%s", err, output)
		}
		if !strings.Contains(output, "1 mod in") || !strings.Contains(output, "jei") {
			t.Errorf("output missing descriptor summary:\n%s", output)
		}
		if !strings.Contains(output, "client/jei-1.0.jar") {
			t.Errorf("output missing install key:\n%s", output)
		}
	})

	t.Run("malformed file fails", func(t *testing.T) {
		setupTestEnvironment(t, "")
		descDir := t.TempDir()
		writeFile(t, filepath.Join(descDir, "broken.yaml"), "mods: [\n")

		output, err := executeCommand(rootCmd, "validate", descDir)
		if err == nil {
			t.Fatalf("validate should fail on a malformed file:\n%s", output)
		}
		if !strings.Contains(err.Error(), "1 fatal error") {
			t.Errorf("error = %v", err)
		}
		if !strings.Contains(output, "error:") {
			t.Errorf("output should list the record:\n%s", output)
		}
	})

	t.Run("missing directory is not fatal", func(t *testing.T) {
		setupTestEnvironment(t, "")

		output, err := executeCommand(rootCmd, "validate", filepath.Join(t.TempDir(), "absent"))
		if err != nil {
			t.Fatalf("validate error = %v\n%s", err, output)
		}
		if !strings.Contains(output, "0 mods in") || !strings.Contains(output, "info:") {
			t.Errorf("output = %s", output)
		}
	})
}

func TestLogsCommand(t *testing.T) {
	logDir := t.TempDir()
	setupTestEnvironment(t, "logging:\n  dir: "+logDir+"\n")

	logger, err := logging.NewLogger(logDir, logging.LevelDebug)
	if err != nil {
		t.Fatal(err)
	}
	logger.WithMod("jei").Info("mod installed", "bytes", 42)
	logger.WithMod("sodium").Error("download failed")
	logger.Debug("noise")
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}

	t.Run("filter by mod as json", func(t *testing.T) {
		output, err := executeCommand(rootCmd, "logs", "--mod", "jei", "--format", "json", "-n", "0")
		if err != nil {
			t.Fatalf("logs error = %v", err)
		}
		var entries []logging.LogEntry
		if err := json.Unmarshal([]byte(output), &entries); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, output)
		}
		if len(entries) != 1 || entries[0].Mod != "jei" || entries[0].Message != "mod installed" {
			t.Errorf("entries = %+v", entries)
		}
	})

	t.Run("level and grep", func(t *testing.T) {
		resetFlags(logsCmd)
		output, err := executeCommand(rootCmd, "logs", "--level", "warn", "--grep", "download")
		if err != nil {
			t.Fatalf("logs error = %v", err)
		}
		if !strings.Contains(output, "download failed") || strings.Contains(output, "mod installed") {
			t.Errorf("output = %s", output)
		}
	})

	t.Run("export to file", func(t *testing.T) {
		resetFlags(logsCmd)
		out := filepath.Join(t.TempDir(), "logs.csv")
		output, err := executeCommand(rootCmd, "logs", "-n", "0", "--format", "csv", "--output", out)
		if err != nil {
			t.Fatalf("logs error = %v", err)
		}
		if !strings.Contains(output, "Exported 3 entries") {
			t.Errorf("output = %s", output)
		}
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(string(data), "timestamp,level,message") {
			t.Errorf("csv = %s", data)
		}
	})

	t.Run("invalid since", func(t *testing.T) {
		resetFlags(logsCmd)
		if _, err := executeCommand(rootCmd, "logs", "--since", "yesterday"); err == nil {
			t.Error("logs should reject an invalid duration")
		}
	})
}

func TestLogsCommand_NoLogs(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "empty")
	setupTestEnvironment(t, "logging:\n  dir: "+logDir+"\n")

	output, err := executeCommand(rootCmd, "logs")
	if err != nil {
		t.Fatalf("logs error = %v", err)
	}
	if !strings.Contains(output, "No logs found.") {
		t.Errorf("output = %s", output)
	}
}

// The director is a process-wide singleton, so this is the only test in
// the package that runs install.
func TestInstallCommand(t *testing.T) {
	root := t.TempDir()
	descDir := filepath.Join(root, "mods.d")
	modsDir := filepath.Join(root, "mods")
	logDir := filepath.Join(root, "logs")
	source := filepath.Join(root, "cache", "jei.jar")
	writeFile(t, source, "jar bytes")
	writeFile(t, filepath.Join(descDir, "client.yaml"), "mods:\n  - name: jei\n    source: "+source+"\n    directory: client\n")

	setupTestEnvironment(t, "director:\n  config_dir: "+descDir+"\n  mods_dir: "+modsDir+"\n  parallelism: 4\nlogging:\n  dir: "+logDir+"\n")

	output, err := executeCommand(rootCmd, "install", "--timeout", "30s")
	if err != nil {
		t.Fatalf("install error = %v\n%s", err, output)
	}
	if !strings.Contains(output, "Installed 1 mod") || !strings.Contains(output, "Result: OK") {
		t.Errorf("output = %s", output)
	}

	got, err := os.ReadFile(filepath.Join(modsDir, "client", "jei.jar"))
	if err != nil || string(got) != "jar bytes" {
		t.Errorf("installed file = %q, %v", got, err)
	}

	entries, err := logging.AggregateLogs(logDir)
	if err != nil {
		t.Fatalf("AggregateLogs() error = %v", err)
	}
	found := false
	for _, e := range entries {
		if e.Message == "Mod director loaded!" {
			found = true
		}
	}
	if !found {
		t.Error("startup message missing from director log")
	}
}

func TestInstallWait(t *testing.T) {
	tests := []struct {
		name string
		flag string
		want time.Duration
	}{
		{"config default", "", 300 * time.Second},
		{"sub-second flag kept", "250ms", 250 * time.Millisecond},
		{"fractional seconds kept", "1500ms", 1500 * time.Millisecond},
		{"zero flag falls back to config", "0s", 300 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(installCmd)
			t.Cleanup(func() { resetFlags(installCmd) })
			if tt.flag != "" {
				if err := installCmd.Flags().Set("timeout", tt.flag); err != nil {
					t.Fatal(err)
				}
			}

			cfg := config.Default()
			applyInstallFlags(installCmd, cfg)
			if got := installWait(installCmd, cfg); got != tt.want {
				t.Errorf("installWait() = %v, want %v", got, tt.want)
			}
			if cfg.Director.TimeoutSeconds != 300 {
				t.Errorf("TimeoutSeconds = %d, flag should not rewrite it", cfg.Director.TimeoutSeconds)
			}
		})
	}
}

type closeRecorder struct {
	calls *[]string
}

func (c closeRecorder) Close() error {
	*c.calls = append(*c.calls, "close")
	return nil
}

func TestReleaseOnExit(t *testing.T) {
	var calls []string
	hook := releaseOnExit(func() { calls = append(calls, "stop") }, closeRecorder{&calls})
	hook()

	if strings.Join(calls, ",") != "stop,close" {
		t.Errorf("calls = %v, want [stop close]", calls)
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	installed := []mod.Installed{
		{Name: "sodium", Path: "/mods/sodium.jar", Size: 2048},
		{Name: "jei", Path: "/mods/jei.jar", Size: 10, Existing: true},
	}
	records := []errors.Record{
		errors.NewRecord(errors.SeverityError, "Unhandled exception in worker thread", errors.ErrDownloadFailed).WithMod("ftb"),
		errors.NewRecord(errors.SeverityInfo, "nothing to do", nil),
	}

	renderSummary(&buf, installed, records, false)
	out := buf.String()

	for _, want := range []string{
		"Installed 2 mods",
		"/mods/sodium.jar (2.0 KiB)",
		"/mods/jei.jar (already present)",
		"Diagnostics (2)",
		"[ftb] Unhandled exception in worker thread",
		"Result: FAILED",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "jei") > strings.Index(out, "sodium") {
		t.Errorf("installed mods should be sorted by name:\n%s", out)
	}
}

func TestRenderSummary_Empty(t *testing.T) {
	var buf bytes.Buffer
	renderSummary(&buf, nil, nil, true)
	out := buf.String()
	if !strings.Contains(out, "Installed 0 mods") || !strings.Contains(out, "Result: OK") {
		t.Errorf("summary = %s", out)
	}
	if strings.Contains(out, "Diagnostics") {
		t.Errorf("empty run should not print diagnostics:\n%s", out)
	}
}

func TestFormatLogEntry(t *testing.T) {
	p := newPalette(new(bytes.Buffer))
	e := logging.LogEntry{
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 6e6, time.UTC),
		Level:     "WARN",
		Message:   "Timed out",
		Mod:       "jei",
		Attrs:     map[string]any{"b": 2, "a": 1},
	}
	got := formatLogEntry(p, e)
	if !strings.Contains(got, "[03:04:05.006]") || !strings.Contains(got, "[WARN]") {
		t.Errorf("formatLogEntry() = %q", got)
	}
	if strings.Index(got, "a=") > strings.Index(got, "b=") {
		t.Errorf("attrs should be sorted: %q", got)
	}
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := humanSize(tt.in); got != tt.want {
			t.Errorf("humanSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"hello", 0, "hello"},
		{"hello", -3, "hello"},
		{"hello", 5, "hello"},
		{"hello", 4, "hel…"},
		{"hello", 1, "…"},
		{"héllo", 3, "hé…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestTerminalWidth_NonTerminal(t *testing.T) {
	if w := terminalWidth(new(bytes.Buffer)); w != 0 {
		t.Errorf("terminalWidth(buffer) = %d, want 0", w)
	}
}

func TestRecordLine(t *testing.T) {
	tests := []struct {
		name string
		rec  errors.Record
		want string
	}{
		{
			name: "user facing cause is shown",
			rec:  errors.NewRecord(errors.SeverityError, "failed to load mod configuration", errors.NewConfigError("bad yaml", nil).WithFile("a.yaml")),
			want: "error: failed to load mod configuration: config error [file=a.yaml]: bad yaml",
		},
		{
			name: "internal cause is left to the log",
			rec:  errors.NewRecord(errors.SeverityError, "Unhandled exception in worker thread", errors.ErrWorkerPanic).WithMod("jei"),
			want: "error: [jei] Unhandled exception in worker thread (details in log)",
		},
		{
			name: "retryable cause is marked",
			rec: errors.NewRecord(errors.SeverityError, "Unhandled exception in worker thread",
				errors.NewInstallError("unexpected status 503", errors.ErrDownloadFailed).WithRetryable(true)).WithMod("jei"),
			want: "(retryable)",
		},
		{
			name: "no cause",
			rec:  errors.NewRecord(errors.SeverityInfo, "nothing to install", nil),
			want: "info: nothing to install",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := recordLine(tt.rec); !strings.Contains(got, tt.want) {
				t.Errorf("recordLine() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}
