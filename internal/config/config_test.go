package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify default director config
	if cfg.Director.ModsDir != "mods" {
		t.Errorf("Director.ModsDir = %q, want %q", cfg.Director.ModsDir, "mods")
	}
	if cfg.Director.TimeoutSeconds != 300 {
		t.Errorf("Director.TimeoutSeconds = %d, want 300", cfg.Director.TimeoutSeconds)
	}
	if cfg.Director.Parallelism != 0 {
		t.Errorf("Director.Parallelism = %d, want 0", cfg.Director.Parallelism)
	}

	// Verify default loader config
	if len(cfg.Loader.Include) != 4 {
		t.Errorf("Loader.Include = %v, want 4 patterns", cfg.Loader.Include)
	}

	// Verify default install config
	if cfg.Install.HTTPTimeoutSeconds != 120 {
		t.Errorf("Install.HTTPTimeoutSeconds = %d, want 120", cfg.Install.HTTPTimeoutSeconds)
	}
	if cfg.Install.UserAgent != "moddirector" {
		t.Errorf("Install.UserAgent = %q, want %q", cfg.Install.UserAgent, "moddirector")
	}

	// Verify default logging config
	if !cfg.Logging.Enabled {
		t.Error("Logging.Enabled should be true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.MaxSizeMB != 10 || cfg.Logging.MaxBackups != 3 {
		t.Errorf("Logging rotation = %d/%d, want 10/3", cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups)
	}
}

func TestDurations(t *testing.T) {
	d := DirectorConfig{TimeoutSeconds: 90}
	if d.Timeout() != 90*time.Second {
		t.Errorf("Timeout() = %v, want 90s", d.Timeout())
	}

	i := InstallConfig{HTTPTimeoutSeconds: 0}
	if i.HTTPTimeout() != 0 {
		t.Errorf("HTTPTimeout() = %v, want 0", i.HTTPTimeout())
	}
}

func TestResolveDirs(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	t.Run("defaults", func(t *testing.T) {
		d := DirectorConfig{}
		if got := d.ResolveConfigDir(); got != "/custom/config/moddirector/mods.d" {
			t.Errorf("ResolveConfigDir() = %q", got)
		}
		if got := d.ResolveModsDir(); got != "mods" {
			t.Errorf("ResolveModsDir() = %q", got)
		}
		l := LoggingConfig{}
		if got := l.ResolveDir(); got != "/custom/config/moddirector/logs" {
			t.Errorf("ResolveDir() = %q", got)
		}
	})

	t.Run("explicit", func(t *testing.T) {
		d := DirectorConfig{ConfigDir: "/srv/descriptors", ModsDir: "/srv/mods"}
		if got := d.ResolveConfigDir(); got != "/srv/descriptors" {
			t.Errorf("ResolveConfigDir() = %q", got)
		}
		if got := d.ResolveModsDir(); got != "/srv/mods" {
			t.Errorf("ResolveModsDir() = %q", got)
		}
	})

	t.Run("home expansion", func(t *testing.T) {
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}
		l := LoggingConfig{Dir: "~/logs"}
		if got := l.ResolveDir(); got != filepath.Join(home, "logs") {
			t.Errorf("ResolveDir() = %q, want %q", got, filepath.Join(home, "logs"))
		}
	})
}

func TestConfigDir(t *testing.T) {
	// Test with XDG_CONFIG_HOME set
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		result := ConfigDir()
		expected := "/custom/config/moddirector"
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})

	// Test without XDG_CONFIG_HOME
	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		result := ConfigDir()

		// Should be based on home directory
		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, ".config", "moddirector")
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	result := ConfigFile()
	expected := "/custom/config/moddirector/config.yaml"
	if result != expected {
		t.Errorf("ConfigFile() = %q, want %q", result, expected)
	}
}

func TestGet(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	// Set defaults in viper first (normally done by cmd init)
	SetDefaults()

	// Get() should return defaults when no config file exists
	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}
	if cfg.Director.TimeoutSeconds != 300 {
		t.Errorf("Get().Director.TimeoutSeconds = %d, want 300", cfg.Director.TimeoutSeconds)
	}
}

func TestLoad_FromFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `director:
  mods_dir: /srv/mods
  timeout_seconds: 45
loader:
  exclude: ["*.disabled.yaml"]
logging:
  level: debug
  compress: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Director.ModsDir != "/srv/mods" || cfg.Director.TimeoutSeconds != 45 {
		t.Errorf("director = %+v", cfg.Director)
	}
	if len(cfg.Loader.Exclude) != 1 || cfg.Loader.Exclude[0] != "*.disabled.yaml" {
		t.Errorf("loader.exclude = %v", cfg.Loader.Exclude)
	}
	if len(cfg.Loader.Include) != 4 {
		t.Errorf("loader.include should keep defaults, got %v", cfg.Loader.Include)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Compress {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	// Untouched keys keep their defaults
	if cfg.Install.UserAgent != "moddirector" {
		t.Errorf("install.user_agent = %q", cfg.Install.UserAgent)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	viper.Set("director.timeout_seconds", 0)
	viper.Set("logging.level", "verbose")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail validation")
	}
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("Load() error type = %T, want ValidationErrors", err)
	}
	if len(verrs) != 2 {
		t.Errorf("got %d validation errors, want 2: %v", len(verrs), verrs)
	}
}
