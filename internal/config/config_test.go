package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
	if cfg.Read.Strict {
		t.Error("expected strict to be false by default")
	}
	if !cfg.Read.ReportSkipped {
		t.Error("expected report_skipped to be true by default")
	}
	if cfg.Write.Extended || cfg.Write.NormalizeWeights {
		t.Error("expected basic, unnormalized writes by default")
	}
	if !cfg.Write.Validate {
		t.Error("expected validate to be true by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "psxtool.yaml",
			content: `
logging:
  level: "debug"
  log_file: "psxtool.log"

read:
  strict: true
  report_skipped: false

write:
  extended: true
  normalize_weights: true
`,
		},
		{
			name: "toml",
			file: "psxtool.toml",
			content: `
[logging]
level = "debug"
log_file = "psxtool.log"

[read]
strict = true
report_skipped = false

[write]
extended = true
normalize_weights = true
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tmpDir, tt.file)
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			cfg := Default()
			if err := loadFromFile(cfg, configPath); err != nil {
				t.Fatalf("failed to load config: %v", err)
			}

			if cfg.Logging.Level != "debug" {
				t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
			}
			if cfg.Logging.LogFile != "psxtool.log" {
				t.Errorf("expected log file 'psxtool.log', got %s", cfg.Logging.LogFile)
			}
			if !cfg.Read.Strict || cfg.Read.ReportSkipped {
				t.Errorf("read section not applied: %+v", cfg.Read)
			}
			if !cfg.Write.Extended || !cfg.Write.NormalizeWeights {
				t.Errorf("write section not applied: %+v", cfg.Write)
			}
			// Keys absent from the file keep their defaults.
			if !cfg.Write.Validate {
				t.Error("expected validate to keep its default")
			}
		})
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()

	files := map[string]string{
		"invalid.yaml": "logging:\n  level: [not, a, string\n  invalid syntax here\n",
		"invalid.toml": "[logging\nlevel = \n",
	}

	for name, content := range files {
		configPath := filepath.Join(tmpDir, name)
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if err := loadFromFile(Default(), configPath); err == nil {
			t.Errorf("%s: expected error, got nil", name)
		}
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if err := loadFromFile(Default(), "/nonexistent/path/psxtool.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if filepath.Base(dir) != "psxkit" {
		t.Errorf("ConfigDir = %s, want a psxkit directory", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	os.Chdir(tmpDir)

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "psxtool.toml"), []byte("[read]\nstrict = true\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	if path := findConfigFile(); filepath.Base(path) != "psxtool.toml" {
		t.Errorf("expected psxtool.toml, got %q", path)
	}

	// YAML wins when both exist in the same directory.
	if err := os.WriteFile(filepath.Join(tmpDir, "psxtool.yaml"), []byte("read:\n  strict: false\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	if path := findConfigFile(); filepath.Base(path) != "psxtool.yaml" {
		t.Errorf("expected psxtool.yaml, got %q", path)
	}
}

func TestFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		verify func(*testing.T, *Config)
	}{
		{
			name: "debug flag",
			args: []string{"-debug"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
		},
		{
			name: "log file flag",
			args: []string{"-log-file", "out.log"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.LogFile != "out.log" {
					t.Errorf("expected log file out.log, got %s", cfg.Logging.LogFile)
				}
			},
		},
		{
			name: "strict flag",
			args: []string{"-strict"},
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Read.Strict {
					t.Error("expected strict with -strict")
				}
			},
		},
		{
			name: "write flags",
			args: []string{"-extended", "-normalize"},
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Write.Extended || !cfg.Write.NormalizeWeights {
					t.Errorf("write flags not applied: %+v", cfg.Write)
				}
			},
		},
		{
			name: "no flags",
			args: nil,
			verify: func(t *testing.T, cfg *Config) {
				if *cfg != *Default() {
					t.Errorf("expected defaults, got %+v", cfg)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f Flags
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			f.Register(fs)
			f.RegisterWrite(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("parse: %v", err)
			}

			cfg := Default()
			f.apply(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "custom.yaml")

	yamlContent := `
logging:
  level: "warn"
write:
  extended: true
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(Flags{ConfigPath: configPath, Debug: true})
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Level comes from the flag, not the file.
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected level debug from flag, got %s", cfg.Logging.Level)
	}
	// Extended comes from the file since no flag overrides it.
	if !cfg.Write.Extended {
		t.Error("expected extended from file")
	}
}

func TestLoadRejectsBadLevel(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "psxtool.yaml")
	if err := os.WriteFile(configPath, []byte("logging:\n  level: loud\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(Flags{ConfigPath: configPath}); err == nil {
		t.Error("expected an error for an unknown log level")
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "psxtool.yaml")

	cfg := Default()
	cfg.Read.Strict = true
	cfg.Logging.LogFile = "psx.log"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded, err := Load(Flags{ConfigPath: path})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("loaded %+v, want %+v", loaded, cfg)
	}
}
