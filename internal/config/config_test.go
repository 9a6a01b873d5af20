package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Output.Format != "text" {
		t.Errorf("Default format = %q, want %q", cfg.Output.Format, "text")
	}
	if cfg.Output.Path != "stdout" {
		t.Errorf("Default path = %q, want %q", cfg.Output.Path, "stdout")
	}
	if !cfg.Output.ShowSource {
		t.Error("Default ShowSource = false, want true")
	}
	if cfg.Output.FailLevel != "warning" {
		t.Errorf("Default fail level = %q, want %q", cfg.Output.FailLevel, "warning")
	}

	d, err := cfg.DelayDuration()
	if err != nil {
		t.Fatalf("DelayDuration() error: %v", err)
	}
	if d != 100*time.Millisecond {
		t.Errorf("Default delay = %v, want 100ms", d)
	}
}

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	content := `
delay = "250ms"
concurrency = 2
paths = ["/opt/lint/bin"]

[output]
format = "json"
fail-level = "error"

[linters.flake8]
command = ["flake8", "-"]
args = ["--max-line-length", "100"]
regex = 'stdin:(?P<line>\d+):(?P<col>\d+): (?P<code>\S+) (?P<message>.*)'
selector = ["*.py"]
env = { PYTHONWARNINGS = "ignore" }
ok-codes = [0, 1]

[linters.mypy]
command = ["mypy"]
selector = ["*.py"]
disable = true

[[styles]]
linter = "flake8"
codes = ["E5*"]
priority = 2
`
	path := writeConfig(t, t.TempDir(), ".relint.toml", content)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}

	if d, _ := cfg.DelayDuration(); d != 250*time.Millisecond {
		t.Errorf("delay = %v, want 250ms", d)
	}
	if cfg.Concurrency != 2 {
		t.Errorf("concurrency = %d, want 2", cfg.Concurrency)
	}
	if len(cfg.Paths) != 1 || cfg.Paths[0] != "/opt/lint/bin" {
		t.Errorf("paths = %v", cfg.Paths)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("format = %q, want json", cfg.Output.Format)
	}
	if cfg.Output.FailLevel != "error" {
		t.Errorf("fail level = %q, want error", cfg.Output.FailLevel)
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}

	flake8, ok := cfg.Linters["flake8"]
	if !ok {
		t.Fatal("missing linters.flake8")
	}
	if len(flake8.Command) != 2 || flake8.Command[0] != "flake8" {
		t.Errorf("flake8 command = %v", flake8.Command)
	}
	if len(flake8.Args) != 2 {
		t.Errorf("flake8 args = %v", flake8.Args)
	}
	if flake8.Env["PYTHONWARNINGS"] != "ignore" {
		t.Errorf("flake8 env = %v", flake8.Env)
	}
	if len(flake8.OKCodes) != 2 {
		t.Errorf("flake8 ok-codes = %v", flake8.OKCodes)
	}
	if !cfg.Linters["mypy"].Disable {
		t.Error("mypy should be disabled")
	}

	if len(cfg.Styles) != 1 || cfg.Styles[0].Priority != 2 {
		t.Errorf("styles = %+v", cfg.Styles)
	}
}

func TestLoadTopLevelOutputAliases(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "relint.toml", "format = \"sarif\"\nfail-level = \"none\"\n")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Output.Format != "sarif" {
		t.Errorf("format = %q, want sarif", cfg.Output.Format)
	}
	if cfg.Output.FailLevel != "none" {
		t.Errorf("fail level = %q, want none", cfg.Output.FailLevel)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad delay", "delay = \"soon\"\n"},
		{"negative concurrency", "concurrency = -1\n"},
		{"bad fail level", "fail-level = \"fatal\"\n"},
		{"bad regex", "[linters.broken]\nregex = '(?P<line'\n"},
		{"bad error filter", "[linters.broken]\nerror-filter = ['[']\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), ".relint.toml", tt.content)
			if _, err := LoadFromFile(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RELINT_OUTPUT_FORMAT", "json")
	t.Setenv("RELINT_FAIL_LEVEL", "error")
	t.Setenv("RELINT_DELAY", "1s")
	t.Setenv("RELINT_LINTERS_FLAKE8_MULTILINE", "true")

	cfg, err := LoadFromFile("")
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("format = %q, want json", cfg.Output.Format)
	}
	if cfg.Output.FailLevel != "error" {
		t.Errorf("fail level = %q, want error", cfg.Output.FailLevel)
	}
	if d, _ := cfg.DelayDuration(); d != time.Second {
		t.Errorf("delay = %v, want 1s", d)
	}
	if !cfg.Linters["flake8"].Multiline {
		t.Error("linters.flake8.multiline not set from env")
	}
}

func TestEnvIgnoresUnknownTopLevelKeys(t *testing.T) {
	t.Setenv("RELINT_EDITOR", "vi")

	cfg, err := LoadFromFile("")
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Output.Format != "text" {
		t.Errorf("format = %q, want text", cfg.Output.Format)
	}
}

func TestDiscover(t *testing.T) {
	tmpDir := t.TempDir()

	subDir := filepath.Join(tmpDir, "project", "src")
	if err := os.MkdirAll(subDir, 0o750); err != nil {
		t.Fatal(err)
	}

	targetPath := filepath.Join(subDir, "app.py")
	if err := os.WriteFile(targetPath, []byte("print('hi')\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("no config file", func(t *testing.T) {
		result := Discover(targetPath)
		if result != "" {
			t.Errorf("Discover() = %q, want empty string", result)
		}
	})

	t.Run("config in same directory", func(t *testing.T) {
		configPath := writeConfig(t, subDir, ".relint.toml", "format = \"json\"")
		defer os.Remove(configPath)

		result := Discover(targetPath)
		if result != configPath {
			t.Errorf("Discover() = %q, want %q", result, configPath)
		}
	})

	t.Run("config in parent directory", func(t *testing.T) {
		configPath := writeConfig(t, filepath.Join(tmpDir, "project"), "relint.toml", "format = \"json\"")
		defer os.Remove(configPath)

		result := Discover(targetPath)
		if result != configPath {
			t.Errorf("Discover() = %q, want %q", result, configPath)
		}
	})

	t.Run("prefers .relint.toml over relint.toml", func(t *testing.T) {
		hiddenConfig := writeConfig(t, subDir, ".relint.toml", "# hidden")
		defer os.Remove(hiddenConfig)
		visibleConfig := writeConfig(t, subDir, "relint.toml", "# visible")
		defer os.Remove(visibleConfig)

		result := Discover(targetPath)
		if result != hiddenConfig {
			t.Errorf("Discover() = %q, want %q (should prefer .relint.toml)", result, hiddenConfig)
		}
	})

	t.Run("closer config wins", func(t *testing.T) {
		nearConfig := writeConfig(t, subDir, "relint.toml", "# near")
		defer os.Remove(nearConfig)
		farConfig := writeConfig(t, tmpDir, ".relint.toml", "# far")
		defer os.Remove(farConfig)

		result := Discover(targetPath)
		if result != nearConfig {
			t.Errorf("Discover() = %q, want %q", result, nearConfig)
		}
	})
}

func TestLintersFor(t *testing.T) {
	cfg := &Config{Linters: map[string]LinterConfig{
		"flake8": {Selector: []string{"*.py"}},
		"mypy":   {Selector: []string{"*.py"}, Disable: true},
		"eslint": {Selector: []string{"*.js", "*.jsx"}},
		"vale":   {Selector: []string{"docs/**/*.md"}},
		"bare":   {},
	}}

	tests := []struct {
		filename string
		want     []string
	}{
		{"/src/app.py", []string{"flake8"}},
		{"/web/ui.jsx", []string{"eslint"}},
		{"/repo/docs/guide/intro.md", []string{"vale"}},
		{"/repo/README.md", nil},
		{"/src/main.go", nil},
	}
	for _, tt := range tests {
		got := cfg.LintersFor(tt.filename)
		if len(got) != len(tt.want) {
			t.Errorf("LintersFor(%q) = %v, want %v", tt.filename, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("LintersFor(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		}
	}
}

func TestLintersForSorted(t *testing.T) {
	cfg := &Config{Linters: map[string]LinterConfig{
		"zeta":  {Selector: []string{"*.py"}},
		"alpha": {Selector: []string{"**/*.py"}},
	}}

	got := cfg.LintersFor("/src/app.py")
	if len(got) != 2 || got[0] != "alpha" || got[1] != "zeta" {
		t.Errorf("LintersFor() = %v, want [alpha zeta]", got)
	}
}

func TestStyleRules(t *testing.T) {
	cfg := &Config{Styles: []StyleConfig{
		{Linter: "flake8", Codes: []string{"E5*"}, Priority: 3},
		{Types: []string{"error"}, Priority: 1},
	}}

	rules := cfg.StyleRules()
	if len(rules) != 2 {
		t.Fatalf("StyleRules() = %d rules, want 2", len(rules))
	}
	if rules[0].Priority != 3 || rules[1].Priority != 1 {
		t.Errorf("rules out of order: %+v", rules)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".relint.toml", "[output]\nformat = \"json\"\npath = \"stderr\"\n")
	target := filepath.Join(dir, "app.py")

	t.Run("editor first", func(t *testing.T) {
		overrides := map[string]any{
			"output": map[string]any{"format": "sarif"},
		}
		cfg, err := LoadWithOverrides(target, overrides, ConfigurationPreferenceEditorFirst)
		if err != nil {
			t.Fatalf("LoadWithOverrides() error: %v", err)
		}
		if cfg.Output.Format != "sarif" {
			t.Errorf("format = %q, want sarif (override wins)", cfg.Output.Format)
		}
		if cfg.Output.Path != "stderr" {
			t.Errorf("path = %q, want stderr (file value preserved)", cfg.Output.Path)
		}
	})

	t.Run("filesystem first", func(t *testing.T) {
		overrides := map[string]any{
			"output": map[string]any{"format": "sarif"},
		}
		cfg, err := LoadWithOverrides(target, overrides, ConfigurationPreferenceFilesystemFirst)
		if err != nil {
			t.Fatalf("LoadWithOverrides() error: %v", err)
		}
		if cfg.Output.Format != "json" {
			t.Errorf("format = %q, want json (file wins)", cfg.Output.Format)
		}
	})

	t.Run("editor only skips discovery", func(t *testing.T) {
		cfg, err := LoadWithOverrides(target, nil, ConfigurationPreferenceEditorOnly)
		if err != nil {
			t.Fatalf("LoadWithOverrides() error: %v", err)
		}
		if cfg.Output.Format != "text" {
			t.Errorf("format = %q, want text (defaults)", cfg.Output.Format)
		}
		if cfg.ConfigFile != "" {
			t.Errorf("ConfigFile = %q, want empty", cfg.ConfigFile)
		}
	})
}
