package cli

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"santasleigh/internal/global"
	"santasleigh/internal/logctx"
	"santasleigh/internal/supervisor"
	"strings"
	"testing"
)

func TestCreateTemplateConfig(t *testing.T) {
	tests := []struct {
		name        string
		existing    string
		interactive bool
		answer      string
		expectTmpl  bool
	}{
		{"new file", "", false, "", true},
		{"existing without terminal", "keep me", false, "", false},
		{"existing answered yes", "keep me", true, "yes\n", true},
		{"existing answered no", "keep me", true, "no\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "etc", "config.json")
			if tt.existing != "" {
				os.MkdirAll(filepath.Dir(path), 0755)
				os.WriteFile(path, []byte(tt.existing), 0600)
			}

			var out bytes.Buffer
			err := CreateTemplateConfig(path, tt.interactive, strings.NewReader(tt.answer), &out)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if tt.expectTmpl && string(data) != supervisor.ConfigTemplate {
				t.Fatalf("expected template to be written, got %q", data)
			}
			if !tt.expectTmpl && string(data) != tt.existing {
				t.Fatalf("existing file was modified: %q", data)
			}
		})
	}
}

func TestModeExitCodes(t *testing.T) {
	cliOpts := DefineOptions()
	missing := filepath.Join(t.TempDir(), "absent.json")

	invalid := filepath.Join(t.TempDir(), "invalid.json")
	os.WriteFile(invalid, []byte(`{"upload": {"sink": "carrier-pigeon"}}`), 0600)

	logger := logctx.NewLogger(global.NSTest, global.VerbosityNone, make(chan struct{}))
	ctx := logctx.WithLogger(context.Background(), logger)

	tests := []struct {
		name     string
		run      func() int
		expected int
	}{
		{"run unknown flag", func() int { return RunMode(ctx, logger, cliOpts, "run", []string{"--bogus"}) }, ExitUsage},
		{"run stray argument", func() int { return RunMode(ctx, logger, cliOpts, "run", []string{"-c", missing, "extra"}) }, ExitUsage},
		{"run missing config", func() int { return RunMode(ctx, logger, cliOpts, "run", []string{"-c", missing}) }, ExitFailure},
		{"run invalid config", func() int { return RunMode(ctx, logger, cliOpts, "run", []string{"-c", invalid}) }, ExitFailure},
		{"configure without action", func() int { return SetupMode(cliOpts, "configure", []string{"-c", missing}) }, ExitUsage},
		{"configure no args", func() int { return SetupMode(cliOpts, "configure", nil) }, ExitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.run(); got != tt.expected {
				t.Fatalf("expected exit code %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestHelpMenu(t *testing.T) {
	root := DefineOptions()

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var configPath string
	SetCommon(fs, &configPath)
	fs.Bool("dry", false, "Only validate")

	tests := []struct {
		name    string
		command string
		want    []string
		absent  []string
	}{
		{
			name:    "root lists commands and trailer",
			command: RootCLICommand,
			want:    []string{"Usage: santa-sleigh [options] <command>", "configure", "run", "version", "Exit status:"},
		},
		{
			name:    "command usage and paired options",
			command: "run",
			want:    []string{"Usage: santa-sleigh run [-c config]", "-c, --config", "[default: " + global.DefaultConfigPath + "]", "    --dry"},
			absent:  []string{"Exit status:", "[default: false]"},
		},
		{
			name:    "unknown command",
			command: "frobnicate",
			want:    []string{"Unknown command: frobnicate"},
			absent:  []string{"Options:"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			writeHelpMenu(&out, "santa-sleigh", fs, tt.command, root)
			for _, want := range tt.want {
				if !strings.Contains(out.String(), want) {
					t.Fatalf("missing %q in:\n%s", want, out.String())
				}
			}
			for _, absent := range tt.absent {
				if strings.Contains(out.String(), absent) {
					t.Fatalf("unexpected %q in:\n%s", absent, out.String())
				}
			}
		})
	}
}
