package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	Sync()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	return string(content)
}

func TestSlicerLogRotates(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "provelslice.log")

	// lumberjack's smallest size is 1MB.
	err := InitWithFileConfig("debug", FileConfig{Path: logFile, MaxSizeMB: 1, MaxBackups: 2, MaxAgeDays: 1}, false)
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	defer Nop()

	log := Named("slicer")
	heights := strings.Repeat("0.5,", 60)
	for k := 0; k < 4500; k++ {
		log.Debug("ray missed mesh",
			zap.Int("level", k),
			zap.Int("angle", k%128),
			zap.String("heights", heights))
	}
	Sync()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read log dir: %v", err)
	}

	var rotated []string
	for _, e := range entries {
		name := e.Name()
		if name != "provelslice.log" && strings.HasPrefix(name, "provelslice-") {
			rotated = append(rotated, name)
		}
	}
	if len(rotated) == 0 {
		t.Fatalf("no rotated slicer log in %v", entries)
	}
	if len(rotated) > 2 {
		t.Errorf("kept %d backups, want at most 2", len(rotated))
	}
	if _, err := os.Stat(logFile); err != nil {
		t.Errorf("active log missing: %v", err)
	}
}

func TestStageMessagesByLevel(t *testing.T) {
	dir := t.TempDir()

	messages := map[string]string{
		"debug": "ray missed mesh",
		"info":  "extracted rings",
		"warn":  "ring has missing samples",
		"error": "slicing failed",
	}
	order := []string{"debug", "info", "warn", "error"}

	for i, level := range order {
		t.Run(level, func(t *testing.T) {
			logFile := filepath.Join(dir, level+".log")
			if err := InitWithFileConfig(level, FileConfig{Path: logFile, MaxSizeMB: 10}, false); err != nil {
				t.Fatalf("failed to init logger: %v", err)
			}
			defer Nop()

			Debug(messages["debug"], zap.Float64("height", 12))
			Info(messages["info"], zap.Int("rings", 40))
			Warn(messages["warn"], zap.Int("missing", 3))
			Error(messages["error"], zap.Error(os.ErrNotExist))

			content := readLog(t, logFile)
			for j, l := range order {
				logged := strings.Contains(content, messages[l])
				if want := j >= i; logged != want {
					t.Errorf("level %s: %q logged = %v, want %v", level, messages[l], logged, want)
				}
			}
		})
	}
}

func TestNamedStageInFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "stages.log")
	if err := InitWithFileConfig("info", FileConfig{Path: logFile, MaxSizeMB: 10}, false); err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	defer Nop()

	Named("blend").Info("blended rings", zap.Int("moved", 7))

	content := readLog(t, logFile)
	if !strings.Contains(content, "blend") || !strings.Contains(content, "moved") {
		t.Errorf("stage name or field missing from %q", content)
	}
}

func TestDefaultFileConfig(t *testing.T) {
	cfg := DefaultFileConfig("/var/log/provelslice.log")

	if cfg.Path != "/var/log/provelslice.log" {
		t.Errorf("expected path /var/log/provelslice.log, got %s", cfg.Path)
	}
	if cfg.MaxSizeMB != 50 || cfg.MaxBackups != 3 || cfg.MaxAgeDays != 7 {
		t.Errorf("unexpected rotation limits: %+v", cfg)
	}
	if !cfg.Compress {
		t.Error("expected Compress to be true")
	}
}

func TestDefaultLoggerDiscards(t *testing.T) {
	Nop()
	// Must not panic before Init.
	Info("slice started", zap.Int("rings", 3))
	Named("slicer").Warn("sparse ring")
}

func TestJSONConsole(t *testing.T) {
	var buf bytes.Buffer
	err := InitWithOptions(Options{Level: "info", Console: true, JSON: true, Stderr: &buf})
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	defer Nop()

	Named("agent").Info("job queued", zap.String("job", "abc"))
	Debug("hidden")
	Sync()

	out := buf.String()
	if !strings.Contains(out, `"msg":"job queued"`) {
		t.Errorf("missing message in %q", out)
	}
	if !strings.Contains(out, `"logger":"agent"`) {
		t.Errorf("missing logger name in %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line leaked at info level: %q", out)
	}
}
