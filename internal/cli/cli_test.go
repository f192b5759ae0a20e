package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func emptyConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigCommand_FlagOverrides(t *testing.T) {
	logDir := t.TempDir()

	out, err := execute(t, "config", "--config", emptyConfig(t), "--log-dir", logDir, "--backstop", "15s")
	if err != nil {
		t.Fatalf("config error = %v", err)
	}
	if !strings.Contains(out, logDir) {
		t.Errorf("output missing log dir %q:\n%s", logDir, out)
	}
	if !strings.Contains(out, "15s") {
		t.Errorf("output missing backstop override:\n%s", out)
	}
}

func TestConfigCommand_EnvOverrides(t *testing.T) {
	t.Setenv("WOWR_VARIANT", "chaptered")
	t.Setenv("WOWR_OBS_PASSWORD", "hunter2")

	out, err := execute(t, "config", "--config", emptyConfig(t), "--log-dir", t.TempDir())
	if err != nil {
		t.Fatalf("config error = %v", err)
	}
	if !strings.Contains(out, "chaptered") {
		t.Errorf("output missing env variant:\n%s", out)
	}
	if strings.Contains(out, "hunter2") {
		t.Errorf("output leaks the OBS password:\n%s", out)
	}
}

func TestConfigCommand_InvalidVariant(t *testing.T) {
	_, err := execute(t, "config", "--config", emptyConfig(t), "--log-dir", t.TempDir(), "--variant", "montage")
	if err == nil {
		t.Fatal("config error = nil, want invalid variant error")
	}
}

func TestScanCommand(t *testing.T) {
	logDir := t.TempDir()
	line := time.Now().Add(-time.Second).Format("1/2/2006 15:04:05") +
		`.000-4  CHALLENGE_MODE_START,"The Stonevault",2652,501,10` + "\n"
	if err := os.WriteFile(filepath.Join(logDir, "WoWCombatLog-101926_210000.txt"), []byte(line), 0o644); err != nil {
		t.Fatalf("write combat log: %v", err)
	}

	out, err := execute(t, "scan", "--config", emptyConfig(t), "--log-dir", logDir)
	if err != nil {
		t.Fatalf("scan error = %v", err)
	}
	for _, want := range []string{"CHALLENGE_MODE_START", `"The Stonevault"`, "transition", "start issued"} {
		if !strings.Contains(out, want) {
			t.Errorf("scan output missing %q:\n%s", want, out)
		}
	}
}

func TestScanCommand_NoLog(t *testing.T) {
	out, err := execute(t, "scan", "--config", emptyConfig(t), "--log-dir", t.TempDir())
	if err == nil {
		t.Fatalf("scan error = nil, want missing log error\n%s", out)
	}
	if !strings.Contains(out, "resolve_error") {
		t.Errorf("scan output missing halt reason:\n%s", out)
	}
}

func TestRecordCommand_DryRun(t *testing.T) {
	out, err := execute(t, "record", "start", "--dry-run", "--config", emptyConfig(t), "--log-dir", t.TempDir())
	if err != nil {
		t.Fatalf("record error = %v", err)
	}
	if !strings.Contains(out, "start issued") || !strings.Contains(out, "recording: recording") {
		t.Errorf("record output = %q", out)
	}
}

func TestRecordCommand_RejectsUnknownAction(t *testing.T) {
	if _, err := execute(t, "record", "rewind", "--dry-run", "--config", emptyConfig(t), "--log-dir", t.TempDir()); err == nil {
		t.Fatal("record error = nil, want unknown action error")
	}
}
