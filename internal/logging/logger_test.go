package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func resetLogging() {
	CloseAll()
	configMu.Lock()
	logsDir = ""
	config = Config{}
	configMu.Unlock()
	level.SetLevel(parseLevel(""))
}

// TestAllCategoriesLog tests that all categories create log files when debug_mode is true
func TestAllCategoriesLog(t *testing.T) {
	resetLogging()
	defer resetLogging()
	tempDir := t.TempDir()

	if err := Initialize(tempDir, Config{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	if !IsDebugMode() {
		t.Error("Expected debug mode to be enabled")
	}

	categories := []Category{
		CategoryBoot,
		CategoryConfig,
		CategoryAPI,
		CategoryPerception,
		CategoryContext,
		CategoryShards,
		CategoryArticulation,
		CategoryStore,
		CategoryEmbedding,
		CategoryArchive,
		CategorySession,
	}

	for _, cat := range categories {
		if !IsCategoryEnabled(cat) {
			t.Errorf("Category %s should be enabled", cat)
		}
		logger := Get(cat)
		logger.Info("Test info message for %s", cat)
		logger.Debug("Test debug message for %s", cat)
		logger.Warn("Test warn message for %s", cat)
		logger.Error("Test error message for %s", cat)
	}

	Boot("Convenience boot log")
	Perception("Convenience perception log")
	Shards("Convenience shards log")
	Archive("Convenience archive log")

	CloseAll()

	logsPath := filepath.Join(tempDir, "logs")
	entries, err := os.ReadDir(logsPath)
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}

	for _, cat := range categories {
		found := false
		for _, entry := range entries {
			if strings.HasSuffix(entry.Name(), "_"+string(cat)+".log") {
				found = true
				content, err := os.ReadFile(filepath.Join(logsPath, entry.Name()))
				if err != nil {
					t.Errorf("Failed to read log file for %s: %v", cat, err)
					continue
				}
				if !strings.Contains(string(content), "Test debug message") {
					t.Errorf("Log file for %s is missing debug output", cat)
				}
				break
			}
		}
		if !found {
			t.Errorf("No log file found for category: %s", cat)
		}
	}
}

// TestDebugModeDisabled tests that no logs are created when debug_mode is false
func TestDebugModeDisabled(t *testing.T) {
	resetLogging()
	defer resetLogging()
	tempDir := t.TempDir()

	if err := Initialize(tempDir, Config{DebugMode: false, Level: "debug"}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	if IsDebugMode() {
		t.Error("Expected debug mode to be DISABLED")
	}
	if IsCategoryEnabled(CategoryBoot) {
		t.Error("boot should be DISABLED when debug_mode=false")
	}

	Boot("This should NOT be logged")
	Get(CategoryShards).Error("This should NOT be logged")
	WithRequestID(CategorySession, "req-1").Info("This should NOT be logged")
	CloseAll()

	if _, err := os.Stat(filepath.Join(tempDir, "logs")); !os.IsNotExist(err) {
		t.Errorf("Expected no logs directory, stat err = %v", err)
	}
}

// TestCategoryToggle tests individual category enable/disable
func TestCategoryToggle(t *testing.T) {
	resetLogging()
	defer resetLogging()
	tempDir := t.TempDir()

	cfg := Config{
		DebugMode:  true,
		Level:      "info",
		Categories: map[string]bool{"boot": true, "shards": false},
	}
	if err := Initialize(tempDir, cfg); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	if !IsCategoryEnabled(CategoryBoot) {
		t.Error("boot should be enabled")
	}
	if IsCategoryEnabled(CategoryShards) {
		t.Error("shards should be DISABLED")
	}
	if !IsCategoryEnabled(CategoryArchive) {
		t.Error("archive (not in config) should default to enabled")
	}

	Shards("This should NOT be logged")
	Archive("This SHOULD be logged")
	CloseAll()

	entries, _ := os.ReadDir(filepath.Join(tempDir, "logs"))
	var hasShards, hasArchive bool
	for _, e := range entries {
		if strings.Contains(e.Name(), "shards") {
			hasShards = true
		}
		if strings.Contains(e.Name(), "archive") {
			hasArchive = true
		}
	}
	if hasShards {
		t.Error("Did NOT expect shards log file")
	}
	if !hasArchive {
		t.Error("Expected archive log file")
	}
}

func TestConfigureChangesLevel(t *testing.T) {
	resetLogging()
	defer resetLogging()
	tempDir := t.TempDir()

	if err := Initialize(tempDir, Config{DebugMode: true, Level: "warn"}); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}
	Store("hidden at warn level")

	Configure(Config{DebugMode: true, Level: "debug"})
	StoreDebug("visible after reload")
	CloseAll()

	entries, _ := os.ReadDir(filepath.Join(tempDir, "logs"))
	for _, e := range entries {
		if !strings.Contains(e.Name(), "store") {
			continue
		}
		content, _ := os.ReadFile(filepath.Join(tempDir, "logs", e.Name()))
		if strings.Contains(string(content), "hidden at warn level") {
			t.Error("info line should have been filtered at warn level")
		}
		if !strings.Contains(string(content), "visible after reload") {
			t.Error("debug line should be written after reload")
		}
		return
	}
	t.Error("Expected store log file")
}

func TestTimer(t *testing.T) {
	resetLogging()
	timer := StartTimer(CategorySession, "noop")
	time.Sleep(time.Millisecond)
	if d := timer.Stop(); d <= 0 {
		t.Errorf("expected positive duration, got %v", d)
	}
	if d := StartTimer(CategorySession, "fast").StopWithThreshold(time.Hour); d >= time.Hour {
		t.Errorf("unexpected duration %v", d)
	}
}

func TestInitializeRequiresDir(t *testing.T) {
	if err := Initialize("", Config{}); err == nil {
		t.Error("expected error for empty data dir")
	}
}
