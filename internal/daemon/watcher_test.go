package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testFile = "atualiza.xlsx"

// TestNewFileWatcher verifies constructor validation.
func TestNewFileWatcher(t *testing.T) {
	tests := []struct {
		name     string
		folder   string
		fileName string
		wantErr  bool
	}{
		{"valid", t.TempDir(), testFile, false},
		{"empty folder", "", testFile, true},
		{"empty file name", t.TempDir(), "", true},
		{"file name with directory", t.TempDir(), "sub/atualiza.xlsx", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fw, err := NewFileWatcher(tt.folder, tt.fileName)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFileWatcher() error = %v, wantErr %v", err, tt.wantErr)
			}
			if fw == nil {
				return
			}
			defer fw.Stop()

			if fw.IsRunning() {
				t.Error("Newly created watcher should not be running")
			}
		})
	}
}

func TestFileWatcher_Matches(t *testing.T) {
	fw, err := NewFileWatcher(t.TempDir(), testFile)
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}
	defer fw.Stop()

	tests := []struct {
		path string
		want bool
	}{
		{"/data/atualiza.xlsx", true},
		{"atualiza.xlsx", true},
		{"/data/other.xlsx", false},
		{"/data/~$atualiza.xlsx", false},
		{"/data/atualiza.xlsx.tmp", false},
		{"/data/atualiza.csv", false},
		{"/data/ATUALIZA.xlsx", false},
	}

	for _, tt := range tests {
		if got := fw.Matches(tt.path); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

// TestFileWatcher_StartStop verifies that the watcher can start and stop cleanly.
func TestFileWatcher_StartStop(t *testing.T) {
	fw, err := NewFileWatcher(t.TempDir(), testFile)
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}

	if err := fw.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !fw.IsRunning() {
		t.Error("Watcher should be running after Start()")
	}

	// Starting twice fails
	if err := fw.Start(); err == nil {
		t.Error("Second Start() should fail when watcher is already running")
	}

	if err := fw.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if fw.IsRunning() {
		t.Error("Watcher should not be running after Stop()")
	}

	// Stop is idempotent
	if err := fw.Stop(); err != nil {
		t.Errorf("Second Stop() failed: %v", err)
	}

	if err := fw.Start(); err == nil {
		t.Error("Start() after Stop() should fail")
	}
}

// TestFileWatcher_StartMissingFolder verifies that a missing folder is reported.
func TestFileWatcher_StartMissingFolder(t *testing.T) {
	fw, err := NewFileWatcher(filepath.Join(t.TempDir(), "missing"), testFile)
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}
	defer fw.Stop()

	if err := fw.Start(); err == nil {
		t.Error("Start() should fail for a missing folder")
	}
}

// TestFileWatcher_TargetWritten verifies that writing the target file emits an event.
func TestFileWatcher_TargetWritten(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFileWatcher(dir, testFile)
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}
	defer fw.Stop()

	if err := fw.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	target := filepath.Join(dir, testFile)
	if err := os.WriteFile(target, []byte("data"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	select {
	case event := <-fw.Events():
		if event.Path != target {
			t.Errorf("Event path = %q, want %q", event.Path, target)
		}
		if event.Op != OpCreate && event.Op != OpModify {
			t.Errorf("Event op = %v, want create or modify", event.Op)
		}
	case err := <-fw.Errors():
		t.Fatalf("Unexpected watcher error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for file event")
	}
}

// TestFileWatcher_IgnoresOtherFiles verifies that other files in the folder are ignored.
func TestFileWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFileWatcher(dir, testFile)
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}
	defer fw.Stop()

	if err := fw.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	for _, name := range []string{"other.xlsx", "~$atualiza.xlsx", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("data"), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	select {
	case event := <-fw.Events():
		t.Fatalf("Unexpected event: %+v", event)
	case <-time.After(300 * time.Millisecond):
	}
}

// TestFileWatcher_NestedFolderIgnored verifies that watching is not recursive.
func TestFileWatcher_NestedFolderIgnored(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatalf("Failed to create sub dir: %v", err)
	}

	fw, err := NewFileWatcher(dir, testFile)
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}
	defer fw.Stop()

	if err := fw.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(sub, testFile), []byte("data"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	select {
	case event := <-fw.Events():
		t.Fatalf("Unexpected event from nested folder: %+v", event)
	case <-time.After(300 * time.Millisecond):
	}
}
