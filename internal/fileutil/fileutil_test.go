package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestBackupPathPicksFreeName(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "movie.mkv")
	if got := BackupPath(target, ".bak"); got != target+".bak" {
		t.Fatalf("BackupPath = %q", got)
	}
	writeFile(t, target+".bak", "old")
	writeFile(t, target+".bak.1", "older")
	if got := BackupPath(target, ".bak"); got != target+".bak.2" {
		t.Fatalf("BackupPath = %q, want .bak.2", got)
	}
}

func TestBackupMissingIsNoop(t *testing.T) {
	dir := t.TempDir()
	got, err := Backup(filepath.Join(dir, "absent"), ".bak")
	if err != nil || got != "" {
		t.Fatalf("Backup(absent) = %q, %v", got, err)
	}
}

func TestReplaceWithBackup(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "movie.mkv")
	replacement := target + ".partial"
	writeFile(t, target, "original")
	writeFile(t, replacement, "merged")

	backup, err := ReplaceWithBackup(replacement, target, ".bak")
	if err != nil {
		t.Fatalf("ReplaceWithBackup: %v", err)
	}
	if backup != target+".bak" {
		t.Fatalf("backup = %q", backup)
	}
	if got := readFile(t, target); got != "merged" {
		t.Fatalf("target content = %q", got)
	}
	if got := readFile(t, backup); got != "original" {
		t.Fatalf("backup content = %q", got)
	}
	if Exists(replacement) {
		t.Fatal("replacement should be consumed")
	}
}

func TestReplaceWithBackupRequiresReplacement(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "movie.mkv")
	writeFile(t, target, "original")

	if _, err := ReplaceWithBackup(target+".partial", target, ".bak"); err == nil {
		t.Fatal("expected error for missing replacement")
	}
	if got := readFile(t, target); got != "original" {
		t.Fatalf("target should be untouched, got %q", got)
	}
	if Exists(target + ".bak") {
		t.Fatal("no backup should be made when replacement is missing")
	}
}

func TestReplaceWithBackupRestoresOnRenameFailure(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "movie.mkv")
	replacement := target + ".partial"
	writeFile(t, target, "original")
	writeFile(t, replacement, "merged")

	old := renameFunc
	renameFunc = func(src, dst string) error {
		if src == replacement {
			return &os.LinkError{Op: "rename", Old: src, New: dst, Err: syscall.EXDEV}
		}
		return old(src, dst)
	}
	defer func() { renameFunc = old }()

	_, err := ReplaceWithBackup(replacement, target, ".bak")
	if !IsCrossDevice(err) {
		t.Fatalf("expected CrossDeviceError, got %v", err)
	}
	if got := readFile(t, target); got != "original" {
		t.Fatalf("target should be restored, got %q", got)
	}
}

func TestRenameCrossDevice(t *testing.T) {
	old := renameFunc
	renameFunc = func(src, dst string) error {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: syscall.EXDEV}
	}
	defer func() { renameFunc = old }()

	err := Rename("/a", "/b")
	var cross *CrossDeviceError
	if !errors.As(err, &cross) || cross.Src != "/a" || cross.Dst != "/b" {
		t.Fatalf("expected CrossDeviceError, got %T %v", err, err)
	}
}

func TestCaptureAndRestoreTimes(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeFile(t, src, "a")
	writeFile(t, dst, "b")

	stamp := time.Date(2019, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(src, stamp, stamp); err != nil {
		t.Fatal(err)
	}
	times, err := CaptureTimes(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := RestoreTimes(dst, times); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(stamp) {
		t.Fatalf("mtime = %v, want %v", info.ModTime(), stamp)
	}
	if err := RestoreTimes(dst, Times{}); err != nil {
		t.Fatalf("zero snapshot should be a no-op: %v", err)
	}
}
