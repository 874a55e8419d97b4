package fileutil

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// renameFunc is swapped in tests to simulate EXDEV.
var renameFunc = os.Rename

// CrossDeviceError marks a rename that failed because source and destination
// live on different filesystems. Callers never fall back to copy+delete.
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("cross-device rename %q -> %q: %v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

// IsCrossDevice reports whether err carries a CrossDeviceError.
func IsCrossDevice(err error) bool {
	var e *CrossDeviceError
	return errors.As(err, &e)
}

// Rename wraps os.Rename and tags EXDEV failures as CrossDeviceError.
func Rename(src, dst string) error {
	if err := renameFunc(src, dst); err != nil {
		if isEXDEV(err) {
			return &CrossDeviceError{Src: src, Dst: dst, Err: err}
		}
		return err
	}
	return nil
}

// Exists reports whether path can be stat'ed.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// BackupPath returns the first free name of the form path+suffix,
// path+suffix.1, path+suffix.2 and so on.
func BackupPath(path, suffix string) string {
	candidate := path + suffix
	for i := 1; Exists(candidate); i++ {
		candidate = path + suffix + "." + strconv.Itoa(i)
	}
	return candidate
}

// Backup renames path to a free backup name and returns that name. A missing
// path is not an error; the returned name is empty in that case.
func Backup(path, suffix string) (string, error) {
	if !Exists(path) {
		return "", nil
	}
	dest := BackupPath(path, suffix)
	if err := Rename(path, dest); err != nil {
		return "", fmt.Errorf("backup %s: %w", path, err)
	}
	return dest, nil
}

// ReplaceWithBackup moves replacement over target. The replacement must exist
// before target is touched; an existing target is preserved under a backup
// name which is returned. When the final rename fails the backup is moved
// back so target is left as it was found.
func ReplaceWithBackup(replacement, target, suffix string) (string, error) {
	if _, err := os.Stat(replacement); err != nil {
		return "", fmt.Errorf("verify replacement: %w", err)
	}
	if replacement == target {
		return "", nil
	}
	backup, err := Backup(target, suffix)
	if err != nil {
		return "", err
	}
	if err := Rename(replacement, target); err != nil {
		if backup != "" {
			if restoreErr := Rename(backup, target); restoreErr != nil {
				return "", errors.Join(fmt.Errorf("replace %s: %w", target, err), fmt.Errorf("restore backup: %w", restoreErr))
			}
		}
		return "", fmt.Errorf("replace %s: %w", target, err)
	}
	return backup, nil
}
