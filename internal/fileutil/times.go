package fileutil

import (
	"fmt"
	"os"
	"time"
)

// Times is a snapshot of a file's timestamps taken before a job touches it.
type Times struct {
	Modified time.Time
	Accessed time.Time
}

// IsZero reports whether no snapshot was captured.
func (t Times) IsZero() bool {
	return t.Modified.IsZero()
}

// CaptureTimes records path's modification and access times.
func CaptureTimes(path string) (Times, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Times{}, fmt.Errorf("capture times: %w", err)
	}
	return Times{Modified: info.ModTime(), Accessed: accessTime(path, info)}, nil
}

// RestoreTimes applies a snapshot to path. A zero snapshot is a no-op.
func RestoreTimes(path string, t Times) error {
	if t.IsZero() {
		return nil
	}
	accessed := t.Accessed
	if accessed.IsZero() {
		accessed = t.Modified
	}
	if err := os.Chtimes(path, accessed, t.Modified); err != nil {
		return fmt.Errorf("restore times: %w", err)
	}
	return nil
}
