//go:build linux

package fileutil

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

func accessTime(path string, info os.FileInfo) time.Time {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return info.ModTime()
	}
	sec, nsec := st.Atim.Unix()
	return time.Unix(sec, nsec)
}
