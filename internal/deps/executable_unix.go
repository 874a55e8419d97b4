//go:build unix

package deps

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return unix.Access(path, unix.X_OK)
}
