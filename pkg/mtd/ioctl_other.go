//go:build !linux

package mtd

import (
	"errors"
	"os"
)

func eraseDevice(f *os.File) (int, error) {
	return 0, errors.New("erasing flash devices is only supported on linux, " + f.Name())
}
