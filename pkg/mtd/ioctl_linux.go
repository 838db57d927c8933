//go:build linux

package mtd

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// From include/uapi/mtd/mtd-abi.h, not exported by x/sys/unix.
const (
	memGetInfo     = 0x80204d01 // _IOR('M', 1, struct mtd_info_user)
	memErase       = 0x40084d02 // _IOW('M', 2, struct erase_info_user)
	memGetBadBlock = 0x40084d0b // _IOW('M', 11, __kernel_loff_t)
)

type mtdInfoUser struct {
	Type      uint8
	_         [3]byte
	Flags     uint32
	Size      uint32
	EraseSize uint32
	WriteSize uint32
	OobSize   uint32
	_         uint64
}

type eraseInfoUser struct {
	Start  uint32
	Length uint32
}

func ioctl(fd uintptr, req uintptr, arg unsafe.Pointer) (uintptr, error) {
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg))
	if errno != 0 {
		return r, errno
	}
	return r, nil
}

// eraseDevice erases every erase block of the device, skipping the ones marked bad.
// Returns how many blocks were skipped.
func eraseDevice(f *os.File) (int, error) {
	fd := f.Fd()

	var info mtdInfoUser
	if _, err := ioctl(fd, memGetInfo, unsafe.Pointer(&info)); err != nil {
		return 0, fmt.Errorf("MEMGETINFO on %s: %w", f.Name(), err)
	}
	if info.EraseSize == 0 {
		return 0, fmt.Errorf("%s reports a zero erase size", f.Name())
	}

	skipped := 0
	for pos := uint32(0); pos < info.Size; pos += info.EraseSize {
		off := int64(pos)
		// Devices without bad block support answer EOPNOTSUPP, every block is good then
		if bad, err := ioctl(fd, memGetBadBlock, unsafe.Pointer(&off)); err == nil && bad > 0 {
			skipped++
			continue
		}
		ei := eraseInfoUser{Start: pos, Length: info.EraseSize}
		if _, err := ioctl(fd, memErase, unsafe.Pointer(&ei)); err != nil {
			return skipped, fmt.Errorf("MEMERASE on %s at 0x%08x: %w", f.Name(), pos, err)
		}
	}
	return skipped, nil
}
