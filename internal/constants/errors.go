package constants

import "errors"

var (
	ErrInvalidRoot       = errors.New("invalid root")
	ErrUnknownRoot       = errors.New("unknown root")
	ErrUnformattable     = errors.New("root has no device")
	ErrUnmountFailed     = errors.New("unmount failed")
	ErrPartitionNotFound = errors.New("flash partition not found")
	ErrUnsupportedDevice = errors.New("unsupported device")
	ErrFlashOpenFailed   = errors.New("flash open failed")
	ErrEraseFailed       = errors.New("flash erase failed")
	ErrCloseFailed       = errors.New("flash close failed")

	ErrNotFound       = errors.New("not found")
	ErrBufferTooSmall = errors.New("buffer too small")
	ErrScan           = errors.New("mount table scan failed")
	ErrAlreadyMounted = errors.New("already mounted")
	ErrNotMountable   = errors.New("root is not mountable")
	ErrMountFailed    = errors.New("mount failed")
)

// exitCodes keeps the order of precedence when an error wraps several sentinels.
var exitCodes = []struct {
	err  error
	code int
}{
	{ErrInvalidRoot, 2},
	{ErrUnknownRoot, 3},
	{ErrUnformattable, 4},
	{ErrUnmountFailed, 5},
	{ErrPartitionNotFound, 6},
	{ErrUnsupportedDevice, 7},
	{ErrFlashOpenFailed, 8},
	{ErrEraseFailed, 9},
	{ErrCloseFailed, 10},
	{ErrNotFound, 11},
	{ErrBufferTooSmall, 12},
	{ErrScan, 13},
	{ErrNotMountable, 14},
	{ErrMountFailed, 15},
}

// ExitCode maps an error to the process exit status. nil maps to 0 and
// errors outside the taxonomy map to 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	for _, e := range exitCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return 1
}
