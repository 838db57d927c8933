package roots

import (
	"fmt"
	"strings"

	cnst "github.com/kairos-io/recoveryroots/internal/constants"
)

// SplitRootPath splits "SYSTEM:lib/libc.so" into "SYSTEM" and "lib/libc.so".
// The name ends at the first separator; ok is false when there is none.
func SplitRootPath(rootPath string) (name, rel string, ok bool) {
	i := strings.Index(rootPath, cnst.RootSeparator)
	if i < 0 {
		return "", "", false
	}
	return rootPath[:i], rootPath[i+len(cnst.RootSeparator):], true
}

// ValidateBareRoot requires root to be exactly a root name followed by the separator, with no
// relative path after it. Returns the root name.
func ValidateBareRoot(root string) (string, error) {
	name, rel, ok := SplitRootPath(root)
	if !ok || rel != "" {
		return "", fmt.Errorf("%w: bad root name %q", cnst.ErrInvalidRoot, root)
	}
	return name, nil
}
