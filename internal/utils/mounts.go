package utils

import (
	"fmt"
	"strings"

	"github.com/containerd/containerd/mount"
	"github.com/deniswernert/go-fstab"
)

// ParseMount turns LABEL= and UUID= device references into their /dev/disk paths.
// input: LABEL=SDCARD
// output: /dev/disk/by-label/SDCARD
func ParseMount(s string) string {
	switch {
	case strings.HasPrefix(s, "UUID="):
		return fmt.Sprintf("/dev/disk/by-uuid/%s", strings.TrimPrefix(s, "UUID="))
	case strings.HasPrefix(s, "LABEL="):
		return fmt.Sprintf("/dev/disk/by-label/%s", strings.TrimPrefix(s, "LABEL="))
	default:
		return s
	}
}

// SplitOptions splits a comma separated mount option string, dropping empty entries.
func SplitOptions(options string) []string {
	return CleanupSlice(strings.Split(options, ","))
}

// MountToFstab converts a mount into an fstab entry. The caller fills in File.
func MountToFstab(m mount.Mount) *fstab.Mount {
	opts := map[string]string{}
	for _, o := range m.Options {
		if strings.Contains(o, "=") {
			dat := strings.SplitN(o, "=", 2)
			opts[dat[0]] = dat[1]
		} else {
			opts[o] = ""
		}
	}
	return &fstab.Mount{
		Spec:    m.Source,
		File:    m.Target,
		VfsType: m.Type,
		MntOps:  opts,
		Freq:    0,
		PassNo:  0,
	}
}
