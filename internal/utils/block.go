package utils

import (
	"path/filepath"

	"github.com/jaypipes/ghw"
)

// BlockDevice is what the system reports for a disk or partition backing a root.
type BlockDevice struct {
	Name       string
	SizeBytes  uint64
	Type       string
	Label      string
	MountPoint string
}

// FindBlockDevice looks up a disk or partition by its device path, following symlinks such as
// /dev/disk/by-label/*. Returns false when the device is not present.
func FindBlockDevice(device string) (BlockDevice, bool) {
	if device == "" {
		return BlockDevice{}, false
	}
	if resolved, err := filepath.EvalSymlinks(device); err == nil {
		device = resolved
	}
	name := filepath.Base(device)

	info, err := ghw.Block()
	if err != nil {
		Log.Debug().Err(err).Str("device", device).Msg("Reading block devices")
		return BlockDevice{}, false
	}
	for _, disk := range info.Disks {
		if disk.Name == name {
			return BlockDevice{Name: disk.Name, SizeBytes: disk.SizeBytes}, true
		}
		for _, p := range disk.Partitions {
			if p.Name == name {
				return BlockDevice{
					Name:       p.Name,
					SizeBytes:  p.SizeBytes,
					Type:       p.Type,
					Label:      p.FilesystemLabel,
					MountPoint: p.MountPoint,
				}, true
			}
		}
	}
	return BlockDevice{}, false
}
