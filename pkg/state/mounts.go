package state

import (
	"errors"
	"fmt"

	cnst "github.com/kairos-io/recoveryroots/internal/constants"
	internalUtils "github.com/kairos-io/recoveryroots/internal/utils"
	"github.com/kairos-io/recoveryroots/pkg/mount"
	"github.com/kairos-io/recoveryroots/pkg/schema"
)

// IsRootPathMounted reports whether the root of rootPath is mounted. Roots without a mount
// point never are.
func (s *State) IsRootPathMounted(rootPath string) (bool, error) {
	d, err := s.Roots.Lookup(rootPath)
	if err != nil {
		return false, err
	}
	if !d.Mountable() {
		return false, nil
	}
	return s.Mounts.IsMounted(d.MountPoint)
}

// EnsureRootPathMounted mounts the root of rootPath unless it is mounted already.
// Flash roots mount their mtdblock device, block roots try Device and then Device2.
func (s *State) EnsureRootPathMounted(rootPath string) error {
	d, err := s.Roots.Lookup(rootPath)
	if err != nil {
		return err
	}
	if !d.Mountable() || !d.HasDevice() || d.Filesystem == cnst.FsRaw {
		return fmt.Errorf("%w: %s", cnst.ErrNotMountable, d.RootPath())
	}

	mounted, err := s.Mounts.IsMounted(d.MountPoint)
	if err != nil {
		return err
	}
	if mounted {
		return nil
	}

	var devices []string
	switch d.Kind {
	case schema.KindFlash:
		p, err := s.GetRootMtdPartition(rootPath)
		if err != nil {
			return err
		}
		devices = append(devices, s.Flash.BlockDevicePath(p))
	case schema.KindBlock:
		devices = internalUtils.CleanupSlice([]string{d.Device, d.Device2})
	}

	var mountErr error
	for _, dev := range devices {
		mountErr = s.Mounts.Mount(mount.RootOperation(s.FS, d, dev))
		if mountErr == nil || errors.Is(mountErr, cnst.ErrAlreadyMounted) {
			return nil
		}
		internalUtils.Log.Warn().Err(mountErr).Str("device", dev).Str("root", d.RootPath()).Msg("Mounting root")
	}
	return mountErr
}

// EnsureRootPathUnmounted unmounts the root of rootPath if it is mounted.
func (s *State) EnsureRootPathUnmounted(rootPath string) error {
	d, err := s.Roots.Lookup(rootPath)
	if err != nil {
		return err
	}
	if !d.Mountable() {
		return nil
	}
	v, mounted, err := s.Mounts.Find(d.MountPoint)
	if err != nil || !mounted {
		return err
	}
	return s.Mounts.Unmount(v.MountPoint)
}

// GetRootMtdPartition rescans the flash partition table and returns the partition behind a
// flash root.
func (s *State) GetRootMtdPartition(rootPath string) (schema.Partition, error) {
	d, err := s.Roots.Lookup(rootPath)
	if err != nil {
		return schema.Partition{}, err
	}
	if d.Kind != schema.KindFlash {
		return schema.Partition{}, fmt.Errorf("%w: %s is not a flash root", cnst.ErrNotFound, d.RootPath())
	}
	if err := s.Flash.ScanPartitions(); err != nil {
		return schema.Partition{}, fmt.Errorf("%w: %w", cnst.ErrNotFound, err)
	}
	p, ok := s.Flash.FindPartitionByName(d.PartitionName)
	if !ok {
		return schema.Partition{}, fmt.Errorf("%w: %w: %q", cnst.ErrNotFound, cnst.ErrPartitionNotFound, d.PartitionName)
	}
	return p, nil
}
