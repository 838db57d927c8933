package mount

import (
	"strings"

	"github.com/containerd/containerd/mount"
	"github.com/kairos-io/recoveryroots/pkg/schema"
	"github.com/moby/sys/mountinfo"
	"github.com/twpayne/go-vfs/v4"
)

// Scanner reads the live mount table. Every call must read it again.
type Scanner interface {
	Scan() (schema.MountSnapshot, error)
}

// Unmounter detaches whatever is mounted at target.
type Unmounter interface {
	Unmount(target string) error
}

// Mounter attaches m at target.
type Mounter interface {
	Mount(m mount.Mount, target string) error
}

// MountinfoScanner reads /proc/self/mountinfo.
type MountinfoScanner struct{}

func (MountinfoScanner) Scan() (schema.MountSnapshot, error) {
	infos, err := mountinfo.GetMounts(nil)
	if err != nil {
		return schema.MountSnapshot{}, err
	}
	return snapshotFrom(infos), nil
}

// FileScanner reads a mountinfo formatted file, e.g. a saved copy of /proc/1/mountinfo.
type FileScanner struct {
	FS   vfs.FS
	Path string
}

func (s FileScanner) Scan() (schema.MountSnapshot, error) {
	f, err := s.FS.Open(s.Path)
	if err != nil {
		return schema.MountSnapshot{}, err
	}
	defer f.Close()

	infos, err := mountinfo.GetMountsFromReader(f, nil)
	if err != nil {
		return schema.MountSnapshot{}, err
	}
	return snapshotFrom(infos), nil
}

func snapshotFrom(infos []*mountinfo.Info) schema.MountSnapshot {
	s := schema.MountSnapshot{Volumes: make([]schema.Volume, 0, len(infos))}
	for _, i := range infos {
		flags := i.Options
		if i.VFSOptions != "" {
			flags = strings.Join([]string{i.Options, i.VFSOptions}, ",")
		}
		s.Volumes = append(s.Volumes, schema.Volume{
			Device:     i.Source,
			MountPoint: i.Mountpoint,
			Filesystem: i.FSType,
			Flags:      flags,
		})
	}
	return s
}

// SystemUnmounter calls umount(2).
type SystemUnmounter struct{}

func (SystemUnmounter) Unmount(target string) error {
	return mount.Unmount(target, 0)
}

// SystemMounter calls mount(2).
type SystemMounter struct{}

func (SystemMounter) Mount(m mount.Mount, target string) error {
	return mount.All([]mount.Mount{m}, target)
}
