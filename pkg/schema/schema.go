package schema

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/kairos-io/recoveryroots/internal/constants"
)

// RootKind is the closed set of storage a root can be backed by.
type RootKind int

const (
	KindUnformattable RootKind = iota // no device, e.g. TMP:
	KindFlash                         // raw flash partition, looked up by partition name
	KindBlock                         // block device path, e.g. an sdcard
	KindPackage                       // contents of the registered package archive
)

var kindNames = map[RootKind]string{
	KindUnformattable: "none",
	KindFlash:         "flash",
	KindBlock:         "block",
	KindPackage:       "package",
}

func (k RootKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

func (k RootKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *RootKind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if strings.EqualFold(name, string(text)) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("invalid root kind %q", string(text))
}

// RootDescriptor describes one symbolic root, e.g. DATA:.
type RootDescriptor struct {
	Name              string   `yaml:"name"`
	Kind              RootKind `yaml:"kind"`
	Device            string   `yaml:"device,omitempty"`    // block device path, only for KindBlock
	Device2           string   `yaml:"device2,omitempty"`   // tried when mounting Device fails
	PartitionName     string   `yaml:"partition,omitempty"` // flash partition, only for KindFlash
	MountPoint        string   `yaml:"mountpoint,omitempty"`
	Filesystem        string   `yaml:"filesystem,omitempty"`
	FilesystemOptions string   `yaml:"options,omitempty"`
}

// RootPath returns the bare root reference, e.g. DATA:.
func (d RootDescriptor) RootPath() string {
	return d.Name + constants.RootSeparator
}

func (d RootDescriptor) Mountable() bool {
	return d.MountPoint != ""
}

// HasDevice is false for roots that can never be formatted.
func (d RootDescriptor) HasDevice() bool {
	return d.Kind == KindFlash || d.Kind == KindBlock
}

// IsRawFlash reports whether the filesystem is erased rather than built by mkfs.
func (d RootDescriptor) IsRawFlash() bool {
	return d.Filesystem == constants.FsRaw || d.Filesystem == constants.FsYaffs2
}

// RootsConfig is the on disk format of a roots file.
type RootsConfig struct {
	// Replace drops the built in roots instead of merging on top of them.
	Replace bool             `yaml:"replace,omitempty"`
	Roots   []RootDescriptor `yaml:"roots"`
}

// PackageRoot binds PKG: to an archive owned by the caller.
type PackageRoot struct {
	Archive fs.FS
	Base    string
}

// ResolvedPath is either a physical path or a path inside the package archive.
type ResolvedPath struct {
	Root    string
	Path    string
	Archive fs.FS // set only for package roots
}

func (r ResolvedPath) IsPackage() bool {
	return r.Archive != nil
}

// Volume is one entry of the live mount table.
type Volume struct {
	Device     string
	MountPoint string
	Filesystem string
	Flags      string
}

// MountSnapshot is a point in time copy of the mount table. It is never cached.
type MountSnapshot struct {
	Volumes []Volume
}

// FindByMountPoint returns the volume mounted at path, if any.
func (m MountSnapshot) FindByMountPoint(path string) (Volume, bool) {
	for _, v := range m.Volumes {
		if v.MountPoint == path {
			return v, true
		}
	}
	return Volume{}, false
}

// Partition is one entry of the flash partition table.
type Partition struct {
	Index     int
	Name      string
	Size      uint64
	EraseSize uint32
}
