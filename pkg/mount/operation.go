package mount

import (
	"strings"

	"github.com/containerd/containerd/mount"
	"github.com/deniswernert/go-fstab"
	"github.com/kairos-io/recoveryroots/internal/constants"
	internalUtils "github.com/kairos-io/recoveryroots/internal/utils"
	"github.com/kairos-io/recoveryroots/pkg/schema"
	"github.com/twpayne/go-vfs/v4"
)

// Operation is a single mount waiting to be run by a Tracker.
type Operation struct {
	MountOption     mount.Mount
	Target          string
	PrepareCallback func() error
}

// RootOperation mounts device on the root mount point, creating it first.
// The default options always apply, then the root own options.
func RootOperation(fs vfs.FS, d schema.RootDescriptor, device string) Operation {
	opts := internalUtils.SplitOptions(strings.Join([]string{constants.DefaultMountOptions, d.FilesystemOptions}, ","))
	return Operation{
		MountOption: mount.Mount{
			Type:    d.Filesystem,
			Source:  device,
			Options: internalUtils.UniqueSlice(opts),
		},
		Target: d.MountPoint,
		PrepareCallback: func() error {
			return internalUtils.CreateIfNotExists(fs, d.MountPoint)
		},
	}
}

// FstabEntry renders the operation as an fstab line.
func (o Operation) FstabEntry() *fstab.Mount {
	m := o.MountOption
	m.Target = o.Target
	return internalUtils.MountToFstab(m)
}
