package roots

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	cnst "github.com/kairos-io/recoveryroots/internal/constants"
	internalUtils "github.com/kairos-io/recoveryroots/internal/utils"
	"github.com/kairos-io/recoveryroots/pkg/schema"
	"github.com/twpayne/go-vfs/v4"
)

// Board holds the BOARD_* definitions that shape the built in roots.
type Board struct {
	env map[string]string
}

// LoadBoard reads the board env file. A missing file is not an error, the defaults apply.
func LoadBoard(fs vfs.FS, file string) (Board, error) {
	env, err := internalUtils.ReadEnv(fs, file)
	if os.IsNotExist(err) {
		internalUtils.Log.Debug().Str("file", file).Msg("No board definition, using defaults")
		return Board{env: map[string]string{}}, nil
	}
	if err != nil {
		return Board{}, fmt.Errorf("reading board definition %s: %w", file, err)
	}
	return Board{env: env}, nil
}

// NewBoard builds a board out of already parsed definitions.
func NewBoard(env map[string]string) Board {
	if env == nil {
		env = map[string]string{}
	}
	return Board{env: env}
}

func (b Board) get(key, def string) string {
	if v, ok := b.env[key]; ok && v != "" {
		return v
	}
	return def
}

func (b Board) flag(key string) bool {
	v, err := strconv.ParseBool(b.get(key, "false"))
	return err == nil && v
}

// DefaultFilesystem is yaffs2 unless the board uses mmc storage, where it is ext3.
func (b Board) DefaultFilesystem() string {
	def := cnst.DefaultFilesystem
	if b.flag("BOARD_USES_MMCUTILS") {
		def = cnst.DefaultMMCFilesystem
	}
	return b.get("BOARD_DEFAULT_FILESYSTEM", def)
}

// root builds a descriptor and applies the BOARD_<NAME>_* overrides on top of it.
func (b Board) root(d schema.RootDescriptor) schema.RootDescriptor {
	prefix := "BOARD_" + d.Name + "_"

	if dev := b.get(prefix+"DEVICE", ""); dev != "" {
		dev = internalUtils.ParseMount(dev)
		if filepath.IsAbs(dev) {
			d.Kind = schema.KindBlock
			d.Device = dev
			d.PartitionName = ""
		} else {
			// Anything else names a flash partition
			d.Kind = schema.KindFlash
			d.Device = ""
			d.PartitionName = dev
		}
	}
	if dev2 := b.get(prefix+"DEVICE2", ""); dev2 != "" {
		d.Device2 = internalUtils.ParseMount(dev2)
	}
	d.PartitionName = b.get(prefix+"PARTITION", d.PartitionName)
	d.Filesystem = b.get(prefix+"FILESYSTEM", d.Filesystem)
	d.FilesystemOptions = b.get(prefix+"FILESYSTEM_OPTIONS", d.FilesystemOptions)
	return d
}

// Defaults returns the classic recovery roots for this board.
func (b Board) Defaults() []schema.RootDescriptor {
	fs := b.DefaultFilesystem()
	flash := func(name, partition, mountPoint, filesystem string) schema.RootDescriptor {
		return b.root(schema.RootDescriptor{
			Name:          name,
			Kind:          schema.KindFlash,
			PartitionName: partition,
			MountPoint:    mountPoint,
			Filesystem:    filesystem,
		})
	}

	roots := []schema.RootDescriptor{
		flash(cnst.RootBoot, "boot", "", cnst.FsRaw),
		flash(cnst.RootCache, "cache", "/cache", fs),
		flash(cnst.RootData, "userdata", "/data", fs),
	}
	if b.flag("BOARD_HAS_DATADATA") {
		roots = append(roots, flash(cnst.RootDataData, "datadata", "/datadata", fs))
	}
	roots = append(roots,
		flash(cnst.RootMisc, "misc", "", cnst.FsRaw),
		schema.RootDescriptor{Name: cnst.RootPackage, Kind: schema.KindPackage, Filesystem: cnst.FsPackage},
		flash(cnst.RootRecovery, "recovery", "", cnst.FsRaw),
		b.root(schema.RootDescriptor{
			Name:       cnst.RootSdcard,
			Kind:       schema.KindBlock,
			Device:     b.get("BOARD_SDCARD_DEVICE_PRIMARY", cnst.DefaultSdcardPrimary),
			Device2:    b.get("BOARD_SDCARD_DEVICE_SECONDARY", cnst.DefaultSdcardSecondary),
			MountPoint: "/sdcard",
			Filesystem: cnst.FsVfat,
		}),
		b.root(schema.RootDescriptor{
			Name:       cnst.RootSdext,
			Kind:       schema.KindBlock,
			Device:     "/dev/block/mmcblk0p2",
			MountPoint: "/sd-ext",
			Filesystem: "auto",
		}),
		flash(cnst.RootSystem, "system", "/system", fs),
		schema.RootDescriptor{Name: cnst.RootTmp, Kind: schema.KindUnformattable, MountPoint: "/tmp"},
	)
	return roots
}
