package constants

// DefaultRoots returns the conventional roots offered by the usage text.
func DefaultRoots() []string {
	return []string{RootCache, RootData, RootSystem}
}

const (
	RootBoot     = "BOOT"
	RootCache    = "CACHE"
	RootData     = "DATA"
	RootDataData = "DATADATA"
	RootMisc     = "MISC"
	RootPackage  = "PKG"
	RootRecovery = "RECOVERY"
	RootSdcard   = "SDCARD"
	RootSdext    = "SDEXT"
	RootSystem   = "SYSTEM"
	RootTmp      = "TMP"

	// RootSeparator ends the root name in a root path like SYSTEM:lib.
	RootSeparator = ":"
)

// Filesystem identifiers understood by the root table.
const (
	FsRaw     = "raw" // unformatted flash, never mounted
	FsYaffs2  = "yaffs2"
	FsExt3    = "ext3"
	FsVfat    = "vfat"
	FsPackage = "package"

	DefaultFilesystem    = FsYaffs2
	DefaultMMCFilesystem = FsExt3
)

const (
	OpValidateRoot = "validate-root"
	OpResolveRoot  = "resolve-root"
	OpUnmountRoot  = "unmount-root"
	OpEraseRoot    = "erase-root"
)

const (
	DefaultBoardEnv = "/etc/recovery/board.env"
	ProcMtd         = "/proc/mtd"
	MtdDevDir       = "/dev/mtd"
	MtdBlockDevDir  = "/dev/block"
	LogDir          = "/tmp/rootfmt"

	// DefaultSdcardPrimary and DefaultSdcardSecondary are tried in order when mounting SDCARD:.
	DefaultSdcardPrimary   = "/dev/block/mmcblk0p1"
	DefaultSdcardSecondary = "/dev/block/mmcblk0"

	// MaxPathLen bounds translated root paths, matching PATH_MAX.
	MaxPathLen = 4096

	// DefaultMountOptions are always applied when mounting a root.
	DefaultMountOptions = "noatime,nodev,nodiratime"
)
