package roots

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/deniswernert/go-fstab"
	cnst "github.com/kairos-io/recoveryroots/internal/constants"
	internalUtils "github.com/kairos-io/recoveryroots/internal/utils"
	"github.com/kairos-io/recoveryroots/pkg/schema"
	"github.com/twpayne/go-vfs/v4"
	"gopkg.in/yaml.v3"
)

const (
	// fstabFlashPrefix marks an fstab spec naming a flash partition, e.g. mtd@userdata.
	fstabFlashPrefix = "mtd@"
	// fstabRootOption names the root of an fstab entry when the mount point basename is not enough.
	fstabRootOption = "x-root"
	fstabNone       = "none"
)

// Options selects where the root table is loaded from. Empty paths are skipped.
type Options struct {
	BoardEnv   string
	ConfigFile string
	FstabFile  string
}

// Load builds the root table: board defaults first, then the roots file, then the fstab file.
// Later sources replace roots with the same name.
func Load(fs vfs.FS, opts Options) (*Table, error) {
	var descriptors []schema.RootDescriptor

	board := NewBoard(nil)
	if opts.BoardEnv != "" {
		var err error
		board, err = LoadBoard(fs, opts.BoardEnv)
		if err != nil {
			return nil, err
		}
	}
	descriptors = board.Defaults()

	if opts.ConfigFile != "" {
		cfg, err := LoadConfig(fs, opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		if cfg.Replace {
			descriptors = nil
		}
		descriptors = merge(descriptors, cfg.Roots)
	}

	if opts.FstabFile != "" {
		fromFstab, err := LoadFstab(fs, opts.FstabFile)
		if err != nil {
			return nil, err
		}
		descriptors = merge(descriptors, fromFstab)
	}

	internalUtils.Log.Debug().Int("roots", len(descriptors)).Str("board", opts.BoardEnv).Str("config", opts.ConfigFile).Str("fstab", opts.FstabFile).Msg("Loaded root table")
	return NewTable(descriptors...)
}

func merge(base, extra []schema.RootDescriptor) []schema.RootDescriptor {
	for _, e := range extra {
		replaced := false
		for i := range base {
			if base[i].Name == e.Name {
				base[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			base = append(base, e)
		}
	}
	return base
}

// LoadConfig parses a YAML roots file.
func LoadConfig(fs vfs.FS, file string) (schema.RootsConfig, error) {
	var cfg schema.RootsConfig
	dat, err := fs.ReadFile(file)
	if err != nil {
		return cfg, fmt.Errorf("reading roots file %s: %w", file, err)
	}
	if err := yaml.Unmarshal(dat, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing roots file %s: %w", file, err)
	}
	for i := range cfg.Roots {
		cfg.Roots[i].Device = internalUtils.ParseMount(cfg.Roots[i].Device)
		cfg.Roots[i].Device2 = internalUtils.ParseMount(cfg.Roots[i].Device2)
	}
	return cfg, nil
}

// LoadFstab parses a recovery fstab. The spec is mtd@<partition> for flash, a device path for
// block devices or none. The root name is the upper cased mount point basename unless an
// x-root=<NAME> option is given.
func LoadFstab(fs vfs.FS, file string) ([]schema.RootDescriptor, error) {
	f, err := fs.Open(file)
	if err != nil {
		return nil, fmt.Errorf("reading fstab %s: %w", file, err)
	}
	defer f.Close()

	mounts, err := fstab.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing fstab %s: %w", file, err)
	}

	var out []schema.RootDescriptor
	for _, m := range mounts {
		d, err := FromFstab(m)
		if err != nil {
			return nil, fmt.Errorf("fstab %s: %w", file, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// FromFstab converts one fstab entry into a root descriptor.
func FromFstab(m *fstab.Mount) (schema.RootDescriptor, error) {
	d := schema.RootDescriptor{}
	if m.File != fstabNone {
		d.MountPoint = m.File
	}
	if m.VfsType != fstabNone {
		d.Filesystem = m.VfsType
	}

	switch {
	case strings.HasPrefix(m.Spec, fstabFlashPrefix):
		d.Kind = schema.KindFlash
		d.PartitionName = strings.TrimPrefix(m.Spec, fstabFlashPrefix)
	case m.Spec == fstabNone || m.Spec == "tmpfs":
		d.Kind = schema.KindUnformattable
	default:
		d.Kind = schema.KindBlock
		d.Device = internalUtils.ParseMount(m.Spec)
	}

	var opts []string
	for k, v := range m.MntOps {
		switch {
		case k == fstabRootOption:
			d.Name = v
		case k == "defaults":
		case v == "":
			opts = append(opts, k)
		default:
			opts = append(opts, k+"="+v)
		}
	}
	sort.Strings(opts)
	d.FilesystemOptions = strings.Join(opts, ",")

	if d.Name == "" {
		base := filepath.Base(d.MountPoint)
		if d.MountPoint == "" || base == "/" {
			return d, fmt.Errorf("entry %q needs a %s=<NAME> option", m.Spec, fstabRootOption)
		}
		d.Name = strings.ToUpper(base)
	}
	if d.Name == cnst.RootPackage {
		return d, fmt.Errorf("entry %q: %s: is bound at runtime, not in fstab", m.Spec, cnst.RootPackage)
	}
	return d, nil
}

// ToFstab renders a descriptor as an fstab entry, the inverse of FromFstab.
func ToFstab(d schema.RootDescriptor) *fstab.Mount {
	m := &fstab.Mount{
		Spec:    fstabNone,
		File:    fstabNone,
		VfsType: fstabNone,
		MntOps:  map[string]string{fstabRootOption: d.Name},
	}
	switch d.Kind {
	case schema.KindFlash:
		m.Spec = fstabFlashPrefix + d.PartitionName
	case schema.KindBlock:
		m.Spec = d.Device
	}
	if d.MountPoint != "" {
		m.File = d.MountPoint
	}
	if d.Filesystem != "" {
		m.VfsType = d.Filesystem
	}
	for _, o := range internalUtils.SplitOptions(d.FilesystemOptions) {
		kv := strings.SplitN(o, "=", 2)
		if len(kv) == 2 {
			m.MntOps[kv[0]] = kv[1]
		} else {
			m.MntOps[kv[0]] = ""
		}
	}
	return m
}
