package roots

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	cnst "github.com/kairos-io/recoveryroots/internal/constants"
	internalUtils "github.com/kairos-io/recoveryroots/internal/utils"
	"github.com/kairos-io/recoveryroots/pkg/schema"
)

// Resolver turns root paths into physical paths or paths inside the package archive.
type Resolver struct {
	table      *Table
	pkg        *schema.PackageRoot
	maxPathLen int
}

func NewResolver(t *Table) *Resolver {
	return &Resolver{table: t, maxPathLen: cnst.MaxPathLen}
}

func (r *Resolver) Table() *Table {
	return r.table
}

// RegisterPackageRoot binds PKG: to archive. The archive is borrowed: it is never opened or
// closed here and must outlive the binding. A later call replaces the binding.
func (r *Resolver) RegisterPackageRoot(archive fs.FS, base string) {
	internalUtils.Log.Debug().Str("base", base).Msg("Registering package root")
	r.pkg = &schema.PackageRoot{Archive: archive, Base: base}
}

// Lookup finds the descriptor for rootPath. PKG: only matches once a package root is registered.
func (r *Resolver) Lookup(rootPath string) (schema.RootDescriptor, error) {
	d, err := r.table.Lookup(rootPath)
	if err != nil {
		return d, err
	}
	if d.Kind == schema.KindPackage && r.pkg == nil {
		return schema.RootDescriptor{}, fmt.Errorf("%w: %q, no package registered", cnst.ErrUnknownRoot, d.RootPath())
	}
	return d, nil
}

// IsPackageRootPath reports whether rootPath addresses the package root.
func (r *Resolver) IsPackageRootPath(rootPath string) bool {
	d, err := r.table.Lookup(rootPath)
	return err == nil && d.Kind == schema.KindPackage
}

// TranslateRootPath joins the root mount point (or device, for roots that are not mountable)
// with the relative part of rootPath. The relative part can not climb out of the root.
func (r *Resolver) TranslateRootPath(rootPath string) (string, error) {
	d, err := r.table.Lookup(rootPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", cnst.ErrNotFound, err)
	}
	if d.Kind == schema.KindPackage {
		return "", fmt.Errorf("%w: %q is a package root", cnst.ErrNotFound, d.RootPath())
	}

	base := d.MountPoint
	if base == "" {
		if !filepath.IsAbs(d.Device) {
			return "", fmt.Errorf("%w: %q has neither mount point nor device path", cnst.ErrNotFound, d.RootPath())
		}
		base = d.Device
	}

	_, rel, _ := SplitRootPath(rootPath)
	out := path.Join(base, path.Clean("/"+rel))
	if len(out) > r.maxPathLen {
		return "", fmt.Errorf("%w: %d bytes, limit is %d", cnst.ErrBufferTooSmall, len(out), r.maxPathLen)
	}
	return out, nil
}

// TranslateRootPathTo writes the translated path into buf and returns its length. It fails
// with ErrBufferTooSmall, writing nothing, when the path does not fit.
func (r *Resolver) TranslateRootPathTo(rootPath string, buf []byte) (int, error) {
	out, err := r.TranslateRootPath(rootPath)
	if err != nil {
		return 0, err
	}
	if len(out) > len(buf) {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", cnst.ErrBufferTooSmall, len(out), len(buf))
	}
	return copy(buf, out), nil
}

// TranslatePackageRootPath returns the registered archive and the path of rootPath inside it.
func (r *Resolver) TranslatePackageRootPath(rootPath string) (fs.FS, string, error) {
	if !r.IsPackageRootPath(rootPath) {
		return nil, "", fmt.Errorf("%w: %q is not a package path", cnst.ErrNotFound, rootPath)
	}
	if r.pkg == nil {
		return nil, "", fmt.Errorf("%w: no package root registered", cnst.ErrNotFound)
	}

	_, rel, _ := SplitRootPath(rootPath)
	p := path.Join(r.pkg.Base, strings.TrimPrefix(path.Clean("/"+rel), "/"))
	if p == "" {
		p = "."
	}
	if len(p) > r.maxPathLen {
		return nil, "", fmt.Errorf("%w: %d bytes, limit is %d", cnst.ErrBufferTooSmall, len(p), r.maxPathLen)
	}
	return r.pkg.Archive, p, nil
}

// Resolve picks the right translation for rootPath.
func (r *Resolver) Resolve(rootPath string) (schema.ResolvedPath, error) {
	name, _, _ := SplitRootPath(rootPath)
	if r.IsPackageRootPath(rootPath) {
		archive, p, err := r.TranslatePackageRootPath(rootPath)
		if err != nil {
			return schema.ResolvedPath{}, err
		}
		return schema.ResolvedPath{Root: name, Path: p, Archive: archive}, nil
	}
	p, err := r.TranslateRootPath(rootPath)
	if err != nil {
		return schema.ResolvedPath{}, err
	}
	return schema.ResolvedPath{Root: name, Path: p}, nil
}

// IsNotFound is true for every error meaning the root path does not resolve.
func IsNotFound(err error) bool {
	return errors.Is(err, cnst.ErrNotFound) || errors.Is(err, cnst.ErrUnknownRoot)
}
