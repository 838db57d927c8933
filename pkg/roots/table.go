package roots

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	cnst "github.com/kairos-io/recoveryroots/internal/constants"
	"github.com/kairos-io/recoveryroots/pkg/schema"
)

// Table is the registry of root descriptors. It is read only once built.
type Table struct {
	roots map[string]schema.RootDescriptor
	order []string
}

// NewTable validates the descriptors and builds a table out of them. All the problems found are
// reported together.
func NewTable(descriptors ...schema.RootDescriptor) (*Table, error) {
	var errs error
	t := &Table{roots: map[string]schema.RootDescriptor{}}

	for _, d := range descriptors {
		if err := validateDescriptor(d); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if _, dup := t.roots[d.Name]; dup {
			errs = multierror.Append(errs, fmt.Errorf("root %q registered twice", d.Name))
			continue
		}
		t.roots[d.Name] = d
		t.order = append(t.order, d.Name)
	}
	if errs != nil {
		return nil, errs
	}
	return t, nil
}

func validateDescriptor(d schema.RootDescriptor) error {
	switch {
	case d.Name == "":
		return fmt.Errorf("root with empty name")
	case strings.Contains(d.Name, cnst.RootSeparator):
		return fmt.Errorf("root %q: name must not contain %q", d.Name, cnst.RootSeparator)
	case d.Kind == schema.KindFlash && d.PartitionName == "":
		return fmt.Errorf("root %q: flash root without partition name", d.Name)
	case d.Kind == schema.KindBlock && !filepath.IsAbs(d.Device):
		return fmt.Errorf("root %q: block device %q is not an absolute path", d.Name, d.Device)
	case d.MountPoint != "" && !filepath.IsAbs(d.MountPoint):
		return fmt.Errorf("root %q: mount point %q is not an absolute path", d.Name, d.MountPoint)
	}
	return nil
}

// Lookup returns the descriptor whose name prefixes rootPath. Only the part before the
// separator is consulted.
func (t *Table) Lookup(rootPath string) (schema.RootDescriptor, error) {
	name, _, ok := SplitRootPath(rootPath)
	if !ok {
		return schema.RootDescriptor{}, fmt.Errorf("%w: %q has no root name", cnst.ErrUnknownRoot, rootPath)
	}
	d, ok := t.roots[name]
	if !ok {
		return schema.RootDescriptor{}, fmt.Errorf("%w: %q", cnst.ErrUnknownRoot, name+cnst.RootSeparator)
	}
	return d, nil
}

// Roots returns the descriptors in registration order.
func (t *Table) Roots() []schema.RootDescriptor {
	out := make([]schema.RootDescriptor, 0, len(t.order))
	for _, n := range t.order {
		out = append(out, t.roots[n])
	}
	return out
}
