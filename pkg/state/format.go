package state

import (
	"context"
	"fmt"

	cnst "github.com/kairos-io/recoveryroots/internal/constants"
	internalUtils "github.com/kairos-io/recoveryroots/internal/utils"
	"github.com/kairos-io/recoveryroots/pkg/roots"
	"github.com/kairos-io/recoveryroots/pkg/schema"
	"github.com/rs/zerolog"
	"github.com/spectrocloud-labs/herd"
)

// Format erases the device behind a bare root reference like DATA:.
// Steps run strictly in order and the first failure stops everything after it.
type Format struct {
	s     *State
	root  string
	desc  schema.RootDescriptor
	phase Phase
	err   error
	log   zerolog.Logger
}

func (s *State) NewFormat(root string) *Format {
	return &Format{
		s:     s,
		root:  root,
		phase: Validating,
		log:   internalUtils.Log.With().Str("root", root).Logger(),
	}
}

// FormatRootDevice formats root and returns the first failure.
func (s *State) FormatRootDevice(ctx context.Context, root string) error {
	return s.NewFormat(root).Run(ctx)
}

func (f *Format) Phase() Phase {
	return f.phase
}

func (f *Format) Err() error {
	return f.err
}

// Descriptor is the resolved root, empty until the resolve step ran.
func (f *Format) Descriptor() schema.RootDescriptor {
	return f.desc
}

// Register adds the format steps to g.
func (f *Format) Register(g *herd.Graph) error {
	if err := g.Add(cnst.OpValidateRoot, herd.WithCallback(f.step(Validating, f.validate))); err != nil {
		return err
	}
	if err := g.Add(cnst.OpResolveRoot, herd.WithDeps(cnst.OpValidateRoot), herd.WithCallback(f.step(Resolving, f.resolve))); err != nil {
		return err
	}
	if err := g.Add(cnst.OpUnmountRoot, herd.WithDeps(cnst.OpResolveRoot), herd.WithCallback(f.step(Unmounting, f.unmount))); err != nil {
		return err
	}
	return g.Add(cnst.OpEraseRoot, herd.WithDeps(cnst.OpUnmountRoot), herd.WithCallback(f.step(Erasing, f.erase)))
}

// Run executes the steps and returns the error of the step that failed, if any.
func (f *Format) Run(ctx context.Context) error {
	g := herd.DAG()
	if err := f.Register(g); err != nil {
		return err
	}
	f.log.Debug().Msg(f.s.WriteDAG(g))

	err := g.Run(ctx)
	if f.err != nil {
		return f.err
	}
	if err != nil {
		f.fail(err)
		return err
	}
	f.phase = Done
	f.log.Info().Str("phase", f.phase.String()).Msg("Formatted")
	return nil
}

// Plan validates and resolves the root without touching mount or flash state and returns the
// steps a Run would go through.
func (f *Format) Plan() (string, error) {
	for _, st := range []struct {
		phase Phase
		fn    func(context.Context) error
	}{{Validating, f.validate}, {Resolving, f.resolve}} {
		if err := f.step(st.phase, st.fn)(context.Background()); err != nil {
			return "", err
		}
	}
	g := herd.DAG()
	if err := f.Register(g); err != nil {
		return "", err
	}
	return f.s.WriteDAG(g), nil
}

func (f *Format) step(p Phase, fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		if f.err != nil {
			return f.err
		}
		f.phase = p
		f.log.Debug().Str("phase", p.String()).Msg("Entering phase")
		if err := fn(ctx); err != nil {
			f.fail(err)
			return err
		}
		return nil
	}
}

func (f *Format) fail(err error) {
	f.log.Err(err).Str("phase", f.phase.String()).Msg("format_root_device")
	f.err = err
	f.phase = Error
}

func (f *Format) validate(_ context.Context) error {
	_, err := roots.ValidateBareRoot(f.root)
	return err
}

func (f *Format) resolve(_ context.Context) error {
	d, err := f.s.Roots.Lookup(f.root)
	if err != nil {
		return err
	}
	if !d.HasDevice() {
		return fmt.Errorf("%w: %s", cnst.ErrUnformattable, f.root)
	}
	f.desc = d
	f.log = f.log.With().Str("kind", d.Kind.String()).Str("fs", d.Filesystem).Logger()
	return nil
}

func (f *Format) unmount(_ context.Context) error {
	if !f.desc.Mountable() {
		return nil
	}
	v, mounted, err := f.s.Mounts.Find(f.desc.MountPoint)
	if err != nil {
		return fmt.Errorf("%w: %w", cnst.ErrUnmountFailed, err)
	}
	if !mounted {
		f.log.Debug().Str("mountpoint", f.desc.MountPoint).Msg("Not mounted")
		return nil
	}
	return f.s.Mounts.Unmount(v.MountPoint)
}

func (f *Format) erase(_ context.Context) error {
	if f.desc.Kind != schema.KindFlash {
		// Only flash is handled. Block devices, like sdcards, are rejected on purpose.
		return fmt.Errorf("%w: %s is a %s root", cnst.ErrUnsupportedDevice, f.root, f.desc.Kind)
	}

	if err := f.s.Flash.ScanPartitions(); err != nil {
		f.log.Warn().Err(err).Msg("Scanning flash partitions")
	}
	p, ok := f.s.Flash.FindPartitionByName(f.desc.PartitionName)
	if !ok {
		return fmt.Errorf("%w: %q", cnst.ErrPartitionNotFound, f.desc.PartitionName)
	}
	l := f.log.With().Str("partition", p.Name).Int("index", p.Index).Logger()

	if !f.desc.IsRawFlash() {
		return fmt.Errorf("%w: %s uses %q", cnst.ErrUnsupportedDevice, f.root, f.desc.Filesystem)
	}

	w, err := f.s.Flash.OpenForWrite(p)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", cnst.ErrFlashOpenFailed, p.Name, err)
	}
	l.Debug().Msg("Erasing")
	if err := w.EraseAll(); err != nil {
		f.s.LogIfError(w.Close(), "closing flash partition after failed erase")
		return fmt.Errorf("%w: %q: %w", cnst.ErrEraseFailed, p.Name, err)
	}
	if err := w.Close(); err != nil {
		// The data is gone already, still a failure: the write session was not finished properly
		return fmt.Errorf("%w: %q: %w", cnst.ErrCloseFailed, p.Name, err)
	}
	return nil
}
