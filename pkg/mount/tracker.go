package mount

import (
	"fmt"

	"github.com/kairos-io/recoveryroots/internal/constants"
	internalUtils "github.com/kairos-io/recoveryroots/internal/utils"
	"github.com/kairos-io/recoveryroots/pkg/schema"
)

// Tracker answers mount state questions. It keeps no state: every question rescans.
type Tracker struct {
	scanner   Scanner
	unmounter Unmounter
	mounter   Mounter
}

// NewTracker works on the live system.
func NewTracker() *Tracker {
	return NewTrackerWith(MountinfoScanner{}, SystemUnmounter{}, SystemMounter{})
}

func NewTrackerWith(s Scanner, u Unmounter, m Mounter) *Tracker {
	return &Tracker{scanner: s, unmounter: u, mounter: m}
}

// Scan returns a fresh copy of the mount table.
func (t *Tracker) Scan() (schema.MountSnapshot, error) {
	s, err := t.scanner.Scan()
	if err != nil {
		return schema.MountSnapshot{}, fmt.Errorf("%w: %w", constants.ErrScan, err)
	}
	return s, nil
}

// Find returns the volume mounted at mountPoint, if any.
func (t *Tracker) Find(mountPoint string) (schema.Volume, bool, error) {
	s, err := t.Scan()
	if err != nil {
		return schema.Volume{}, false, err
	}
	v, ok := s.FindByMountPoint(mountPoint)
	return v, ok, nil
}

func (t *Tracker) IsMounted(mountPoint string) (bool, error) {
	_, ok, err := t.Find(mountPoint)
	return ok, err
}

// Unmount detaches the volume at mountPoint. Failures, like a busy device, wrap ErrUnmountFailed.
func (t *Tracker) Unmount(mountPoint string) error {
	l := internalUtils.Log.With().Str("mountpoint", mountPoint).Logger()
	l.Debug().Msg("Unmounting")
	if err := t.unmounter.Unmount(mountPoint); err != nil {
		l.Err(err).Msg("Unmount")
		return fmt.Errorf("%w: %s: %w", constants.ErrUnmountFailed, mountPoint, err)
	}
	return nil
}

// Mount runs op. It returns ErrAlreadyMounted when something is mounted on the target already.
func (t *Tracker) Mount(op Operation) error {
	l := internalUtils.Log.With().Str("what", op.MountOption.Source).Str("where", op.Target).Str("type", op.MountOption.Type).Strs("options", op.MountOption.Options).Logger()
	if op.PrepareCallback != nil {
		if err := op.PrepareCallback(); err != nil {
			l.Err(err).Msg("executing mount callback")
			return err
		}
	}
	mounted, err := t.IsMounted(op.Target)
	if err != nil {
		l.Err(err).Msg("checking mount status")
		return err
	}
	if mounted {
		l.Debug().Msg("Already mounted")
		return constants.ErrAlreadyMounted
	}
	l.Debug().Str("fstab", op.FstabEntry().String()).Msg("mount ready")
	if err := t.mounter.Mount(op.MountOption, op.Target); err != nil {
		return fmt.Errorf("%w: %s on %s: %w", constants.ErrMountFailed, op.MountOption.Source, op.Target, err)
	}
	return nil
}
