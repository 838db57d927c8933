package state

import (
	"fmt"

	internalUtils "github.com/kairos-io/recoveryroots/internal/utils"
	"github.com/kairos-io/recoveryroots/pkg/mount"
	"github.com/kairos-io/recoveryroots/pkg/mtd"
	"github.com/kairos-io/recoveryroots/pkg/roots"
	"github.com/spectrocloud-labs/herd"
	"github.com/twpayne/go-vfs/v4"
)

// State is built once at start and carries everything the operations need.
type State struct {
	Roots  *roots.Resolver
	Mounts *mount.Tracker
	Flash  mtd.Flash
	FS     vfs.FS
}

// NewState wires the live system collaborators around the given root table.
func NewState(fs vfs.FS, table *roots.Table) *State {
	return &State{
		Roots:  roots.NewResolver(table),
		Mounts: mount.NewTracker(),
		Flash:  mtd.NewManager(fs),
		FS:     fs,
	}
}

// WriteDAG writes the dag.
func (s *State) WriteDAG(g *herd.Graph) (out string) {
	for i, layer := range g.Analyze() {
		out += fmt.Sprintf("%d.\n", i+1)
		for _, op := range layer {
			if op.Error != nil {
				out += fmt.Sprintf(" <%s> (error: %s) (background: %t) (weak: %t) (run: %t)\n", op.Name, op.Error.Error(), op.Background, op.WeakDeps, op.Executed)
			} else {
				out += fmt.Sprintf(" <%s> (background: %t) (weak: %t) (run: %t)\n", op.Name, op.Background, op.WeakDeps, op.Executed)
			}
		}
	}
	return
}

// LogIfError will log if there is an error with the given context as message
// Context can be empty.
func (s *State) LogIfError(e error, msgContext string) {
	if e != nil {
		internalUtils.Log.Err(e).Msg(msgContext)
	}
}

// LogIfErrorAndReturn will log if there is an error with the given context as message
// Context can be empty
// Will also return the error.
func (s *State) LogIfErrorAndReturn(e error, msgContext string) error {
	if e != nil {
		internalUtils.Log.Err(e).Msg(msgContext)
	}
	return e
}
