package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	cnst "github.com/kairos-io/recoveryroots/internal/constants"
	"github.com/kairos-io/recoveryroots/internal/utils"
	"github.com/kairos-io/recoveryroots/internal/version"
	"github.com/kairos-io/recoveryroots/pkg/roots"
	"github.com/kairos-io/recoveryroots/pkg/schema"
	"github.com/kairos-io/recoveryroots/pkg/state"
	"github.com/twpayne/go-vfs/v4"
	"github.com/urfave/cli/v2"
)

// ErrUsage is returned after printing the usage text.
var ErrUsage = errors.New("usage")

var Flags = []cli.Flag{
	&cli.BoolFlag{
		Name:    "debug",
		EnvVars: []string{"ROOTFMT_DEBUG"},
	},
	&cli.BoolFlag{
		Name:    "dry-run",
		Usage:   "validate and resolve the root, print the steps and exit",
		EnvVars: []string{"ROOTFMT_DRY_RUN"},
	},
	&cli.StringFlag{
		Name:    "board",
		Usage:   "board definition env file",
		EnvVars: []string{"ROOTFMT_BOARD"},
	},
	&cli.StringFlag{
		Name:    "config",
		Usage:   "yaml roots file",
		EnvVars: []string{"ROOTFMT_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "fstab",
		Usage:   "recovery fstab file",
		EnvVars: []string{"ROOTFMT_FSTAB"},
	},
}

var Commands = []*cli.Command{
	{
		Name:      "list",
		Usage:     "list the roots",
		UsageText: "list [--as-fstab]",
		Description: `
Prints every registered root with its backing device and whether it is mounted.
`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "as-fstab",
				Usage: "print the table in fstab format",
			},
		},
		Action: func(c *cli.Context) error {
			s, err := LoadState(c)
			if err != nil {
				return err
			}
			if c.Bool("as-fstab") {
				return writeFstab(c.App.Writer, s.Roots.Table())
			}
			return writeRoots(c.App.Writer, s)
		},
	},
	{
		Name:  "version",
		Usage: "version",
		Action: func(c *cli.Context) error {
			v := version.Get()
			utils.Log.Info().Str("commit", v.GitCommit).Str("compiled with", v.GoVersion).Str("version", v.Version).Msg(version.Name)
			_, err := fmt.Fprintln(c.App.Writer, v.String())
			return err
		},
	},
}

// Usage is the text printed when no root is given.
func Usage() string {
	var b strings.Builder
	b.WriteString("usage: format <partition>\n")
	b.WriteString("   where <partition> is one of:\n")
	for _, r := range cnst.DefaultRoots() {
		fmt.Fprintf(&b, "     \"%s%s\"\n", r, cnst.RootSeparator)
	}
	return b.String()
}

// Format is the default action: format the root given as the only argument.
func Format(c *cli.Context) error {
	if c.NArg() != 1 {
		fmt.Fprint(c.App.Writer, Usage())
		return ErrUsage
	}
	root := c.Args().First()

	s, err := LoadState(c)
	if err != nil {
		return err
	}

	if c.Bool("dry-run") {
		plan, err := s.NewFormat(root).Plan()
		if err != nil {
			fmt.Fprintf(c.App.Writer, "Can't format %s\n", root)
			return err
		}
		fmt.Fprintf(c.App.Writer, "Formatting %s (dry run)\n%s", root, plan)
		return nil
	}

	fmt.Fprintf(c.App.Writer, "Formatting %s\n", root)
	if err := s.FormatRootDevice(c.Context, root); err != nil {
		fmt.Fprintf(c.App.Writer, "Can't format %s\n", root)
		return err
	}
	return nil
}

// BoardFile picks the board definition: the flag, then rd.rootfmt.board= on the cmdline, then
// the default location.
func BoardFile(c *cli.Context) string {
	if b := c.String("board"); b != "" {
		return b
	}
	if fromCmdline := utils.CleanupSlice(utils.ReadCMDLineArg("rd.rootfmt.board=")); len(fromCmdline) > 0 {
		return fromCmdline[0]
	}
	return cnst.DefaultBoardEnv
}

// LoadState builds the root table from the configured sources and wires the live system.
func LoadState(c *cli.Context) (*state.State, error) {
	table, err := roots.Load(vfs.OSFS, roots.Options{
		BoardEnv:   BoardFile(c),
		ConfigFile: c.String("config"),
		FstabFile:  c.String("fstab"),
	})
	if err != nil {
		return nil, err
	}
	return state.NewState(vfs.OSFS, table), nil
}

func writeFstab(w io.Writer, t *roots.Table) error {
	for _, d := range t.Roots() {
		if d.Kind == schema.KindPackage {
			continue
		}
		if _, err := fmt.Fprintln(w, roots.ToFstab(d).String()); err != nil {
			return err
		}
	}
	return nil
}

func writeRoots(w io.Writer, s *state.State) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROOT\tKIND\tDEVICE\tSIZE\tMOUNTPOINT\tFS\tMOUNTED")
	for _, d := range s.Roots.Table().Roots() {
		device, size := describeDevice(s, d)
		mounted := "-"
		if d.Mountable() {
			m, err := s.Mounts.IsMounted(d.MountPoint)
			if err != nil {
				return err
			}
			mounted = strconv.FormatBool(m)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", d.RootPath(), d.Kind, device, size, dash(d.MountPoint), dash(d.Filesystem), mounted)
	}
	return tw.Flush()
}

// describeDevice returns what backs d and its size when it is present on the system.
func describeDevice(s *state.State, d schema.RootDescriptor) (string, string) {
	switch d.Kind {
	case schema.KindFlash:
		p, err := s.GetRootMtdPartition(d.RootPath())
		if err != nil {
			return "mtd@" + d.PartitionName, "-"
		}
		return fmt.Sprintf("mtd%d@%s", p.Index, p.Name), strconv.FormatUint(p.Size, 10)
	case schema.KindBlock:
		for _, dev := range utils.CleanupSlice([]string{d.Device, d.Device2}) {
			if bd, ok := utils.FindBlockDevice(dev); ok {
				return dev, strconv.FormatUint(bd.SizeBytes, 10)
			}
		}
		return dash(d.Device), "-"
	}
	return "-", "-"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
