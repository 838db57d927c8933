package main

import (
	"errors"
	"os"

	"github.com/kairos-io/recoveryroots/internal/cmd"
	"github.com/kairos-io/recoveryroots/internal/constants"
	"github.com/kairos-io/recoveryroots/internal/utils"
	"github.com/kairos-io/recoveryroots/internal/version"
	"github.com/urfave/cli/v2"
)

// Format recovery roots.
func main() {
	app := cli.NewApp()
	app.Name = version.Name
	app.Usage = "format a recovery root, e.g. DATA:"
	app.Version = version.GetVersion()
	app.Authors = []*cli.Author{{Name: "Kairos authors"}}
	app.Copyright = "kairos authors"
	app.Flags = cmd.Flags
	app.Commands = cmd.Commands
	app.Before = func(c *cli.Context) error {
		utils.SetLogger(c.Bool("debug"))
		v := version.Get()
		utils.Log.Debug().Str("commit", v.GitCommit).Str("compiled with", v.GoVersion).Str("version", v.Version).Msg(version.Name)
		return nil
	}
	app.Action = cmd.Format

	err := app.Run(os.Args)
	if err != nil {
		if !errors.Is(err, cmd.ErrUsage) {
			utils.Log.Err(err).Msg(version.Name)
		}
		os.Exit(constants.ExitCode(err))
	}
}
