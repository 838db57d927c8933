package utils

import (
	"io"
	"os"
	"path/filepath"

	"github.com/kairos-io/recoveryroots/internal/constants"
	"github.com/rs/zerolog"
)

// Log is the logger shared by every package. It discards everything until SetLogger is called.
var Log = zerolog.Nop()

// SetLogger configures Log to write to stderr and, when possible, to a file under constants.LogDir.
// Debug level is enabled by the flag, by rd.rootfmt.debug on the cmdline or by ROOTFMT_DEBUG.
func SetLogger(debug bool) {
	level := zerolog.InfoLevel

	debugFromCmdline := len(ReadCMDLineArg("rd.rootfmt.debug")) > 0
	debugFromEnv := os.Getenv("ROOTFMT_DEBUG") != ""
	if debug || debugFromCmdline || debugFromEnv {
		level = zerolog.DebugLevel
	}

	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr}}
	if err := os.MkdirAll(constants.LogDir, os.ModeDir|os.ModePerm); err == nil {
		f, err := os.OpenFile(filepath.Join(constants.LogDir, "rootfmt.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			writers = append(writers, f)
		}
	}

	Log = zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).With().Timestamp().Logger()
}
