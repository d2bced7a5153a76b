// Package logger configures the zerolog logger shared by the server and
// ledgerctl.
package logger

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

const service = "archive-ledger"

// New logs to stderr, in color when stderr is a terminal and as JSON lines
// otherwise.
func New(level string) zerolog.Logger {
	var out io.Writer = os.Stderr
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return NewWithWriter(level, out)
}

func NewWithWriter(level string, out io.Writer) zerolog.Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	logLevel, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		logLevel = zerolog.InfoLevel
		if level != "" {
			fmt.Fprintf(os.Stderr, "Invalid log level '%s', defaulting to 'info'\n", level)
		}
	}

	goVersion, gitRevision := buildInfo()

	l := zerolog.New(out).
		Level(logLevel).
		With().
		Timestamp().
		Caller().
		Str("service", service).
		Int("pid", os.Getpid()).
		Str("go_version", goVersion).
		Str("git_revision", gitRevision).
		Logger()

	zerolog.DefaultContextLogger = &l
	return l
}

func buildInfo() (goVersion, gitRevision string) {
	goVersion, gitRevision = "unknown", "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	goVersion = info.GoVersion
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			gitRevision = s.Value
			break
		}
	}
	return
}
