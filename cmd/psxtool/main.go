// psxtool is a CLI utility for inspecting and rewriting Unreal PSK meshes
// and PSA animations.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/psxkit/internal/config"
	"github.com/Faultbox/psxkit/internal/logger"
	"github.com/Faultbox/psxkit/pkg/psx"
	"go.uber.org/zap"
)

// errUsage reports a command line that could not be parsed. The usage text
// has already been printed.
var errUsage = errors.New("usage")

func main() {
	code := run(os.Args[1:], os.Stdout, os.Stderr)
	logger.Sync()
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	a := &app{stdout: stdout, stderr: stderr}
	command, rest := args[0], args[1:]

	var err error
	switch command {
	case "info":
		err = a.cmdInfo(rest)
	case "sequences", "seq":
		err = a.cmdSequences(rest)
	case "keys":
		err = a.cmdKeys(rest)
	case "convert":
		err = a.cmdConvert(rest)
	case "normalize":
		err = a.cmdNormalize(rest)
	case "validate":
		err = a.cmdValidate(rest)
	case "config":
		err = a.cmdConfig(rest)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return 2
	}

	switch {
	case errors.Is(err, errUsage):
		return 2
	case err != nil:
		logger.Debug("command failed", zap.String("command", command), zap.Error(err))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `psxtool - Unreal PSK/PSA utility

Usage:
  psxtool <command> [options] <args>

Commands:
  info <file>                              Show sections, counts and names
  sequences <file.psa>                     List animation sequences
  keys [-frame N] <file.psa> <sequence>    Print a sequence's keys per frame
  convert [-extended] [-normalize] <in> <out>
                                           Read and rewrite a PSK or PSA file
  normalize <in.psk> <out.psk>             Sort and normalize vertex weights
  validate <file>                          Check cross-reference indices
  config [-save] [-o path]                 Print or save the effective config

Options (all commands):
  -config <path>    Config file (.yaml or .toml)
  -debug            Enable debug logging
  -log-file <path>  Also write logs to a rotating file
  -strict           Reject files with repeated sections

Examples:
  psxtool info SK_Mannequin.psk
  psxtool keys -frame 0 Idle.psa Idle
  psxtool convert -extended -normalize in.psk out.pskx`)
}

// app carries the per-invocation state shared by every command.
type app struct {
	stdout, stderr io.Writer

	cfg     *config.Config
	opts    []psx.Option
	skipped []psx.Diagnostic
}

// flagSet returns a FlagSet with the global flags bound to flags.
func (a *app) flagSet(name string, flags *config.Flags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	flags.Register(fs)
	return fs
}

// parse parses args, checks the positional count, then loads the config and
// initializes logging.
func (a *app) parse(fs *flag.FlagSet, flags *config.Flags, args []string, nargs int, usage string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < nargs {
		fmt.Fprintln(a.stderr, "Usage: psxtool "+usage)
		return errUsage
	}

	cfg, err := config.Load(*flags)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return err
	}

	a.cfg = cfg
	a.skipped = nil
	a.opts = []psx.Option{
		psx.WithLogger(logger.Named("psx")),
		psx.WithDiagnostics(func(d psx.Diagnostic) {
			a.skipped = append(a.skipped, d)
		}),
	}
	if cfg.Read.Strict {
		a.opts = append(a.opts, psx.Strict())
	}
	return nil
}

// reportSkipped prints the sections the last read skipped.
func (a *app) reportSkipped() {
	if !a.cfg.Read.ReportSkipped || len(a.skipped) == 0 {
		return
	}
	fmt.Fprintf(a.stdout, "\nSkipped sections: %d\n", len(a.skipped))
	for _, d := range a.skipped {
		fmt.Fprintf(a.stdout, "  %s\n", d)
	}
}
