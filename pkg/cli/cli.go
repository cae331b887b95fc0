package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// EnvFile is the dotenv file read before every command.
var EnvFile = ".env"

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	cfg    Config
	log    zerolog.Logger
}

// Run executes the command named by args[0] and returns the process exit
// code.
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	cmd, ok := lookupCommand(args[0])
	if !ok {
		fmt.Fprintf(stderr, "unknown command: %s\n", args[0])
		usage(stderr)
		return 2
	}

	cfg, err := LoadConfig(EnvFile)
	if err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return 1
	}
	a := &app{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		cfg:    cfg,
		log:    NewLogger(stderr, cfg.LogLevel),
	}
	if err := cmd.run(a, args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		a.log.Debug().Err(err).Str("command", cmd.Name).Msg("command failed")
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// RunCLI runs the process arguments against the standard streams.
func RunCLI() {
	os.Exit(Run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// flagSet returns a flag set for the named command printing its help on
// parse errors.
func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		if c, ok := lookupCommand(name); ok {
			fmt.Fprint(a.stderr, commandHelp(c))
		}
	}
	return fs
}

func (a *app) help(args []string) error {
	if len(args) == 0 {
		usage(a.stdout)
		return nil
	}
	c, ok := lookupCommand(args[0])
	if !ok {
		return fmt.Errorf("unknown command: %s", args[0])
	}
	fmt.Fprint(a.stdout, commandHelp(c))
	return nil
}
