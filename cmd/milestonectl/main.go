package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, env *env, args []string) error
}

// env carries the process streams so commands can be driven from tests.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

var commands = []command{
	{"decode", "decode a proposed-milestones blob to JSON", runDecode},
	{"encode", "encode a JSON milestone list to hex", runEncode},
	{"directive", "decode a payData directive", runDirective},
	{"hash", "keccak256 of a proposed-milestones blob", runHash},
	{"config", "write or validate a daemon config", runConfig},
	{"serve", "run the HTTP daemon", runServe},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := &env{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := run(ctx, e, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "milestonectl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(e.stderr)
		return nil
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(ctx, e, args[1:])
		}
	}
	printUsage(e.stderr)
	return fmt.Errorf("unknown command %q", args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: milestonectl <command> [flags]")
	fmt.Fprintln(w)
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.summary)
	}
}

func newFlagSet(name string, e *env) *pflag.FlagSet {
	fs := pflag.NewFlagSet("milestonectl "+name, pflag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

// parseFlags treats --help as success.
func parseFlags(fs *pflag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return false, nil
		}
		return false, err
	}
	if fs.NArg() > 0 {
		return false, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return true, nil
}

// readInput returns inline data when set, else the named file, else stdin.
func readInput(e *env, inline, path string) (string, error) {
	if inline != "" {
		return strings.TrimSpace(inline), nil
	}
	var (
		raw []byte
		err error
	)
	if path != "" && path != "-" {
		raw, err = os.ReadFile(path)
	} else {
		raw, err = io.ReadAll(e.stdin)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
