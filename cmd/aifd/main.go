// Command aifd runs an AIF on the local device.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

var version = "dev"

type app struct {
	ctx context.Context
	out io.Writer
	err io.Writer
}

type cli struct {
	Run     runCmd     `cmd:"" help:"Boot the AIF and run until interrupted."`
	Inspect inspectCmd `cmd:"" help:"Print the bindings and sub-AIMs of an AIW document."`
	Seed    seedCmd    `cmd:"" help:"Write the CAE-REV metadata into a sqlite config store."`
	Version versionCmd `cmd:"" help:"Print the aifd version."`
}

type versionCmd struct{}

func (versionCmd) Run(a *app) error {
	_, err := fmt.Fprintln(a.out, "aifd", version)
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "aifd:", err)
		stop()
		os.Exit(1)
	}
}

func execute(ctx context.Context, args []string, out, errOut io.Writer) error {
	var root cli
	parser, err := kong.New(&root,
		kong.Name("aifd"),
		kong.Description("MPAI AI Framework runtime."),
		kong.Writers(out, errOut),
		kong.UsageOnError(),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kctx.Run(&app{ctx: ctx, out: out, err: errOut})
}
