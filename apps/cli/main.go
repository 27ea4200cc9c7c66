// puzzlegen cuts every image in a directory into a rows×cols grid of
// pieces and writes a record describing how they fit back together.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/config"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/discover"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/logging"
)

const desc = `Cuts images into a grid of puzzle pieces and writes a reassembly record for each.`

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("puzzlegen"),
		kong.Description(desc),
		kong.UsageOnError(),
	)
	os.Exit(run(&cli))
}

func run(cli *CLI) int {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	cli.apply(&cfg)

	logger, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	logging.SetLogger(logger)

	images, err := discover.Images(cfg.SourceDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan %s: %v\n", cfg.SourceDir, err)
		return 1
	}
	if len(images) == 0 {
		fmt.Printf("\nNo images found in directory (%s).\n\n", cfg.SourceDir)
		fmt.Print("Supported formats: PNG, JPG, WEBP.\n\n")
		return 0
	}
	fmt.Printf("Found %d image%s in %s.\n\n", len(images), plural(len(images)), cfg.SourceDir)

	if err := config.NewPrompter(os.Stdin, os.Stdout).FillGrid(&cfg); err != nil {
		if errors.Is(err, config.ErrNoInput) {
			fmt.Fprintln(os.Stderr, "rows and cols are required")
		} else {
			fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		}
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen, cleanup, err := newGenerator(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cleanup()

	rep := gen.Run(ctx, images)
	for _, res := range rep.Results {
		fmt.Printf("Generated %s: %d pieces, record %s\n", res.Name, len(res.Pieces), res.Spec)
	}
	for _, f := range rep.Failed {
		fmt.Fprintf(os.Stderr, "Skipped %s: %v\n", f.Source, f.Err)
	}
	if n := rep.PostFailures(); n > 0 {
		fmt.Fprintf(os.Stderr, "%d piece%s could not be post-processed\n", n, plural(n))
	}
	if len(rep.Failed) > 0 {
		return 1
	}
	return 0
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
